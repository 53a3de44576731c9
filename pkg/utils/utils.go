package utils

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var ErrNotFound = errors.New("file not found on server")

// MaxSourceSize caps a layout read from any source.
const MaxSourceSize = 8 << 20

var httpClient = &http.Client{Timeout: 30 * time.Second}

// countingWriter logs download progress every megabyte.
type countingWriter struct {
	w     io.Writer
	label string
	n     uint64
	next  uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	if c.n >= c.next {
		log.Printf("%s: %s downloaded", c.label, humanize.Bytes(c.n))
		c.next = c.n + 1<<20
	}
	return n, err
}

func get(url string) (io.ReadCloser, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: bad status: %s", url, resp.Status)
	}
}

// DownloadFile writes url to path through a temp file in the same directory, so a partial download
// never replaces a good copy.
func DownloadFile(url, path string) error {
	body, err := get(url)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	cw := &countingWriter{w: tmp, label: filepath.Base(path), next: 1 << 20}
	if _, err := io.Copy(cw, io.LimitReader(body, MaxSourceSize)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	log.Printf("%s: done (%s)", cw.label, humanize.Bytes(cw.n))
	return os.Rename(tmp.Name(), path)
}

// CacheFileName is the cache entry for a URL: the last path element without the query, prefixed
// with the log tag so two sources serving the same name do not collide.
func CacheFileName(url, logPrefix string) string {
	name := url
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	name = name[strings.LastIndexByte(name, '/')+1:]

	tag := strings.ReplaceAll(strings.Trim(logPrefix, "[]"), " ", "_")
	if tag == "" {
		return name
	}
	return tag + "_" + name
}

// GetCachedReader opens url from cacheDir, downloading it on first use. An empty cacheDir streams
// the response instead.
func GetCachedReader(url, cacheDir, logPrefix string) (io.ReadCloser, error) {
	if cacheDir == "" {
		log.Printf("%s Streaming from %s", logPrefix, url)
		return get(url)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	local := filepath.Join(cacheDir, CacheFileName(url, logPrefix))
	if _, err := os.Stat(local); err == nil {
		log.Printf("%s Using cached file: %s", logPrefix, local)
	} else if os.IsNotExist(err) {
		log.Printf("%s Downloading %s", logPrefix, url)
		if err := DownloadFile(url, local); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}
	return os.Open(local)
}

// ReadSource reads a layout from a local path or an http(s) URL.
func ReadSource(src, cacheDir string) ([]byte, error) {
	var r io.ReadCloser
	var err error
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		r, err = GetCachedReader(src, cacheDir, "[LAYOUT]")
	} else {
		r, err = os.Open(src)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, MaxSourceSize))
}

package roomengine

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

func captureFileName(timestamp time.Time, suffix string) string {
	return fmt.Sprintf("room-%s-%s.png", timestamp.Format("20060102-150405"), suffix)
}

func (e *Engine) captureFrame(img *ebiten.Image, suffix string, timestamp time.Time) {
	if e.FrameCaptureDir == "" {
		log.Println("[CAPTURE] No capture directory configured")
		return
	}

	if err := os.MkdirAll(e.FrameCaptureDir, 0o755); err != nil {
		log.Printf("[CAPTURE] Error creating capture directory: %v", err)
		return
	}
	path := filepath.Join(e.FrameCaptureDir, captureFileName(timestamp, suffix))

	// Read pixels on the render goroutine; encode off it.
	rgba := image.NewRGBA(img.Bounds())
	img.ReadPixels(rgba.Pix)

	go func() {
		if err := writePNG(path, rgba); err != nil {
			log.Printf("[CAPTURE] %v", err)
			return
		}
		log.Printf("[CAPTURE] Captured frame: %s", path)
	}()
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing capture file: %w", cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding capture: %w", err)
	}
	return nil
}

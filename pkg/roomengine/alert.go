package roomengine

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/go-mp3"
)

// DefaultAlertCooldown keeps a flapping zone from ringing every tick.
const DefaultAlertCooldown = 15 * time.Second

const alertFade = 300 * time.Millisecond

// AlertPlayer plays a short MP3 chime when a zone enters the high risk tier. Decoded PCM is either
// played through ebiten audio or written raw (s16le stereo) to AudioWriter for a stream muxer.
type AlertPlayer struct {
	Path        string
	Cooldown    time.Duration
	AudioWriter io.Writer
	Title       string

	mu           sync.Mutex
	writeMu      sync.Mutex // one chime at a time on AudioWriter
	pcm          []byte
	sampleRate   int
	lastPlayed   time.Time
	audioContext *audio.Context
	player       *audio.Player
}

func NewAlertPlayer(path string, writer io.Writer) *AlertPlayer {
	return &AlertPlayer{Path: path, Cooldown: DefaultAlertCooldown, AudioWriter: writer}
}

// Load decodes the chime once and reads its title from the ID3 tag or, failing that, the file name.
func (p *AlertPlayer) Load() error {
	f, err := os.Open(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	title := ""
	if m, err := tag.ReadFrom(f); err == nil {
		title = m.Title()
	}
	if title == "" {
		title = titleFromFilename(p.Path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", p.Path, err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", p.Path, err)
	}
	applyFadeOut(pcm, d.SampleRate(), alertFade)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pcm, p.sampleRate, p.Title = pcm, d.SampleRate(), title
	log.Printf("[ALERT] Loaded %q (%s)", title, p.Path)
	return nil
}

// Trigger plays the chime unless it played within the cooldown. It reports whether it fired.
func (p *AlertPlayer) Trigger(now time.Time) bool {
	p.mu.Lock()
	if p.pcm == nil || (!p.lastPlayed.IsZero() && now.Sub(p.lastPlayed) < p.Cooldown) {
		p.mu.Unlock()
		return false
	}
	p.lastPlayed = now
	pcm := p.pcm
	p.mu.Unlock()

	go p.play(pcm)
	return true
}

func (p *AlertPlayer) play(pcm []byte) {
	if p.AudioWriter != nil {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()
		if _, err := p.AudioWriter.Write(pcm); err != nil {
			log.Printf("[ALERT] Stream write error: %v", err)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audioContext == nil {
		p.audioContext = audio.CurrentContext()
		if p.audioContext == nil {
			p.audioContext = audio.NewContext(p.sampleRate)
		}
	}
	if p.player != nil {
		_ = p.player.Close()
	}
	p.player = p.audioContext.NewPlayerFromBytes(pcm)
	p.player.Play()
	log.Printf("[ALERT] Playing: %s", p.Title)
}

// titleFromFilename turns "High Risk - Ward Chime.mp3" into "High Risk".
func titleFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if parts := strings.SplitN(base, " - ", 2); len(parts) == 2 {
		return parts[0]
	}
	return base
}

// applyFadeOut ramps the last fade of s16le stereo PCM down to silence.
func applyFadeOut(pcm []byte, sampleRate int, fade time.Duration) {
	const frameBytes = 4
	frames := len(pcm) / frameBytes
	fadeFrames := int(fade.Seconds() * float64(sampleRate))
	if fadeFrames <= 0 || frames == 0 {
		return
	}
	if fadeFrames > frames {
		fadeFrames = frames
	}
	start := frames - fadeFrames
	for i := start; i < frames; i++ {
		vol := float64(frames-1-i) / float64(fadeFrames)
		for ch := 0; ch < 2; ch++ {
			off := i*frameBytes + ch*2
			sample := int16(binary.LittleEndian.Uint16(pcm[off:]))
			sample = int16(float64(sample) * vol)
			binary.LittleEndian.PutUint16(pcm[off:], uint16(sample))
		}
	}
}

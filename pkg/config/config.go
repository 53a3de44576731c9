// Package config holds the command line and config file settings shared by the room binaries.
package config

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sterilysense/roomview/pkg/layout"
	"github.com/sterilysense/roomview/pkg/roomview"
	"github.com/sterilysense/roomview/pkg/utils"
)

// StorePrefix selects a layout from the badger store instead of a file.
const StorePrefix = "store:"

// DefaultPaths are read in order; later files do not override earlier ones.
var DefaultPaths = []string{"roomview.yaml", "~/.config/roomview/config.yaml"}

// Options returns the kong options every binary parses with.
func Options(name, description string) []kong.Option {
	return []kong.Option{
		kong.Name(name),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Configuration(YAML, DefaultPaths...),
	}
}

// SetupLogging matches the log format of every binary.
func SetupLogging() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

type Simulation struct {
	Tick time.Duration `help:"Simulation tick period." default:"3s"`
	Seed int64         `help:"Random seed for the simulation. 0 seeds from the clock."`
}

// Source returns the random source for the simulation clock.
func (s Simulation) Source() *rand.Rand {
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

type Room struct {
	Layout   string `help:"Layout GeoJSON file, http(s) URL or store:<name>. Empty uses the built-in healthcare room."`
	Store    string `help:"Badger layout store directory." default:"data/layouts" type:"path"`
	CacheDir string `help:"Download cache for remote layouts." default:"data/cache" type:"path"`
	Watch    bool   `help:"Reload the layout file when it changes."`
}

// Load resolves the configured layout.
func (r Room) Load() (*layout.Layout, error) {
	switch {
	case r.Layout == "":
		return layout.Default(), nil
	case strings.HasPrefix(r.Layout, StorePrefix):
		return r.loadFromStore(strings.TrimPrefix(r.Layout, StorePrefix))
	case strings.HasPrefix(r.Layout, "http://"), strings.HasPrefix(r.Layout, "https://"):
		data, err := utils.ReadSource(r.Layout, r.CacheDir)
		if err != nil {
			return nil, err
		}
		l, err := layout.Parse(data)
		if err != nil {
			return nil, err
		}
		base := utils.CacheFileName(r.Layout, "")
		l.Name = strings.TrimSuffix(base, filepath.Ext(base))
		return l, nil
	}
	return layout.Load(r.Layout)
}

func (r Room) loadFromStore(name string) (*layout.Layout, error) {
	store, err := utils.OpenLayoutStore(r.Store)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	data, err := store.Get(name)
	if err != nil {
		return nil, fmt.Errorf("layout %q: %w", name, err)
	}
	l, err := layout.Parse(data)
	if err != nil {
		return nil, err
	}
	l.Name = name
	return l, nil
}

// Watchable reports whether the layout is a local file that can be hot reloaded.
func (r Room) Watchable() bool {
	if !r.Watch || r.Layout == "" || strings.HasPrefix(r.Layout, StorePrefix) {
		return false
	}
	return !strings.HasPrefix(r.Layout, "http://") && !strings.HasPrefix(r.Layout, "https://")
}

type View struct {
	Metric     string `help:"Initial metric (contamination, bacterial, uv)." default:"contamination" enum:"contamination,bacterial,uv"`
	Projection string `help:"Initial projection mode." default:"3D" enum:"2D,3D"`
}

// Apply sets the initial camera on a controller.
func (v View) Apply(c *roomview.Controller) error {
	m, err := roomview.ParseMetric(v.Metric)
	if err != nil {
		return err
	}
	if err := c.SetMetric(m); err != nil {
		return err
	}
	mode, err := roomview.ParseProjectionMode(v.Projection)
	if err != nil {
		return err
	}
	return c.SetProjection(mode)
}

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sterilysense/roomview/pkg/analytics"
	"github.com/sterilysense/roomview/pkg/config"
	"github.com/sterilysense/roomview/pkg/layout"
	"github.com/sterilysense/roomview/pkg/roomview"
	"github.com/sterilysense/roomview/pkg/utils"
)

type Globals struct {
	Config   kong.ConfigFlag `help:"YAML config file."`
	Store    string          `help:"Badger layout store directory." default:"data/layouts" type:"path"`
	CacheDir string          `help:"Download cache for remote layouts." default:"data/cache" type:"path"`
}

func (g *Globals) open() (*utils.LayoutStore, error) {
	return utils.OpenLayoutStore(g.Store)
}

type ImportCmd struct {
	Sources []string `arg:"" help:"GeoJSON files or http(s) URLs."`
	Name    string   `help:"Store name (single source only). Defaults to the file name."`
}

func (c *ImportCmd) Run(g *Globals) error {
	if c.Name != "" && len(c.Sources) != 1 {
		return fmt.Errorf("--name needs exactly one source, got %d", len(c.Sources))
	}
	entries := make(map[string][]byte, len(c.Sources))
	for _, src := range c.Sources {
		data, err := utils.ReadSource(src, g.CacheDir)
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		l, err := layout.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		name := c.Name
		if name == "" {
			name = layoutName(src)
		}
		entries[name] = data
		log.Printf("[STORE] Importing %s as %q (%d zones)", src, name, len(l.Zones))
	}

	store, err := g.open()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.PutBatch(entries)
}

func layoutName(src string) string {
	base := filepath.Base(strings.SplitN(src, "?", 2)[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type ListCmd struct{}

func (c *ListCmd) Run(g *Globals) error {
	store, err := g.open()
	if err != nil {
		return err
	}
	defer store.Close()

	return store.ForEach(func(name string, data []byte) error {
		l, err := layout.Parse(data)
		if err != nil {
			fmt.Printf("%-24s invalid: %v\n", name, err)
			return nil
		}
		counts, err := roomview.Aggregate(l.Zones, roomview.MetricContamination)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %2d zones  clean %d  medium %d  high %d\n",
			name, len(l.Zones), counts.Clean, counts.MediumRisk, counts.HighRisk)
		return nil
	})
}

type ExportCmd struct {
	Name string `arg:"" help:"Stored layout name."`
	Out  string `short:"o" help:"Output file. Defaults to stdout." type:"path"`
}

func (c *ExportCmd) Run(g *Globals) error {
	store, err := g.open()
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := store.Get(c.Name)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return writeOut(c.Out, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

type DeleteCmd struct {
	Name string `arg:"" help:"Stored layout name."`
}

func (c *DeleteCmd) Run(g *Globals) error {
	store, err := g.open()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Delete(c.Name)
}

type ScatterCmd struct {
	Samples int    `help:"Number of UV cycles." default:"75"`
	Seed    int64  `help:"Random seed. 0 seeds from the clock."`
	Out     string `short:"o" help:"HTML output file." default:"uv-scatter.html" type:"path"`
}

func (c *ScatterCmd) Run(g *Globals) error {
	samples := analytics.GenerateSamples(c.Samples, config.Simulation{Seed: c.Seed}.Source())
	corr, err := analytics.Correlate(samples)
	if err != nil {
		return err
	}
	fmt.Printf("Correlation (r):            %.2f\n", corr.R)
	fmt.Printf("Variance explained (r²):    %.0f%%\n", corr.RSquared*100)
	fmt.Printf("Avg. reduction per 10%% UV: %.1f%%\n", corr.ReductionPer10UV)

	return writeOut(c.Out, func(w io.Writer) error {
		return analytics.RenderScatter(w, samples)
	})
}

type TrendCmd struct {
	config.Simulation `embed:""`

	Layout string `help:"Layout GeoJSON file, http(s) URL or store:<name>. Empty uses the built-in healthcare room."`
	Ticks  int    `help:"Simulation ticks to run." default:"60"`
	Metric string `help:"Metric to plot." default:"contamination" enum:"contamination,bacterial,uv"`
	Out    string `short:"o" help:"Image output file; the extension picks the format." default:"tier-trend.png" type:"path"`
}

func (c *TrendCmd) Run(g *Globals) error {
	room := config.Room{Layout: c.Layout, Store: g.Store, CacheDir: g.CacheDir}
	l, err := room.Load()
	if err != nil {
		return err
	}
	controller, err := roomview.NewController(l.Zones)
	if err != nil {
		return err
	}
	m, err := roomview.ParseMetric(c.Metric)
	if err != nil {
		return err
	}

	rng := c.Simulation.Source()
	now := time.Now()
	for i := 0; i < c.Ticks; i++ {
		controller.Tick(rng, now.Add(time.Duration(i)*c.Tick))
	}
	if err := analytics.SaveTierHistory(c.Out, controller.History(), m); err != nil {
		return err
	}
	log.Printf("Wrote %s trend for %q to %s", m.Title(), l.Name, c.Out)
	return nil
}

func writeOut(path string, write func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return err
	}
	log.Printf("Wrote %s", path)
	return nil
}

var cli struct {
	Globals

	Import  ImportCmd  `cmd:"" help:"Validate GeoJSON layouts and store them."`
	List    ListCmd    `cmd:"" help:"List stored layouts."`
	Export  ExportCmd  `cmd:"" help:"Write a stored layout as GeoJSON."`
	Delete  DeleteCmd  `cmd:"" help:"Remove a stored layout."`
	Scatter ScatterCmd `cmd:"" help:"Render the UV efficiency vs bacterial load study."`
	Trend   TrendCmd   `cmd:"" help:"Simulate a room and plot its tier counts."`
}

func main() {
	ctx := kong.Parse(&cli, config.Options("room-layouts", "Manage stored room layouts and export analytics.")...)
	config.SetupLogging()
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

package analytics

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sterilysense/roomview/pkg/roomview"
)

// RenderScatter writes the UV efficiency study as a standalone HTML chart, one series per location.
func RenderScatter(w io.Writer, samples []Sample) error {
	corr, err := Correlate(samples)
	if err != nil {
		return err
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "UV Efficiency vs Bacterial Load", Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "UV Efficiency vs Bacterial Load",
			Subtitle: fmt.Sprintf("r=%.2f  r²=%.0f%%  %.1f%% reduction per 10%% UV  n=%d",
				corr.R, corr.RSquared*100, corr.ReductionPer10UV, corr.Samples),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Min: 60, Max: 100, Name: "UV Intensity (%)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 3000, Name: "Bacterial Load (CFU)", NameLocation: "middle", NameGap: 45}),
	)

	byLocation := make(map[string][]opts.ScatterData, len(Locations))
	for _, s := range samples {
		byLocation[s.Location] = append(byLocation[s.Location], opts.ScatterData{
			Name:  fmt.Sprintf("%s, humidity %.1f%%", s.Location, s.Humidity),
			Value: []interface{}{s.UV, s.FinalCFU},
		})
	}
	for _, loc := range Locations {
		if data, ok := byLocation[loc]; ok {
			scatter.AddSeries(loc, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
		}
	}
	return scatter.Render(w)
}

// TierHistoryPlot draws the clean, medium and high counts of one metric over the recorded history.
func TierHistoryPlot(history []roomview.Snapshot, m roomview.Metric) (*plot.Plot, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", roomview.ErrUnknownMetric, m)
	}
	if len(history) == 0 {
		return nil, ErrTooFewSamples
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s tiers", m.Title())
	p.X.Label.Text = "Seconds"
	p.Y.Label.Text = "Zones"

	start := history[0].At
	series := []struct {
		name  string
		tier  roomview.Tier
		color color.Color
	}{
		{"Clean", roomview.TierClean, roomview.Palette(m, roomview.Success)},
		{"Medium Risk", roomview.TierMedium, roomview.Palette(m, roomview.Warning)},
		{"High Risk", roomview.TierHigh, roomview.Palette(m, roomview.Danger)},
	}
	for _, s := range series {
		pts := make(plotter.XYs, 0, len(history))
		for _, snap := range history {
			pts = append(pts, plotter.XY{X: snap.At.Sub(start).Seconds(), Y: float64(snap.For(m).Count(s.tier))})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteTierHistory encodes the trend plot as PNG.
func WriteTierHistory(w io.Writer, history []roomview.Snapshot, m roomview.Metric) error {
	p, err := TierHistoryPlot(history, m)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveTierHistory writes the trend plot to path; the extension picks the format.
func SaveTierHistory(path string, history []roomview.Snapshot, m roomview.Metric) error {
	p, err := TierHistoryPlot(history, m)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}


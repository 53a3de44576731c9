// Package analytics derives the UV efficiency study and tier trend exports from room data.
package analytics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sterilysense/roomview/pkg/roomview"
)

var (
	ErrTooFewSamples = errors.New("at least two samples are required")
	ErrNoVariance    = errors.New("samples have no variance")
)

// DefaultSampleCount matches the size of the UV efficiency study shown on the dashboard.
const DefaultSampleCount = 75

// Locations sampled by the UV efficiency study.
var Locations = []string{"Door Handle", "Bed Rail", "IV Stand", "Monitor Screen", "Sink Faucet", "Window Sill"}

const (
	minFinalCFU  = 50.0
	minReduction = 0.5
)

// Sample is one UV disinfection cycle: the UV intensity used and the load left afterwards.
type Sample struct {
	Location   string  `json:"location"`
	UV         float64 `json:"uv"`
	Humidity   float64 `json:"humidity"`
	InitialCFU float64 `json:"initialCfu"`
	FinalCFU   float64 `json:"bacterial"`
	Efficiency float64 `json:"efficiency"`
}

// GenerateSamples synthesises n UV cycles. Higher UV removes more of the initial load; humidity above
// 35% eats into the reduction by up to 15 points, and no cycle removes less than half. A negative n
// yields no samples.
func GenerateSamples(n int, rng roomview.RandomSource) []Sample {
	n = max(n, 0)
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		uv := 60 + rng.Float64()*40
		base := 0.75 + (uv-60)/40*0.2
		humidity := 35 + rng.Float64()*40
		penalty := (humidity - 35) / 40 * 0.15
		reduction := math.Max(minReduction, base-penalty)
		initial := 200 + rng.Float64()*2800
		final := initial*(1-reduction) + rng.Float64()*100
		loc := Locations[int(rng.Float64()*float64(len(Locations)))%len(Locations)]

		out = append(out, Sample{
			Location:   loc,
			UV:         math.Round(uv*100) / 100,
			Humidity:   math.Round(humidity*100) / 100,
			InitialCFU: math.Round(initial),
			FinalCFU:   math.Max(minFinalCFU, math.Round(final)),
			Efficiency: math.Round(reduction * 100),
		})
	}
	return out
}

// Correlation summarises how strongly UV intensity predicts the remaining bacterial load.
type Correlation struct {
	R         float64 `json:"r"`
	RSquared  float64 `json:"rSquared"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	// ReductionPer10UV is the drop in load, as a percentage of the mean load, for every 10 points of UV.
	ReductionPer10UV float64 `json:"reductionPer10Uv"`
	Samples          int     `json:"samples"`
}

func Correlate(samples []Sample) (Correlation, error) {
	if len(samples) < 2 {
		return Correlation{}, ErrTooFewSamples
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i] = s.UV, s.FinalCFU
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return Correlation{}, ErrNoVariance
	}
	mean := stat.Mean(ys, nil)

	c := Correlation{
		R:         r,
		RSquared:  stat.RSquared(xs, ys, nil, alpha, beta),
		Slope:     beta,
		Intercept: alpha,
		Samples:   len(samples),
	}
	if mean != 0 {
		c.ReductionPer10UV = -beta * 10 / mean * 100
	}
	return c, nil
}

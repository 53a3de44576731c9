package roomview

import (
	"fmt"
	"math"
)

type Metric string

const (
	MetricContamination Metric = "contamination"
	MetricBacterial     Metric = "bacterial"
	MetricUV            Metric = "uv"
)

// Metrics lists the metrics in selector order.
var Metrics = []Metric{MetricContamination, MetricBacterial, MetricUV}

// CFUPerPercent maps the expected 0-3000 CFU range onto 0-100.
const CFUPerPercent = 30.0

func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
	return m, nil
}

func (m Metric) Valid() bool {
	switch m {
	case MetricContamination, MetricBacterial, MetricUV:
		return true
	}
	return false
}

// Title is the selector label shown for the metric.
func (m Metric) Title() string {
	switch m {
	case MetricContamination:
		return "Contamination"
	case MetricBacterial:
		return "Bacterial"
	case MetricUV:
		return "UV Intensity"
	}
	return string(m)
}

// Resolve extracts the 0-100 scalar used for colouring and risk tiers.
func Resolve(z Zone, m Metric) (float64, error) {
	switch m {
	case MetricContamination:
		return z.ContaminationLevel, nil
	case MetricBacterial:
		return math.Min(100, z.BacterialCount/CFUPerPercent), nil
	case MetricUV:
		return z.UVIntensity, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
}

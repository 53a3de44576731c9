package roomview

import (
	"fmt"
	"image/color"
	"math"
)

type RiskColor int

const (
	Success RiskColor = iota
	Warning
	Danger
)

func (c RiskColor) String() string {
	switch c {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	}
	return fmt.Sprintf("RiskColor(%d)", int(c))
}

// MarshalText lets scenes carry the token name on the wire.
func (c RiskColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Bacterial thresholds in CFU, compared on the resolver's normalized scale.
const (
	BacterialDangerCFU  = 2000.0
	BacterialWarningCFU = 1000.0
)

// MinOpacity keeps near-zero readings visible.
const MinOpacity = 0.3

var (
	ColorDanger  = color.RGBA{239, 68, 68, 255}  // #ef4444
	ColorWarning = color.RGBA{245, 158, 11, 255} // #f59e0b
	ColorSuccess = color.RGBA{16, 185, 129, 255} // #10b981

	ColorBacterialDanger  = color.RGBA{220, 38, 38, 255} // #dc2626
	ColorBacterialWarning = color.RGBA{234, 88, 12, 255} // #ea580c
	ColorBacterialSuccess = color.RGBA{5, 150, 105, 255} // #059669
)

// ColorFor maps a resolved 0-100 scalar to a colour token and opacity.
// Contamination and bacterial load are worse when higher; UV intensity is better when higher.
func ColorFor(scalar float64, m Metric) (RiskColor, float64, error) {
	s := clamp(scalar, 0, 100)
	if math.IsNaN(scalar) {
		s = 0
	}
	opacity := math.Max(MinOpacity, s/100)

	switch m {
	case MetricContamination:
		switch {
		case s > 70:
			return Danger, opacity, nil
		case s > 40:
			return Warning, opacity, nil
		}
		return Success, opacity, nil
	case MetricBacterial:
		switch {
		case s > BacterialDangerCFU/CFUPerPercent:
			return Danger, opacity, nil
		case s > BacterialWarningCFU/CFUPerPercent:
			return Warning, opacity, nil
		}
		return Success, opacity, nil
	case MetricUV:
		switch {
		case s > 90:
			return Success, opacity, nil
		case s > 75:
			return Warning, opacity, nil
		}
		return Danger, opacity, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
}

// Palette returns the display colour of a token under a metric.
func Palette(m Metric, c RiskColor) color.RGBA {
	if m == MetricBacterial {
		switch c {
		case Danger:
			return ColorBacterialDanger
		case Warning:
			return ColorBacterialWarning
		}
		return ColorBacterialSuccess
	}
	switch c {
	case Danger:
		return ColorDanger
	case Warning:
		return ColorWarning
	}
	return ColorSuccess
}

// Package roomview holds the spatial and live-metric core of the room contamination viewer:
// metric resolution, colour mapping, projection, simulation and aggregation of zones.
package roomview

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidZone       = errors.New("invalid zone")
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrUnknownProjection = errors.New("unknown projection mode")
)

// Reading domains.
const (
	MinContamination = 0.0
	MaxContamination = 100.0
	MinUV            = 60.0
	MaxUV            = 100.0
)

type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

type Extent struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

// Zone is one monitored surface. Position Z is the depth from the default viewing plane.
type Zone struct {
	ID       string `json:"id" yaml:"id"`
	Surface  string `json:"surface" yaml:"surface"`
	Position Vec3   `json:"position" yaml:"position"`
	Extent   Extent `json:"extent" yaml:"extent"`

	ContaminationLevel float64 `json:"contaminationLevel" yaml:"contamination_level"`
	BacterialCount     float64 `json:"bacterialCount" yaml:"bacterial_count"`
	UVIntensity        float64 `json:"uvIntensity" yaml:"uv_intensity"`

	LastCleaned string `json:"lastCleaned,omitempty" yaml:"last_cleaned,omitempty"`
}

// Validate reports input that cannot be repaired: missing identity or non-finite readings.
func (z Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidZone)
	}
	if z.Surface == "" {
		return fmt.Errorf("%w: zone %q: missing surface label", ErrInvalidZone, z.ID)
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"x", z.Position.X}, {"y", z.Position.Y}, {"z", z.Position.Z},
		{"width", z.Extent.Width}, {"height", z.Extent.Height}, {"depth", z.Extent.Depth},
		{"contaminationLevel", z.ContaminationLevel},
		{"bacterialCount", z.BacterialCount},
		{"uvIntensity", z.UVIntensity},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: zone %q: %s is not finite", ErrInvalidZone, z.ID, f.name)
		}
	}
	return nil
}

// NormalizeZone clamps out-of-range values into their domains.
func NormalizeZone(z Zone) Zone {
	z.Extent.Width = math.Max(0, z.Extent.Width)
	z.Extent.Height = math.Max(0, z.Extent.Height)
	z.Extent.Depth = math.Max(0, z.Extent.Depth)
	z.ContaminationLevel = clamp(z.ContaminationLevel, MinContamination, MaxContamination)
	z.BacterialCount = math.Max(0, z.BacterialCount)
	z.UVIntensity = clamp(z.UVIntensity, MinUV, MaxUV)
	return z
}

// ValidateZones validates every zone, rejects duplicate IDs and returns normalized copies.
func ValidateZones(zones []Zone) ([]Zone, error) {
	out := make([]Zone, 0, len(zones))
	seen := make(map[string]struct{}, len(zones))
	for i, z := range zones {
		if err := z.Validate(); err != nil {
			return nil, fmt.Errorf("zone #%d: %w", i, err)
		}
		if _, dup := seen[z.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidZone, z.ID)
		}
		seen[z.ID] = struct{}{}
		out = append(out, NormalizeZone(z))
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultZones returns the reference healthcare room.
func DefaultZones() []Zone {
	return []Zone{
		{ID: "door_handle", Surface: "Door Handle", Position: Vec3{50, 120, 0}, Extent: Extent{80, 60, 20}, ContaminationLevel: 85, BacterialCount: 2800, UVIntensity: 65, LastCleaned: "2 hours ago"},
		{ID: "bed_rail_1", Surface: "Bed Rail", Position: Vec3{200, 200, 50}, Extent: Extent{120, 40, 30}, ContaminationLevel: 72, BacterialCount: 1850, UVIntensity: 78, LastCleaned: "45 mins ago"},
		{ID: "iv_stand", Surface: "IV Stand", Position: Vec3{350, 150, 0}, Extent: Extent{60, 180, 60}, ContaminationLevel: 28, BacterialCount: 420, UVIntensity: 92, LastCleaned: "20 mins ago"},
		{ID: "monitor", Surface: "Monitor Screen", Position: Vec3{300, 80, 100}, Extent: Extent{100, 80, 40}, ContaminationLevel: 45, BacterialCount: 980, UVIntensity: 85, LastCleaned: "1 hour ago"},
		{ID: "sink", Surface: "Sink Faucet", Position: Vec3{450, 250, 0}, Extent: Extent{90, 70, 50}, ContaminationLevel: 15, BacterialCount: 180, UVIntensity: 95, LastCleaned: "10 mins ago"},
		{ID: "cabinet", Surface: "Cabinet Handle", Position: Vec3{100, 50, 150}, Extent: Extent{150, 80, 60}, ContaminationLevel: 38, BacterialCount: 720, UVIntensity: 88, LastCleaned: "30 mins ago"},
	}
}

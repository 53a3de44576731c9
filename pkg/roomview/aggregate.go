package roomview

import "fmt"

type Tier int

const (
	TierClean Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierClean:
		return "clean"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Risk tier boundaries. These are uniform across metrics and deliberately separate from the
// per-metric colour thresholds.
const (
	CleanBelow = 30.0
	HighFrom   = 70.0
)

func TierOf(scalar float64) Tier {
	switch {
	case scalar < CleanBelow:
		return TierClean
	case scalar < HighFrom:
		return TierMedium
	}
	return TierHigh
}

type TierCounts struct {
	Clean      int `json:"clean"`
	MediumRisk int `json:"mediumRisk"`
	HighRisk   int `json:"highRisk"`
}

func (c TierCounts) Total() int { return c.Clean + c.MediumRisk + c.HighRisk }

func (c TierCounts) Count(t Tier) int {
	switch t {
	case TierClean:
		return c.Clean
	case TierMedium:
		return c.MediumRisk
	case TierHigh:
		return c.HighRisk
	}
	return 0
}

// Aggregate partitions zones into risk tiers under a metric.
func Aggregate(zones []Zone, m Metric) (TierCounts, error) {
	if !m.Valid() {
		return TierCounts{}, fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
	}
	var c TierCounts
	for _, z := range zones {
		s, err := Resolve(z, m)
		if err != nil {
			return TierCounts{}, err
		}
		switch TierOf(s) {
		case TierClean:
			c.Clean++
		case TierMedium:
			c.MediumRisk++
		case TierHigh:
			c.HighRisk++
		}
	}
	return c, nil
}

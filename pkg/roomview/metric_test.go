package roomview

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	z := Zone{ID: "z", Surface: "Z", ContaminationLevel: 42, BacterialCount: 1500, UVIntensity: 77}
	tests := []struct {
		m    Metric
		want float64
	}{
		{MetricContamination, 42},
		{MetricBacterial, 50},
		{MetricUV, 77},
	}
	for _, tt := range tests {
		got, err := Resolve(z, tt.m)
		if err != nil || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Resolve(%s) = %f, %v; want %f", tt.m, got, err, tt.want)
		}
	}

	z.BacterialCount = 9000
	if got, _ := Resolve(z, MetricBacterial); got != 100 {
		t.Errorf("bacterial scalar should saturate at 100, got %f", got)
	}

	if _, err := Resolve(z, "humidity"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got %v", err)
	}
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		scalar      float64
		m           Metric
		want        RiskColor
		wantOpacity float64
	}{
		{85, MetricContamination, Danger, 0.85},
		{70, MetricContamination, Warning, 0.70},
		{40, MetricContamination, Success, 0.40},
		{41, MetricContamination, Warning, 0.41},
		{0, MetricContamination, Success, MinOpacity},
		{150, MetricContamination, Danger, 1},
		{2800.0 / 30, MetricBacterial, Danger, 2800.0 / 3000},
		{1850.0 / 30, MetricBacterial, Warning, 1850.0 / 3000},
		{980.0 / 30, MetricBacterial, Success, 980.0 / 3000},
		{92, MetricUV, Success, 0.92},
		{90, MetricUV, Warning, 0.90},
		{75, MetricUV, Danger, 0.75},
		{65, MetricUV, Danger, 0.65},
	}
	for _, tt := range tests {
		got, op, err := ColorFor(tt.scalar, tt.m)
		if err != nil {
			t.Fatalf("ColorFor(%f, %s) error: %v", tt.scalar, tt.m, err)
		}
		if got != tt.want || math.Abs(op-tt.wantOpacity) > 1e-9 {
			t.Errorf("ColorFor(%f, %s) = %s, %f; want %s, %f", tt.scalar, tt.m, got, op, tt.want, tt.wantOpacity)
		}
	}

	if _, _, err := ColorFor(50, "humidity"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got %v", err)
	}
	if c, op, _ := ColorFor(math.NaN(), MetricContamination); c != Success || op != MinOpacity {
		t.Errorf("NaN should map to the floor, got %s %f", c, op)
	}
}

func TestPalette(t *testing.T) {
	if Palette(MetricBacterial, Danger) != ColorBacterialDanger {
		t.Error("bacterial danger should use the bacterial palette")
	}
	if Palette(MetricUV, Danger) != ColorDanger {
		t.Error("uv danger should use the shared palette")
	}
}

func TestAggregateDefaultRoom(t *testing.T) {
	zones := DefaultZones()
	tests := []struct {
		m    Metric
		want TierCounts
	}{
		{MetricContamination, TierCounts{Clean: 2, MediumRisk: 2, HighRisk: 2}},
		{MetricBacterial, TierCounts{Clean: 3, MediumRisk: 2, HighRisk: 1}},
		{MetricUV, TierCounts{MediumRisk: 1, HighRisk: 5}},
	}
	for _, tt := range tests {
		got, err := Aggregate(zones, tt.m)
		if err != nil {
			t.Fatalf("Aggregate(%s) error: %v", tt.m, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Aggregate(%s) mismatch (-want +got):\n%s", tt.m, diff)
		}
	}

	if _, err := Aggregate(nil, "humidity"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric on empty input, got %v", err)
	}
}

func TestAggregatePartitions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	zones := DefaultZones()
	for i := 0; i < 200; i++ {
		zones = Advance(zones, rng)
		for _, m := range Metrics {
			c, err := Aggregate(zones, m)
			if err != nil {
				t.Fatal(err)
			}
			if c.Total() != len(zones) {
				t.Fatalf("tick %d %s: counts %+v do not partition %d zones", i, m, c, len(zones))
			}
		}
	}
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		s    float64
		want Tier
	}{
		{0, TierClean}, {29.99, TierClean}, {30, TierMedium}, {69.99, TierMedium}, {70, TierHigh}, {100, TierHigh},
	}
	for _, tt := range tests {
		if got := TierOf(tt.s); got != tt.want {
			t.Errorf("TierOf(%f) = %s; want %s", tt.s, got, tt.want)
		}
	}
}

func TestTierCountsCount(t *testing.T) {
	c := TierCounts{Clean: 1, MediumRisk: 2, HighRisk: 3}
	for tier, want := range map[Tier]int{TierClean: 1, TierMedium: 2, TierHigh: 3, Tier(9): 0} {
		if got := c.Count(tier); got != want {
			t.Errorf("Count(%s) = %d; want %d", tier, got, want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	for _, m := range Metrics {
		if got, err := ParseMetric(string(m)); err != nil || got != m {
			t.Errorf("ParseMetric(%q) = %q, %v", m, got, err)
		}
	}
	if _, err := ParseMetric("Contamination"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("metric names are case sensitive, got %v", err)
	}
}

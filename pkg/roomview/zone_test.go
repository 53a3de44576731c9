package roomview

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateZones(t *testing.T) {
	zones, err := ValidateZones(DefaultZones())
	require.NoError(t, err)
	assert.Len(t, zones, 6)

	tests := []struct {
		name string
		z    Zone
	}{
		{"missing id", Zone{Surface: "x"}},
		{"missing surface", Zone{ID: "x"}},
		{"nan reading", Zone{ID: "x", Surface: "x", ContaminationLevel: math.NaN()}},
		{"inf position", Zone{ID: "x", Surface: "x", Position: Vec3{X: math.Inf(1)}}},
	}
	for _, tt := range tests {
		_, err := ValidateZones([]Zone{tt.z})
		assert.ErrorIs(t, err, ErrInvalidZone, tt.name)
	}

	_, err = ValidateZones([]Zone{{ID: "a", Surface: "A"}, {ID: "a", Surface: "B"}})
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestNormalizeZone(t *testing.T) {
	z := NormalizeZone(Zone{
		ID: "x", Surface: "x",
		Extent:             Extent{Width: -5, Height: 10, Depth: -1},
		ContaminationLevel: 140,
		BacterialCount:     -20,
		UVIntensity:        12,
	})
	assert.Equal(t, Extent{Width: 0, Height: 10, Depth: 0}, z.Extent)
	assert.Equal(t, MaxContamination, z.ContaminationLevel)
	assert.Equal(t, 0.0, z.BacterialCount)
	assert.Equal(t, MinUV, z.UVIntensity)
}

func TestAdvanceStaysInDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	zones := DefaultZones()
	for i := 0; i < 5000; i++ {
		zones = Advance(zones, rng)
		for _, z := range zones {
			if z.ContaminationLevel < MinContamination || z.ContaminationLevel > MaxContamination {
				t.Fatalf("tick %d: %s contamination %f out of range", i, z.ID, z.ContaminationLevel)
			}
			if z.BacterialCount < 0 {
				t.Fatalf("tick %d: %s bacterial %f negative", i, z.ID, z.BacterialCount)
			}
			if z.UVIntensity < MinUV || z.UVIntensity > MaxUV {
				t.Fatalf("tick %d: %s uv %f out of range", i, z.ID, z.UVIntensity)
			}
		}
	}
}

func TestAdvanceStepBounded(t *testing.T) {
	before := DefaultZones()
	after := Advance(before, fixedSource(0))
	for i := range before {
		assert.InDelta(t, ContaminationJitter, before[i].ContaminationLevel-after[i].ContaminationLevel, 1e-9)
		assert.Equal(t, before[i].Position, after[i].Position)
		assert.Equal(t, before[i].LastCleaned, after[i].LastCleaned)
	}
	// Input is not mutated.
	assert.Equal(t, DefaultZones(), before)
}

func TestClockStartStop(t *testing.T) {
	var ticks atomic.Int32
	c := NewClock(5*time.Millisecond, func(time.Time) { ticks.Add(1) })
	c.Start(context.Background())
	c.Start(context.Background())
	assert.True(t, c.Running())

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	c.Stop()
	assert.False(t, c.Running())
	n := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, ticks.Load(), "no ticks after Stop")

	c.Stop()
}

func TestClockContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClock(0, nil)
	assert.Equal(t, DefaultTickPeriod, c.Period)
	c.Start(ctx)
	cancel()
	c.Stop()
	assert.False(t, c.Running())
}

func TestClockRestartAfterParentCancel(t *testing.T) {
	var ticks atomic.Int32
	c := NewClock(5*time.Millisecond, func(time.Time) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()
	assert.Eventually(t, func() bool { return !c.Running() }, time.Second, time.Millisecond)

	ticks.Store(0)
	c.Start(context.Background())
	defer c.Stop()
	assert.True(t, c.Running())
	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestFormat(t *testing.T) {
	door := DefaultZones()[0]
	assert.Equal(t, "85%", FormatHeadline(door, MetricContamination))
	assert.Equal(t, "2800 CFU", FormatHeadline(door, MetricBacterial))
	assert.Equal(t, "65%", FormatHeadline(door, MetricUV))

	d := FormatDetail(door)
	assert.Equal(t, ZoneDetail{
		ID:            "door_handle",
		Surface:       "Door Handle",
		Contamination: "85.0%",
		Bacterial:     "2800 CFU",
		UV:            "65.0%",
		LastCleaned:   "2 hours ago",
	}, d)
}

package roomview

import (
	"context"
	"log"
	"math"
	"sync"
	"time"
)

// RandomSource yields uniform draws in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Per-tick perturbation half-widths.
const (
	ContaminationJitter = 2.5
	BacterialJitter     = 50.0
	UVJitter            = 1.5
)

// DefaultTickPeriod is the reference sensor refresh interval.
const DefaultTickPeriod = 3 * time.Second

func uniform(rng RandomSource, halfWidth float64) float64 {
	return (rng.Float64() - 0.5) * 2 * halfWidth
}

// Advance returns the next reading state of every zone. Zones are perturbed independently and
// clamped into their domains; the input slice is left untouched.
func Advance(zones []Zone, rng RandomSource) []Zone {
	next := make([]Zone, len(zones))
	for i, z := range zones {
		z.ContaminationLevel = clamp(z.ContaminationLevel+uniform(rng, ContaminationJitter), MinContamination, MaxContamination)
		z.BacterialCount = math.Max(0, z.BacterialCount+uniform(rng, BacterialJitter))
		z.UVIntensity = clamp(z.UVIntensity+uniform(rng, UVJitter), MinUV, MaxUV)
		next[i] = z
	}
	return next
}

// Clock invokes a callback on a fixed period. Ticks run sequentially on one goroutine so a tick
// never starts while the previous one is still applying.
type Clock struct {
	Period time.Duration
	OnTick func(now time.Time)

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewClock(period time.Duration, onTick func(now time.Time)) *Clock {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &Clock{Period: period, OnTick: onTick}
}

// Start launches the tick loop. It is a no-op if the clock is already running.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})

	t := time.NewTicker(c.Period)
	log.Printf("[CLOCK] started (period %s)", c.Period)
	go c.run(ctx, t, c.stopped)
}

func (c *Clock) run(ctx context.Context, t *time.Ticker, done chan struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			if c.OnTick != nil {
				c.OnTick(now)
			}
		case <-ctx.Done():
			log.Println("[CLOCK] stopped")
			// A parent cancellation ends the run without Stop; release it so Start works again.
			c.mu.Lock()
			if c.stopped == done {
				c.cancel()
				c.cancel, c.stopped = nil, nil
			}
			c.mu.Unlock()
			return
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.stopped
	c.cancel, c.stopped = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

package roomengine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/sterilysense/roomview/pkg/layout"
)

// BenchmarkDraw measures the allocations of a full frame. High allocations per op here usually
// indicate that something is being created every frame.
func BenchmarkDraw(b *testing.B) {
	width, height := 1920, 1080
	e := newTestEngine(b)
	e.Width, e.Height = width, height
	e.SetOutline(layout.Default().Outline)
	e.InitShadowTexture()
	e.Controller.SelectZone("monitor")

	// Pre-fill history so the trendlines are part of the measurement.
	rng := rand.New(rand.NewSource(1))
	start := time.Now()
	for i := 0; i < 60; i++ {
		e.Controller.Tick(rng, start.Add(time.Duration(i)*time.Second))
	}

	screen := ebiten.NewImage(width, height)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Draw(screen)
	}
}

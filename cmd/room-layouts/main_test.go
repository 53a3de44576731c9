package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sterilysense/roomview/pkg/layout"
)

func TestLayoutName(t *testing.T) {
	tests := []struct{ src, want string }{
		{"rooms/icu-4.geojson", "icu-4"},
		{"https://example.com/layouts/ward.json?rev=3", "ward"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, layoutName(tt.src), tt.src)
	}
}

func TestImportExportTrend(t *testing.T) {
	dir := t.TempDir()
	g := &Globals{Store: filepath.Join(dir, "store"), CacheDir: filepath.Join(dir, "cache")}

	data, err := layout.Encode(layout.Default())
	require.NoError(t, err)
	src := filepath.Join(dir, "ward-7.geojson")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	require.NoError(t, (&ImportCmd{Sources: []string{src}}).Run(g))

	out := filepath.Join(dir, "export.geojson")
	require.NoError(t, (&ExportCmd{Name: "ward-7", Out: out}).Run(g))
	l, err := layout.Load(out)
	require.NoError(t, err)
	assert.Len(t, l.Zones, 6)

	trend := &TrendCmd{Layout: "store:ward-7", Ticks: 5, Metric: "uv", Out: filepath.Join(dir, "trend.png")}
	trend.Tick = 3 * time.Second
	trend.Seed = 1
	require.NoError(t, trend.Run(g))
	_, err = os.Stat(trend.Out)
	assert.NoError(t, err)

	require.NoError(t, (&DeleteCmd{Name: "ward-7"}).Run(g))
	assert.Error(t, (&ExportCmd{Name: "ward-7", Out: out}).Run(g))
}

func TestImportRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	g := &Globals{Store: filepath.Join(dir, "store")}
	src := filepath.Join(dir, "broken.geojson")
	require.NoError(t, os.WriteFile(src, []byte("{"), 0o644))

	assert.ErrorIs(t, (&ImportCmd{Sources: []string{src}}).Run(g), layout.ErrInvalidLayout)
	assert.Error(t, (&ImportCmd{Sources: []string{src, src}, Name: "x"}).Run(g))
}

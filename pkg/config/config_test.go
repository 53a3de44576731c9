package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sterilysense/roomview/pkg/layout"
	"github.com/sterilysense/roomview/pkg/roomview"
	"github.com/sterilysense/roomview/pkg/utils"
)

type serveCmd struct {
	Addr    string   `default:":8080"`
	Brokers []string `help:"Kafka brokers."`
}

type testCLI struct {
	Simulation `embed:""`
	View       `embed:""`
	Verbose    bool

	Serve serveCmd `cmd:""`
}

func parseWithConfig(t *testing.T, yamlDoc string, args ...string) *testCLI {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roomview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	var cli testCLI
	parser, err := kong.New(&cli, kong.Name("test"), kong.Exit(func(int) { t.Fatal("unexpected exit") }),
		kong.Configuration(YAML, path))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return &cli
}

func TestYAMLResolver(t *testing.T) {
	cli := parseWithConfig(t, `
tick: 5s
seed: 42
metric: uv
verbose: true
serve:
  addr: ":9090"
  brokers: [kafka-1:9092, kafka-2:9092]
`, "serve")

	assert.Equal(t, 5*time.Second, cli.Tick)
	assert.Equal(t, int64(42), cli.Seed)
	assert.Equal(t, "uv", cli.Metric)
	assert.Equal(t, "3D", cli.Projection)
	assert.True(t, cli.Verbose)
	assert.Equal(t, ":9090", cli.Serve.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cli.Serve.Brokers)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cli := parseWithConfig(t, "tick: 5s\n", "--tick=1s", "serve")
	assert.Equal(t, time.Second, cli.Tick)
	assert.Equal(t, ":8080", cli.Serve.Addr)
}

func TestYAMLUnderscoreKeys(t *testing.T) {
	type cli struct {
		CacheDir string `default:"x"`
	}
	var c cli
	r, err := YAML(strings.NewReader("cache_dir: /tmp/cache\n"))
	require.NoError(t, err)
	parser, err := kong.New(&c, kong.Resolvers(r))
	require.NoError(t, err)
	_, err = parser.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", c.CacheDir)
}

func TestYAMLEmptyAndInvalid(t *testing.T) {
	_, err := YAML(strings.NewReader(""))
	assert.NoError(t, err)

	_, err = YAML(strings.NewReader("tick: [unclosed"))
	assert.Error(t, err)
}

func TestSimulationSource(t *testing.T) {
	a := Simulation{Seed: 9}.Source()
	b := Simulation{Seed: 9}.Source()
	assert.Equal(t, a.Float64(), b.Float64())
	assert.NotNil(t, Simulation{}.Source())
}

func TestViewApply(t *testing.T) {
	c, err := roomview.NewController(roomview.DefaultZones())
	require.NoError(t, err)

	require.NoError(t, View{Metric: "bacterial", Projection: "2D"}.Apply(c))
	cam := c.Camera()
	assert.Equal(t, roomview.MetricBacterial, cam.Metric)
	assert.Equal(t, roomview.Projection2D, cam.Mode)

	assert.ErrorIs(t, View{Metric: "humidity", Projection: "2D"}.Apply(c), roomview.ErrUnknownMetric)
}

func TestRoomLoad(t *testing.T) {
	def, err := Room{}.Load()
	require.NoError(t, err)
	assert.Equal(t, layout.Default().Name, def.Name)

	data, err := layout.Encode(layout.Default())
	require.NoError(t, err)

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ward-2.geojson")
		require.NoError(t, os.WriteFile(path, data, 0o644))
		l, err := Room{Layout: path}.Load()
		require.NoError(t, err)
		assert.Equal(t, "ward-2", l.Name)
		assert.Len(t, l.Zones, 6)
	})

	t.Run("store", func(t *testing.T) {
		dir := t.TempDir()
		store, err := utils.OpenLayoutStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.Put("icu", data))
		require.NoError(t, store.Close())

		l, err := Room{Layout: StorePrefix + "icu", Store: dir}.Load()
		require.NoError(t, err)
		assert.Equal(t, "icu", l.Name)

		_, err = Room{Layout: StorePrefix + "missing", Store: dir}.Load()
		assert.ErrorIs(t, err, utils.ErrLayoutNotFound)
	})

	t.Run("url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(data)
		}))
		defer srv.Close()

		l, err := Room{Layout: srv.URL + "/rooms/or-1.geojson", CacheDir: t.TempDir()}.Load()
		require.NoError(t, err)
		assert.Equal(t, "or-1", l.Name)
	})
}

func TestRoomWatchable(t *testing.T) {
	tests := []struct {
		room Room
		want bool
	}{
		{Room{Layout: "room.geojson", Watch: true}, true},
		{Room{Layout: "room.geojson"}, false},
		{Room{Watch: true}, false},
		{Room{Layout: "store:icu", Watch: true}, false},
		{Room{Layout: "https://example.com/room.geojson", Watch: true}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.room.Watchable(), "%+v", tt.room)
	}
}

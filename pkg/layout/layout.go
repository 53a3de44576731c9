// Package layout reads and writes room layouts as GeoJSON feature collections.
//
// Each zone is a Polygon feature whose outer ring bounds the zone footprint in room units. Depth,
// readings and labels travel as feature properties. Features with kind "outline" describe the room
// itself (walls, fixtures) and are drawn as background only.
package layout

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	geojson "github.com/paulmach/go.geojson"

	"github.com/sterilysense/roomview/pkg/roomview"
)

var ErrInvalidLayout = errors.New("invalid layout")

const (
	KindZone    = "zone"
	KindOutline = "outline"
)

// Layout is a named room. The name is carried by the file or store key, not the GeoJSON.
type Layout struct {
	Name    string
	Zones   []roomview.Zone
	Outline []*geojson.Geometry
}

// Parse decodes a GeoJSON feature collection into a validated layout.
func Parse(data []byte) (*Layout, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	l := &Layout{}
	var zones []roomview.Zone
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature #%d has no geometry", ErrInvalidLayout, i)
		}
		switch f.PropertyMustString("kind", KindZone) {
		case KindOutline:
			l.Outline = append(l.Outline, f.Geometry)
		case KindZone:
			z, err := featureToZone(f)
			if err != nil {
				return nil, fmt.Errorf("feature #%d: %w", i, err)
			}
			zones = append(zones, z)
		default:
			return nil, fmt.Errorf("%w: feature #%d: unknown kind %q", ErrInvalidLayout, i, f.PropertyMustString("kind"))
		}
	}

	l.Zones, err = roomview.ValidateZones(zones)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func featureToZone(f *geojson.Feature) (roomview.Zone, error) {
	if !f.Geometry.IsPolygon() || len(f.Geometry.Polygon) == 0 || len(f.Geometry.Polygon[0]) == 0 {
		return roomview.Zone{}, fmt.Errorf("%w: zone footprint must be a non-empty polygon", ErrInvalidLayout)
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range f.Geometry.Polygon[0] {
		if len(p) < 2 {
			return roomview.Zone{}, fmt.Errorf("%w: short coordinate", ErrInvalidLayout)
		}
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}

	id, _ := f.PropertyString("id")
	if id == "" {
		if s, ok := f.ID.(string); ok {
			id = s
		}
	}

	var vals [5]float64
	for i, key := range readingKeys {
		v, err := floatProperty(f, key)
		if err != nil {
			return roomview.Zone{}, fmt.Errorf("%w: zone %q: %v", roomview.ErrInvalidZone, id, err)
		}
		vals[i] = v
	}
	lastCleaned := ""
	if _, ok := f.Properties["lastCleaned"]; ok {
		s, err := f.PropertyString("lastCleaned")
		if err != nil {
			return roomview.Zone{}, fmt.Errorf("%w: zone %q: lastCleaned must be a string", roomview.ErrInvalidZone, id)
		}
		lastCleaned = s
	}

	return roomview.Zone{
		ID:                 id,
		Surface:            f.PropertyMustString("surface"),
		Position:           roomview.Vec3{X: minX, Y: minY, Z: vals[0]},
		Extent:             roomview.Extent{Width: maxX - minX, Height: maxY - minY, Depth: vals[1]},
		ContaminationLevel: vals[2],
		BacterialCount:     vals[3],
		UVIntensity:        vals[4],
		LastCleaned:        lastCleaned,
	}, nil
}

// readingKeys are the numeric zone properties every zone feature must carry, in the order
// featureToZone consumes them.
var readingKeys = [5]string{"z", "depth", "contaminationLevel", "bacterialCount", "uvIntensity"}

func floatProperty(f *geojson.Feature, key string) (float64, error) {
	if _, ok := f.Properties[key]; !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := f.PropertyFloat64(key)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

func zoneToFeature(z roomview.Zone) *geojson.Feature {
	x0, y0 := z.Position.X, z.Position.Y
	x1, y1 := x0+z.Extent.Width, y0+z.Extent.Height
	f := geojson.NewPolygonFeature([][][]float64{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}})
	f.ID = z.ID
	f.SetProperty("kind", KindZone)
	f.SetProperty("id", z.ID)
	f.SetProperty("surface", z.Surface)
	f.SetProperty("z", z.Position.Z)
	f.SetProperty("depth", z.Extent.Depth)
	f.SetProperty("contaminationLevel", z.ContaminationLevel)
	f.SetProperty("bacterialCount", z.BacterialCount)
	f.SetProperty("uvIntensity", z.UVIntensity)
	if z.LastCleaned != "" {
		f.SetProperty("lastCleaned", z.LastCleaned)
	}
	return f
}

// Encode writes a layout back to GeoJSON.
func Encode(l *Layout) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, g := range l.Outline {
		f := geojson.NewFeature(g)
		f.SetProperty("kind", KindOutline)
		fc.AddFeature(f)
	}
	for _, z := range l.Zones {
		fc.AddFeature(zoneToFeature(z))
	}
	return fc.MarshalJSON()
}

func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l, nil
}

// Default is the reference healthcare room: the six monitored surfaces inside a 600x360 room.
func Default() *Layout {
	return &Layout{
		Name:  "healthcare-room",
		Zones: roomview.DefaultZones(),
		Outline: []*geojson.Geometry{
			geojson.NewPolygonGeometry([][][]float64{{{0, 0}, {600, 0}, {600, 360}, {0, 360}, {0, 0}}}),
			// Bed footprint under the rail.
			geojson.NewPolygonGeometry([][][]float64{{{180, 230}, {360, 230}, {360, 340}, {180, 340}, {180, 230}}}),
		},
	}
}

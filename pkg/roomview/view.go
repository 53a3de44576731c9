package roomview

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"sync"
	"time"
)

// ZoneView is the derived presentation of one zone for a frame.
type ZoneView struct {
	ID       string     `json:"id"`
	Surface  string     `json:"surface"`
	Rect     ScreenRect `json:"rect"`
	Scalar   float64    `json:"scalar"`
	Color    RiskColor  `json:"color"`
	RGBA     color.RGBA `json:"-"`
	Fill     string     `json:"fill"`
	Opacity  float64    `json:"opacity"`
	Label    string     `json:"label"`
	Tier     Tier       `json:"tier"`
	Selected bool       `json:"selected,omitempty"`
}

// Scene is everything a renderer needs for one frame.
type Scene struct {
	Tick     uint64      `json:"tick"`
	Camera   Camera      `json:"camera"`
	Zones    []ZoneView  `json:"zones"`
	Counts   TierCounts  `json:"counts"`
	Selected *ZoneDetail `json:"selected,omitempty"`
	History  []Snapshot  `json:"history,omitempty"`
}

// Snapshot records the tier counts of every metric after a tick.
type Snapshot struct {
	At            time.Time  `json:"at"`
	Contamination TierCounts `json:"contamination"`
	Bacterial     TierCounts `json:"bacterial"`
	UV            TierCounts `json:"uv"`
}

func (s Snapshot) For(m Metric) TierCounts {
	switch m {
	case MetricBacterial:
		return s.Bacterial
	case MetricUV:
		return s.UV
	}
	return s.Contamination
}

// DefaultHistoryLen keeps three minutes of trend at the reference tick period.
const DefaultHistoryLen = 60

// Controller owns the zone set, camera and selection. Every method is safe for concurrent use;
// the mutex stands in for the single render thread of a browser.
type Controller struct {
	mu         sync.Mutex
	zones      []Zone
	camera     Camera
	selected   string
	history    []Snapshot
	historyLen int
	ticks      uint64
}

func NewController(zones []Zone) (*Controller, error) {
	valid, err := ValidateZones(zones)
	if err != nil {
		return nil, err
	}
	return &Controller{zones: valid, camera: DefaultCamera(), historyLen: DefaultHistoryLen}, nil
}

func (c *Controller) Rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.AngleDeg = math.Mod(c.camera.AngleDeg+RotateStep, 360)
}

func (c *Controller) ZoomIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Zoom = math.Min(MaxZoom, c.camera.Zoom+ZoomStep)
}

func (c *Controller) ZoomOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Zoom = math.Max(MinZoom, c.camera.Zoom-ZoomStep)
}

func (c *Controller) ResetZoom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Zoom = DefaultZoom
}

func (c *Controller) ToggleProjection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.camera.Mode == Projection3D {
		c.camera.Mode = Projection2D
	} else {
		c.camera.Mode = Projection3D
	}
}

// SetProjection accepts any spelling ParseProjectionMode does and stores the canonical mode.
func (c *Controller) SetProjection(mode ProjectionMode) error {
	canonical, err := ParseProjectionMode(string(mode))
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Mode = canonical
	return nil
}

func (c *Controller) SetMetric(m Metric) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Metric = m
	return nil
}

// SelectZone inspects a zone. An unknown id clears the selection: the zone may have been
// removed between render and click delivery.
func (c *Controller) SelectZone(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		c.selected = ""
		return false
	}
	c.selected = id
	return true
}

func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = ""
}

func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

func (c *Controller) Camera() Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera
}

// Zones returns a copy of the current zone set.
func (c *Controller) Zones() []Zone {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Zone(nil), c.zones...)
}

func (c *Controller) Zone(id string) (Zone, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.zones[i], true
	}
	return Zone{}, false
}

// ReplaceZones swaps in a freshly ingested zone set. The selection is dropped if its zone is gone.
func (c *Controller) ReplaceZones(zones []Zone) error {
	valid, err := ValidateZones(zones)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones = valid
	if c.selected != "" && c.indexOf(c.selected) < 0 {
		c.selected = ""
	}
	return nil
}

// Tick advances every zone by one simulation step and records tier counts. It returns the IDs of
// zones that entered the high tier under the active metric.
func (c *Controller) Tick(rng RandomSource, now time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	metric := c.camera.Metric
	before := make(map[string]Tier, len(c.zones))
	for _, z := range c.zones {
		s, _ := Resolve(z, metric)
		before[z.ID] = TierOf(s)
	}

	c.zones = Advance(c.zones, rng)
	c.ticks++

	var entered []string
	for _, z := range c.zones {
		s, _ := Resolve(z, metric)
		if TierOf(s) == TierHigh && before[z.ID] != TierHigh {
			entered = append(entered, z.ID)
		}
	}

	snap := Snapshot{At: now}
	snap.Contamination, _ = Aggregate(c.zones, MetricContamination)
	snap.Bacterial, _ = Aggregate(c.zones, MetricBacterial)
	snap.UV, _ = Aggregate(c.zones, MetricUV)
	c.history = append(c.history, snap)
	if len(c.history) > c.historyLen {
		c.history = c.history[len(c.history)-c.historyLen:]
	}
	return entered
}

func (c *Controller) History() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot(nil), c.history...)
}

// Scene derives the presentation of every zone under the current camera.
func (c *Controller) Scene() (Scene, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sceneLocked()
}

// ZoneAt returns the top-most zone under a screen point.
func (c *Controller) ZoneAt(x, y float64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.sceneLocked()
	if err != nil {
		return "", false
	}
	for i := len(s.Zones) - 1; i >= 0; i-- {
		if s.Zones[i].Rect.Contains(x, y) {
			return s.Zones[i].ID, true
		}
	}
	return "", false
}

func (c *Controller) sceneLocked() (Scene, error) {
	cam := c.camera
	views := make([]ZoneView, 0, len(c.zones))
	depth := make(map[string]float64, len(c.zones))
	for _, z := range c.zones {
		v, err := DeriveZone(z, cam)
		if err != nil {
			return Scene{}, err
		}
		v.Selected = z.ID == c.selected
		depth[z.ID] = z.Position.Z
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool { return depth[views[i].ID] > depth[views[j].ID] })

	counts, err := Aggregate(c.zones, cam.Metric)
	if err != nil {
		return Scene{}, err
	}

	scene := Scene{
		Tick:    c.ticks,
		Camera:  cam,
		Zones:   views,
		Counts:  counts,
		History: append([]Snapshot(nil), c.history...),
	}
	if i := c.indexOf(c.selected); i >= 0 {
		d := FormatDetail(c.zones[i])
		scene.Selected = &d
	}
	return scene, nil
}

// DeriveZone composes resolver, colour mapper and projection for a single zone.
func DeriveZone(z Zone, cam Camera) (ZoneView, error) {
	s, err := Resolve(z, cam.Metric)
	if err != nil {
		return ZoneView{}, err
	}
	tok, opacity, err := ColorFor(s, cam.Metric)
	if err != nil {
		return ZoneView{}, err
	}
	rect, err := Project(z.Position, z.Extent, cam)
	if err != nil {
		return ZoneView{}, err
	}
	rgba := Palette(cam.Metric, tok)
	return ZoneView{
		ID:      z.ID,
		Surface: z.Surface,
		Rect:    rect,
		Scalar:  s,
		Color:   tok,
		RGBA:    rgba,
		Fill:    fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B),
		Opacity: opacity,
		Label:   FormatHeadline(z, cam.Metric),
		Tier:    TierOf(s),
	}, nil
}

func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, z := range c.zones {
		if z.ID == id {
			return i
		}
	}
	return -1
}

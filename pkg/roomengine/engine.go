// Package roomengine renders a room controller with ebiten: zones, shadows, overlay panels and
// trendlines, plus keyboard and mouse input.
package roomengine

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	geojson "github.com/paulmach/go.geojson"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sterilysense/roomview/pkg/roomview"
)

var (
	ColorBackground = color.RGBA{8, 10, 15, 255}
	ColorGrid       = color.RGBA{20, 24, 31, 255}
	ColorFloor      = color.RGBA{26, 29, 35, 255}
	ColorOutline    = color.RGBA{36, 42, 53, 255}
	ColorSelected   = color.RGBA{255, 255, 255, 255}
	ColorAccent     = color.RGBA{0, 191, 255, 255}
)

// keyBindings maps keys to controller inputs.
var keyBindings = []struct {
	Key   ebiten.Key
	Input roomview.Input
}{
	{ebiten.KeyR, roomview.Input{Command: roomview.CmdRotate}},
	{ebiten.KeyEqual, roomview.Input{Command: roomview.CmdZoomIn}},
	{ebiten.KeyNumpadAdd, roomview.Input{Command: roomview.CmdZoomIn}},
	{ebiten.KeyMinus, roomview.Input{Command: roomview.CmdZoomOut}},
	{ebiten.KeyNumpadSubtract, roomview.Input{Command: roomview.CmdZoomOut}},
	{ebiten.KeyDigit0, roomview.Input{Command: roomview.CmdResetZoom}},
	{ebiten.KeyV, roomview.Input{Command: roomview.CmdToggleProjection}},
	{ebiten.KeyDigit1, roomview.Input{Command: roomview.CmdSetMetric, Arg: string(roomview.MetricContamination)}},
	{ebiten.KeyDigit2, roomview.Input{Command: roomview.CmdSetMetric, Arg: string(roomview.MetricBacterial)}},
	{ebiten.KeyDigit3, roomview.Input{Command: roomview.CmdSetMetric, Arg: string(roomview.MetricUV)}},
	{ebiten.KeyEscape, roomview.Input{Command: roomview.CmdClearSelection}},
}

type Engine struct {
	Width, Height int
	FPS           int

	// Room space is mapped to the screen by RoomScale and then offset by RoomOrigin.
	RoomOriginX, RoomOriginY float64
	RoomScale                float64

	Controller      *roomview.Controller
	Alerts          *AlertPlayer
	FrameCaptureDir string
	OnFrame         func(screen *ebiten.Image)

	bgImage     *ebiten.Image
	shadowImage *ebiten.Image
	pixelImage  *ebiten.Image
	fontSource  *text.GoTextFaceSource
	monoSource  *text.GoTextFaceSource

	outlineMu    sync.Mutex
	outline      []*geojson.Geometry
	outlineDirty bool

	captureNext    bool
	sceneErrLogged bool
}

func NewEngine(width, height int, c *roomview.Controller) *Engine {
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	m, _ := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))

	scale := float64(width) / 1280.0
	return &Engine{
		Width:       width,
		Height:      height,
		FPS:         30,
		RoomOriginX: 360 * scale,
		RoomOriginY: 140 * scale,
		RoomScale:   1.2 * scale,
		Controller:  c,
		fontSource:  s,
		monoSource:  m,
	}
}

// SetOutline replaces the static room geometry drawn under the zones. Safe to call from any
// goroutine; the background is rebuilt on the next frame.
func (e *Engine) SetOutline(outline []*geojson.Geometry) {
	e.outlineMu.Lock()
	defer e.outlineMu.Unlock()
	e.outline = outline
	e.outlineDirty = true
}

func (e *Engine) Layout(w, h int) (int, int) { return e.Width, e.Height }

func (e *Engine) Update() error {
	for _, b := range keyBindings {
		if inpututil.IsKeyJustPressed(b.Key) {
			if err := e.Controller.Apply(b.Input); err != nil {
				log.Printf("[ENGINE] %s: %v", b.Input.Command, err)
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		e.captureNext = true
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		e.Click(float64(x), float64(y))
	}
	return nil
}

// Advance runs one simulation step and sounds the alert when a zone turns high risk.
func (e *Engine) Advance(rng roomview.RandomSource, now time.Time) []string {
	entered := e.Controller.Tick(rng, now)
	if len(entered) > 0 {
		log.Printf("[ALERT] Entered high risk: %v", entered)
		if e.Alerts != nil {
			e.Alerts.Trigger(now)
		}
	}
	return entered
}

// Click selects the top-most zone under a screen point, or clears the selection.
func (e *Engine) Click(x, y float64) {
	rx, ry := e.toRoom(x, y)
	if id, ok := e.Controller.ZoneAt(rx, ry); ok {
		e.Controller.SelectZone(id)
		return
	}
	e.Controller.ClearSelection()
}

func (e *Engine) toScreen(x, y float64) (float64, float64) {
	return e.RoomOriginX + x*e.RoomScale, e.RoomOriginY + y*e.RoomScale
}

func (e *Engine) toRoom(x, y float64) (float64, float64) {
	return (x - e.RoomOriginX) / e.RoomScale, (y - e.RoomOriginY) / e.RoomScale
}

func (e *Engine) Draw(screen *ebiten.Image) {
	scene, err := e.Controller.Scene()
	if err != nil {
		if !e.sceneErrLogged {
			log.Printf("[ENGINE] Cannot derive scene: %v", err)
			e.sceneErrLogged = true
		}
		return
	}
	e.sceneErrLogged = false

	e.outlineMu.Lock()
	if e.outlineDirty {
		e.outlineDirty = false
		e.bgImage = nil
	}
	outline := e.outline
	e.outlineMu.Unlock()
	if e.bgImage == nil {
		e.generateBackground(outline)
	}
	screen.DrawImage(e.bgImage, nil)

	for _, z := range scene.Zones {
		e.drawShadow(screen, z)
	}
	for _, z := range scene.Zones {
		e.drawZone(screen, z)
	}

	e.drawHeader(screen, scene)
	e.drawLegend(screen, scene)
	e.drawTierCounts(screen, scene)
	e.drawTrendlines(screen, scene)
	e.drawDetail(screen, scene)

	if e.captureNext {
		e.captureNext = false
		e.captureFrame(screen, "manual", time.Now())
	}
	if e.OnFrame != nil {
		e.OnFrame(screen)
	}
}

// zoneGeoM maps a unit square onto the transformed zone rectangle on screen.
func (e *Engine) zoneGeoM(r roomview.ScreenRect, w, h float64) ebiten.GeoM {
	var g ebiten.GeoM
	g.Scale(w, h)
	g.Translate(-w/2, -h/2)

	a, b, c, d := r.Transform.Matrix()
	var m ebiten.GeoM
	m.SetElement(0, 0, a)
	m.SetElement(0, 1, b)
	m.SetElement(1, 0, c)
	m.SetElement(1, 1, d)
	g.Concat(m)

	cx, cy := r.Center()
	g.Translate(cx, cy)
	g.Scale(e.RoomScale, e.RoomScale)
	g.Translate(e.RoomOriginX, e.RoomOriginY)
	return g
}

func (e *Engine) drawZone(screen *ebiten.Image, z roomview.ZoneView) {
	if e.pixelImage == nil {
		e.pixelImage = ebiten.NewImage(1, 1)
		e.pixelImage.Fill(color.White)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM = e.zoneGeoM(z.Rect, z.Rect.Width, z.Rect.Height)
	alpha := float32(z.Opacity)
	r, g, b := float32(z.RGBA.R)/255, float32(z.RGBA.G)/255, float32(z.RGBA.B)/255
	op.ColorScale.Scale(r*alpha, g*alpha, b*alpha, alpha)
	screen.DrawImage(e.pixelImage, op)

	quad := z.Rect.Quad()
	edge := color.RGBA{z.RGBA.R, z.RGBA.G, z.RGBA.B, 255}
	width := float32(1.5)
	if z.Selected {
		edge, width = ColorSelected, 3
	}
	for i := range quad {
		x1, y1 := e.toScreen(quad[i][0], quad[i][1])
		x2, y2 := e.toScreen(quad[(i+1)%4][0], quad[(i+1)%4][1])
		strokeLine(screen, x1, y1, x2, y2, width, edge)
	}

	if e.fontSource == nil {
		return
	}
	cx, cy := z.Rect.Center()
	sx, sy := e.toScreen(cx, cy)
	fontSize := 12 * e.RoomScale
	e.drawCentered(screen, z.Label, &text.GoTextFace{Source: e.fontSource, Size: fontSize * 1.3}, sx, sy-fontSize*0.8, 1)
	e.drawCentered(screen, z.Surface, &text.GoTextFace{Source: e.fontSource, Size: fontSize * 0.8}, sx, sy+fontSize*0.5, 0.8)
}

func (e *Engine) drawShadow(screen *ebiten.Image, z roomview.ZoneView) {
	if z.Rect.Shadow.OffsetY == 0 && z.Rect.Shadow.Blur == 0 {
		return
	}
	if e.shadowImage == nil {
		e.InitShadowTexture()
	}
	size := float64(e.shadowImage.Bounds().Dx())
	blur := z.Rect.Shadow.Blur

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(1/size, 1/size)
	// The blur radius widens the soft texture past the zone edge.
	op.GeoM.Concat(e.zoneGeoM(z.Rect, z.Rect.Width+2*blur, z.Rect.Height+2*blur))
	op.GeoM.Translate(0, z.Rect.Shadow.OffsetY*e.RoomScale)
	op.ColorScale.Scale(0, 0, 0, 0.35)
	screen.DrawImage(e.shadowImage, op)
}

// InitShadowTexture builds the soft square used for zone drop shadows.
func (e *Engine) InitShadowTexture() {
	size := 64
	if e.Width > 2000 {
		size = 128
	}
	e.shadowImage = ebiten.NewImage(size, size)
	e.shadowImage.WritePixels(shadowPixels(size))
}

// shadowPixels returns an RGBA buffer whose alpha falls off smoothly towards the edges.
func shadowPixels(size int) []byte {
	pixels := make([]byte, size*size*4)
	half := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := math.Abs(float64(x)+0.5-half) / half
			dy := math.Abs(float64(y)+0.5-half) / half
			d := math.Max(dx, dy)
			val := 1.0
			if d > 0.6 {
				val = math.Cos((d - 0.6) / 0.4 * (math.Pi / 2))
			}
			if val < 0 {
				val = 0
			}
			off := (y*size + x) * 4
			pixels[off], pixels[off+1], pixels[off+2] = 255, 255, 255
			pixels[off+3] = uint8(val * 255)
		}
	}
	return pixels
}

func (e *Engine) generateBackground(outline []*geojson.Geometry) {
	cpuImg := image.NewRGBA(image.Rect(0, 0, e.Width, e.Height))
	draw.Draw(cpuImg, cpuImg.Bounds(), &image.Uniform{ColorBackground}, image.Point{}, draw.Src)

	// 40px floor plan grid.
	grid := int(40 * e.RoomScale)
	if grid < 8 {
		grid = 8
	}
	for x := 0; x < e.Width; x += grid {
		e.drawLineFast(cpuImg, x, 0, x, e.Height-1, ColorGrid)
	}
	for y := 0; y < e.Height; y += grid {
		e.drawLineFast(cpuImg, 0, y, e.Width-1, y, ColorGrid)
	}

	for _, g := range outline {
		switch {
		case g.IsPolygon():
			e.fillPolygon(cpuImg, g.Polygon, ColorFloor)
			for _, ring := range g.Polygon {
				e.drawRingFast(cpuImg, ring, ColorOutline)
			}
		case g.IsMultiPolygon():
			for _, poly := range g.MultiPolygon {
				e.fillPolygon(cpuImg, poly, ColorFloor)
				for _, ring := range poly {
					e.drawRingFast(cpuImg, ring, ColorOutline)
				}
			}
		case g.IsLineString():
			e.drawRingFast(cpuImg, g.LineString, ColorOutline)
		}
	}
	e.bgImage = ebiten.NewImageFromImage(cpuImg)
}

func (e *Engine) fillPolygon(img *image.RGBA, rings [][][]float64, c color.RGBA) {
	if len(rings) == 0 {
		return
	}
	type point struct{ x, y float64 }
	projectedRings := make([][]point, len(rings))
	minY, maxY := float64(e.Height), 0.0
	for i, ring := range rings {
		projectedRings[i] = make([]point, len(ring))
		for j, p := range ring {
			x, y := e.toScreen(p[0], p[1])
			projectedRings[i][j] = point{x, y}
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	for y := int(minY); y <= int(maxY); y++ {
		if y < 0 || y >= e.Height {
			continue
		}
		var nodes []int
		fy := float64(y)
		for _, ring := range projectedRings {
			for i := 0; i < len(ring); i++ {
				j := (i + 1) % len(ring)
				if (ring[i].y < fy && ring[j].y >= fy) || (ring[j].y < fy && ring[i].y >= fy) {
					nodeX := ring[i].x + (fy-ring[i].y)/(ring[j].y-ring[i].y)*(ring[j].x-ring[i].x)
					nodes = append(nodes, int(nodeX))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i < len(nodes)-1; i += 2 {
			xs, xe := max(nodes[i], 0), min(nodes[i+1], e.Width-1)
			for x := xs; x < xe; x++ {
				off := y*img.Stride + x*4
				img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c.R, c.G, c.B, 255
			}
		}
	}
}

func (e *Engine) drawRingFast(img *image.RGBA, coords [][]float64, c color.RGBA) {
	for i := 0; i < len(coords)-1; i++ {
		x1, y1 := e.toScreen(coords[i][0], coords[i][1])
		x2, y2 := e.toScreen(coords[i+1][0], coords[i+1][1])
		e.drawLineFast(img, int(x1), int(y1), int(x2), int(y2), c)
	}
}

func (e *Engine) drawLineFast(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx, dy := math.Abs(float64(x2-x1)), math.Abs(float64(y2-y1))
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		if x1 >= 0 && x1 < e.Width && y1 >= 0 && y1 < e.Height {
			off := y1*img.Stride + x1*4
			img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c.R, c.G, c.B, 255
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

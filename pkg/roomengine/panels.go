package roomengine

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sterilysense/roomview/pkg/roomview"
)

var (
	panelFill   = color.RGBA{0, 0, 0, 100}
	panelBorder = color.RGBA{36, 42, 53, 255}
)

func strokeLine(dst *ebiten.Image, x1, y1, x2, y2 float64, width float32, c color.Color) {
	vector.StrokeLine(dst, float32(x1), float32(y1), float32(x2), float32(y2), width, c, true)
}

func (e *Engine) fontSize() float64 {
	if e.Width > 2000 {
		return 32
	}
	return 16
}

// drawPanel draws the boxed panel style with an accent bar and a dim title.
func (e *Engine) drawPanel(screen *ebiten.Image, x, y, w, h float64, title string) {
	fs := e.fontSize()
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), panelFill, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 1, panelBorder, false)
	vector.DrawFilledRect(screen, float32(x), float32(y), 4, float32(fs+10), ColorAccent, false)

	if e.fontSource == nil || title == "" {
		return
	}
	titleFace := &text.GoTextFace{Source: e.fontSource, Size: fs * 0.8}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x+15, y+8)
	op.ColorScale.Scale(1, 1, 1, 0.5)
	text.Draw(screen, title, titleFace, op)
}

func (e *Engine) drawText(screen *ebiten.Image, s string, face *text.GoTextFace, x, y float64, c color.RGBA, alpha float32) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.Scale(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, alpha)
	text.Draw(screen, s, face, op)
}

func (e *Engine) drawCentered(screen *ebiten.Image, s string, face *text.GoTextFace, cx, cy float64, alpha float32) {
	tw, th := text.Measure(s, face, 0)
	e.drawText(screen, s, face, cx-tw/2, cy-th/2, ColorSelected, alpha)
}

func (e *Engine) drawHeader(screen *ebiten.Image, scene roomview.Scene) {
	if e.fontSource == nil {
		return
	}
	fs := e.fontSize()
	margin := fs * 2
	title := &text.GoTextFace{Source: e.fontSource, Size: fs * 1.4}
	sub := &text.GoTextFace{Source: e.fontSource, Size: fs * 0.8}
	mono := &text.GoTextFace{Source: e.monoSource, Size: fs * 0.8}

	e.drawText(screen, "3D Room Contamination Map", title, margin, margin, ColorSelected, 0.9)
	e.drawText(screen, "Interactive Floor Plan Analysis", sub, margin, margin+fs*2, ColorSelected, 0.5)

	cam := scene.Camera
	status := fmt.Sprintf("%s  |  %s  |  angle %3.0f°  zoom %3.0f%%", cam.Metric.Title(), cam.Mode, cam.AngleDeg, cam.Zoom*100)
	e.drawText(screen, status, mono, margin, margin+fs*3.5, ColorAccent, 0.8)

	caption := fmt.Sprintf("Healthcare Room - %d Monitored Zones", len(scene.Zones))
	cx := e.RoomOriginX + 300*e.RoomScale
	e.drawCentered(screen, caption, sub, cx, float64(e.Height)-margin, 0.6)

	help := "[1/2/3] metric  [R] rotate  [+/-/0] zoom  [V] 2D/3D  [click] inspect  [Esc] close  [F12] capture"
	hw, _ := text.Measure(help, mono, 0)
	e.drawText(screen, help, mono, float64(e.Width)-margin-hw, margin, ColorSelected, 0.35)
}

func (e *Engine) drawLegend(screen *ebiten.Image, scene roomview.Scene) {
	fs := e.fontSize()
	margin := fs * 2
	w, h := fs*9, fs*6.5
	x, y := margin, float64(e.Height)-margin-h
	e.drawPanel(screen, x, y, w, h, "RISK LEVELS")
	if e.fontSource == nil {
		return
	}
	face := &text.GoTextFace{Source: e.fontSource, Size: fs}
	m := scene.Camera.Metric
	rows := []struct {
		label string
		tok   roomview.RiskColor
	}{
		{"Low", roomview.Success},
		{"Medium", roomview.Warning},
		{"High", roomview.Danger},
	}
	for i, r := range rows {
		ry := y + fs*2 + float64(i)*(fs+8)
		c := roomview.Palette(m, r.tok)
		vector.DrawFilledRect(screen, float32(x+15), float32(ry+2), float32(fs*0.9), float32(fs*0.9), c, false)
		e.drawText(screen, r.label, face, x+15+fs*1.5, ry, ColorSelected, 0.8)
	}
}

func (e *Engine) drawTierCounts(screen *ebiten.Image, scene roomview.Scene) {
	fs := e.fontSize()
	margin := fs * 2
	w, h := fs*12, fs*6.5
	x, y := float64(e.Width)-margin-w, float64(e.Height)-margin-h
	e.drawPanel(screen, x, y, w, h, "ZONE STATUS")
	if e.fontSource == nil {
		return
	}
	face := &text.GoTextFace{Source: e.fontSource, Size: fs}
	rows := []struct {
		label string
		n     int
		c     color.RGBA
	}{
		{"Clean Zones", scene.Counts.Clean, roomview.ColorSuccess},
		{"Medium Risk", scene.Counts.MediumRisk, roomview.ColorWarning},
		{"High Risk", scene.Counts.HighRisk, roomview.ColorDanger},
	}
	for i, r := range rows {
		ry := y + fs*2 + float64(i)*(fs+8)
		e.drawText(screen, fmt.Sprintf("%d", r.n), face, x+15, ry, r.c, 0.95)
		e.drawText(screen, r.label, face, x+15+fs*2.5, ry, ColorSelected, 0.7)
	}
}

// trendPoints maps one tier's count history onto a graph box. Counts are scaled against the zone
// total so the three tiers share an axis.
func trendPoints(history []roomview.Snapshot, m roomview.Metric, tier roomview.Tier, gx, gy, gw, gh float64) [][2]float64 {
	if len(history) < 2 {
		return nil
	}
	step := gw / float64(roomview.DefaultHistoryLen-1)
	// Right-align so the newest sample sits at the right edge.
	start := gx + gw - float64(len(history)-1)*step
	pts := make([][2]float64, len(history))
	for i, s := range history {
		c := s.For(m)
		total := c.Total()
		frac := 0.0
		if total > 0 {
			frac = float64(c.Count(tier)) / float64(total)
		}
		pts[i] = [2]float64{start + float64(i)*step, gy + gh - frac*gh}
	}
	return pts
}

func (e *Engine) drawTrendlines(screen *ebiten.Image, scene roomview.Scene) {
	fs := e.fontSize()
	margin := fs * 2
	w, h := fs*16, fs*6.5
	x := float64(e.Width) - margin - fs*12 - fs - w
	y := float64(e.Height) - margin - h
	e.drawPanel(screen, x, y, w, h, "TIER TREND (3m)")

	gx, gy := x+15, y+fs*2
	gw, gh := w-30, h-fs*2-10
	layers := []struct {
		tier roomview.Tier
		c    color.RGBA
	}{
		{roomview.TierClean, roomview.ColorSuccess},
		{roomview.TierMedium, roomview.ColorWarning},
		{roomview.TierHigh, roomview.ColorDanger},
	}
	for _, l := range layers {
		pts := trendPoints(scene.History, scene.Camera.Metric, l.tier, gx, gy, gw, gh)
		for i := 0; i+1 < len(pts); i++ {
			strokeLine(screen, pts[i][0], pts[i][1], pts[i+1][0], pts[i+1][1], 2, l.c)
		}
	}
}

func (e *Engine) drawDetail(screen *ebiten.Image, scene roomview.Scene) {
	d := scene.Selected
	if d == nil {
		return
	}
	fs := e.fontSize()
	margin := fs * 2
	w, h := fs*17, fs*10
	x, y := float64(e.Width)-margin-w, margin+fs*3
	e.drawPanel(screen, x, y, w, h, "ZONE DETAIL")
	if e.fontSource == nil {
		return
	}
	head := &text.GoTextFace{Source: e.fontSource, Size: fs * 1.2}
	face := &text.GoTextFace{Source: e.fontSource, Size: fs}
	mono := &text.GoTextFace{Source: e.monoSource, Size: fs}

	e.drawText(screen, d.Surface, head, x+15, y+fs*2, ColorSelected, 0.95)
	rows := [][2]string{
		{"Contamination:", d.Contamination},
		{"Bacterial Count:", d.Bacterial},
		{"UV Intensity:", d.UV},
		{"Last Cleaned:", d.LastCleaned},
	}
	for i, r := range rows {
		ry := y + fs*4 + float64(i)*(fs+8)
		e.drawText(screen, r[0], face, x+15, ry, ColorSelected, 0.55)
		vw, _ := text.Measure(r[1], mono, 0)
		e.drawText(screen, r[1], mono, x+w-15-vw, ry, ColorSelected, 0.9)
	}
}

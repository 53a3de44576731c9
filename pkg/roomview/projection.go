package roomview

import (
	"fmt"
	"math"
)

type ProjectionMode string

const (
	Projection3D ProjectionMode = "3D"
	Projection2D ProjectionMode = "2D"
)

func ParseProjectionMode(s string) (ProjectionMode, error) {
	switch ProjectionMode(s) {
	case Projection3D, Projection2D:
		return ProjectionMode(s), nil
	case "3d":
		return Projection3D, nil
	case "2d":
		return Projection2D, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProjection, s)
}

// Camera parameters. AngleDeg wraps modulo 360; Zoom stays within [MinZoom, MaxZoom].
type Camera struct {
	AngleDeg float64        `json:"angle"`
	Zoom     float64        `json:"zoom"`
	Mode     ProjectionMode `json:"mode"`
	Metric   Metric         `json:"metric"`
}

const (
	DefaultAngle = 45.0
	DefaultZoom  = 1.0
	MinZoom      = 0.5
	MaxZoom      = 2.0
	ZoomStep     = 0.2
	RotateStep   = 15.0

	// TiltDeg is the fixed forward tilt applied in 3D mode.
	TiltDeg = 15.0
)

func DefaultCamera() Camera {
	return Camera{AngleDeg: DefaultAngle, Zoom: DefaultZoom, Mode: Projection3D, Metric: MetricContamination}
}

// Oblique offsets applied per unit of depth.
const (
	depthShiftX = 0.5
	depthShiftY = 0.3

	shadowOffsetPerDepth = 0.1
	shadowBlurPerDepth   = 0.2
)

type Transform struct {
	Scale   float64 `json:"scale"`
	TiltDeg float64 `json:"tilt"`
	YawDeg  float64 `json:"yaw"`
}

type Shadow struct {
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
}

// ScreenRect is the projected footprint of a zone. X, Y is the top-left corner before Transform,
// which is applied about the rectangle centre.
type ScreenRect struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Transform Transform `json:"transform"`
	Shadow    Shadow    `json:"shadow"`
}

// Project maps a zone's room-space box to the screen. This is a simplified oblique approximation,
// not a perspective pipeline.
func Project(pos Vec3, ext Extent, cam Camera) (ScreenRect, error) {
	var tilt, yaw float64
	switch cam.Mode {
	case Projection3D:
		tilt, yaw = TiltDeg, cam.AngleDeg
	case Projection2D:
	default:
		return ScreenRect{}, fmt.Errorf("%w: %q", ErrUnknownProjection, string(cam.Mode))
	}

	rad := cam.AngleDeg * math.Pi / 180
	return ScreenRect{
		X:         pos.X + math.Cos(rad)*pos.Z*depthShiftX,
		Y:         pos.Y - math.Sin(rad)*pos.Z*depthShiftY,
		Width:     ext.Width * cam.Zoom,
		Height:    ext.Height * cam.Zoom,
		Transform: Transform{Scale: cam.Zoom, TiltDeg: tilt, YawDeg: yaw},
		Shadow:    Shadow{OffsetY: pos.Z * shadowOffsetPerDepth, Blur: pos.Z * shadowBlurPerDepth},
	}, nil
}

// Matrix returns the linear part (a b; c d) of rotateX(tilt)·rotateY(yaw)·scale under an
// orthographic drop of the depth axis: x' = a·x + b·y, y' = c·x + d·y.
func (t Transform) Matrix() (a, b, c, d float64) {
	tilt := t.TiltDeg * math.Pi / 180
	yaw := t.YawDeg * math.Pi / 180
	a = t.Scale * math.Cos(yaw)
	b = 0
	c = t.Scale * math.Sin(yaw) * math.Sin(tilt)
	d = t.Scale * math.Cos(tilt)
	return a, b, c, d
}

func (r ScreenRect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Quad returns the transformed corners clockwise from the top-left.
func (r ScreenRect) Quad() [4][2]float64 {
	cx, cy := r.Center()
	a, b, c, d := r.Transform.Matrix()
	hw, hh := r.Width/2, r.Height/2
	var q [4][2]float64
	for i, p := range [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}} {
		q[i] = [2]float64{cx + a*p[0] + b*p[1], cy + c*p[0] + d*p[1]}
	}
	return q
}

// Contains hit-tests a screen point against the transformed rectangle. A transform seen edge-on
// has no area and contains nothing.
func (r ScreenRect) Contains(px, py float64) bool {
	cx, cy := r.Center()
	a, b, c, d := r.Transform.Matrix()
	det := a*d - b*c
	if math.Abs(det) < 1e-9 {
		return false
	}
	dx, dy := px-cx, py-cy
	lx := (d*dx - b*dy) / det
	ly := (-c*dx + a*dy) / det
	return math.Abs(lx) <= r.Width/2 && math.Abs(ly) <= r.Height/2
}

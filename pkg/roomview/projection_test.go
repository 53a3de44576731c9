package roomview

import (
	"errors"
	"math"
	"testing"
)

func TestProject(t *testing.T) {
	cam3D := DefaultCamera()
	cam2D := DefaultCamera()
	cam2D.Mode = Projection2D

	tests := []struct {
		name         string
		pos          Vec3
		ext          Extent
		cam          Camera
		wantX, wantY float64
		wantW, wantH float64
		wantShadow   float64
	}{
		{"flat 2D", Vec3{100, 100, 0}, Extent{80, 60, 20}, cam2D, 100, 100, 80, 60, 0},
		{"flat 3D", Vec3{100, 100, 0}, Extent{80, 60, 20}, cam3D, 100, 100, 80, 60, 0},
		{"deep 3D", Vec3{200, 200, 50}, Extent{120, 40, 30}, cam3D, 217.68, 189.39, 120, 40, 5},
		{"deep 2D still shifts", Vec3{200, 200, 50}, Extent{120, 40, 30}, cam2D, 217.68, 189.39, 120, 40, 5},
		{"zoomed", Vec3{0, 0, 0}, Extent{100, 50, 10}, Camera{AngleDeg: 0, Zoom: 2, Mode: Projection3D, Metric: MetricUV}, 0, 0, 200, 100, 0},
		{"angle 90", Vec3{10, 10, 100}, Extent{10, 10, 10}, Camera{AngleDeg: 90, Zoom: 1, Mode: Projection3D, Metric: MetricUV}, 10, -20, 10, 10, 10},
	}

	for _, tt := range tests {
		r, err := Project(tt.pos, tt.ext, tt.cam)
		if err != nil {
			t.Fatalf("%s: Project returned error: %v", tt.name, err)
		}
		if math.Abs(r.X-tt.wantX) > 0.01 || math.Abs(r.Y-tt.wantY) > 0.01 {
			t.Errorf("%s: position = (%f, %f); want (%f, %f)", tt.name, r.X, r.Y, tt.wantX, tt.wantY)
		}
		if math.Abs(r.Width-tt.wantW) > 1e-9 || math.Abs(r.Height-tt.wantH) > 1e-9 {
			t.Errorf("%s: size = %fx%f; want %fx%f", tt.name, r.Width, r.Height, tt.wantW, tt.wantH)
		}
		if math.Abs(r.Shadow.OffsetY-tt.wantShadow) > 1e-9 || math.Abs(r.Shadow.Blur-2*tt.wantShadow) > 1e-9 {
			t.Errorf("%s: shadow = %+v; want offset %f blur %f", tt.name, r.Shadow, tt.wantShadow, 2*tt.wantShadow)
		}
	}
}

func TestProjectTransform(t *testing.T) {
	cam := DefaultCamera()
	r, _ := Project(Vec3{}, Extent{10, 10, 10}, cam)
	if r.Transform.TiltDeg != TiltDeg || r.Transform.YawDeg != cam.AngleDeg || r.Transform.Scale != cam.Zoom {
		t.Errorf("3D transform = %+v; want tilt %f yaw %f scale %f", r.Transform, TiltDeg, cam.AngleDeg, cam.Zoom)
	}

	cam.Mode = Projection2D
	r, _ = Project(Vec3{}, Extent{10, 10, 10}, cam)
	if r.Transform.TiltDeg != 0 || r.Transform.YawDeg != 0 {
		t.Errorf("2D transform = %+v; want no tilt or yaw", r.Transform)
	}
}

func TestProjectDeterministic(t *testing.T) {
	cam := Camera{AngleDeg: 135, Zoom: 1.4, Mode: Projection3D, Metric: MetricBacterial}
	first, _ := Project(Vec3{12, 34, 56}, Extent{7, 8, 9}, cam)
	for i := 0; i < 100; i++ {
		r, _ := Project(Vec3{12, 34, 56}, Extent{7, 8, 9}, cam)
		if r != first {
			t.Fatalf("Project is not deterministic: %+v != %+v", r, first)
		}
	}
}

func TestProjectUnknownMode(t *testing.T) {
	cam := DefaultCamera()
	cam.Mode = "4D"
	if _, err := Project(Vec3{}, Extent{}, cam); !errors.Is(err, ErrUnknownProjection) {
		t.Errorf("expected ErrUnknownProjection, got %v", err)
	}
}

func TestContains(t *testing.T) {
	cam := DefaultCamera()
	cam.Mode = Projection2D
	r, _ := Project(Vec3{100, 100, 0}, Extent{80, 60, 0}, cam)

	tests := []struct {
		x, y float64
		want bool
	}{
		{140, 130, true},
		{100, 100, true},
		{180, 160, true},
		{99, 130, false},
		{140, 161, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%f, %f) = %v; want %v", tt.x, tt.y, got, tt.want)
		}
	}

	// Edge-on yaw collapses the rectangle.
	r.Transform = Transform{Scale: 1, YawDeg: 90}
	cx, cy := r.Center()
	if r.Contains(cx, cy) {
		t.Error("edge-on rectangle should contain nothing")
	}
}

func TestQuadMatchesContains(t *testing.T) {
	r, _ := Project(Vec3{200, 200, 50}, Extent{120, 40, 30}, DefaultCamera())
	cx, cy := r.Center()
	for _, p := range r.Quad() {
		// Pull each corner slightly towards the centre.
		x := p[0] + (cx-p[0])*0.01
		y := p[1] + (cy-p[1])*0.01
		if !r.Contains(x, y) {
			t.Errorf("point just inside corner (%f, %f) not contained", x, y)
		}
	}
}

func TestParseProjectionMode(t *testing.T) {
	for _, s := range []string{"3D", "3d"} {
		if m, err := ParseProjectionMode(s); err != nil || m != Projection3D {
			t.Errorf("ParseProjectionMode(%q) = %q, %v", s, m, err)
		}
	}
	if _, err := ParseProjectionMode("iso"); !errors.Is(err, ErrUnknownProjection) {
		t.Errorf("expected ErrUnknownProjection, got %v", err)
	}
}

package dynamo

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/layers"
)

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		valid bool
	}{
		{"sphere", &Sphere{Radius: 0.5}, true},
		{"zero sphere", &Sphere{Radius: 0}, false},
		{"negative sphere", &Sphere{Radius: -1}, false},
		{"nan sphere", &Sphere{Radius: math.NaN()}, false},
		{"box", &Box{HalfExtent: mgl64.Vec3{1, 2, 3}}, true},
		{"flat box", &Box{HalfExtent: mgl64.Vec3{1, 0, 3}}, false},
		{"heightfield", FlatHeightField(4, 0, 1), true},
		{"tiny heightfield", &HeightField{Samples: []float64{0}, Size: 1, Scale: mgl64.Vec3{1, 1, 1}}, false},
		{"short heightfield", &HeightField{Samples: []float64{0, 0, 0}, Size: 2, Scale: mgl64.Vec3{1, 1, 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
		})
	}
}

func TestHeightAt(t *testing.T) {
	hf := &HeightField{
		Samples: []float64{0, 1, 2, 3},
		Size:    2,
		Scale:   mgl64.Vec3{2, 1, 2},
	}

	tests := []struct {
		x, z float64
		want float64
	}{
		{0, 0, 0},
		{2, 0, 1},
		{0, 2, 2},
		{2, 2, 3},
		{1, 1, 1.5},
	}
	for _, tt := range tests {
		got, ok := hf.HeightAt(tt.x, tt.z)
		if !ok {
			t.Fatalf("HeightAt(%v, %v) reported outside", tt.x, tt.z)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("HeightAt(%v, %v) = %v, want %v", tt.x, tt.z, got, tt.want)
		}
	}

	if _, ok := hf.HeightAt(-0.1, 0); ok {
		t.Error("expected point outside the field")
	}
	if _, ok := hf.HeightAt(0, 2.1); ok {
		t.Error("expected point outside the field")
	}
}

func TestBoxBoundsRotated(t *testing.T) {
	b := &Box{HalfExtent: mgl64.Vec3{2, 1, 1}}
	tr := Transform{Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})}
	aabb := b.Bounds(tr)
	if math.Abs(aabb.Max[0]-1) > 1e-9 || math.Abs(aabb.Max[2]-2) > 1e-9 {
		t.Errorf("rotated bounds wrong: %v", aabb)
	}
}

func TestBodySettingsValidate(t *testing.T) {
	ok := BodySettings{Shape: &Sphere{Radius: 1}, MotionType: Dynamic, Layer: layers.Moving, Mass: 1}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	massless := ok
	massless.Mass = 0
	if err := massless.Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}

	static := massless
	static.MotionType = Static
	if err := static.Validate(); err != nil {
		t.Errorf("static bodies need no mass: %v", err)
	}

	noShape := ok
	noShape.Shape = nil
	if err := noShape.Validate(); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestMotionTypeParse(t *testing.T) {
	for _, m := range []MotionType{Static, Kinematic, Dynamic} {
		got, err := ParseMotionType(m.String())
		if err != nil || got != m {
			t.Errorf("round trip %v: got %v, %v", m, got, err)
		}
	}
	if _, err := ParseMotionType("floating"); err == nil {
		t.Error("expected error")
	}
}

func TestBodyError(t *testing.T) {
	err := &BodyError{ID: 7, Op: "set position", Wrapped: ErrBodyNotFound}
	if err.Error() != "set position body 7: dynamo: body not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrBodyNotFound) {
		t.Error("BodyError should unwrap")
	}
}

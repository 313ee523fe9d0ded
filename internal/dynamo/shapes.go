package dynamo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
	ShapeHeightField
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapeHeightField:
		return "heightfield"
	default:
		return fmt.Sprintf("ShapeKind(%d)", uint8(k))
	}
}

type Shape interface {
	Kind() ShapeKind
	Validate() error
	// Bounds returns the world-space bounding box of the shape placed at t.
	Bounds(t Transform) AABB
}

type Sphere struct {
	Radius float64
}

func (s *Sphere) Kind() ShapeKind { return ShapeSphere }

func (s *Sphere) Validate() error {
	if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
		return fmt.Errorf("%w: sphere radius %f", ErrInvalidShape, s.Radius)
	}
	return nil
}

func (s *Sphere) Bounds(t Transform) AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: t.Position.Sub(r), Max: t.Position.Add(r)}
}

type Box struct {
	HalfExtent mgl64.Vec3
}

func (b *Box) Kind() ShapeKind { return ShapeBox }

func (b *Box) Validate() error {
	for _, v := range b.HalfExtent {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: box half extent %v", ErrInvalidShape, b.HalfExtent)
		}
	}
	return nil
}

// Bounds takes rotation into account by projecting the rotated axes.
func (b *Box) Bounds(t Transform) AABB {
	m := t.Rotation.Normalize().Mat4().Mat3()
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ext[i] += math.Abs(m.At(i, j)) * b.HalfExtent[j]
		}
	}
	return AABB{Min: t.Position.Sub(ext), Max: t.Position.Add(ext)}
}

// Corners returns the eight box corners in world space.
func (b *Box) Corners(t Transform) [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	rot := t.Rotation.Normalize()
	h := b.HalfExtent
	for i := 0; i < 8; i++ {
		local := mgl64.Vec3{h[0], h[1], h[2]}
		if i&1 != 0 {
			local[0] = -local[0]
		}
		if i&2 != 0 {
			local[1] = -local[1]
		}
		if i&4 != 0 {
			local[2] = -local[2]
		}
		out[i] = t.Position.Add(rot.Rotate(local))
	}
	return out
}

// HeightField is a square grid of Size x Size height samples. Sample (i, j)
// sits at local (i*Scale.X, Samples[j*Size+i]*Scale.Y, j*Scale.Z).
type HeightField struct {
	Samples []float64
	Size    int
	Scale   mgl64.Vec3
}

func (h *HeightField) Kind() ShapeKind { return ShapeHeightField }

func (h *HeightField) Validate() error {
	if h.Size < 2 {
		return fmt.Errorf("%w: height field needs at least 2x2 samples, got %d", ErrInvalidShape, h.Size)
	}
	if len(h.Samples) != h.Size*h.Size {
		return fmt.Errorf("%w: height field has %d samples, want %d", ErrInvalidShape, len(h.Samples), h.Size*h.Size)
	}
	if !(h.Scale[0] > 0) || !(h.Scale[2] > 0) {
		return fmt.Errorf("%w: height field scale %v", ErrInvalidShape, h.Scale)
	}
	for _, v := range h.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: height field sample %f", ErrInvalidShape, v)
		}
	}
	return nil
}

func (h *HeightField) minMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range h.Samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo * h.Scale[1], hi * h.Scale[1]
}

// Bounds ignores rotation; height fields are placed axis-aligned.
func (h *HeightField) Bounds(t Transform) AABB {
	lo, hi := h.minMax()
	extent := float64(h.Size - 1)
	return AABB{
		Min: t.Position.Add(mgl64.Vec3{0, lo, 0}),
		Max: t.Position.Add(mgl64.Vec3{extent * h.Scale[0], hi, extent * h.Scale[2]}),
	}
}

func (h *HeightField) sample(i, j int) float64 {
	return h.Samples[j*h.Size+i] * h.Scale[1]
}

// HeightAt returns the bilinearly interpolated height at local (x, z), or
// false when the point lies outside the grid.
func (h *HeightField) HeightAt(x, z float64) (float64, bool) {
	fx := x / h.Scale[0]
	fz := z / h.Scale[2]
	max := float64(h.Size - 1)
	if fx < 0 || fz < 0 || fx > max || fz > max {
		return 0, false
	}

	i := int(math.Min(math.Floor(fx), max-1))
	j := int(math.Min(math.Floor(fz), max-1))
	tx := fx - float64(i)
	tz := fz - float64(j)

	h00 := h.sample(i, j)
	h10 := h.sample(i+1, j)
	h01 := h.sample(i, j+1)
	h11 := h.sample(i+1, j+1)

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz, true
}

// Vertex returns sample (i, j) in world space for a field placed at origin.
func (h *HeightField) Vertex(origin mgl64.Vec3, i, j int) mgl64.Vec3 {
	return origin.Add(mgl64.Vec3{float64(i) * h.Scale[0], h.sample(i, j), float64(j) * h.Scale[2]})
}

// FlatHeightField builds a size x size field with every sample at height.
func FlatHeightField(size int, height float64, cell float64) *HeightField {
	samples := make([]float64, size*size)
	for i := range samples {
		samples[i] = height
	}
	return &HeightField{Samples: samples, Size: size, Scale: mgl64.Vec3{cell, 1, cell}}
}

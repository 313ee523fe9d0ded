package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/dynamo"
)

const circleSegments = 16

// box corner index pairs forming the twelve edges
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawBodies emits every body's collision geometry to r. Static bodies are
// grey, active bodies green and sleeping bodies orange.
func (s *Solver) DrawBodies(r dynamo.DebugRenderer) {
	if r == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for el := s.bodies.Front(); el != nil; el = el.Next() {
		b := el.Value
		col := dynamo.ColorGrey
		if b.moving() {
			col = dynamo.ColorOrange
			if b.active {
				col = dynamo.ColorGreen
			}
		}

		switch shape := b.settings.Shape.(type) {
		case *dynamo.Sphere:
			drawSphere(r, b.transform(), shape.Radius, col)
		case *dynamo.Box:
			corners := shape.Corners(b.transform())
			for _, e := range boxEdges {
				r.DrawLine(corners[e[0]], corners[e[1]], col)
			}
		case *dynamo.HeightField:
			drawHeightField(r, shape, b.pos, col)
		}
	}
}

func drawSphere(r dynamo.DebugRenderer, t dynamo.Transform, radius float64, col dynamo.Color) {
	axes := [3][2]mgl64.Vec3{
		{{1, 0, 0}, {0, 1, 0}},
		{{0, 1, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}},
	}
	for _, ax := range axes {
		u := t.Rotation.Rotate(ax[0]).Mul(radius)
		v := t.Rotation.Rotate(ax[1]).Mul(radius)
		prev := t.Position.Add(u)
		for i := 1; i <= circleSegments; i++ {
			a := 2 * math.Pi * float64(i) / circleSegments
			next := t.Position.Add(u.Mul(math.Cos(a))).Add(v.Mul(math.Sin(a)))
			r.DrawLine(prev, next, col)
			prev = next
		}
	}
}

func drawHeightField(r dynamo.DebugRenderer, hf *dynamo.HeightField, origin mgl64.Vec3, col dynamo.Color) {
	for j := 0; j < hf.Size-1; j++ {
		for i := 0; i < hf.Size-1; i++ {
			v00 := hf.Vertex(origin, i, j)
			v10 := hf.Vertex(origin, i+1, j)
			v01 := hf.Vertex(origin, i, j+1)
			v11 := hf.Vertex(origin, i+1, j+1)
			r.DrawTriangle(v00, v01, v10, col)
			r.DrawTriangle(v10, v01, v11, col)
		}
	}
}

package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/dynamo"
)

type pair struct {
	a, b *body
}

// contact normal points from a to b; depth is positive when penetrating.
type contact struct {
	a, b   *body
	normal mgl64.Vec3
	depth  float64
}

var up = mgl64.Vec3{0, 1, 0}

func (s *Solver) pairAllowed(a, b *body) bool {
	if s.filter == nil {
		return true
	}
	if !s.filter.ShouldCollideBroadPhase(a.settings.Layer, s.filter.BroadPhaseLayer(b.settings.Layer)) {
		return false
	}
	return s.filter.ShouldCollide(a.settings.Layer, b.settings.Layer)
}

func (s *Solver) broadPhase(out *[]pair) {
	limit := s.settings.MaxBodyPairs
	add := func(a, b *body) bool {
		if len(*out) >= limit {
			return false
		}
		if !a.active && !b.active {
			return true
		}
		if !s.pairAllowed(a, b) || !a.boundsCache.Overlaps(b.boundsCache) {
			return true
		}
		*out = append(*out, pair{a: a, b: b})
		return true
	}

	for i, a := range s.moving {
		for _, b := range s.moving[i+1:] {
			if !add(a, b) {
				s.log.WithField("limit", limit).Warn("body pair limit reached")
				return
			}
		}
		for _, st := range s.statics {
			if !add(st, a) {
				s.log.WithField("limit", limit).Warn("body pair limit reached")
				return
			}
		}
	}
}

func (s *Solver) narrowPhase(pairs []pair, out *[]contact) {
	limit := s.settings.MaxContactConstraints
	for _, p := range pairs {
		if len(*out) >= limit {
			s.log.WithField("limit", limit).Warn("contact constraint limit reached")
			return
		}
		if c, ok := collide(p.a, p.b); ok {
			*out = append(*out, c)
		}
	}
}

func collide(a, b *body) (contact, bool) {
	ka, kb := a.settings.Shape.Kind(), b.settings.Shape.Kind()

	// order so the lower kind comes first, then flip the normal back
	if ka > kb {
		c, ok := collide(b, a)
		if ok {
			c.a, c.b = a, b
			c.normal = c.normal.Mul(-1)
		}
		return c, ok
	}

	switch {
	case ka == dynamo.ShapeSphere && kb == dynamo.ShapeSphere:
		return sphereSphere(a, b)
	case ka == dynamo.ShapeSphere && kb == dynamo.ShapeBox:
		return sphereBox(a, b)
	case ka == dynamo.ShapeBox && kb == dynamo.ShapeBox:
		return boxBox(a, b)
	case kb == dynamo.ShapeHeightField && ka != dynamo.ShapeHeightField:
		return onHeightField(a, b)
	}
	return contact{}, false
}

func sphereSphere(a, b *body) (contact, bool) {
	ra := a.settings.Shape.(*dynamo.Sphere).Radius
	rb := b.settings.Shape.(*dynamo.Sphere).Radius
	d := b.pos.Sub(a.pos)
	dist := d.Len()
	if dist >= ra+rb {
		return contact{}, false
	}
	n := up
	if dist > 1e-9 {
		n = d.Mul(1 / dist)
	}
	return contact{a: a, b: b, normal: n, depth: ra + rb - dist}, true
}

func sphereBox(sphere, box *body) (contact, bool) {
	r := sphere.settings.Shape.(*dynamo.Sphere).Radius
	bb := box.boundsCache

	var closest mgl64.Vec3
	for i := 0; i < 3; i++ {
		closest[i] = math.Max(bb.Min[i], math.Min(sphere.pos[i], bb.Max[i]))
	}
	d := sphere.pos.Sub(closest)
	dist := d.Len()
	if dist >= r {
		return contact{}, false
	}
	if dist > 1e-9 {
		// normal from sphere towards box
		return contact{a: sphere, b: box, normal: d.Mul(-1 / dist), depth: r - dist}, true
	}

	// centre inside the box: push out along the shallowest axis
	n, depth := minAxis(sphere.boundsCache, bb, sphere.pos, box.pos)
	return contact{a: sphere, b: box, normal: n, depth: depth + r}, true
}

func boxBox(a, b *body) (contact, bool) {
	if !a.boundsCache.Overlaps(b.boundsCache) {
		return contact{}, false
	}
	n, depth := minAxis(a.boundsCache, b.boundsCache, a.pos, b.pos)
	return contact{a: a, b: b, normal: n, depth: depth}, true
}

// minAxis finds the axis of least overlap between two boxes and returns the
// normal pointing from a's centre towards b's.
func minAxis(a, b dynamo.AABB, ca, cb mgl64.Vec3) (mgl64.Vec3, float64) {
	best, axis := math.Inf(1), 1
	for i := 0; i < 3; i++ {
		overlap := math.Min(a.Max[i], b.Max[i]) - math.Max(a.Min[i], b.Min[i])
		if overlap < best {
			best, axis = overlap, i
		}
	}
	var n mgl64.Vec3
	n[axis] = 1
	if cb[axis] < ca[axis] {
		n[axis] = -1
	}
	return n, best
}

// onHeightField tests the lowest point of a body against the field height
// under its centre. The returned normal points from the body into the field.
func onHeightField(b, field *body) (contact, bool) {
	hf := field.settings.Shape.(*dynamo.HeightField)
	ground, ok := hf.HeightAt(b.pos[0]-field.pos[0], b.pos[2]-field.pos[2])
	if !ok {
		return contact{}, false
	}
	ground += field.pos[1]
	bottom := b.boundsCache.Min[1]
	if bottom >= ground {
		return contact{}, false
	}
	return contact{a: b, b: field, normal: up.Mul(-1), depth: ground - bottom}, true
}

func (s *Solver) resolve(contacts []contact) {
	for _, c := range contacts {
		a, b := c.a, c.b
		wSum := a.invMass + b.invMass
		if wSum == 0 {
			continue
		}

		a.pos = a.pos.Sub(c.normal.Mul(c.depth * a.invMass / wSum))
		b.pos = b.pos.Add(c.normal.Mul(c.depth * b.invMass / wSum))

		rel := b.vel.Sub(a.vel)
		vn := rel.Dot(c.normal)
		if vn < 0 {
			e := math.Max(a.settings.Restitution, b.settings.Restitution)
			if -vn < restitutionThreshold {
				e = 0
			}
			j := -(1 + e) * vn / wSum
			impulse := c.normal.Mul(j)
			a.vel = a.vel.Sub(impulse.Mul(a.invMass))
			b.vel = b.vel.Add(impulse.Mul(b.invMass))

			tangent := rel.Sub(c.normal.Mul(vn))
			if tl := tangent.Len(); tl > 1e-9 {
				mu := math.Sqrt(a.settings.Friction * b.settings.Friction)
				jt := math.Min(mu*j, tl/wSum)
				ft := tangent.Mul(jt / tl)
				a.vel = a.vel.Add(ft.Mul(a.invMass))
				b.vel = b.vel.Sub(ft.Mul(b.invMass))
			}
		}

		if a.active && !b.active {
			s.wake(b)
		} else if b.active && !a.active {
			s.wake(a)
		}
		a.refreshBounds()
		b.refreshBounds()
	}
}

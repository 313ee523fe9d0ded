package integrators

import "github.com/go-gl/mathgl/mgl64"

// Euler is explicit forward Euler: position advances with the old velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Integrate(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	return pos.Add(vel.Mul(dt)), vel.Add(acc.Mul(dt))
}

// SemiImplicitEuler updates velocity first and moves with the new velocity.
// This is what most game solvers use.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Integrate(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	v := vel.Add(acc.Mul(dt))
	return pos.Add(v.Mul(dt)), v
}

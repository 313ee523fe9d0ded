package integrators

import "github.com/go-gl/mathgl/mgl64"

// Verlet is velocity Verlet. With constant acceleration over the step the
// half-step velocity form reduces to the exact kinematic update.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Integrate(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	halfDt := 0.5 * dt
	vHalf := vel.Add(acc.Mul(halfDt))
	newPos := pos.Add(vHalf.Mul(dt))
	return newPos, vHalf.Add(acc.Mul(halfDt))
}

// Package integrators advances body positions and velocities over one
// sub-step under a constant acceleration.
package integrators

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type Integrator interface {
	Integrate(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3)
}

// ByName resolves the integrator names accepted in config files.
func ByName(name string) (Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "symplectic", "semi_implicit_euler", "":
		return NewSemiImplicitEuler(), nil
	case "verlet":
		return NewVerlet(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}

func Names() []string {
	return []string{"euler", "symplectic", "verlet"}
}

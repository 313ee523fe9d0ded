package integrators

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

var gravity = mgl64.Vec3{0, -9.81, 0}

func fall(integ Integrator, steps int, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	pos := mgl64.Vec3{0, 10, 0}
	vel := mgl64.Vec3{1, 0, 0}
	for i := 0; i < steps; i++ {
		pos, vel = integ.Integrate(pos, vel, gravity, dt)
	}
	return pos, vel
}

func TestVerletExactUnderConstantAcceleration(t *testing.T) {
	dt := 1.0 / 60.0
	steps := 60
	pos, vel := fall(NewVerlet(), steps, dt)

	tEnd := float64(steps) * dt
	expectedY := 10 - 0.5*9.81*tEnd*tEnd
	if math.Abs(pos[1]-expectedY) > 1e-9 {
		t.Errorf("position error too large: got %.9f, expected %.9f", pos[1], expectedY)
	}
	if math.Abs(vel[1]+9.81*tEnd) > 1e-9 {
		t.Errorf("velocity error too large: got %.9f", vel[1])
	}
	if math.Abs(pos[0]-tEnd) > 1e-9 {
		t.Errorf("horizontal drift: got %.9f, expected %.9f", pos[0], tEnd)
	}
}

func TestEulerSchemesBracketExact(t *testing.T) {
	dt := 1.0 / 60.0
	steps := 60
	exact, _ := fall(NewVerlet(), steps, dt)
	explicit, _ := fall(NewEuler(), steps, dt)
	symplectic, _ := fall(NewSemiImplicitEuler(), steps, dt)

	// explicit Euler lags behind the exact fall, semi-implicit runs ahead
	if !(explicit[1] > exact[1]) {
		t.Errorf("explicit Euler should fall less: %v vs %v", explicit[1], exact[1])
	}
	if !(symplectic[1] < exact[1]) {
		t.Errorf("semi-implicit Euler should fall more: %v vs %v", symplectic[1], exact[1])
	}
	if math.Abs(explicit[1]-exact[1]) > 0.1 || math.Abs(symplectic[1]-exact[1]) > 0.1 {
		t.Error("first order schemes drifted too far")
	}
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	if _, err := ByName("rk9"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

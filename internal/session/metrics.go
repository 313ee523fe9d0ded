package session

import (
	"math"

	"github.com/san-kum/simhost/internal/scene"
)

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

func DefaultMetrics() []Metric {
	return []Metric{NewKineticEnergy(), NewMaxHeight(), NewStepRate()}
}

// KineticEnergy is the mean total kinetic energy over observed frames.
type KineticEnergy struct {
	samples int
	total   float64
	peak    float64
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (k *KineticEnergy) Name() string { return "kinetic_energy" }

func (k *KineticEnergy) Observe(f Frame) {
	e := 0.0
	for _, s := range f.Samples {
		if s.Mass > 0 {
			e += 0.5 * s.Mass * s.Velocity.Dot(s.Velocity)
		}
	}
	k.total += e
	k.peak = math.Max(k.peak, e)
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Peak() float64 { return k.peak }

func (k *KineticEnergy) Reset() {
	k.samples = 0
	k.total = 0
	k.peak = 0
}

// MaxHeight is the highest Y any entity other than the ground reached.
type MaxHeight struct {
	max  float64
	seen bool
}

func NewMaxHeight() *MaxHeight { return &MaxHeight{} }

func (m *MaxHeight) Name() string { return "max_height" }

func (m *MaxHeight) Observe(f Frame) {
	for _, s := range f.Samples {
		if s.Name == scene.GroundName {
			continue
		}
		if !m.seen || s.Position[1] > m.max {
			m.max = s.Position[1]
			m.seen = true
		}
	}
}

func (m *MaxHeight) Value() float64 { return m.max }

func (m *MaxHeight) Reset() {
	m.max = 0
	m.seen = false
}

// StepRate is solver sub-steps per wall-clock second between the first and
// last observed frames.
type StepRate struct {
	first, last Frame
	samples     int
}

func NewStepRate() *StepRate { return &StepRate{} }

func (r *StepRate) Name() string { return "step_rate" }

func (r *StepRate) Observe(f Frame) {
	if r.samples == 0 {
		r.first = f
	}
	r.last = f
	r.samples++
}

func (r *StepRate) Value() float64 {
	wall := (r.last.Wall - r.first.Wall).Seconds()
	if r.samples < 2 || wall <= 0 {
		return 0
	}
	return float64(r.last.Stats.Steps-r.first.Stats.Steps) / wall
}

func (r *StepRate) Reset() {
	r.first, r.last = Frame{}, Frame{}
	r.samples = 0
}

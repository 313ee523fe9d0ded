package physics

import (
	"github.com/jonboulle/clockwork"
	"github.com/san-kum/simhost/internal/character"
	"github.com/san-kum/simhost/internal/dynamo"
)

type Option func(*System)

func WithTimer(t Timer) Option {
	return func(s *System) { s.timer = t }
}

// WithClock drives the default wall timer from c.
func WithClock(c clockwork.Clock) Option {
	return func(s *System) { s.timer = NewWallTimer(c) }
}

func WithSolverFactory(f SolverFactory) Option {
	return func(s *System) { s.factory = f }
}

// WithDebugRenderer attaches a renderer that receives the collision
// geometry after every pass that took sub-steps. It is called on the
// simulation goroutine.
func WithDebugRenderer(r dynamo.DebugRenderer) Option {
	return func(s *System) { s.debug = r }
}

func WithCharacters(t *character.Table) Option {
	return func(s *System) { s.chars = t }
}

// WithStepObserver is called on the simulation goroutine after every pass
// that took sub-steps, with the step sizes in order. The slice is reused.
func WithStepObserver(fn func(steps []float64)) Option {
	return func(s *System) { s.observer = fn }
}

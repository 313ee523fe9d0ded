package physics

import (
	"errors"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/config"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/jobs"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var errStepFailed = errors.New("step failed")

// recordingSolver records sub-step sizes. Body methods are not implemented.
type recordingSolver struct {
	dynamo.Solver

	mu      sync.Mutex
	steps   []float64
	fail    bool
	panics  int
	closed  int
	created int
}

func (r *recordingSolver) Step(dt float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics > 0 {
		r.panics--
		panic("solver exploded")
	}
	r.steps = append(r.steps, dt)
	if r.fail {
		return errStepFailed
	}
	return nil
}

func (r *recordingSolver) Steps() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.steps...)
}

func (r *recordingSolver) Gravity() mgl64.Vec3 { return mgl64.Vec3{0, -9.81, 0} }

func (r *recordingSolver) GroundHeight(x, z float64) (float64, bool) { return 0, true }

func (r *recordingSolver) DrawBodies(d dynamo.DebugRenderer) {
	d.DrawLine(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, dynamo.ColorWhite)
}

func (r *recordingSolver) BodyCount() int { return 0 }

func (r *recordingSolver) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func (r *recordingSolver) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recordingSolver) factory() SolverFactory {
	return func(config.Physics, dynamo.LayerFilter, *jobs.Pool, *logrus.Logger) (dynamo.Solver, error) {
		r.mu.Lock()
		r.created++
		r.mu.Unlock()
		return r, nil
	}
}

type countingFrames struct {
	mu           sync.Mutex
	begins, ends int
	lines        int
}

func (c *countingFrames) BeginFrame() { c.mu.Lock(); c.begins++; c.mu.Unlock() }
func (c *countingFrames) EndFrame()   { c.mu.Lock(); c.ends++; c.mu.Unlock() }

func (c *countingFrames) DrawLine(a, b mgl64.Vec3, col dynamo.Color) {
	c.mu.Lock()
	c.lines++
	c.mu.Unlock()
}

func (c *countingFrames) DrawTriangle(a, b, v mgl64.Vec3, col dynamo.Color) {}

func (c *countingFrames) Ends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ends
}

func testConfig() config.Physics {
	cfg := config.DefaultPhysics()
	cfg.Workers = 2
	cfg.IdleSleep = 500 * time.Microsecond
	return cfg
}

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

package physics

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/character"
	"github.com/san-kum/simhost/internal/config"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/integrators"
	"github.com/san-kum/simhost/internal/jobs"
	"github.com/san-kum/simhost/internal/layers"
	"github.com/san-kum/simhost/internal/rigid"
	"github.com/sirupsen/logrus"
)

const (
	FixedStep    = 1.0 / 60.0
	MinTimeScale = 0.1
	MaxTimeScale = 1.0
)

type SimulationState int

const (
	Stopped SimulationState = iota
	Running
	Paused
)

func (s SimulationState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("SimulationState(%d)", int(s))
}

// contextActive is held by the one initialized System in the process.
var contextActive atomic.Bool

// SolverFactory builds the solver when a System is initialized.
type SolverFactory func(cfg config.Physics, filter dynamo.LayerFilter, pool *jobs.Pool, log *logrus.Logger) (dynamo.Solver, error)

// RigidSolver is the default SolverFactory.
func RigidSolver(cfg config.Physics, filter dynamo.LayerFilter, pool *jobs.Pool, log *logrus.Logger) (dynamo.Solver, error) {
	integ, err := integrators.ByName(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	settings := rigid.Settings{
		MaxBodies:             cfg.MaxBodies,
		MaxBodyPairs:          cfg.MaxBodyPairs,
		MaxContactConstraints: cfg.MaxContactConstraints,
		Gravity:               cfg.Gravity,
		Integrator:            integ,
		SleepVelocity:         cfg.SleepVelocity,
		SleepTime:             cfg.SleepTime,
	}
	return rigid.New(settings, filter, pool, log), nil
}

// Stats is a snapshot of the simulation loop's counters.
type Stats struct {
	Passes        uint64
	Steps         uint64
	StepErrors    uint64
	SimulatedTime float64
	// Parked reports that the simulation goroutine is blocked on the pause
	// condition.
	Parked bool
	State  SimulationState
}

type System struct {
	cfg      config.Physics
	logger   *logrus.Logger
	log      *logrus.Entry
	factory  SolverFactory
	timer    Timer
	debug    dynamo.DebugRenderer
	chars    *character.Table
	observer func(steps []float64)
	filter   layers.Table

	// ctl serializes lifecycle and start/stop transitions. It is held while
	// joining the simulation goroutine, so nothing that goroutine calls may
	// take it.
	ctl         sync.Mutex
	initialized bool
	solver      dynamo.Solver
	pool        *jobs.Pool
	scratch     *jobs.TempAllocator[float64]
	bodies      atomic.Pointer[Bodies]

	mu       sync.Mutex
	cond     *sync.Cond
	running  bool
	paused   bool
	stopping bool
	parked   bool
	done     chan struct{}

	timeScale  atomic.Uint64
	passes     atomic.Uint64
	steps      atomic.Uint64
	stepErrors atomic.Uint64
	simTime    atomic.Uint64
}

func New(cfg config.Physics, log *logrus.Logger, opts ...Option) *System {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &System{
		cfg:     cfg,
		logger:  log,
		log:     log.WithField("component", "physics"),
		factory: RigidSolver,
		filter:  layers.NewTable(),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.timer == nil {
		s.timer = NewWallTimer(nil)
	}
	if s.chars == nil {
		s.chars = character.NewTable()
	}

	scale := 1.0
	if cfg.TimeScale != 0 {
		scale = ClampTimeScale(cfg.TimeScale)
	}
	s.timeScale.Store(math.Float64bits(scale))
	return s
}

// Initialize builds the solver, the job pool and the body facade. Calling
// it again on an initialized System does nothing.
func (s *System) Initialize() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.initialized {
		return nil
	}
	if !contextActive.CompareAndSwap(false, true) {
		return dynamo.ErrContextActive
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = jobs.DefaultWorkers()
	}
	pool := jobs.NewPool(workers)

	solver, err := s.factory(s.cfg, s.filter, pool, s.logger)
	if err != nil {
		pool.Close()
		contextActive.Store(false)
		return fmt.Errorf("create solver: %w", err)
	}

	s.pool = pool
	s.solver = solver
	s.scratch = jobs.NewTempAllocator[float64](8)
	s.bodies.Store(newBodies(solver))
	s.initialized = true

	s.log.WithFields(logrus.Fields{
		"workers":                 workers,
		"max_bodies":              s.cfg.MaxBodies,
		"max_body_pairs":          s.cfg.MaxBodyPairs,
		"max_contact_constraints": s.cfg.MaxContactConstraints,
		"object_layers":           int(layers.NumObjectLayers),
		"broad_phase_layers":      s.filter.NumBroadPhaseLayers(),
	}).Info("physics initialized")
	return nil
}

// Shutdown stops the simulation, then closes the solver and job pool and
// releases the process guard. Calling it again does nothing.
func (s *System) Shutdown() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.initialized {
		return nil
	}
	s.stop()

	err := s.solver.Close()
	s.pool.Close()
	s.solver = nil
	s.pool = nil
	s.scratch = nil
	s.bodies.Store(nil)
	s.initialized = false
	contextActive.Store(false)

	s.log.WithField("steps", s.steps.Load()).Info("physics shut down")
	return err
}

func (s *System) Initialized() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.initialized
}

// Bodies returns the body facade, or nil before Initialize. It does not
// block, so character callbacks may call it while a stop is joining.
func (s *System) Bodies() *Bodies {
	return s.bodies.Load()
}

func (s *System) Characters() *character.Table { return s.chars }

// CreateCharacter adds a character to the table stepped by the loop.
func (s *System) CreateCharacter(settings character.Settings, fn character.UpdateFunc) (character.Handle, error) {
	return s.chars.Create(settings, fn)
}

func (s *System) MutateCharacter(h character.Handle, fn func(*character.Controller)) error {
	return s.chars.Mutate(h, fn)
}

func (s *System) CharacterPosition(h character.Handle) (mgl64.Vec3, error) {
	return s.chars.Position(h)
}

func (s *System) StartSimulation() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.initialized {
		return dynamo.ErrNotInitialized
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return dynamo.ErrAlreadyRunning
	}
	s.running = true
	s.paused = false
	s.stopping = false
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.timer.Reset()
	go s.run(s.solver, s.scratch, done)

	s.log.WithField("time_scale", s.TimeScale()).Info("simulation started")
	return nil
}

// StopSimulation asks the loop to exit and waits for it. A paused loop is
// woken first. Safe to call when not running, but not from a character
// callback or step observer, which run on the goroutine being joined.
func (s *System) StopSimulation() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.stop()
}

// stop must be called with s.ctl held.
func (s *System) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	s.paused = false
	s.cond.Broadcast()
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.WithField("passes", s.passes.Load()).Info("simulation stopped")
}

// PauseSimulation parks the loop after its current pass. It has no effect
// unless the simulation is running.
func (s *System) PauseSimulation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stopping {
		return
	}
	s.paused = true
}

// UnpauseSimulation wakes a parked loop. The loop resets its timer on wake,
// so time spent paused produces no sub-steps.
func (s *System) UnpauseSimulation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	s.cond.Broadcast()
}

func (s *System) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *System) State() SimulationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *System) stateLocked() SimulationState {
	switch {
	case !s.running:
		return Stopped
	case s.paused:
		return Paused
	default:
		return Running
	}
}

// ClampTimeScale maps x into [MinTimeScale, MaxTimeScale]. NaN maps to 1.
func ClampTimeScale(x float64) float64 {
	if math.IsNaN(x) {
		return MaxTimeScale
	}
	return math.Max(MinTimeScale, math.Min(MaxTimeScale, x))
}

func (s *System) SetTimeScale(x float64) {
	s.timeScale.Store(math.Float64bits(ClampTimeScale(x)))
}

func (s *System) TimeScale() float64 {
	return math.Float64frombits(s.timeScale.Load())
}

func (s *System) Stats() Stats {
	s.mu.Lock()
	state, parked := s.stateLocked(), s.parked
	s.mu.Unlock()

	return Stats{
		Passes:        s.passes.Load(),
		Steps:         s.steps.Load(),
		StepErrors:    s.stepErrors.Load(),
		SimulatedTime: math.Float64frombits(s.simTime.Load()),
		Parked:        parked,
		State:         state,
	}
}

func (s *System) run(solver dynamo.Solver, scratch *jobs.TempAllocator[float64], done chan struct{}) {
	defer s.exit(done)
	defer s.recoverLoop()

	for {
		elapsed := s.timer.Tick() * s.TimeScale()
		n := s.pass(solver, scratch, elapsed)
		s.passes.Add(1)

		if n > 0 {
			s.drawDebug(solver)
		}

		if s.waitWhilePaused() {
			s.timer.Reset()
		}
		if s.stopRequested() {
			return
		}
		if n == 0 && s.cfg.IdleSleep > 0 {
			time.Sleep(s.cfg.IdleSleep)
		}
	}
}

// pass steps the solver until elapsed is used up and returns the number of
// sub-steps taken.
func (s *System) pass(solver dynamo.Solver, scratch *jobs.TempAllocator[float64], elapsed float64) int {
	taken := scratch.Get()
	defer scratch.Put(taken)

	simTime := math.Float64frombits(s.simTime.Load())
	for elapsed > 0 {
		step := min(elapsed, FixedStep)
		if err := solver.Step(step); err != nil {
			s.stepFailed(step, err)
		}
		s.chars.Update(step, solver)

		*taken = append(*taken, step)
		simTime += step
		elapsed -= FixedStep
	}

	n := len(*taken)
	if n > 0 {
		s.steps.Add(uint64(n))
		s.simTime.Store(math.Float64bits(simTime))
		if s.observer != nil {
			s.observer(*taken)
		}
	}
	return n
}

func (s *System) stepFailed(step float64, err error) {
	if s.stepErrors.Add(1) == 1 {
		sentry.CaptureException(err)
	}
	s.log.WithError(err).WithField("step", step).Error("solver step failed")
}

func (s *System) drawDebug(solver dynamo.Solver) {
	if s.debug == nil {
		return
	}
	fr, framed := s.debug.(dynamo.FrameRenderer)
	if framed {
		fr.BeginFrame()
	}
	solver.DrawBodies(s.debug)
	if framed {
		fr.EndFrame()
	}
}

// waitWhilePaused blocks while paused and reports whether it blocked.
func (s *System) waitWhilePaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	waited := false
	for s.paused && !s.stopping {
		waited = true
		s.parked = true
		s.cond.Wait()
	}
	s.parked = false
	return waited
}

func (s *System) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *System) recoverLoop() {
	if err := recover(); err != nil {
		s.log.WithField("panic", err).Error("simulation goroutine crashed")
		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("component", "physics")
		})
		hub.Recover(fmt.Errorf("simulation goroutine crashed: %v", err))
		hub.Flush(time.Second * 5)
	}
}

func (s *System) exit(done chan struct{}) {
	s.mu.Lock()
	s.running = false
	s.paused = false
	s.stopping = false
	s.parked = false
	s.mu.Unlock()
	close(done)
}

// Package session runs a scene headless: a render loop at a fixed frame
// rate that syncs the scene, applies scripted actions and records what it
// sees while the simulation goroutine steps the world.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/simhost/internal/config"
	"github.com/san-kum/simhost/internal/physics"
	"github.com/san-kum/simhost/internal/scene"
	"github.com/san-kum/simhost/internal/storage"
	"github.com/sirupsen/logrus"
)

var ErrNotSetup = errors.New("session: not set up")

type Option func(*Session)

func WithPhysicsOptions(opts ...physics.Option) Option {
	return func(s *Session) { s.physOpts = append(s.physOpts, opts...) }
}

func WithMetrics(m ...Metric) Option {
	return func(s *Session) { s.metrics = m }
}

func WithScript(script *Script) Option {
	return func(s *Session) { s.script = script }
}

// WithFrameObserver is called on the render goroutine after each frame is
// recorded.
func WithFrameObserver(fn func(Frame)) Option {
	return func(s *Session) { s.observers = append(s.observers, fn) }
}

type Session struct {
	cfg       *config.Config
	log       *logrus.Logger
	physOpts  []physics.Option
	metrics   []Metric
	script    *Script
	observers []func(Frame)

	sys   *physics.System
	scene *scene.Scene
}

// Result is what a finished Run recorded.
type Result struct {
	Trace        *storage.Trace
	Metrics      map[string]float64
	Stats        physics.Stats
	Frames       int
	ScriptErrors int
	SyncErrors   int
}

func New(cfg *config.Config, log *logrus.Logger, opts ...Option) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Session{cfg: cfg, log: log, metrics: DefaultMetrics()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup initializes the simulation and builds the configured scene.
func (s *Session) Setup() error {
	if s.sys != nil {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.script == nil && s.cfg.Session.Script != "" {
		script, err := LoadScript(s.cfg.Session.Script)
		if err != nil {
			return fmt.Errorf("session: load script: %w", err)
		}
		s.script = script
	}

	sys := physics.New(s.cfg.Physics, s.log, s.physOpts...)
	if err := sys.Initialize(); err != nil {
		return err
	}
	sc := scene.New(sys.Bodies(), sys.Characters(), s.log)
	if err := sc.Build(s.cfg.Scene); err != nil {
		_ = sys.Shutdown()
		return fmt.Errorf("session: build scene %q: %w", s.cfg.Scene.Name, err)
	}
	s.sys, s.scene = sys, sc
	return nil
}

func (s *Session) System() *physics.System { return s.sys }

func (s *Session) Duration() float64 { return s.cfg.Session.Duration }

// Scene must only be used from the goroutine calling Run.
func (s *Session) Scene() *scene.Scene { return s.scene }

// Run drives the render loop for the configured duration, or until ctx is
// done. The simulation is stopped, not shut down, when Run returns.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.sys == nil {
		return nil, ErrNotSetup
	}
	fps := s.cfg.Session.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	frames := int(math.Round(s.cfg.Session.Duration * float64(fps)))

	for _, m := range s.metrics {
		m.Reset()
	}
	actions := s.script.sorted()
	next := 0

	if err := s.sys.StartSimulation(); err != nil {
		return nil, err
	}
	defer s.sys.StopSimulation()

	log := s.log.WithFields(logrus.Fields{
		"component": "session",
		"scene":     s.cfg.Scene.Name,
	})
	log.WithFields(logrus.Fields{"fps": fps, "frames": frames}).Info("session started")

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	res := &Result{Trace: &storage.Trace{}, Metrics: make(map[string]float64)}
	start := time.Now()
	var runErr error

loop:
	for i := 0; i <= frames; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
				break loop
			case <-ticker.C:
			}
		}
		t := float64(i) / float64(fps)

		for next < len(actions) && actions[next].At <= t {
			a := actions[next]
			if err := s.apply(a); err != nil {
				res.ScriptErrors++
				log.WithError(err).WithField("action", a.Do).Warn("script action failed")
			}
			next++
		}

		if _, err := s.scene.Sync(); err != nil {
			res.SyncErrors++
			log.WithError(err).Warn("scene sync failed")
		}

		f := s.capture(i, t, time.Since(start))
		s.record(res, f)
		for _, obs := range s.observers {
			obs(f)
		}
	}

	s.sys.StopSimulation()
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	res.Stats = s.sys.Stats()
	log.WithFields(logrus.Fields{
		"frames": res.Frames,
		"steps":  res.Stats.Steps,
	}).Info("session finished")
	return res, runErr
}

func (s *Session) record(res *Result, f Frame) {
	for _, m := range s.metrics {
		m.Observe(f)
	}

	if res.Frames == 0 {
		for _, sample := range f.Samples {
			if sample.Name == scene.GroundName {
				continue
			}
			res.Trace.Columns = append(res.Trace.Columns, sample.Name+"_x", sample.Name+"_y", sample.Name+"_z")
		}
	}
	row := make([]float64, 0, len(res.Trace.Columns))
	for _, sample := range f.Samples {
		if sample.Name == scene.GroundName {
			continue
		}
		row = append(row, sample.Position[0], sample.Position[1], sample.Position[2])
	}
	res.Trace.Append(f.Time, row)
	res.Frames++
}

// Close shuts the simulation down. The session cannot be run again.
func (s *Session) Close() error {
	if s.sys == nil {
		return nil
	}
	err := s.sys.Shutdown()
	s.sys, s.scene = nil, nil
	return err
}

// RunMetadata describes res for the run store.
func (s *Session) RunMetadata(res *Result) storage.RunMetadata {
	fps := s.cfg.Session.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	return storage.RunMetadata{
		Scene:     s.cfg.Scene.Name,
		FixedStep: physics.FixedStep,
		TimeScale: s.sys.TimeScale(),
		Duration:  s.cfg.Session.Duration,
		FPS:       fps,
		Metrics:   res.Metrics,
		Stats: storage.RunStats{
			Passes:        res.Stats.Passes,
			Steps:         res.Stats.Steps,
			StepErrors:    res.Stats.StepErrors,
			SimulatedTime: res.Stats.SimulatedTime,
		},
	}
}

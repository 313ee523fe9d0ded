// Package rigid is a small reference implementation of [dynamo.Solver].
//
// It stands in for a full rigid-body engine: bodies integrate under gravity,
// spheres and boxes (treated as their bounding boxes) push each other apart,
// and everything rests on height fields and static geometry. It is enough to
// drive the simulation host end to end, not a general collision library.
//
// Step holds the solver's write lock for its whole duration and every query
// takes the read lock, so queries from the render goroutine observe either
// the state before a step or after it.
package rigid

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/integrators"
	"github.com/san-kum/simhost/internal/jobs"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
)

const (
	DefaultMaxBodies             = 65536
	DefaultMaxBodyPairs          = 65536
	DefaultMaxContactConstraints = 10240

	// bounces slower than this are treated as inelastic so resting bodies settle
	restitutionThreshold = 1.0
	integrateChunk       = 64
)

type Settings struct {
	MaxBodies             int
	MaxBodyPairs          int
	MaxContactConstraints int
	Gravity               mgl64.Vec3
	Integrator            integrators.Integrator
	SleepVelocity         float64
	SleepTime             float64
}

func DefaultSettings() Settings {
	return Settings{
		MaxBodies:             DefaultMaxBodies,
		MaxBodyPairs:          DefaultMaxBodyPairs,
		MaxContactConstraints: DefaultMaxContactConstraints,
		Gravity:               mgl64.Vec3{0, -9.81, 0},
		Integrator:            integrators.NewSemiImplicitEuler(),
		SleepVelocity:         0.05,
		SleepTime:             0.5,
	}
}

type body struct {
	id          dynamo.BodyID
	settings    dynamo.BodySettings
	pos         mgl64.Vec3
	rot         mgl64.Quat
	vel         mgl64.Vec3
	angVel      mgl64.Vec3
	invMass     float64
	active      bool
	idle        float64
	boundsCache dynamo.AABB
}

func (b *body) transform() dynamo.Transform {
	return dynamo.Transform{Position: b.pos, Rotation: b.rot}
}

func (b *body) refreshBounds() {
	b.boundsCache = b.settings.Shape.Bounds(b.transform())
}

func (b *body) moving() bool { return b.settings.MotionType != dynamo.Static }

type Solver struct {
	mu       sync.RWMutex
	settings Settings
	filter   dynamo.LayerFilter
	pool     *jobs.Pool
	pairs    *jobs.TempAllocator[pair]
	contacts *jobs.TempAllocator[contact]
	log      *logrus.Entry

	bodies  *orderedmap.OrderedMap[dynamo.BodyID, *body]
	moving  []*body
	statics []*body
	nextID  dynamo.BodyID
	closed  bool
}

// New builds a solver. The pool is borrowed: closing the solver does not
// close it.
func New(settings Settings, filter dynamo.LayerFilter, pool *jobs.Pool, log *logrus.Logger) *Solver {
	if settings.Integrator == nil {
		settings.Integrator = integrators.NewSemiImplicitEuler()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Solver{
		settings: settings,
		filter:   filter,
		pool:     pool,
		pairs:    jobs.NewTempAllocator[pair](min(settings.MaxBodyPairs, 1024)),
		contacts: jobs.NewTempAllocator[contact](min(settings.MaxContactConstraints, 1024)),
		log:      log.WithField("component", "rigid"),
		bodies:   orderedmap.NewOrderedMap[dynamo.BodyID, *body](),
	}
}

func (s *Solver) CreateBody(settings dynamo.BodySettings) (dynamo.BodyID, error) {
	if err := settings.Validate(); err != nil {
		return dynamo.InvalidBodyID, err
	}
	if settings.Rotation == (mgl64.Quat{}) {
		settings.Rotation = mgl64.QuatIdent()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dynamo.InvalidBodyID, dynamo.ErrSolverClosed
	}
	if s.bodies.Len() >= s.settings.MaxBodies {
		return dynamo.InvalidBodyID, fmt.Errorf("%w (%d)", dynamo.ErrBodyCapacity, s.settings.MaxBodies)
	}

	s.nextID++
	b := &body{
		id:       s.nextID,
		settings: settings,
		pos:      settings.Position,
		rot:      settings.Rotation.Normalize(),
		vel:      settings.LinearVelocity,
		angVel:   settings.AngularVelocity,
		active:   settings.MotionType != dynamo.Static,
	}
	if settings.MotionType == dynamo.Dynamic {
		b.invMass = 1 / settings.Mass
	}
	b.refreshBounds()

	s.bodies.Set(b.id, b)
	if b.moving() {
		s.moving = append(s.moving, b)
	} else {
		s.statics = append(s.statics, b)
	}

	s.log.WithFields(logrus.Fields{
		"body":   b.id,
		"shape":  settings.Shape.Kind(),
		"motion": settings.MotionType,
		"layer":  settings.Layer,
	}).Debug("body created")

	return b.id, nil
}

// get must be called with s.mu held.
func (s *Solver) get(id dynamo.BodyID, op string) (*body, error) {
	if s.closed {
		return nil, &dynamo.BodyError{ID: id, Op: op, Wrapped: dynamo.ErrSolverClosed}
	}
	b, ok := s.bodies.Get(id)
	if !ok {
		return nil, &dynamo.BodyError{ID: id, Op: op, Wrapped: dynamo.ErrBodyNotFound}
	}
	return b, nil
}

func (s *Solver) Position(id dynamo.BodyID) (mgl64.Vec3, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.get(id, "position")
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return b.pos, nil
}

func (s *Solver) Rotation(id dynamo.BodyID) (mgl64.Quat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.get(id, "rotation")
	if err != nil {
		return mgl64.QuatIdent(), err
	}
	return b.rot, nil
}

func (s *Solver) LinearVelocity(id dynamo.BodyID) (mgl64.Vec3, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.get(id, "velocity")
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return b.vel, nil
}

func (s *Solver) IsActive(id dynamo.BodyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.get(id, "is active")
	if err != nil {
		return false, err
	}
	return b.active, nil
}

func (s *Solver) MotionType(id dynamo.BodyID) (dynamo.MotionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.get(id, "motion type")
	if err != nil {
		return dynamo.Static, err
	}
	return b.settings.MotionType, nil
}

func (s *Solver) Mass(id dynamo.BodyID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.get(id, "mass")
	if err != nil {
		return 0, err
	}
	if b.invMass == 0 {
		return math.Inf(1), nil
	}
	return b.settings.Mass, nil
}

func (s *Solver) SetPosition(id dynamo.BodyID, pos mgl64.Vec3, activate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id, "set position")
	if err != nil {
		return err
	}
	b.pos = pos
	b.refreshBounds()
	if activate {
		s.wake(b)
	}
	return nil
}

func (s *Solver) SetRotation(id dynamo.BodyID, rot mgl64.Quat, activate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id, "set rotation")
	if err != nil {
		return err
	}
	b.rot = rot.Normalize()
	b.refreshBounds()
	if activate {
		s.wake(b)
	}
	return nil
}

// SetMotionType switches a moving body between kinematic and dynamic and
// wakes it. A body made kinematic stops moving until given a velocity.
// Static bodies cannot change.
func (s *Solver) SetMotionType(id dynamo.BodyID, mt dynamo.MotionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id, "set motion type")
	if err != nil {
		return err
	}
	if b.settings.MotionType == mt {
		return nil
	}
	if b.settings.MotionType == dynamo.Static || mt == dynamo.Static {
		return &dynamo.BodyError{ID: id, Op: "set motion type", Wrapped: fmt.Errorf("%w: static bodies cannot change motion type", dynamo.ErrInvalidSettings)}
	}
	if mt == dynamo.Dynamic && b.settings.Mass <= 0 {
		return &dynamo.BodyError{ID: id, Op: "set motion type", Wrapped: fmt.Errorf("%w: dynamic body needs positive mass", dynamo.ErrInvalidSettings)}
	}

	b.settings.MotionType = mt
	b.invMass = 0
	if mt == dynamo.Dynamic {
		b.invMass = 1 / b.settings.Mass
	} else {
		b.vel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
	}
	s.wake(b)
	return nil
}

func (s *Solver) wake(b *body) {
	if b.moving() {
		b.active = true
		b.idle = 0
	}
}

func (s *Solver) Gravity() mgl64.Vec3 { return s.settings.Gravity }

func (s *Solver) BodyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bodies.Len()
}

// GroundHeight returns the highest static surface under (x, z).
func (s *Solver) GroundHeight(x, z float64) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, found := math.Inf(-1), false
	for _, b := range s.statics {
		if h, ok := surfaceHeight(b, x, z); ok && h > best {
			best, found = h, true
		}
	}
	return best, found
}

func surfaceHeight(b *body, x, z float64) (float64, bool) {
	switch shape := b.settings.Shape.(type) {
	case *dynamo.HeightField:
		h, ok := shape.HeightAt(x-b.pos[0], z-b.pos[2])
		return h + b.pos[1], ok
	case *dynamo.Sphere:
		dx, dz := x-b.pos[0], z-b.pos[2]
		d2 := dx*dx + dz*dz
		r2 := shape.Radius * shape.Radius
		if d2 > r2 {
			return 0, false
		}
		return b.pos[1] + math.Sqrt(r2-d2), true
	default:
		bb := b.boundsCache
		if x < bb.Min[0] || x > bb.Max[0] || z < bb.Min[2] || z > bb.Max[2] {
			return 0, false
		}
		return bb.Max[1], true
	}
}

// Step advances every active body by dt.
func (s *Solver) Step(dt float64) error {
	if !(dt > 0) {
		return fmt.Errorf("step size must be positive, got %f", dt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dynamo.ErrSolverClosed
	}

	s.integrate(dt)

	pairs := s.pairs.Get()
	defer s.pairs.Put(pairs)
	s.broadPhase(pairs)

	contacts := s.contacts.Get()
	defer s.contacts.Put(contacts)
	s.narrowPhase(*pairs, contacts)

	s.resolve(*contacts)
	s.trySleep(dt)
	return nil
}

func (s *Solver) integrate(dt float64) {
	integ := s.settings.Integrator
	gravity := s.settings.Gravity
	bodies := s.moving

	work := func(start, end int) {
		for _, b := range bodies[start:end] {
			if !b.active {
				continue
			}
			if b.settings.MotionType == dynamo.Dynamic {
				b.pos, b.vel = integ.Integrate(b.pos, b.vel, gravity, dt)
			} else {
				b.pos = b.pos.Add(b.vel.Mul(dt))
			}
			if b.angVel.Len() > 0 {
				spin := mgl64.Quat{W: 0, V: b.angVel}.Mul(b.rot).Scale(0.5 * dt)
				b.rot = b.rot.Add(spin).Normalize()
			}
			b.refreshBounds()
		}
	}

	if s.pool != nil {
		s.pool.ParallelFor(len(bodies), integrateChunk, work)
	} else {
		work(0, len(bodies))
	}
}

func (s *Solver) trySleep(dt float64) {
	for _, b := range s.moving {
		if !b.active || b.settings.MotionType != dynamo.Dynamic {
			continue
		}
		if b.vel.Len() < s.settings.SleepVelocity && b.angVel.Len() < s.settings.SleepVelocity {
			b.idle += dt
			if b.idle >= s.settings.SleepTime {
				b.active = false
				b.vel = mgl64.Vec3{}
				b.angVel = mgl64.Vec3{}
			}
		} else {
			b.idle = 0
		}
	}
}

// Digest hashes every body's state in creation order.
func (s *Solver) Digest() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := make([]byte, 0, s.bodies.Len()*11*8)
	for el := s.bodies.Front(); el != nil; el = el.Next() {
		b := el.Value
		for _, v := range []float64{
			b.pos[0], b.pos[1], b.pos[2],
			b.rot.W, b.rot.V[0], b.rot.V[1], b.rot.V[2],
			b.vel[0], b.vel[1], b.vel[2],
		} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return xxh3.Hash(buf)
}

// Close releases the body storage. Further calls fail with ErrSolverClosed.
func (s *Solver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.WithField("bodies", s.bodies.Len()).Debug("solver closed")
	s.bodies = orderedmap.NewOrderedMap[dynamo.BodyID, *body]()
	s.moving = nil
	s.statics = nil
	return nil
}

package physics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/layers"
)

var (
	// ErrNotManual indicates a write to a body the solver owns.
	ErrNotManual = errors.New("physics: body is not manually positioned")

	// ErrStaticAuthority indicates an attempt to hand a static body to the solver.
	ErrStaticAuthority = errors.New("physics: static bodies are always manually positioned")
)

type BodyHandle dynamo.BodyID

// Authority names the single writer of a body's transform.
type Authority int

const (
	// PhysicsOwned bodies are written only by the solver; cached transforms
	// mirror it once per frame.
	PhysicsOwned Authority = iota
	// ManuallyPositioned bodies are written only through [ManualBody];
	// the cached transform is authoritative.
	ManuallyPositioned
)

func (a Authority) String() string {
	switch a {
	case PhysicsOwned:
		return "physics"
	case ManuallyPositioned:
		return "manual"
	}
	return fmt.Sprintf("Authority(%d)", int(a))
}

// SettingsFunc adjusts body settings before creation, e.g. to make a body
// static on the non-moving layer.
type SettingsFunc func(*dynamo.BodySettings)

func AsStatic(s *dynamo.BodySettings) {
	s.MotionType = dynamo.Static
	s.Layer = layers.NonMoving
}

func WithMass(m float64) SettingsFunc {
	return func(s *dynamo.BodySettings) { s.Mass = m }
}

func WithVelocity(v mgl64.Vec3) SettingsFunc {
	return func(s *dynamo.BodySettings) { s.LinearVelocity = v }
}

// Bodies is the facade the render goroutine uses to create and query
// bodies. Queries delegate straight to the solver.
type Bodies struct {
	solver dynamo.Solver

	mu      sync.RWMutex
	entries map[BodyHandle]*bodyEntry
}

type bodyEntry struct {
	authority Authority
	// motion type to restore when a driven body is released
	restore dynamo.MotionType
}

func newBodies(solver dynamo.Solver) *Bodies {
	return &Bodies{
		solver:  solver,
		entries: make(map[BodyHandle]*bodyEntry),
	}
}

func (b *Bodies) CreateSphere(radius float64, origin mgl64.Vec3, fns ...SettingsFunc) (BodyHandle, error) {
	return b.create(&dynamo.Sphere{Radius: radius}, origin, dynamo.Dynamic, layers.Moving, fns)
}

func (b *Bodies) CreateBox(halfExtent mgl64.Vec3, origin mgl64.Vec3, fns ...SettingsFunc) (BodyHandle, error) {
	return b.create(&dynamo.Box{HalfExtent: halfExtent}, origin, dynamo.Dynamic, layers.Moving, fns)
}

// CreateHeightField creates a static ground patch whose sample (0, 0) sits
// at origin.
func (b *Bodies) CreateHeightField(samples []float64, size int, scale mgl64.Vec3, origin mgl64.Vec3, fns ...SettingsFunc) (BodyHandle, error) {
	hf := &dynamo.HeightField{Samples: samples, Size: size, Scale: scale}
	return b.create(hf, origin, dynamo.Static, layers.NonMoving, fns)
}

func (b *Bodies) create(shape dynamo.Shape, origin mgl64.Vec3, motion dynamo.MotionType, layer layers.ObjectLayer, fns []SettingsFunc) (BodyHandle, error) {
	if err := shape.Validate(); err != nil {
		return BodyHandle(dynamo.InvalidBodyID), err
	}
	settings := dynamo.BodySettings{
		Shape:      shape,
		Position:   origin,
		Rotation:   mgl64.QuatIdent(),
		MotionType: motion,
		Layer:      layer,
		Mass:       1,
	}
	for _, fn := range fns {
		fn(&settings)
	}

	id, err := b.solver.CreateBody(settings)
	if err != nil {
		return BodyHandle(dynamo.InvalidBodyID), err
	}

	h := BodyHandle(id)
	entry := &bodyEntry{authority: PhysicsOwned, restore: settings.MotionType}
	if settings.MotionType == dynamo.Static {
		entry.authority = ManuallyPositioned
	}
	b.mu.Lock()
	b.entries[h] = entry
	b.mu.Unlock()
	return h, nil
}

func (b *Bodies) Position(h BodyHandle) (mgl64.Vec3, error) {
	return b.solver.Position(dynamo.BodyID(h))
}

func (b *Bodies) Rotation(h BodyHandle) (mgl64.Quat, error) {
	return b.solver.Rotation(dynamo.BodyID(h))
}

func (b *Bodies) Transform(h BodyHandle) (dynamo.Transform, error) {
	pos, err := b.solver.Position(dynamo.BodyID(h))
	if err != nil {
		return dynamo.IdentityTransform(), err
	}
	rot, err := b.solver.Rotation(dynamo.BodyID(h))
	if err != nil {
		return dynamo.IdentityTransform(), err
	}
	return dynamo.Transform{Position: pos, Rotation: rot}, nil
}

func (b *Bodies) LinearVelocity(h BodyHandle) (mgl64.Vec3, error) {
	return b.solver.LinearVelocity(dynamo.BodyID(h))
}

func (b *Bodies) IsActive(h BodyHandle) (bool, error) {
	return b.solver.IsActive(dynamo.BodyID(h))
}

func (b *Bodies) MotionType(h BodyHandle) (dynamo.MotionType, error) {
	return b.solver.MotionType(dynamo.BodyID(h))
}

func (b *Bodies) Mass(h BodyHandle) (float64, error) {
	return b.solver.Mass(dynamo.BodyID(h))
}

// Authority reports who writes the body. Unknown handles report
// PhysicsOwned, which has no write path.
func (b *Bodies) Authority(h BodyHandle) Authority {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[h]; ok {
		return e.authority
	}
	return PhysicsOwned
}

func (b *Bodies) entry(h BodyHandle, op string) (*bodyEntry, error) {
	e, ok := b.entries[h]
	if !ok {
		return nil, &dynamo.BodyError{ID: dynamo.BodyID(h), Op: op, Wrapped: dynamo.ErrBodyNotFound}
	}
	return e, nil
}

// Drive takes a body away from the solver so it can be positioned by hand.
// The solver keeps it as a motionless kinematic body until Release. The
// body's transform, read after it stops moving, is written into cache when
// cache is non-nil, since Sync no longer refreshes it.
func (b *Bodies) Drive(h BodyHandle, cache *dynamo.Transform) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(h, "drive")
	if err != nil {
		return err
	}
	if e.authority != ManuallyPositioned {
		mt, err := b.solver.MotionType(dynamo.BodyID(h))
		if err != nil {
			return err
		}
		if err := b.solver.SetMotionType(dynamo.BodyID(h), dynamo.Kinematic); err != nil {
			return err
		}
		e.restore = mt
		e.authority = ManuallyPositioned
	}
	if cache == nil {
		return nil
	}

	t, err := b.Transform(h)
	if err != nil {
		return err
	}
	*cache = t
	return nil
}

// Release hands a driven body back to the solver with its original motion
// type and wakes it.
func (b *Bodies) Release(h BodyHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(h, "release")
	if err != nil {
		return err
	}
	if e.restore == dynamo.Static {
		return ErrStaticAuthority
	}
	if e.authority == PhysicsOwned {
		return nil
	}

	pos, err := b.solver.Position(dynamo.BodyID(h))
	if err != nil {
		return err
	}
	if err := b.solver.SetMotionType(dynamo.BodyID(h), e.restore); err != nil {
		return err
	}
	if err := b.solver.SetPosition(dynamo.BodyID(h), pos, true); err != nil {
		_ = b.solver.SetMotionType(dynamo.BodyID(h), dynamo.Kinematic)
		return err
	}
	e.authority = PhysicsOwned
	return nil
}

// Manual returns the write path for a manually positioned body. The second
// result is false for bodies the solver owns.
func (b *Bodies) Manual(h BodyHandle) (ManualBody, bool) {
	if b.Authority(h) != ManuallyPositioned {
		return ManualBody{}, false
	}
	return ManualBody{bodies: b, handle: h}, true
}

func (b *Bodies) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// ManualBody writes a body's transform into the solver and the caller's
// cached transform in one call, so the two never diverge.
type ManualBody struct {
	bodies *Bodies
	handle BodyHandle
}

func (m ManualBody) Handle() BodyHandle { return m.handle }

func (m ManualBody) check() error {
	if m.bodies == nil || m.bodies.Authority(m.handle) != ManuallyPositioned {
		return ErrNotManual
	}
	return nil
}

func (m ManualBody) SetPosition(cache *dynamo.Transform, pos mgl64.Vec3, activate bool) error {
	if err := m.check(); err != nil {
		return err
	}
	if err := m.bodies.solver.SetPosition(dynamo.BodyID(m.handle), pos, activate); err != nil {
		return err
	}
	if cache != nil {
		cache.Position = pos
	}
	return nil
}

func (m ManualBody) SetRotation(cache *dynamo.Transform, rot mgl64.Quat, activate bool) error {
	if err := m.check(); err != nil {
		return err
	}
	if err := m.bodies.solver.SetRotation(dynamo.BodyID(m.handle), rot, activate); err != nil {
		return err
	}
	if cache != nil {
		cache.Rotation = rot.Normalize()
	}
	return nil
}

func (m ManualBody) SetTransform(cache *dynamo.Transform, t dynamo.Transform, activate bool) error {
	if err := m.SetPosition(cache, t.Position, false); err != nil {
		return err
	}
	return m.SetRotation(cache, t.Rotation, activate)
}

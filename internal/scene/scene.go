// Package scene mirrors simulated bodies and characters into ECS entities
// for the render goroutine.
//
// Every entity carries a cached [Transform]. Once per frame [Scene.Sync]
// refreshes the caches the solver owns; caches of manually positioned
// bodies are authoritative and change only through [Scene.Place] and the
// handoff in [Scene.Drive].
package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
	"github.com/san-kum/simhost/internal/character"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/physics"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownEntity = errors.New("scene: unknown entity")
	ErrNotBody       = errors.New("scene: entity has no body")
)

// Transform is the cached transform the renderer draws from.
type Transform dynamo.Transform

type Body struct {
	Handle physics.BodyHandle
}

type Character struct {
	Handle character.Handle
}

type Name struct {
	Value string
}

type Scene struct {
	world  *ecs.World
	bodies *physics.Bodies
	chars  *character.Table
	log    *logrus.Entry

	bodyMapper *ecs.Map3[Transform, Body, Name]
	charMapper *ecs.Map3[Transform, Character, Name]
	bodyFilter *ecs.Filter2[Transform, Body]
	charFilter *ecs.Filter2[Transform, Character]
	transforms *ecs.Map[Transform]
	bodyMap    *ecs.Map[Body]
	charMap    *ecs.Map[Character]
	nameMap    *ecs.Map[Name]

	byName map[string]ecs.Entity
}

func New(bodies *physics.Bodies, chars *character.Table, log *logrus.Logger) *Scene {
	if log == nil {
		log = logrus.StandardLogger()
	}
	world := ecs.NewWorld()
	return &Scene{
		world:      world,
		bodies:     bodies,
		chars:      chars,
		log:        log.WithField("component", "scene"),
		bodyMapper: ecs.NewMap3[Transform, Body, Name](world),
		charMapper: ecs.NewMap3[Transform, Character, Name](world),
		bodyFilter: ecs.NewFilter2[Transform, Body](world),
		charFilter: ecs.NewFilter2[Transform, Character](world),
		transforms: ecs.NewMap[Transform](world),
		bodyMap:    ecs.NewMap[Body](world),
		charMap:    ecs.NewMap[Character](world),
		nameMap:    ecs.NewMap[Name](world),
		byName:     make(map[string]ecs.Entity),
	}
}

func (s *Scene) SpawnBody(name string, h physics.BodyHandle, t dynamo.Transform) ecs.Entity {
	tr := Transform(t)
	e := s.bodyMapper.NewEntity(&tr, &Body{Handle: h}, &Name{Value: name})
	s.byName[name] = e
	return e
}

func (s *Scene) SpawnCharacter(name string, h character.Handle, t dynamo.Transform) ecs.Entity {
	tr := Transform(t)
	e := s.charMapper.NewEntity(&tr, &Character{Handle: h}, &Name{Value: name})
	s.byName[name] = e
	return e
}

// Lookup finds an entity by the name it was spawned with.
func (s *Scene) Lookup(name string) (ecs.Entity, bool) {
	e, ok := s.byName[name]
	return e, ok && s.world.Alive(e)
}

func (s *Scene) CharacterHandle(name string) (character.Handle, bool) {
	e, ok := s.Lookup(name)
	if !ok || !s.charMap.Has(e) {
		return -1, false
	}
	return s.charMap.Get(e).Handle, true
}

func (s *Scene) BodyHandle(name string) (physics.BodyHandle, bool) {
	e, ok := s.Lookup(name)
	if !ok || !s.bodyMap.Has(e) {
		return 0, false
	}
	return s.bodyMap.Get(e).Handle, true
}

// Transform returns a copy of the entity's cached transform.
func (s *Scene) Transform(e ecs.Entity) (dynamo.Transform, bool) {
	if !s.world.Alive(e) || !s.transforms.Has(e) {
		return dynamo.Transform{}, false
	}
	return dynamo.Transform(*s.transforms.Get(e)), true
}

// SyncStats counts what one Sync did.
type SyncStats struct {
	Updated    int
	Skipped    int
	Characters int
}

// Sync refreshes cached transforms from the simulation. It must run on the
// goroutine that owns the scene, once per rendered frame.
//
// A body's cache is overwritten only when the solver owns it, it is active
// and it is not static. Manually positioned bodies keep their cache.
func (s *Scene) Sync() (SyncStats, error) {
	var stats SyncStats
	var errs []error

	query := s.bodyFilter.Query()
	for query.Next() {
		tr, body := query.Get()
		ok, err := s.syncBody(tr, body.Handle)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			stats.Updated++
		} else {
			stats.Skipped++
		}
	}

	chars := s.charFilter.Query()
	for chars.Next() {
		tr, ch := chars.Get()
		pos, err := s.chars.Position(ch.Handle)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tr.Position = pos
		stats.Characters++
	}

	return stats, errors.Join(errs...)
}

func (s *Scene) syncBody(tr *Transform, h physics.BodyHandle) (bool, error) {
	if s.bodies.Authority(h) != physics.PhysicsOwned {
		return false, nil
	}
	mt, err := s.bodies.MotionType(h)
	if err != nil || mt == dynamo.Static {
		return false, err
	}
	active, err := s.bodies.IsActive(h)
	if err != nil || !active {
		return false, err
	}
	t, err := s.bodies.Transform(h)
	if err != nil {
		return false, err
	}
	*tr = Transform(t)
	return true, nil
}

// Place moves a manually positioned body. The solver and the entity's cached
// transform are written in the same call.
func (s *Scene) Place(e ecs.Entity, pos mgl64.Vec3, rot mgl64.Quat, activate bool) error {
	if !s.world.Alive(e) {
		return ErrUnknownEntity
	}
	if !s.bodyMap.Has(e) {
		return fmt.Errorf("%w: %s", ErrNotBody, s.name(e))
	}
	h := s.bodyMap.Get(e).Handle
	manual, ok := s.bodies.Manual(h)
	if !ok {
		return fmt.Errorf("place %s: %w", s.name(e), physics.ErrNotManual)
	}
	cache := (*dynamo.Transform)(s.transforms.Get(e))
	return manual.SetTransform(cache, dynamo.Transform{Position: pos, Rotation: rot}, activate)
}

// Drive hands a body entity to the caller so it can be placed. The cached
// transform is set to where the solver holds the body.
func (s *Scene) Drive(e ecs.Entity) error {
	if !s.world.Alive(e) || !s.bodyMap.Has(e) {
		return ErrNotBody
	}
	cache := (*dynamo.Transform)(s.transforms.Get(e))
	return s.bodies.Drive(s.bodyMap.Get(e).Handle, cache)
}

// Release hands a driven body entity back to the solver.
func (s *Scene) Release(e ecs.Entity) error {
	if !s.world.Alive(e) || !s.bodyMap.Has(e) {
		return ErrNotBody
	}
	return s.bodies.Release(s.bodyMap.Get(e).Handle)
}

func (s *Scene) name(e ecs.Entity) string {
	if s.nameMap.Has(e) {
		return s.nameMap.Get(e).Value
	}
	return fmt.Sprintf("entity %d", e.ID())
}

type Kind string

const (
	KindBody      Kind = "body"
	KindCharacter Kind = "character"
)

// EntityState is one entity's cached state at snapshot time.
type EntityState struct {
	ID        uint32
	Name      string
	Kind      Kind
	Transform dynamo.Transform
	Manual    bool
}

// Snapshot returns every entity's cached state ordered by entity ID.
func (s *Scene) Snapshot() []EntityState {
	out := make([]EntityState, 0, len(s.byName))

	query := s.bodyFilter.Query()
	for query.Next() {
		tr, body := query.Get()
		e := query.Entity()
		out = append(out, EntityState{
			ID:        e.ID(),
			Name:      s.name(e),
			Kind:      KindBody,
			Transform: dynamo.Transform(*tr),
			Manual:    s.bodies.Authority(body.Handle) == physics.ManuallyPositioned,
		})
	}

	chars := s.charFilter.Query()
	for chars.Next() {
		tr, _ := chars.Get()
		e := chars.Entity()
		out = append(out, EntityState{
			ID:        e.ID(),
			Name:      s.name(e),
			Kind:      KindCharacter,
			Transform: dynamo.Transform(*tr),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

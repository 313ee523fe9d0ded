package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/character"
	"github.com/san-kum/simhost/internal/config"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/layers"
	"github.com/san-kum/simhost/internal/physics"
	"github.com/sirupsen/logrus"
)

// GroundName is the entity name of the ground built from a scene config.
const GroundName = "ground"

// Build spawns the ground, bodies and characters described by cfg. Any
// creation failure aborts the build.
func (s *Scene) Build(cfg config.Scene) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Ground.Size > 0 {
		if err := s.buildGround(cfg.Ground); err != nil {
			return fmt.Errorf("ground: %w", err)
		}
	}
	for i, b := range cfg.Bodies {
		if err := s.buildBody(b); err != nil {
			return fmt.Errorf("body %d (%s): %w", i, b.Name, err)
		}
	}
	for i, c := range cfg.Characters {
		if err := s.buildCharacter(c); err != nil {
			return fmt.Errorf("character %d (%s): %w", i, c.Name, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"scene":      cfg.Name,
		"bodies":     len(cfg.Bodies),
		"characters": len(cfg.Characters),
	}).Info("scene built")
	return nil
}

// GroundSamples builds a size x size grid at height with optional sine hills.
func GroundSamples(g config.Ground) []float64 {
	samples := make([]float64, g.Size*g.Size)
	for j := 0; j < g.Size; j++ {
		for i := 0; i < g.Size; i++ {
			h := g.Height
			if g.Amplitude != 0 {
				x, z := float64(i)*g.Cell, float64(j)*g.Cell
				h += g.Amplitude * math.Sin(x*0.5) * math.Cos(z*0.5)
			}
			samples[j*g.Size+i] = h
		}
	}
	return samples
}

func (s *Scene) buildGround(g config.Ground) error {
	half := float64(g.Size-1) * g.Cell / 2
	origin := mgl64.Vec3{-half, 0, -half}
	h, err := s.bodies.CreateHeightField(GroundSamples(g), g.Size, mgl64.Vec3{g.Cell, 1, g.Cell}, origin)
	if err != nil {
		return err
	}
	s.SpawnBody(GroundName, h, dynamo.Transform{Position: origin, Rotation: mgl64.QuatIdent()})
	return nil
}

func (s *Scene) buildBody(b config.Body) error {
	motion, err := dynamo.ParseMotionType(b.Motion)
	if err != nil {
		return err
	}
	layer := layers.Moving
	if motion == dynamo.Static {
		layer = layers.NonMoving
	}
	if b.Layer != "" {
		if layer, err = layers.ParseObjectLayer(b.Layer); err != nil {
			return err
		}
	}

	apply := func(bs *dynamo.BodySettings) {
		bs.MotionType = motion
		bs.Layer = layer
		if b.Mass > 0 {
			bs.Mass = b.Mass
		}
		bs.Restitution = b.Restitution
		bs.Friction = b.Friction
		bs.LinearVelocity = b.Velocity
	}

	var h physics.BodyHandle
	switch b.Shape {
	case "sphere":
		h, err = s.bodies.CreateSphere(b.Radius, b.Position, apply)
	case "box":
		h, err = s.bodies.CreateBox(b.HalfExtent, b.Position, apply)
	default:
		err = fmt.Errorf("unknown shape %q", b.Shape)
	}
	if err != nil {
		return err
	}

	t := dynamo.Transform{Position: b.Position, Rotation: mgl64.QuatIdent()}
	if b.Manual && motion != dynamo.Static {
		if err := s.bodies.Drive(h, &t); err != nil {
			return err
		}
	}
	s.SpawnBody(b.Name, h, t)
	return nil
}

func (s *Scene) buildCharacter(c config.Character) error {
	settings := character.DefaultSettings()
	settings.Position = c.Position
	if c.Radius > 0 {
		settings.Radius = c.Radius
	}
	if c.HalfHeight > 0 {
		settings.HalfHeight = c.HalfHeight
	}
	if c.Mass > 0 {
		settings.Mass = c.Mass
	}

	var fn character.UpdateFunc
	if c.Simulated {
		fn = character.DefaultUpdate
	}
	h, err := s.chars.Create(settings, fn)
	if err != nil {
		return err
	}
	s.SpawnCharacter(c.Name, h, dynamo.Transform{Position: c.Position, Rotation: mgl64.QuatIdent()})
	return nil
}

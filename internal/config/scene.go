package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Scene describes the bodies and characters a session starts with.
type Scene struct {
	Name       string      `yaml:"name"`
	Ground     Ground      `yaml:"ground"`
	Bodies     []Body      `yaml:"bodies"`
	Characters []Character `yaml:"characters"`
}

// Ground is a square height field centred on the origin. A non-zero
// amplitude adds rolling sine hills.
type Ground struct {
	Size      int     `yaml:"size"`
	Cell      float64 `yaml:"cell"`
	Height    float64 `yaml:"height"`
	Amplitude float64 `yaml:"amplitude"`
}

type Body struct {
	Name        string     `yaml:"name"`
	Shape       string     `yaml:"shape"` // sphere | box
	Radius      float64    `yaml:"radius"`
	HalfExtent  mgl64.Vec3 `yaml:"half_extent"`
	Position    mgl64.Vec3 `yaml:"position"`
	Velocity    mgl64.Vec3 `yaml:"velocity"`
	Motion      string     `yaml:"motion"` // static | kinematic | dynamic
	Layer       string     `yaml:"layer"`
	Mass        float64    `yaml:"mass"`
	Restitution float64    `yaml:"restitution"`
	Friction    float64    `yaml:"friction"`
	Manual      bool       `yaml:"manual"`
}

type Character struct {
	Name       string     `yaml:"name"`
	Position   mgl64.Vec3 `yaml:"position"`
	Radius     float64    `yaml:"radius"`
	HalfHeight float64    `yaml:"half_height"`
	Mass       float64    `yaml:"mass"`
	Simulated  bool       `yaml:"simulated"`
}

func (s Scene) Validate() error {
	if s.Ground.Size == 1 || s.Ground.Size < 0 {
		return fmt.Errorf("config: scene %q: ground size must be 0 or at least 2, got %d", s.Name, s.Ground.Size)
	}
	if s.Ground.Size > 0 && s.Ground.Cell <= 0 {
		return fmt.Errorf("config: scene %q: ground cell must be positive, got %f", s.Name, s.Ground.Cell)
	}
	for i, b := range s.Bodies {
		switch b.Shape {
		case "sphere", "box":
		default:
			return fmt.Errorf("config: scene %q: body %d (%s): unknown shape %q", s.Name, i, b.Name, b.Shape)
		}
	}
	return nil
}

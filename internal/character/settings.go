package character

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/dynamo"
)

// Settings describe a capsule-shaped virtual character.
type Settings struct {
	Radius     float64    `yaml:"radius"`
	HalfHeight float64    `yaml:"half_height"`
	Mass       float64    `yaml:"mass"`
	MaxSlope   float64    `yaml:"max_slope"` // radians
	Up         mgl64.Vec3 `yaml:"up"`
	Position   mgl64.Vec3 `yaml:"position"`
}

func DefaultSettings() Settings {
	return Settings{
		Radius:     0.3,
		HalfHeight: 0.6,
		Mass:       70,
		MaxSlope:   mgl64.DegToRad(45),
		Up:         mgl64.Vec3{0, 1, 0},
	}
}

func (s Settings) Validate() error {
	switch {
	case !(s.Radius > 0):
		return fmt.Errorf("%w: radius must be positive, got %f", dynamo.ErrInvalidSettings, s.Radius)
	case !(s.HalfHeight >= 0):
		return fmt.Errorf("%w: half height must not be negative, got %f", dynamo.ErrInvalidSettings, s.HalfHeight)
	case !(s.Mass > 0):
		return fmt.Errorf("%w: mass must be positive, got %f", dynamo.ErrInvalidSettings, s.Mass)
	case !(s.MaxSlope > 0) || s.MaxSlope > math.Pi/2:
		return fmt.Errorf("%w: max slope must be in (0, pi/2], got %f", dynamo.ErrInvalidSettings, s.MaxSlope)
	case s.Up.Len() < 1e-9:
		return fmt.Errorf("%w: up vector is zero", dynamo.ErrInvalidSettings)
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(s.Position[i]) || math.IsInf(s.Position[i], 0) {
			return fmt.Errorf("%w: position is not finite", dynamo.ErrInvalidSettings)
		}
	}
	return nil
}

// footOffset is the distance from the capsule centre to its lowest point.
func (s Settings) footOffset() float64 {
	return s.HalfHeight + s.Radius
}

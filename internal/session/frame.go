package session

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/character"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/physics"
	"github.com/san-kum/simhost/internal/scene"
)

// Sample is one entity as the render side saw it during a frame.
type Sample struct {
	Name     string
	Kind     scene.Kind
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Mass     float64 // zero for static bodies
	Manual   bool
}

// Frame is everything recorded for one rendered frame. Time is session
// time (frame index over fps); Wall is the real time since Run started.
type Frame struct {
	Index   int
	Time    float64
	Wall    time.Duration
	Samples []Sample
	Stats   physics.Stats
}

func (s *Session) capture(index int, t float64, wall time.Duration) Frame {
	snap := s.scene.Snapshot()
	f := Frame{
		Index:   index,
		Time:    t,
		Wall:    wall,
		Samples: make([]Sample, 0, len(snap)),
		Stats:   s.sys.Stats(),
	}

	bodies := s.sys.Bodies()
	for _, st := range snap {
		sample := Sample{
			Name:     st.Name,
			Kind:     st.Kind,
			Position: st.Transform.Position,
			Manual:   st.Manual,
		}
		switch st.Kind {
		case scene.KindBody:
			h, _ := s.scene.BodyHandle(st.Name)
			if mt, err := bodies.MotionType(h); err == nil && mt != dynamo.Static {
				sample.Velocity, _ = bodies.LinearVelocity(h)
				sample.Mass, _ = bodies.Mass(h)
			}
		case scene.KindCharacter:
			h, _ := s.scene.CharacterHandle(st.Name)
			_ = s.sys.Characters().Read(h, func(c *character.Controller) {
				sample.Velocity = c.Velocity()
				sample.Mass = c.Settings().Mass
			})
		}
		f.Samples = append(f.Samples, sample)
	}
	return f
}

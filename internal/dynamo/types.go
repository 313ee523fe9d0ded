package dynamo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/layers"
)

// BodyID is an opaque handle into the solver's body storage. The zero value
// is never handed out.
type BodyID uint32

const InvalidBodyID BodyID = 0

type MotionType uint8

const (
	Static MotionType = iota
	Kinematic
	Dynamic
)

func (m MotionType) String() string {
	switch m {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("MotionType(%d)", uint8(m))
	}
}

func ParseMotionType(s string) (MotionType, error) {
	switch s {
	case "static":
		return Static, nil
	case "kinematic":
		return Kinematic, nil
	case "dynamic", "":
		return Dynamic, nil
	}
	return 0, fmt.Errorf("unknown motion type: %s", s)
}

type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

func (t Transform) IsValid() bool {
	for _, v := range t.Position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !math.IsNaN(t.Rotation.W) && !math.IsNaN(t.Rotation.V.Len())
}

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min, Max mgl64.Vec3
}

func (a AABB) Overlaps(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

type BodySettings struct {
	Shape          Shape
	Position       mgl64.Vec3
	Rotation       mgl64.Quat
	MotionType     MotionType
	Layer          layers.ObjectLayer
	Mass           float64
	Restitution    float64
	Friction       float64
	LinearVelocity mgl64.Vec3
	// AngularVelocity is in radians per second around each world axis.
	AngularVelocity mgl64.Vec3
}

func (s *BodySettings) Validate() error {
	if s.Shape == nil {
		return fmt.Errorf("%w: missing shape", ErrInvalidShape)
	}
	if err := s.Shape.Validate(); err != nil {
		return err
	}
	if !s.Layer.Valid() {
		return fmt.Errorf("%w: layer %v", ErrInvalidSettings, s.Layer)
	}
	if s.MotionType == Dynamic && s.Mass <= 0 {
		return fmt.Errorf("%w: dynamic body needs positive mass, got %f", ErrInvalidSettings, s.Mass)
	}
	if s.Restitution < 0 || s.Restitution > 1 {
		return fmt.Errorf("%w: restitution %f outside [0, 1]", ErrInvalidSettings, s.Restitution)
	}
	return nil
}

// Color is a packed 0xRRGGBBAA value for debug primitives.
type Color uint32

const (
	ColorWhite  Color = 0xffffffff
	ColorGreen  Color = 0x00ff88ff
	ColorOrange Color = 0xffaa00ff
	ColorGrey   Color = 0x888899ff
)

// DebugRenderer receives the collision geometry after a completed step.
type DebugRenderer interface {
	DrawLine(from, to mgl64.Vec3, c Color)
	DrawTriangle(a, b, c mgl64.Vec3, col Color)
}

// FrameRenderer is implemented by debug renderers that want to know where
// one step's geometry starts and ends.
type FrameRenderer interface {
	DebugRenderer
	BeginFrame()
	EndFrame()
}

// LayerFilter is the collision policy the solver consults during broad and
// narrow phase. layers.Table implements it.
type LayerFilter interface {
	ShouldCollide(a, b layers.ObjectLayer) bool
	BroadPhaseLayer(l layers.ObjectLayer) layers.BroadPhaseLayer
	ShouldCollideBroadPhase(l layers.ObjectLayer, bp layers.BroadPhaseLayer) bool
}

// Solver is the rigid-body engine. Query methods must be safe to call while
// Step runs on another goroutine.
type Solver interface {
	CreateBody(settings BodySettings) (BodyID, error)
	Position(id BodyID) (mgl64.Vec3, error)
	Rotation(id BodyID) (mgl64.Quat, error)
	LinearVelocity(id BodyID) (mgl64.Vec3, error)
	SetPosition(id BodyID, pos mgl64.Vec3, activate bool) error
	SetRotation(id BodyID, rot mgl64.Quat, activate bool) error
	// SetMotionType switches a moving body between kinematic and dynamic.
	SetMotionType(id BodyID, mt MotionType) error
	IsActive(id BodyID) (bool, error)
	MotionType(id BodyID) (MotionType, error)
	Mass(id BodyID) (float64, error)

	Step(dt float64) error
	Gravity() mgl64.Vec3
	// GroundHeight returns the height of the highest static surface under
	// (x, z), if any.
	GroundHeight(x, z float64) (float64, bool)
	DrawBodies(r DebugRenderer)
	BodyCount() int
	Close() error
}

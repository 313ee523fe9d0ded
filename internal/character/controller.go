package character

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// snapDistance is how far above the ground a descending character may be
// and still be pulled onto it.
const snapDistance = 0.05

// Ground is the part of the solver a character steps against.
type Ground interface {
	GroundHeight(x, z float64) (float64, bool)
	Gravity() mgl64.Vec3
}

// Controller is a virtual character moved by collide-and-slide against the
// static ground rather than simulated as a rigid body.
//
// A Controller is not safe for concurrent use on its own; access it through
// a [Table], which serializes writers and admits concurrent readers.
type Controller struct {
	settings Settings
	position mgl64.Vec3
	velocity mgl64.Vec3
	rotation mgl64.Quat
	onGround bool
}

func NewController(settings Settings) *Controller {
	settings.Up = settings.Up.Normalize()
	return &Controller{
		settings: settings,
		position: settings.Position,
		rotation: mgl64.QuatIdent(),
	}
}

func (c *Controller) Settings() Settings       { return c.settings }
func (c *Controller) Position() mgl64.Vec3     { return c.position }
func (c *Controller) Velocity() mgl64.Vec3     { return c.velocity }
func (c *Controller) Rotation() mgl64.Quat     { return c.rotation }
func (c *Controller) OnGround() bool           { return c.onGround }
func (c *Controller) SetPosition(p mgl64.Vec3) { c.position = p }

func (c *Controller) SetLinearVelocity(v mgl64.Vec3) { c.velocity = v }

func (c *Controller) SetRotation(q mgl64.Quat) { c.rotation = q.Normalize() }

// AddImpulse changes velocity by j / mass.
func (c *Controller) AddImpulse(j mgl64.Vec3) {
	c.velocity = c.velocity.Add(j.Mul(1 / c.settings.Mass))
	if j.Dot(c.settings.Up) > 0 {
		c.onGround = false
	}
}

// Teleport moves the character and clears its motion.
func (c *Controller) Teleport(p mgl64.Vec3) {
	c.position = p
	c.velocity = mgl64.Vec3{}
	c.onGround = false
}

// Update advances the character by dt: gravity, integration, then a ground
// snap. Slopes steeper than MaxSlope do not count as ground; the character
// is kept out of them and slides downhill.
func (c *Controller) Update(dt float64, world Ground) {
	if dt <= 0 || world == nil {
		return
	}
	up := c.settings.Up
	gravity := world.Gravity()

	c.velocity = c.velocity.Add(gravity.Mul(dt))
	c.position = c.position.Add(c.velocity.Mul(dt))

	ground, ok := world.GroundHeight(c.position[0], c.position[2])
	if !ok {
		c.onGround = false
		return
	}

	feet := c.position[1] - c.settings.footOffset()
	vertical := c.velocity.Dot(up)
	if feet > ground+snapDistance || (feet > ground && vertical > 0) {
		c.onGround = false
		return
	}

	c.position[1] = ground + c.settings.footOffset()
	if vertical < 0 {
		c.velocity = c.velocity.Sub(up.Mul(vertical))
	}

	gx, gz := c.slope(world, ground)
	steepness := math.Atan(math.Hypot(gx, gz))
	if steepness <= c.settings.MaxSlope {
		c.onGround = true
		return
	}

	c.onGround = false
	downhill := mgl64.Vec3{-gx, 0, -gz}.Normalize()
	c.velocity = c.velocity.Add(downhill.Mul(gravity.Len() * math.Sin(steepness) * dt))
}

// slope estimates the ground gradient one radius away from the centre.
func (c *Controller) slope(world Ground, h float64) (float64, float64) {
	r := c.settings.Radius
	var gx, gz float64
	if hx, ok := world.GroundHeight(c.position[0]+r, c.position[2]); ok {
		gx = (hx - h) / r
	}
	if hz, ok := world.GroundHeight(c.position[0], c.position[2]+r); ok {
		gz = (hz - h) / r
	}
	return gx, gz
}

// DefaultUpdate is the standard per-tick update: a plain collide-and-slide
// step with no input.
func DefaultUpdate(dt float64, c *Controller, world Ground) {
	c.Update(dt, world)
}

package object

import "math"

// Meteorite is a drifting rock. Its reward and health scale with its radius.
type Meteorite struct {
	alive
	X, Y      float64
	VX, VY    float64
	Radius    float64
	Health    float64
	MaxHealth float64
	Rotation  float64 // radians, cosmetic
	Spin      float64 // radians/s
}

// NewMeteorite creates a meteorite entering from the top at x.
func NewMeteorite(x, radius, health, vx, vy, spin float64) *Meteorite {
	return &Meteorite{
		X:         x,
		Y:         -radius,
		VX:        vx,
		VY:        vy,
		Radius:    radius,
		Health:    health,
		MaxHealth: health,
		Spin:      spin,
	}
}

// Reward is the currency granted when the meteorite is destroyed.
func (m *Meteorite) Reward(divisor float64) int {
	if divisor <= 0 {
		return 0
	}
	return int(math.Floor(m.Radius / divisor))
}

// Hit applies damage and reports whether the meteorite broke apart.
func (m *Meteorite) Hit(damage float64) bool {
	m.Health -= damage
	return m.Health <= 0
}

// Update moves the meteorite and marks it destroyed once it falls out of view.
func (m *Meteorite) Update(ctx UpdateContext) {
	dt := ctx.Delta.Seconds()
	m.X += m.VX * dt
	m.Y += m.VY * dt
	m.Rotation = math.Mod(m.Rotation+m.Spin*dt, 2*math.Pi)
	if !ctx.Bounds.Contains(m.X, m.Y, m.Radius+ctx.Tuning.BoundsMargin) {
		m.MarkDestroyed()
	}
}

// Comet is a fast pickup that grants the buff it carries.
type Comet struct {
	alive
	X, Y   float64
	VX, VY float64
	Radius float64
	Buff   BuffSpec
}

// NewComet creates a comet entering from the top at x, moving along (vx, vy).
func NewComet(x, radius, vx, vy float64, buff BuffSpec) *Comet {
	return &Comet{X: x, Y: -radius, VX: vx, VY: vy, Radius: radius, Buff: buff}
}

// Update moves the comet and marks it destroyed once it leaves the play area.
func (c *Comet) Update(ctx UpdateContext) {
	dt := ctx.Delta.Seconds()
	c.X += c.VX * dt
	c.Y += c.VY * dt
	if !ctx.Bounds.Contains(c.X, c.Y, c.Radius+ctx.Tuning.BoundsMargin) {
		c.MarkDestroyed()
	}
}

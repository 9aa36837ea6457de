package object

import (
	"time"

	"github.com/tomz197/starfall/internal/physics"
)

// playerBottomOffset is the distance of the player's spawn point from the bottom edge.
const playerBottomOffset = 60.0

// Player is the ship controlled by the user.
type Player struct {
	X, Y      float64
	Radius    float64
	Health    float64
	MaxHealth float64
	Speed     float64 // units/s before buffs
	Damage    float64 // per bullet before multipliers

	FireEvery    time.Duration // cooldown between shots before buffs
	FireCooldown time.Duration
	Grace        time.Duration // remaining post-hit invulnerability

	Firing bool // fired during the last frame, used for effects
}

// NewPlayer creates a player at the bottom center of the play area.
func NewPlayer(b Bounds, radius, maxHealth, speed, damage float64, fireEvery time.Duration) *Player {
	return &Player{
		X:         b.Width / 2,
		Y:         b.Height - playerBottomOffset,
		Radius:    radius,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Speed:     speed,
		Damage:    damage,
		FireEvery: fireEvery,
	}
}

// Move translates the player along the unit vector of (dx, dy) and clamps it
// inside the play area.
func (p *Player) Move(dx, dy, speed float64, dt time.Duration, b Bounds) {
	nx, ny := physics.Normalize(dx, dy)
	step := speed * dt.Seconds()
	p.X = physics.Clamp(p.X+nx*step, p.Radius, b.Width-p.Radius)
	p.Y = physics.Clamp(p.Y+ny*step, p.Radius, b.Height-p.Radius)
}

// Tick counts down the player's timers.
func (p *Player) Tick(dt time.Duration) {
	p.Grace = max(0, p.Grace-dt)
	p.FireCooldown = max(0, p.FireCooldown-dt)
}

// TakeDamage reduces health and starts the grace window.
func (p *Player) TakeDamage(amount float64, grace time.Duration) {
	p.Health -= amount
	p.Grace = grace
}

// Heal restores health up to MaxHealth.
func (p *Player) Heal(amount float64) {
	p.Health = min(p.MaxHealth, p.Health+amount)
}

// Dead reports whether the player has no health left.
func (p *Player) Dead() bool {
	return p.Health <= 0
}

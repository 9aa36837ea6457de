package object

import (
	"time"

	"github.com/tomz197/starfall/internal/physics"
)

// Boss is the end-of-level enemy. It descends to its patrol line, sweeps
// horizontally and fires orbs at the player.
type Boss struct {
	alive
	Name         string
	X, Y         float64
	HalfW, HalfH float64
	Health       float64
	MaxHealth    float64
	Speed        float64
	Dir          float64 // +1 right, -1 left
	StopY        float64
	FireEvery    time.Duration
	FireCooldown time.Duration
}

// NewBoss creates a boss entering from above the play area, horizontally centered.
func NewBoss(name string, b Bounds, halfW, halfH, health, speed, stopY float64, fireEvery time.Duration) *Boss {
	return &Boss{
		Name:         name,
		X:            b.Width / 2,
		Y:            -halfH,
		HalfW:        halfW,
		HalfH:        halfH,
		Health:       health,
		MaxHealth:    health,
		Speed:        speed,
		Dir:          1,
		StopY:        stopY,
		FireEvery:    fireEvery,
		FireCooldown: fireEvery,
	}
}

// HealthFraction is the remaining health in [0,1].
func (b *Boss) HealthFraction() float64 {
	if b.MaxHealth <= 0 {
		return 0
	}
	return physics.Clamp(b.Health/b.MaxHealth, 0, 1)
}

// Hit applies damage and reports whether the boss died from it.
func (b *Boss) Hit(damage float64) bool {
	b.Health -= damage
	return b.Health <= 0
}

// Arrived reports whether the boss has reached its patrol line.
func (b *Boss) Arrived() bool {
	return b.Y >= b.StopY
}

// Update advances the boss by one frame.
func (b *Boss) Update(ctx UpdateContext) {
	dt := ctx.Delta.Seconds()
	if !b.Arrived() {
		b.Y += b.Speed * dt
		if b.Y > b.StopY {
			b.Y = b.StopY
		}
		return
	}

	b.X += b.Dir * b.Speed * dt
	if b.X-b.HalfW <= 0 {
		b.X = b.HalfW
		b.Dir = 1
	} else if b.X+b.HalfW >= ctx.Bounds.Width {
		b.X = ctx.Bounds.Width - b.HalfW
		b.Dir = -1
	}

	b.FireCooldown -= ctx.Delta
	if b.FireCooldown <= 0 {
		b.FireCooldown = b.FireEvery
		if ctx.Emitter != nil {
			t := ctx.Tuning
			ctx.Emitter.EmitEnemyBullet(NewEnemyBullet(ShotBossOrb, b.X, b.Y+b.HalfH, ctx.Target.X, ctx.Target.Y,
				t.BossOrbSpeed, t.BossOrbRadius, t.BossOrbDamage))
		}
	}
}

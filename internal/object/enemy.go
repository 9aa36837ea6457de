package object

import (
	"time"

	"github.com/tomz197/starfall/internal/physics"
)

// formationEntry is how far above its slot a formation member spawns.
const formationEntry = 120.0

// Enemy is a hostile ship. A nil Formation means the enemy hovers toward the
// player on its own.
type Enemy struct {
	alive
	X, Y      float64
	Radius    float64
	Health    float64
	MaxHealth float64
	FallSpeed float64

	FireCooldown time.Duration
	FireEvery    time.Duration

	Formation *Formation
	Slot      int
	Settled   bool
}

// NewHoverEnemy creates a free enemy entering from the top at x.
func NewHoverEnemy(x, radius, health, fallSpeed float64, fireEvery, firstShot time.Duration) *Enemy {
	return &Enemy{
		X:            x,
		Y:            -radius,
		Radius:       radius,
		Health:       health,
		MaxHealth:    health,
		FallSpeed:    fallSpeed,
		FireCooldown: firstShot,
		FireEvery:    fireEvery,
	}
}

// NewFormationMember creates member slot of f. Every member starts the same distance
// above its slot so the group arrives together.
func NewFormationMember(f *Formation, slot int, b Bounds, radius, health, fallSpeed float64, fireEvery, firstShot time.Duration) *Enemy {
	x, y := f.Slot(slot, b, radius)
	return &Enemy{
		X:            x,
		Y:            y - f.StopY - formationEntry - radius,
		Radius:       radius,
		Health:       health,
		MaxHealth:    health,
		FallSpeed:    fallSpeed,
		FireCooldown: firstShot,
		FireEvery:    fireEvery,
		Formation:    f,
		Slot:         slot,
	}
}

// Hit applies damage and reports whether the enemy died from it.
func (e *Enemy) Hit(damage float64) bool {
	e.Health -= damage
	return e.Health <= 0
}

// Update advances the enemy by one frame.
func (e *Enemy) Update(ctx UpdateContext) {
	if e.FireCooldown > 0 {
		e.FireCooldown -= ctx.Delta
	}
	if e.Formation != nil {
		e.updateFormation(ctx)
		return
	}
	e.updateHover(ctx)
}

func (e *Enemy) updateHover(ctx UpdateContext) {
	dt := ctx.Delta.Seconds()
	t := ctx.Tuning

	e.X = physics.MoveToward(e.X, ctx.Target.X, t.EnemyHoverSpeed*dt, t.SnapEpsilon)
	e.X = physics.Clamp(e.X, e.Radius, ctx.Bounds.Width-e.Radius)
	e.Y += e.FallSpeed * dt

	if e.Y-e.Radius > ctx.Bounds.Height+t.BoundsMargin {
		e.MarkDestroyed()
		return
	}

	if e.FireCooldown <= 0 && e.Y > t.EnemyMinFireY && e.Y < ctx.Target.Y {
		e.FireCooldown = e.FireEvery
		if ctx.Emitter != nil {
			ctx.Emitter.EmitEnemyBullet(NewEnemyBullet(ShotAimed, e.X, e.Y+e.Radius, ctx.Target.X, ctx.Target.Y,
				t.EnemyBulletSpeed, t.EnemyBulletRadius, t.EnemyBulletDamage))
		}
	}
}

func (e *Enemy) updateFormation(ctx UpdateContext) {
	t := ctx.Tuning
	x, y := e.Formation.Slot(e.Slot, ctx.Bounds, e.Radius)
	e.X = x

	if !e.Settled {
		e.Y += e.FallSpeed * ctx.Delta.Seconds()
		if e.Y >= y {
			e.Y = y
			e.Settled = true
		}
		return
	}
	e.Y = y

	if e.FireCooldown <= 0 && e.Y < ctx.Target.Y {
		e.FireCooldown = e.FireEvery
		if ctx.Emitter != nil {
			ctx.Emitter.EmitEnemyBullet(NewEnemyBullet(ShotStraight, e.X, e.Y+e.Radius, e.X, ctx.Bounds.Height,
				t.EnemyBulletSpeed, t.EnemyBulletRadius, t.EnemyBulletDamage))
		}
	}
}

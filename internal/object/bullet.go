package object

import (
	"time"

	"github.com/tomz197/starfall/internal/physics"
)

// Bullet is a player projectile.
type Bullet struct {
	alive
	X, Y   float64
	VX, VY float64
	Radius float64
	Damage float64
	TTL    time.Duration
}

// NewBullet fires a bullet from (x, y) toward (tx, ty). A degenerate aim point
// fires straight up.
func NewBullet(x, y, tx, ty, speed, radius, damage float64, ttl time.Duration) *Bullet {
	dx, dy := physics.Normalize(tx-x, ty-y)
	if dx == 0 && dy == 0 {
		dy = -1
	}
	return &Bullet{
		X:      x,
		Y:      y,
		VX:     dx * speed,
		VY:     dy * speed,
		Radius: radius,
		Damage: damage,
		TTL:    ttl,
	}
}

// Update moves the bullet and marks it destroyed once it expires or leaves the play area.
func (b *Bullet) Update(ctx UpdateContext) {
	b.TTL -= ctx.Delta
	dt := ctx.Delta.Seconds()
	b.X += b.VX * dt
	b.Y += b.VY * dt
	if b.TTL <= 0 || !ctx.Bounds.Contains(b.X, b.Y, ctx.Tuning.BoundsMargin) {
		b.MarkDestroyed()
	}
}

// EnemyBulletKind distinguishes how an enemy projectile was fired.
type EnemyBulletKind int

const (
	// ShotAimed is fired by hovering enemies toward the player.
	ShotAimed EnemyBulletKind = iota
	// ShotStraight is fired straight down by settled formation members.
	ShotStraight
	// ShotBossOrb is the boss's large aimed projectile.
	ShotBossOrb
)

func (k EnemyBulletKind) String() string {
	switch k {
	case ShotAimed:
		return "aimed"
	case ShotStraight:
		return "straight"
	case ShotBossOrb:
		return "orb"
	default:
		return "unknown"
	}
}

// EnemyBullet is a projectile that damages the player.
type EnemyBullet struct {
	alive
	Kind   EnemyBulletKind
	X, Y   float64
	VX, VY float64
	Radius float64
	Damage float64
}

// NewEnemyBullet fires an enemy bullet from (x, y) toward (tx, ty).
func NewEnemyBullet(kind EnemyBulletKind, x, y, tx, ty, speed, radius, damage float64) *EnemyBullet {
	dx, dy := physics.Normalize(tx-x, ty-y)
	if dx == 0 && dy == 0 {
		dy = 1
	}
	return &EnemyBullet{
		Kind:   kind,
		X:      x,
		Y:      y,
		VX:     dx * speed,
		VY:     dy * speed,
		Radius: radius,
		Damage: damage,
	}
}

// Update moves the bullet and marks it destroyed once it leaves the play area.
func (b *EnemyBullet) Update(ctx UpdateContext) {
	dt := ctx.Delta.Seconds()
	b.X += b.VX * dt
	b.Y += b.VY * dt
	if !ctx.Bounds.Contains(b.X, b.Y, ctx.Tuning.BoundsMargin) {
		b.MarkDestroyed()
	}
}

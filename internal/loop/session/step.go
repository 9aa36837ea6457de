package session

import (
	"time"

	"github.com/tomz197/starfall/internal/input"
	"github.com/tomz197/starfall/internal/object"
)

// Command is the player's intent for one tick.
type Command struct {
	MoveX, MoveY float64 // direction, each in [-1, 1]
	Fire         bool

	// Aim point in play-area units. Without one, bullets fire straight up.
	HasAim     bool
	AimX, AimY float64
}

// CommandFromInput maps held keys to a command. Aim is filled in by the caller,
// which knows how terminal cells map to the play area.
func CommandFromInput(in input.Input) Command {
	var c Command
	if in.Left {
		c.MoveX--
	}
	if in.Right {
		c.MoveX++
	}
	if in.Up {
		c.MoveY--
	}
	if in.Down {
		c.MoveY++
	}
	c.Fire = in.Fire
	return c
}

// ClampDelta limits a frame delta to [0, limit].
func ClampDelta(dt, limit time.Duration) time.Duration {
	if dt < 0 {
		return 0
	}
	if dt > limit {
		return limit
	}
	return dt
}

// Simulate advances every entity by dt.
func Simulate(rs *RunState, dt time.Duration, cmd Command) {
	updatePlayer(rs, dt, cmd)

	ctx := rs.updateContext(dt)
	for _, b := range rs.Bullets {
		b.Update(ctx)
	}
	for _, b := range rs.EnemyBullets {
		b.Update(ctx)
	}

	t := &rs.Tuning
	for _, f := range rs.Formations {
		f.Track(rs.Player.X, t.FormationTrackSpeed, t.SnapEpsilon, dt.Seconds())
	}
	for _, e := range rs.Enemies {
		e.Update(ctx)
	}
	for _, m := range rs.Meteorites {
		m.Update(ctx)
	}
	for _, c := range rs.Comets {
		c.Update(ctx)
	}
	for _, p := range rs.Particles {
		p.Update(ctx)
	}
	if rs.Boss != nil {
		rs.Boss.Update(ctx)
	}
}

func updatePlayer(rs *RunState, dt time.Duration, cmd Command) {
	p := rs.Player
	t := &rs.Tuning

	p.Tick(dt)
	if rs.Loadout.AutoRepair && !p.Dead() {
		p.Heal(t.AutoRepairPerSecond * dt.Seconds())
	}

	if cmd.MoveX != 0 || cmd.MoveY != 0 {
		speed := p.Speed * rs.Buffs.Magnitude(object.BuffSpeed, 1)
		p.Move(cmd.MoveX, cmd.MoveY, speed, dt, rs.Bounds)
		object.SpawnThrust(p.X, p.Y+p.Radius, rs.Rand, rs)
	}

	p.Firing = false
	if !cmd.Fire || p.FireCooldown > 0 {
		return
	}

	p.FireCooldown = time.Duration(float64(p.FireEvery) * rs.Buffs.Magnitude(object.BuffAttackSpeed, 1))
	damage := p.Damage
	if b, ok := rs.Buffs.Consume(object.BuffNextShot); ok {
		damage *= b.Magnitude
	}
	if rs.Loadout.Overcharge && rs.Rand.Float64() < t.OverchargeChance {
		damage *= t.OverchargeMultiplier
	}

	tx, ty := p.X, -t.BoundsMargin
	if cmd.HasAim {
		tx, ty = cmd.AimX, cmd.AimY
	}
	rs.Bullets = append(rs.Bullets, object.NewBullet(p.X, p.Y-p.Radius, tx, ty, t.BulletSpeed, t.BulletRadius, damage, t.BulletTTL))
	rs.Stats.ShotsFired++
	p.Firing = true
}

package session

import (
	"github.com/tomz197/starfall/internal/object"
	"github.com/tomz197/starfall/internal/physics"
)

// Resolve detects and applies every collision of the tick in a fixed order:
//
//  1. player bullets vs enemies
//  2. player bullets vs meteorites
//  3. player bullets vs boss
//  4. player vs enemies (unless invincible)
//  5. player vs meteorites (unless invincible)
//  6. player vs enemy bullets (unless invincible)
//  7. player vs comets (always)
//
// Hit entities are only marked; the caller compacts afterwards. A bullet hits at
// most one target and death rewards are paid by whoever marks the entity first.
func Resolve(rs *RunState) {
	bulletsVsEnemies(rs)
	bulletsVsMeteorites(rs)
	bulletsVsBoss(rs)
	playerVsEnemies(rs)
	playerVsMeteorites(rs)
	playerVsEnemyBullets(rs)
	playerVsComets(rs)
}

func bulletsVsEnemies(rs *RunState) {
	for _, b := range rs.Bullets {
		if b.IsDestroyed() {
			continue
		}
		for _, e := range rs.Enemies {
			if e.IsDestroyed() {
				continue
			}
			if !physics.CirclesOverlap(b.X, b.Y, b.Radius, e.X, e.Y, e.Radius) {
				continue
			}
			b.MarkDestroyed()
			rs.burst(b.X, b.Y, object.SparkBurst)
			if e.Hit(b.Damage) && e.MarkDestroyed() {
				rs.award(rs.Tuning.EnemyKillReward)
				rs.Stats.Kills++
				rs.burst(e.X, e.Y, object.ExplosionBurst)
			}
			break
		}
	}
}

func bulletsVsMeteorites(rs *RunState) {
	for _, b := range rs.Bullets {
		if b.IsDestroyed() {
			continue
		}
		for _, m := range rs.Meteorites {
			if m.IsDestroyed() {
				continue
			}
			if !physics.CirclesOverlap(b.X, b.Y, b.Radius, m.X, m.Y, m.Radius) {
				continue
			}
			b.MarkDestroyed()
			rs.burst(b.X, b.Y, object.SparkBurst)
			if m.Hit(b.Damage) {
				destroyMeteorite(rs, m)
			}
			break
		}
	}
}

func destroyMeteorite(rs *RunState, m *object.Meteorite) {
	if !m.MarkDestroyed() {
		return
	}
	rs.award(m.Reward(rs.Tuning.MeteoriteRewardDivisor))
	rs.Stats.MeteoritesDestroyed++
	burst := object.DebrisBurst
	burst.Count = int(float64(burst.Count) * m.Radius / rs.Tuning.MeteoriteMinRadius)
	rs.burst(m.X, m.Y, burst)
}

func bulletsVsBoss(rs *RunState) {
	boss := rs.Boss
	if boss == nil {
		return
	}
	for _, b := range rs.Bullets {
		if b.IsDestroyed() {
			continue
		}
		if physics.CircleBoxOverlap(b.X, b.Y, b.Radius, boss.X, boss.Y, boss.HalfW, boss.HalfH) {
			b.MarkDestroyed()
			boss.Hit(b.Damage)
			rs.burst(b.X, b.Y, object.SparkBurst)
		}
	}
}

// hurtPlayer applies damage and starts the grace window.
func hurtPlayer(rs *RunState, amount float64) {
	rs.Player.TakeDamage(amount, rs.Tuning.GraceWindow)
	rs.Stats.DamageTaken += amount
}

func playerVsEnemies(rs *RunState) {
	p := rs.Player
	for _, e := range rs.Enemies {
		if rs.PlayerInvincible() {
			return
		}
		if e.IsDestroyed() || !physics.CirclesOverlap(p.X, p.Y, p.Radius, e.X, e.Y, e.Radius) {
			continue
		}
		// Ramming is lethal to the enemy but pays nothing.
		e.MarkDestroyed()
		hurtPlayer(rs, rs.Tuning.EnemyContactDamage)
		rs.burst(e.X, e.Y, object.ExplosionBurst)
	}
}

func playerVsMeteorites(rs *RunState) {
	p := rs.Player
	for _, m := range rs.Meteorites {
		if rs.PlayerInvincible() {
			return
		}
		if m.IsDestroyed() || !physics.CirclesOverlap(p.X, p.Y, p.Radius, m.X, m.Y, m.Radius) {
			continue
		}
		hurtPlayer(rs, rs.Tuning.MeteoriteContactDamage)
		if m.Hit(rs.Tuning.MeteoriteRamDamage) {
			destroyMeteorite(rs, m)
		} else {
			rs.burst((p.X+m.X)/2, (p.Y+m.Y)/2, object.SparkBurst)
		}
	}
}

func playerVsEnemyBullets(rs *RunState) {
	p := rs.Player
	for _, b := range rs.EnemyBullets {
		if rs.PlayerInvincible() {
			return
		}
		if b.IsDestroyed() || !physics.CirclesOverlap(p.X, p.Y, p.Radius, b.X, b.Y, b.Radius) {
			continue
		}
		b.MarkDestroyed()
		hurtPlayer(rs, b.Damage)
		rs.burst(b.X, b.Y, object.SparkBurst)
	}
}

func playerVsComets(rs *RunState) {
	p := rs.Player
	reach := p.Radius + rs.Buffs.Magnitude(object.BuffMagnet, 0)
	for _, c := range rs.Comets {
		if c.IsDestroyed() || !physics.CirclesOverlap(p.X, p.Y, reach, c.X, c.Y, c.Radius) {
			continue
		}
		c.MarkDestroyed()
		rs.Buffs.Add(c.Buff, rs.Elapsed)
		rs.Stats.CometsCollected++
		burst := object.PickupBurst
		burst.Color = c.Buff.Color
		rs.burst(c.X, c.Y, burst)
	}
}

// Package session runs a single play-through: it owns the run state and advances it
// one explicit tick at a time (simulate, spawn, resolve collisions, check the end of
// the run). Nothing in here schedules itself or touches a clock.
package session

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/object"
	"github.com/tomz197/starfall/internal/progression"
)

// maxParticles caps cosmetic particles so long boss fights stay cheap to draw.
const maxParticles = 800

// Stats are the per-run counters reported in the summary.
type Stats struct {
	CurrencyCollected   int
	Kills               int
	MeteoritesDestroyed int
	CometsCollected     int
	ShotsFired          int
	DamageTaken         float64
}

// Loadout is the set of run modifiers active for this run.
type Loadout struct {
	Overcharge bool
	RapidFire  bool
	AutoRepair bool
}

// LoadoutFrom converts the profile's selected modifiers.
func LoadoutFrom(mods []progression.Modifier) Loadout {
	var l Loadout
	for _, m := range mods {
		switch m {
		case progression.ModOvercharge:
			l.Overcharge = true
		case progression.ModRapidFire:
			l.RapidFire = true
		case progression.ModAutoRepair:
			l.AutoRepair = true
		}
	}
	return l
}

// RunState holds everything that changes during a run. It is owned by one
// goroutine and passed explicitly to every phase of the tick.
type RunState struct {
	ID     string
	Level  config.Level
	Tuning config.Tuning
	Bounds object.Bounds
	Rand   *rand.Rand

	Elapsed       time.Duration
	Wave          int
	LastSpawn     time.Duration
	SpawnInterval time.Duration
	Difficulty    float64

	Player       *object.Player
	Bullets      []*object.Bullet
	EnemyBullets []*object.EnemyBullet
	Enemies      []*object.Enemy
	Formations   []*object.Formation
	Meteorites   []*object.Meteorite
	Comets       []*object.Comet
	Particles    []*object.Particle
	Boss         *object.Boss
	BossSpawned  bool

	Buffs   object.Buffs
	Loadout Loadout
	Stats   Stats

	nextFormationID int
}

// NewRunState creates a fresh run on level. The player is seeded from the
// profile's upgrade levels and the loadout.
func NewRunState(id string, level config.Level, tuning config.Tuning, upgrades map[progression.Upgrade]int, loadout Loadout, rng *rand.Rand) *RunState {
	b := object.DefaultBounds()
	rs := &RunState{
		ID:            id,
		Level:         level,
		Tuning:        tuning,
		Bounds:        b,
		Rand:          rng,
		SpawnInterval: tuning.SpawnInterval,
		Difficulty:    level.BaseDifficulty,
		Loadout:       loadout,
	}

	t := &rs.Tuning
	health := t.PlayerBaseHealth + t.HealthPerUpgrade*float64(upgrades[progression.UpgradeHealth])
	speed := t.PlayerBaseSpeed * (1 + t.SpeedPerUpgrade*float64(upgrades[progression.UpgradeSpeed]))
	damage := t.BulletDamage + t.DamagePerUpgrade*float64(upgrades[progression.UpgradeDamage])
	rate := math.Max(t.MinFireRateFactor, 1-t.FireRatePerUpgrade*float64(upgrades[progression.UpgradeFireRate]))
	if loadout.RapidFire {
		rate *= t.RapidFireFactor
	}
	fireEvery := time.Duration(float64(t.FireCooldown) * rate)

	rs.Player = object.NewPlayer(b, t.PlayerRadius, health, speed, damage, fireEvery)
	return rs
}

// PlayerInvincible reports whether the player currently ignores damage: during the
// post-hit grace window or while an invincibility buff is active.
func (rs *RunState) PlayerInvincible() bool {
	return rs.Player.Grace > 0 || rs.Buffs.Has(object.BuffInvincible)
}

// EmitEnemyBullet implements object.Emitter.
func (rs *RunState) EmitEnemyBullet(b *object.EnemyBullet) {
	rs.EnemyBullets = append(rs.EnemyBullets, b)
}

// EmitParticle implements object.Emitter.
func (rs *RunState) EmitParticle(p *object.Particle) {
	if len(rs.Particles) >= maxParticles {
		p.Release()
		return
	}
	rs.Particles = append(rs.Particles, p)
}

// burst spawns a cosmetic particle burst at (x, y).
func (rs *RunState) burst(x, y float64, b object.Burst) {
	object.SpawnBurst(x, y, b, rs.Tuning.ParticleDensity, rs.Rand, rs)
}

// award credits currency collected during the run.
func (rs *RunState) award(amount int) {
	if amount > 0 {
		rs.Stats.CurrencyCollected += amount
	}
}

// updateContext builds the context passed to entity updates this tick.
func (rs *RunState) updateContext(dt time.Duration) object.UpdateContext {
	return object.UpdateContext{
		Delta:   dt,
		Bounds:  rs.Bounds,
		Tuning:  &rs.Tuning,
		Target:  object.Target{X: rs.Player.X, Y: rs.Player.Y},
		Emitter: rs,
		Rand:    rs.Rand,
	}
}

// FormationActive reports whether any formation member is still above the bottom
// edge of the play area.
func (rs *RunState) FormationActive() bool {
	for _, e := range rs.Enemies {
		if e.Formation != nil && !e.IsDestroyed() && e.Y < rs.Bounds.Height {
			return true
		}
	}
	return false
}

// compact removes every entity marked destroyed during the last phase.
func (rs *RunState) compact() {
	rs.Bullets = object.Compact(rs.Bullets)
	rs.EnemyBullets = object.Compact(rs.EnemyBullets)
	rs.Enemies = object.Compact(rs.Enemies)
	rs.Meteorites = object.Compact(rs.Meteorites)
	rs.Comets = object.Compact(rs.Comets)
	rs.Particles = object.Compact(rs.Particles)

	// A formation lives as long as one of its members does.
	for _, f := range rs.Formations {
		if !rs.hasMembers(f) {
			f.MarkDestroyed()
		}
	}
	rs.Formations = object.Compact(rs.Formations)
}

func (rs *RunState) hasMembers(f *object.Formation) bool {
	for _, e := range rs.Enemies {
		if e.Formation == f {
			return true
		}
	}
	return false
}

// releaseAll returns pooled entities when the run is thrown away.
func (rs *RunState) releaseAll() {
	for _, p := range rs.Particles {
		p.Release()
	}
	rs.Particles = nil
}

package session

import (
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/object"
)

// SpawnKind is what a wave slot turns into.
type SpawnKind int

const (
	SpawnEnemy SpawnKind = iota
	SpawnMeteorite
)

// SlotKind decides whether slot of a wave with count slots spawns an enemy or a
// meteorite. Single-slot waves alternate by wave parity, larger waves by slot parity.
func SlotKind(wave, count, slot int) SpawnKind {
	if count == 1 {
		if wave%2 == 1 {
			return SpawnEnemy
		}
		return SpawnMeteorite
	}
	if slot%2 == 0 {
		return SpawnEnemy
	}
	return SpawnMeteorite
}

// Difficulty is the scalar applied to spawned entities.
func Difficulty(base float64, elapsed time.Duration, wave int, t config.Tuning) float64 {
	ramp := 0.0
	if t.DifficultyRamp > 0 {
		ramp = float64(elapsed) / float64(t.DifficultyRamp)
	}
	return base * (1 + ramp) * (1 + float64(wave)*t.WaveDifficulty)
}

// Spawner decides what enters the play area and when.
type Spawner struct {
	logger *log.Logger
}

// NewSpawner creates a spawner that logs boss arrivals to logger.
func NewSpawner(logger *log.Logger) *Spawner {
	return &Spawner{logger: logger}
}

// Tick runs after the simulation step. The boss check comes first; while the boss is
// alive no normal waves are spawned. It reports whether a wave fired.
func (sp *Spawner) Tick(rs *RunState) bool {
	t := &rs.Tuning
	if !rs.BossSpawned && rs.Boss == nil && rs.Elapsed >= t.BossTime {
		sp.spawnBoss(rs)
	}
	if rs.Boss != nil {
		return false
	}
	if rs.Elapsed-rs.LastSpawn < rs.SpawnInterval {
		return false
	}

	rs.Wave++
	rs.LastSpawn = rs.Elapsed
	rs.Difficulty = Difficulty(rs.Level.BaseDifficulty, rs.Elapsed, rs.Wave, *t)

	count := config.SpawnCount(rs.Elapsed)
	formationStarted := false
	for slot := 0; slot < count; slot++ {
		switch SlotKind(rs.Wave, count, slot) {
		case SpawnEnemy:
			if !formationStarted && !rs.FormationActive() && rs.Rand.Float64() < t.FormationChance {
				spawnFormation(rs)
				formationStarted = true
				continue
			}
			spawnEnemy(rs)
		case SpawnMeteorite:
			spawnMeteorite(rs)
		}
	}

	if rs.Rand.Float64() < t.CometChance {
		spawnComet(rs)
	}
	return true
}

func (sp *Spawner) spawnBoss(rs *RunState) {
	t := &rs.Tuning
	base := rs.Level.BaseDifficulty
	if base <= 0 {
		base = 1
	}
	rs.Boss = object.NewBoss(rs.Level.BossName, rs.Bounds, t.BossHalfWidth, t.BossHalfHeight,
		t.BossHealth*base, t.BossSpeed, t.BossStopY, time.Duration(float64(t.BossFireInterval)/base))
	rs.BossSpawned = true
	if sp.logger != nil {
		sp.logger.Info("Boss spawned", "run", rs.ID, "boss", rs.Level.BossName, "health", rs.Boss.Health)
	}
}

func (rs *RunState) randRange(lo, hi float64) float64 {
	return lo + rs.Rand.Float64()*(hi-lo)
}

// firstShot staggers the first shot of freshly spawned enemies.
func (rs *RunState) firstShot() time.Duration {
	return time.Duration(float64(rs.Tuning.EnemyFireCooldown) * rs.randRange(0.5, 1))
}

func spawnEnemy(rs *RunState) {
	t := &rs.Tuning
	d := rs.Difficulty
	x := rs.randRange(t.EnemyRadius, rs.Bounds.Width-t.EnemyRadius)
	e := object.NewHoverEnemy(x, t.EnemyRadius, t.EnemyHealth*d, t.EnemyFallSpeed*math.Sqrt(d),
		t.EnemyFireCooldown, rs.firstShot())
	rs.Enemies = append(rs.Enemies, e)
}

func spawnFormation(rs *RunState) {
	t := &rs.Tuning
	d := rs.Difficulty
	kind := object.FormationKinds[rs.Rand.IntN(len(object.FormationKinds))]
	stopY := rs.randRange(t.FormationMinStopY, t.FormationMaxStopY)

	rs.nextFormationID++
	f := object.NewFormation(rs.nextFormationID, kind, rs.Player.X, stopY)
	rs.Formations = append(rs.Formations, f)
	for i := 0; i < f.Size; i++ {
		e := object.NewFormationMember(f, i, rs.Bounds, t.EnemyRadius, t.EnemyHealth*d,
			t.EnemyFallSpeed*math.Sqrt(d), t.EnemyFireCooldown, rs.firstShot())
		rs.Enemies = append(rs.Enemies, e)
	}
}

func spawnMeteorite(rs *RunState) {
	t := &rs.Tuning
	r := rs.randRange(t.MeteoriteMinRadius, t.MeteoriteMaxRadius)
	x := rs.randRange(r, rs.Bounds.Width-r)
	vy := rs.randRange(t.MeteoriteMinSpeed, t.MeteoriteMaxSpeed) * math.Sqrt(rs.Difficulty)
	vx := rs.randRange(-t.MeteoriteDrift, t.MeteoriteDrift)
	spin := rs.randRange(-2, 2)
	rs.Meteorites = append(rs.Meteorites, object.NewMeteorite(x, r, r*t.MeteoriteHealthPerUnit, vx, vy, spin))
}

func spawnComet(rs *RunState) {
	t := &rs.Tuning
	buff := object.BuffCatalog[rs.Rand.IntN(len(object.BuffCatalog))]
	x := rs.randRange(t.CometRadius, rs.Bounds.Width-t.CometRadius)
	// Angle the comet across the screen toward the far side.
	vx := rs.randRange(0.1, 0.4) * t.CometSpeed
	if x > rs.Bounds.Width/2 {
		vx = -vx
	}
	rs.Comets = append(rs.Comets, object.NewComet(x, t.CometRadius, vx, t.CometSpeed, buff))
}

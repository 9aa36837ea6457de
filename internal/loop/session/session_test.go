package session

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/object"
	"github.com/tomz197/starfall/internal/progression"
)

type recorder struct {
	transitions []Transition
	huds        []HUDState
	saves       []progression.State
	runs        []progression.RunSummary
}

func (r *recorder) UpdateHUD(h HUDState)            { r.huds = append(r.huds, h) }
func (r *recorder) OnTransition(t Transition)       { r.transitions = append(r.transitions, t) }
func (r *recorder) Save(s progression.State)        { r.saves = append(r.saves, s.Clone()) }
func (r *recorder) Record(s progression.RunSummary) { r.runs = append(r.runs, s) }

func (r *recorder) endings() (n int) {
	for _, t := range r.transitions {
		if t.To == StatusEnded {
			n++
		}
	}
	return n
}

func newTestRun(mutate func(*config.Tuning)) *RunState {
	tuning := config.Default()
	if mutate != nil {
		mutate(&tuning)
	}
	level, _ := config.LevelByID(config.FirstLevel)
	return NewRunState("test-run", level, tuning, nil, Loadout{}, rand.New(rand.NewPCG(1, 1)))
}

func newTestController(t *testing.T, mutate func(*config.Tuning)) (*Controller, *recorder) {
	t.Helper()
	tuning := config.Default()
	if mutate != nil {
		mutate(&tuning)
	}
	rec := &recorder{}
	c := NewController("tester", progression.Default(), Options{
		Tuning:   tuning,
		HUD:      rec,
		Screens:  rec,
		Progress: rec,
		Logger:   log.New(io.Discard),
		Seed:     42,
		NewID:    func() string { return "run-1" },
	})
	return c, rec
}

// startRunning starts the first level and dismisses the intro dialogue.
func startRunning(t *testing.T, c *Controller) *RunState {
	t.Helper()
	if err := c.Start(config.FirstLevel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; c.Status() == StatusPaused; i++ {
		if i > 20 {
			t.Fatalf("Dialogue never finished")
		}
		c.Dismiss()
	}
	if c.Status() != StatusRunning {
		t.Fatalf("Status = %v, want running", c.Status())
	}
	return c.Run()
}

func noSpawns(t *config.Tuning) {
	t.SpawnInterval = time.Hour
	t.BossTime = 24 * time.Hour
}

func TestSpawnFiresAtIntervalBoundary(t *testing.T) {
	c, _ := newTestController(t, nil)
	rs := startRunning(t, c)

	for i := 0; i < 39; i++ {
		c.Step(50*time.Millisecond, Command{})
	}
	c.Step(49*time.Millisecond, Command{})
	if rs.Elapsed != 1999*time.Millisecond || rs.Wave != 0 {
		t.Fatalf("At %v wave = %d, want 0", rs.Elapsed, rs.Wave)
	}

	c.Step(time.Millisecond, Command{})
	if rs.Wave != 1 {
		t.Errorf("At %v wave = %d, want 1", rs.Elapsed, rs.Wave)
	}
	if rs.LastSpawn != 2*time.Second {
		t.Errorf("LastSpawn = %v, want 2s", rs.LastSpawn)
	}
}

func TestSpawnerWaveGate(t *testing.T) {
	rs := newTestRun(nil)
	sp := NewSpawner(nil)

	rs.Elapsed = 1999 * time.Millisecond
	if sp.Tick(rs) || rs.Wave != 0 {
		t.Fatalf("Wave fired before the interval")
	}
	rs.Elapsed = 2000 * time.Millisecond
	if !sp.Tick(rs) || rs.Wave != 1 {
		t.Fatalf("Wave did not fire at the interval")
	}
	// Wave 1 with a single slot spawns an enemy (odd wave).
	if len(rs.Enemies) == 0 {
		t.Errorf("Expected the first wave to spawn an enemy")
	}
	want := Difficulty(1.0, 2*time.Second, 1, rs.Tuning)
	if math.Abs(rs.Difficulty-want) > 1e-12 {
		t.Errorf("Difficulty = %v, want %v", rs.Difficulty, want)
	}
}

func TestBossSpawnsExactlyOnce(t *testing.T) {
	rs := newTestRun(nil)
	sp := NewSpawner(nil)

	rs.Elapsed = rs.Tuning.BossTime - time.Millisecond
	rs.LastSpawn = rs.Elapsed
	sp.Tick(rs)
	if rs.Boss != nil {
		t.Fatalf("Boss spawned before the threshold")
	}

	rs.Elapsed = rs.Tuning.BossTime
	sp.Tick(rs)
	if rs.Boss == nil || !rs.BossSpawned {
		t.Fatalf("Boss did not spawn at the threshold")
	}
	if rs.Boss.MaxHealth != rs.Tuning.BossHealth*rs.Level.BaseDifficulty {
		t.Errorf("Boss health = %v", rs.Boss.MaxHealth)
	}

	// Normal spawns pause while the boss is alive.
	wave := rs.Wave
	rs.Elapsed += time.Minute
	if sp.Tick(rs) || rs.Wave != wave {
		t.Errorf("Wave spawned while the boss is alive")
	}

	rs.Boss = nil
	sp.Tick(rs)
	if rs.Boss != nil {
		t.Errorf("Boss spawned a second time")
	}
}

func TestOnlyOneFormationAtATime(t *testing.T) {
	rs := newTestRun(func(t *config.Tuning) {
		t.FormationChance = 1
		t.CometChance = 0
	})
	sp := NewSpawner(nil)

	// Four slots per wave, two of them enemy slots.
	start := 5 * time.Minute
	for i := 1; i <= 20; i++ {
		rs.Elapsed = start + time.Duration(i)*rs.SpawnInterval
		sp.Tick(rs)
		if len(rs.Formations) > 1 {
			t.Fatalf("Wave %d: %d formations active", rs.Wave, len(rs.Formations))
		}
	}
	if len(rs.Formations) != 1 {
		t.Fatalf("Expected one formation, got %d", len(rs.Formations))
	}

	// Once every member has left the screen a new formation may start.
	for _, e := range rs.Enemies {
		if e.Formation != nil {
			e.MarkDestroyed()
		}
	}
	rs.compact()
	rs.Elapsed += rs.SpawnInterval
	sp.Tick(rs)
	if len(rs.Formations) != 1 || rs.Formations[0].ID != 2 {
		t.Errorf("Expected a second formation after the first cleared, got %d", len(rs.Formations))
	}
}

func TestSlotKind(t *testing.T) {
	tests := []struct {
		wave, count, slot int
		want              SpawnKind
	}{
		{1, 1, 0, SpawnEnemy},
		{2, 1, 0, SpawnMeteorite},
		{2, 3, 0, SpawnEnemy},
		{2, 3, 1, SpawnMeteorite},
		{7, 5, 4, SpawnEnemy},
	}
	for _, tt := range tests {
		if got := SlotKind(tt.wave, tt.count, tt.slot); got != tt.want {
			t.Errorf("SlotKind(%d,%d,%d) = %v, want %v", tt.wave, tt.count, tt.slot, got, tt.want)
		}
	}
}

func TestMeteoriteContact(t *testing.T) {
	rs := newTestRun(nil)
	p := rs.Player
	m := object.NewMeteorite(p.X, 40, 80, 0, 0, 0)
	m.Y = p.Y
	rs.Meteorites = append(rs.Meteorites, m)

	Resolve(rs)
	if p.Health != 85 {
		t.Errorf("Player health = %v, want 85", p.Health)
	}
	if !rs.PlayerInvincible() || p.Grace != rs.Tuning.GraceWindow {
		t.Errorf("Expected grace window, grace = %v", p.Grace)
	}
	if m.Health != 30 || m.IsDestroyed() {
		t.Errorf("Meteorite health = %v destroyed=%v, want 30 alive", m.Health, m.IsDestroyed())
	}

	// Still overlapping but invincible: nothing changes.
	Resolve(rs)
	if p.Health != 85 || m.Health != 30 {
		t.Errorf("Contact applied during grace: player %v meteorite %v", p.Health, m.Health)
	}
}

func TestEnemyKilledBySecondBulletRewardsOnce(t *testing.T) {
	rs := newTestRun(nil)
	e := object.NewHoverEnemy(400, 16, 20, 0, time.Second, time.Second)
	e.Y = 200
	rs.Enemies = append(rs.Enemies, e)

	shoot := func() *object.Bullet {
		b := object.NewBullet(400, 200, 400, 0, 0, 4, 10, time.Second)
		rs.Bullets = append(rs.Bullets, b)
		return b
	}

	first := shoot()
	Resolve(rs)
	if !first.IsDestroyed() || e.IsDestroyed() || e.Health != 10 {
		t.Fatalf("After first hit: bullet consumed=%v enemy destroyed=%v health=%v", first.IsDestroyed(), e.IsDestroyed(), e.Health)
	}
	if rs.Stats.CurrencyCollected != 0 {
		t.Fatalf("Reward paid before the kill")
	}

	shoot()
	Resolve(rs)
	if !e.IsDestroyed() {
		t.Fatalf("Enemy survived the second hit")
	}
	if rs.Stats.CurrencyCollected != rs.Tuning.EnemyKillReward || rs.Stats.Kills != 1 {
		t.Errorf("Reward = %d kills = %d", rs.Stats.CurrencyCollected, rs.Stats.Kills)
	}

	// A marked enemy is ignored by later bullets and removing it twice is a no-op.
	third := shoot()
	Resolve(rs)
	if third.IsDestroyed() {
		t.Errorf("Bullet hit an already destroyed enemy")
	}
	rs.compact()
	rs.compact()
	if len(rs.Enemies) != 0 || rs.Stats.CurrencyCollected != rs.Tuning.EnemyKillReward {
		t.Errorf("Enemies = %d, currency = %d", len(rs.Enemies), rs.Stats.CurrencyCollected)
	}
}

func TestBulletHitsAtMostOneTarget(t *testing.T) {
	rs := newTestRun(nil)
	a := object.NewHoverEnemy(400, 16, 20, 0, time.Second, time.Second)
	b := object.NewHoverEnemy(400, 16, 20, 0, time.Second, time.Second)
	a.Y, b.Y = 200, 200
	rs.Enemies = append(rs.Enemies, a, b)
	rs.Bullets = append(rs.Bullets, object.NewBullet(400, 200, 400, 0, 0, 4, 10, time.Second))

	Resolve(rs)
	if a.Health != 10 || b.Health != 20 {
		t.Errorf("Health after one bullet: a=%v b=%v, want 10 and 20", a.Health, b.Health)
	}
}

func TestCollisionBoundaryIsStrict(t *testing.T) {
	tests := []struct {
		name    string
		bulletX float64
		wantHit bool
	}{
		{"touching", 420, false},
		{"overlapping", 419.99, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newTestRun(nil)
			e := object.NewHoverEnemy(400, 16, 20, 0, time.Second, time.Second)
			e.Y = 200
			rs.Enemies = append(rs.Enemies, e)
			b := object.NewBullet(tt.bulletX, 200, tt.bulletX, 0, 0, 4, 10, time.Second)
			rs.Bullets = append(rs.Bullets, b)

			Resolve(rs)
			if b.IsDestroyed() != tt.wantHit {
				t.Errorf("Hit = %v, want %v", b.IsDestroyed(), tt.wantHit)
			}
		})
	}
}

func TestEnemyContactRemovesEnemyWithoutReward(t *testing.T) {
	rs := newTestRun(nil)
	p := rs.Player
	e := object.NewHoverEnemy(p.X, 16, 20, 0, time.Second, time.Second)
	e.Y = p.Y
	rs.Enemies = append(rs.Enemies, e)

	Resolve(rs)
	if !e.IsDestroyed() || p.Health != 80 {
		t.Errorf("Enemy destroyed=%v player health=%v", e.IsDestroyed(), p.Health)
	}
	if rs.Stats.CurrencyCollected != 0 || rs.Stats.Kills != 0 {
		t.Errorf("Ramming paid a reward")
	}
}

func TestCometCollectedWhileInvincible(t *testing.T) {
	rs := newTestRun(nil)
	p := rs.Player
	p.Grace = time.Second
	c := object.NewComet(p.X, 10, 0, 0, object.BuffCatalog[0])
	c.Y = p.Y
	rs.Comets = append(rs.Comets, c)

	Resolve(rs)
	if !c.IsDestroyed() || !rs.Buffs.Has(object.BuffAttackSpeed) || rs.Stats.CometsCollected != 1 {
		t.Errorf("Comet not collected during grace")
	}
}

func TestMagnetExtendsPickupRadius(t *testing.T) {
	rs := newTestRun(nil)
	p := rs.Player
	c := object.NewComet(p.X+100, 10, 0, 0, object.BuffCatalog[3])
	c.Y = p.Y
	rs.Comets = append(rs.Comets, c)

	Resolve(rs)
	if c.IsDestroyed() {
		t.Fatalf("Comet collected without magnet")
	}
	rs.Buffs.Add(object.BuffCatalog[1], 0)
	Resolve(rs)
	if !c.IsDestroyed() {
		t.Errorf("Magnet did not pull the comet in")
	}
}

func TestInvincibleBuffWindow(t *testing.T) {
	c, _ := newTestController(t, noSpawns)
	rs := startRunning(t, c)
	p := rs.Player

	shield := object.BuffCatalog[2]
	comet := object.NewComet(p.X, 10, 0, 0, shield)
	comet.Y = p.Y
	rs.Comets = append(rs.Comets, comet)

	c.Step(0, Command{})
	if !rs.Buffs.Has(object.BuffInvincible) {
		t.Fatalf("Shield not collected")
	}
	if b, _ := rs.Buffs.Active(object.BuffInvincible); b.Start != 0 {
		t.Fatalf("Shield started at %v, want 0", b.Start)
	}

	for rs.Elapsed < shield.Duration {
		if !rs.PlayerInvincible() {
			t.Fatalf("Not invincible at %v", rs.Elapsed)
		}
		c.Step(50*time.Millisecond, Command{})
	}
	if rs.Elapsed != shield.Duration {
		t.Fatalf("Elapsed = %v", rs.Elapsed)
	}
	if rs.PlayerInvincible() {
		t.Errorf("Still invincible at %v", rs.Elapsed)
	}
}

func TestStepClampsDelta(t *testing.T) {
	c, _ := newTestController(t, noSpawns)
	rs := startRunning(t, c)

	c.Step(time.Second, Command{})
	if rs.Elapsed != rs.Tuning.MaxFrameDelta {
		t.Errorf("Elapsed = %v, want %v", rs.Elapsed, rs.Tuning.MaxFrameDelta)
	}
	c.Step(-time.Second, Command{})
	if rs.Elapsed != rs.Tuning.MaxFrameDelta {
		t.Errorf("Negative delta changed elapsed to %v", rs.Elapsed)
	}
}

func TestFiringRespectsCooldownAndNextShot(t *testing.T) {
	rs := newTestRun(nil)
	rs.Buffs.Add(object.BuffCatalog[4], 0)

	Simulate(rs, 16*time.Millisecond, Command{Fire: true})
	if len(rs.Bullets) != 1 {
		t.Fatalf("Bullets = %d, want 1", len(rs.Bullets))
	}
	if d := rs.Bullets[0].Damage; d != rs.Tuning.BulletDamage*object.BuffCatalog[4].Magnitude {
		t.Errorf("Boosted damage = %v", d)
	}
	if rs.Buffs.Has(object.BuffNextShot) {
		t.Errorf("Next-shot buff was not consumed")
	}
	if rs.Bullets[0].VY >= 0 || rs.Bullets[0].VX != 0 {
		t.Errorf("Bullet without aim should fly straight up, v=(%v,%v)", rs.Bullets[0].VX, rs.Bullets[0].VY)
	}

	Simulate(rs, 16*time.Millisecond, Command{Fire: true})
	if len(rs.Bullets) != 1 {
		t.Errorf("Fired during cooldown")
	}
}

func TestSpeedBuffScalesMovement(t *testing.T) {
	rs := newTestRun(nil)
	rs.Buffs.Add(object.BuffCatalog[3], 0)
	x := rs.Player.X

	Simulate(rs, 50*time.Millisecond, Command{MoveX: 1})
	want := x + rs.Tuning.PlayerBaseSpeed*1.5*0.05
	if math.Abs(rs.Player.X-want) > 1e-9 {
		t.Errorf("Player X = %v, want %v", rs.Player.X, want)
	}
}

func TestUpgradesSeedPlayer(t *testing.T) {
	level, _ := config.LevelByID(config.FirstLevel)
	up := map[progression.Upgrade]int{progression.UpgradeHealth: 2, progression.UpgradeFireRate: 20}
	rs := NewRunState("r", level, config.Default(), up, Loadout{RapidFire: true}, rand.New(rand.NewPCG(1, 1)))

	if rs.Player.MaxHealth != 130 {
		t.Errorf("MaxHealth = %v, want 130", rs.Player.MaxHealth)
	}
	want := 50 * time.Millisecond
	if diff := rs.Player.FireEvery - want; diff < -time.Microsecond || diff > time.Microsecond {
		t.Errorf("FireEvery = %v, want %v", rs.Player.FireEvery, want)
	}
}

func TestIntroDialoguePausesRun(t *testing.T) {
	c, rec := newTestController(t, nil)
	if err := c.Start(config.FirstLevel); err != nil {
		t.Fatal(err)
	}
	level, _ := config.LevelByID(config.FirstLevel)

	if c.Status() != StatusPaused || c.PauseReason() != PauseDialogue {
		t.Fatalf("Status = %v/%v, want paused for dialogue", c.Status(), c.PauseReason())
	}
	if c.Line() != level.Intro[0] {
		t.Errorf("Line = %q", c.Line())
	}

	c.Step(50*time.Millisecond, Command{})
	if c.Run().Elapsed != 0 {
		t.Errorf("Simulation advanced during dialogue")
	}

	for i := 1; i < len(level.Intro); i++ {
		c.Dismiss()
		if c.Status() != StatusPaused || c.Line() != level.Intro[i] {
			t.Fatalf("Line %d = %q", i, c.Line())
		}
	}
	c.Dismiss()
	if c.Status() != StatusRunning {
		t.Fatalf("Status = %v, want running", c.Status())
	}

	last := rec.transitions[len(rec.transitions)-1]
	if last.From != StatusPaused || last.To != StatusRunning {
		t.Errorf("Last transition = %+v", last)
	}
}

func TestManualPause(t *testing.T) {
	c, _ := newTestController(t, noSpawns)
	rs := startRunning(t, c)

	c.TogglePause()
	if c.Status() != StatusPaused || c.PauseReason() != PauseManual {
		t.Fatalf("Status = %v", c.Status())
	}
	c.Step(50*time.Millisecond, Command{})
	if rs.Elapsed != 0 {
		t.Errorf("Simulation advanced while paused")
	}
	c.TogglePause()
	c.Step(50*time.Millisecond, Command{})
	if rs.Elapsed != 50*time.Millisecond {
		t.Errorf("Elapsed = %v after resume", rs.Elapsed)
	}
}

func TestStartLockedLevel(t *testing.T) {
	c, _ := newTestController(t, nil)
	if err := c.Start("venus"); !errors.Is(err, progression.ErrLevelLocked) {
		t.Errorf("Expected ErrLevelLocked, got %v", err)
	}
	if c.Status() != StatusNotStarted {
		t.Errorf("Status = %v", c.Status())
	}
}

func TestDefeatFiresOnce(t *testing.T) {
	c, rec := newTestController(t, noSpawns)
	rs := startRunning(t, c)
	p := rs.Player
	p.Health = 1
	e := object.NewHoverEnemy(p.X, 16, 20, 0, time.Second, time.Second)
	e.Y = p.Y
	rs.Enemies = append(rs.Enemies, e)

	c.Step(16*time.Millisecond, Command{})
	if c.Status() != StatusEnded || c.Outcome() != OutcomeDefeat {
		t.Fatalf("Status = %v outcome = %v", c.Status(), c.Outcome())
	}
	c.Step(16*time.Millisecond, Command{})
	c.Abandon()

	if rec.endings() != 1 || len(rec.runs) != 1 {
		t.Errorf("Endings = %d, recorded runs = %d", rec.endings(), len(rec.runs))
	}
	if h := rec.huds[len(rec.huds)-1]; h.Health != 0 {
		t.Errorf("HUD health = %d, want 0", h.Health)
	}
	s, ok := c.Summary()
	if !ok || s.Victory || s.RunID != "run-1" {
		t.Errorf("Summary = %+v", s)
	}
	if c.Profile().Achievements.Runs != 1 {
		t.Errorf("Run not counted")
	}
}

func TestVictoryUnlocksNextLevel(t *testing.T) {
	c, rec := newTestController(t, noSpawns)
	rs := startRunning(t, c)
	rs.Boss = object.NewBoss("Test", rs.Bounds, 60, 40, 100, 120, 110, time.Second)
	rs.Boss.Health = 0

	c.Step(16*time.Millisecond, Command{})
	if c.Status() != StatusEnded || c.Outcome() != OutcomeVictory {
		t.Fatalf("Status = %v outcome = %v", c.Status(), c.Outcome())
	}

	profile := c.Profile()
	if profile.Currency != rs.Tuning.BossReward {
		t.Errorf("Currency = %d, want %d", profile.Currency, rs.Tuning.BossReward)
	}
	if !profile.IsUnlocked("venus") {
		t.Errorf("Next level not unlocked")
	}
	if len(profile.Facts) != 1 || profile.Achievements.Victories != 1 {
		t.Errorf("Facts = %v, achievements = %+v", profile.Facts, profile.Achievements)
	}
	last := rec.transitions[len(rec.transitions)-1]
	if last.To != StatusEnded || last.Summary == nil || !last.Summary.Victory || last.Line == "" {
		t.Errorf("Ended transition = %+v", last)
	}
	if saved := rec.saves[len(rec.saves)-1]; saved.Currency != profile.Currency {
		t.Errorf("Last save currency = %d", saved.Currency)
	}

	// The ended run can be replaced by a new one.
	if err := c.Start("venus"); err != nil {
		t.Errorf("Restart on the unlocked level: %v", err)
	}
}

func TestCurrencyChangeSaves(t *testing.T) {
	c, rec := newTestController(t, noSpawns)
	rs := startRunning(t, c)
	saves := len(rec.saves)

	e := object.NewHoverEnemy(400, 16, 1, 0, time.Hour, time.Hour)
	e.Y = 200
	rs.Enemies = append(rs.Enemies, e)
	rs.Bullets = append(rs.Bullets, object.NewBullet(400, 200, 400, 0, 0, 4, 10, time.Second))

	c.Step(time.Millisecond, Command{})
	if len(rec.saves) != saves+1 {
		t.Fatalf("Saves = %d, want %d", len(rec.saves), saves+1)
	}
	if got := rec.saves[len(rec.saves)-1].Currency; got != rs.Tuning.EnemyKillReward {
		t.Errorf("Saved currency = %d", got)
	}
}

func TestPeriodicSave(t *testing.T) {
	c, rec := newTestController(t, noSpawns)
	startRunning(t, c)
	saves := len(rec.saves)

	for i := 0; i < 100; i++ {
		c.Step(50*time.Millisecond, Command{})
	}
	if got := len(rec.saves) - saves; got != 1 {
		t.Errorf("Periodic saves in 5s = %d, want 1", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := FormatElapsed(754 * time.Second); got != "12:34" {
		t.Errorf("FormatElapsed = %q", got)
	}
	if got := FormatElapsed(-time.Second); got != "00:00" {
		t.Errorf("FormatElapsed(negative) = %q", got)
	}
}

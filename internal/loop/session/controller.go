package session

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/object"
	"github.com/tomz197/starfall/internal/progression"
)

// Status is the state of the run state machine.
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusPaused
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// PauseReason tells why a run is paused.
type PauseReason int

const (
	PauseNone PauseReason = iota
	PauseManual
	PauseDialogue
)

// Outcome is how an ended run finished.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeDefeat:
		return "defeat"
	default:
		return "none"
	}
}

// Options configures a Controller. Nil collaborators are ignored.
type Options struct {
	Tuning   config.Tuning
	HUD      HUD
	Screens  Screens
	Progress ProgressSink
	Logger   *log.Logger
	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed uint64
	// NewID generates run IDs. Defaults to random UUIDs.
	NewID func() string
}

// Controller drives the run lifecycle:
//
//	NotStarted -> Running <-> Paused -> Ended(Victory|Defeat)
//
// Ended runs can be restarted with Start.
type Controller struct {
	opts    Options
	logger  *log.Logger
	spawner *Spawner

	profileName string
	profile     progression.State

	run      *RunState
	status   Status
	pause    PauseReason
	outcome  Outcome
	dialogue []string
	line     int
	outro    string
	summary  *progression.RunSummary
	lastSave time.Duration
	runs     uint64
}

// NewController creates a controller for profile.
func NewController(profileName string, profile progression.State, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	profile.Normalize()
	logger := opts.Logger.With("profile", profileName)
	return &Controller{
		opts:        opts,
		logger:      logger,
		spawner:     NewSpawner(logger),
		profileName: profileName,
		profile:     profile,
	}
}

func (c *Controller) Status() Status           { return c.status }
func (c *Controller) PauseReason() PauseReason { return c.pause }
func (c *Controller) Outcome() Outcome         { return c.outcome }

// Run returns the current run, or nil before the first Start.
func (c *Controller) Run() *RunState { return c.run }

// Profile returns a copy of the profile.
func (c *Controller) Profile() progression.State { return c.profile.Clone() }

// Summary returns the summary of the last ended run.
func (c *Controller) Summary() (progression.RunSummary, bool) {
	if c.summary == nil {
		return progression.RunSummary{}, false
	}
	return *c.summary, true
}

// Line returns the dialogue line being shown, if any.
func (c *Controller) Line() string {
	switch {
	case c.status == StatusPaused && c.pause == PauseDialogue && c.line < len(c.dialogue):
		return c.dialogue[c.line]
	case c.status == StatusEnded:
		return c.outro
	default:
		return ""
	}
}

// Start begins a new run on level. Transient state is reset and the player is
// seeded from the profile. If the level has intro lines the run starts paused on
// the first one.
func (c *Controller) Start(id config.LevelID) error {
	if c.status == StatusRunning || c.status == StatusPaused {
		return fmt.Errorf("start %s: a run is already in progress", id)
	}
	if err := c.profile.CheckPlayable(id); err != nil {
		return fmt.Errorf("start %s: %w", id, err)
	}
	level, _ := config.LevelByID(id)

	if c.run != nil {
		c.run.releaseAll()
	}
	c.runs++
	rng := rand.New(rand.NewPCG(c.opts.Seed, c.runs))
	c.run = NewRunState(c.opts.NewID(), level, c.opts.Tuning, c.profile.Upgrades, LoadoutFrom(c.profile.Loadout), rng)
	c.outcome = OutcomeNone
	c.summary = nil
	c.outro = ""
	c.lastSave = 0
	c.dialogue = level.Intro
	c.line = 0

	c.logger.Info("Run started", "run", c.run.ID, "level", level.ID, "loadout", c.profile.Loadout)
	c.transition(StatusRunning, PauseNone)
	if len(c.dialogue) > 0 {
		c.transition(StatusPaused, PauseDialogue)
	}
	c.pushHUD()
	return nil
}

// Pause stops the simulation until Resume or Dismiss.
func (c *Controller) Pause() {
	if c.status != StatusRunning {
		return
	}
	c.transition(StatusPaused, PauseManual)
}

// Resume continues a manually paused run. Dialogue must be dismissed instead.
func (c *Controller) Resume() {
	if c.status != StatusPaused || c.pause != PauseManual {
		return
	}
	c.transition(StatusRunning, PauseNone)
}

// TogglePause pauses a running run or resumes a manually paused one.
func (c *Controller) TogglePause() {
	switch c.status {
	case StatusRunning:
		c.Pause()
	case StatusPaused:
		c.Resume()
	}
}

// Dismiss advances the dialogue, resuming after the last line. It also resumes a
// manual pause.
func (c *Controller) Dismiss() {
	if c.status != StatusPaused {
		return
	}
	if c.pause == PauseDialogue {
		c.line++
		if c.line < len(c.dialogue) {
			c.transition(StatusPaused, PauseDialogue)
			return
		}
	}
	c.transition(StatusRunning, PauseNone)
}

// Abandon ends the current run as a defeat.
func (c *Controller) Abandon() {
	if c.status != StatusRunning && c.status != StatusPaused {
		return
	}
	c.end(OutcomeDefeat)
}

// Step advances the run by dt. It does nothing unless the run is Running.
func (c *Controller) Step(dt time.Duration, cmd Command) {
	if c.status != StatusRunning {
		return
	}
	rs := c.run
	dt = ClampDelta(dt, rs.Tuning.MaxFrameDelta)

	rs.Elapsed += dt
	rs.Buffs.Expire(rs.Elapsed)

	Simulate(rs, dt, cmd)
	rs.compact()

	c.spawner.Tick(rs)

	collected := rs.Stats.CurrencyCollected
	Resolve(rs)
	rs.compact()
	if gained := rs.Stats.CurrencyCollected - collected; gained > 0 {
		c.profile.Currency += gained
		c.save()
	}

	switch {
	case rs.Player.Dead():
		c.end(OutcomeDefeat)
	case rs.Boss != nil && rs.Boss.Health <= 0:
		c.end(OutcomeVictory)
	default:
		c.pushHUD()
		if rs.Elapsed-c.lastSave >= rs.Tuning.SaveInterval {
			c.save()
		}
	}
}

// end moves the run to Ended exactly once and commits it into the profile.
func (c *Controller) end(outcome Outcome) {
	if c.status == StatusEnded {
		return
	}
	rs := c.run
	c.outcome = outcome

	if outcome == OutcomeVictory {
		boss := rs.Boss
		rs.burst(boss.X, boss.Y, object.BossBurst)
		rs.award(rs.Tuning.BossReward)
		c.profile.Currency += rs.Tuning.BossReward
		c.outro = fmt.Sprintf("%s has fallen. %s", boss.Name, rs.Level.Fact)
		if next, ok := config.NextLevel(rs.Level.ID); ok && c.profile.Unlock(next.ID) {
			c.outro += fmt.Sprintf(" %s is now open.", next.Name)
		}
		c.profile.CollectFact(rs.Level.Fact)
	} else {
		rs.burst(rs.Player.X, rs.Player.Y, object.ExplosionBurst)
	}

	summary := progression.RunSummary{
		RunID:      rs.ID,
		Profile:    c.profileName,
		Level:      rs.Level.ID,
		Victory:    outcome == OutcomeVictory,
		Elapsed:    rs.Elapsed,
		Collected:  rs.Stats.CurrencyCollected,
		Kills:      rs.Stats.Kills,
		Meteorites: rs.Stats.MeteoritesDestroyed,
		Comets:     rs.Stats.CometsCollected,
		Wave:       rs.Wave,
		EndedAt:    time.Now(),
	}
	c.summary = &summary
	c.profile.ApplyRun(summary)

	c.logger.Info("Run ended", "run", rs.ID, "outcome", outcome, "elapsed", FormatElapsed(rs.Elapsed),
		"collected", summary.Collected, "kills", summary.Kills)

	c.save()
	if c.opts.Progress != nil {
		c.opts.Progress.Record(summary)
	}
	c.pushHUD()
	c.transition(StatusEnded, PauseNone)
}

// Buy purchases an upgrade between runs.
func (c *Controller) Buy(u progression.Upgrade) error {
	if c.status == StatusRunning || c.status == StatusPaused {
		return fmt.Errorf("buy %s: run in progress", u)
	}
	if err := c.profile.Buy(u); err != nil {
		return fmt.Errorf("buy %s: %w", u, err)
	}
	c.save()
	return nil
}

// ToggleModifier adds or removes a run modifier from the loadout between runs.
func (c *Controller) ToggleModifier(m progression.Modifier) error {
	if c.status == StatusRunning || c.status == StatusPaused {
		return fmt.Errorf("toggle %s: run in progress", m)
	}
	if err := c.profile.ToggleModifier(m); err != nil {
		return fmt.Errorf("toggle %s: %w", m, err)
	}
	c.save()
	return nil
}

// Snapshot returns the data a renderer needs for the current frame.
func (c *Controller) Snapshot() Frame {
	f := Frame{
		Status:      c.status,
		PauseReason: c.pause,
		Outcome:     c.outcome,
		Line:        c.Line(),
		Bounds:      object.DefaultBounds(),
	}
	rs := c.run
	if rs == nil {
		return f
	}
	f.RunID = rs.ID
	f.LevelName = rs.Level.Name
	f.Bounds = rs.Bounds
	f.Elapsed = rs.Elapsed
	f.Wave = rs.Wave
	f.Invincible = rs.PlayerInvincible()
	f.Player = rs.Player
	f.Bullets = rs.Bullets
	f.EnemyBullets = rs.EnemyBullets
	f.Enemies = rs.Enemies
	f.Meteorites = rs.Meteorites
	f.Comets = rs.Comets
	f.Particles = rs.Particles
	f.Boss = rs.Boss
	f.Buffs = rs.Buffs
	return f
}

// Cosmetic advances particles only. Renderers call it while the run is ended so
// explosions keep fading on the results screen.
func (c *Controller) Cosmetic(dt time.Duration) {
	if c.run == nil || c.status != StatusEnded {
		return
	}
	rs := c.run
	ctx := rs.updateContext(ClampDelta(dt, rs.Tuning.MaxFrameDelta))
	for _, p := range rs.Particles {
		p.Update(ctx)
	}
	rs.Particles = object.Compact(rs.Particles)
}

func (c *Controller) save() {
	if c.run != nil {
		c.lastSave = c.run.Elapsed
	}
	if c.opts.Progress != nil {
		c.opts.Progress.Save(c.profile)
	}
}

func (c *Controller) pushHUD() {
	if c.opts.HUD == nil || c.run == nil {
		return
	}
	c.opts.HUD.UpdateHUD(hudState(c.run, c.profile.Currency))
}

func (c *Controller) transition(to Status, reason PauseReason) {
	from := c.status
	c.status = to
	c.pause = reason
	if c.opts.Screens == nil {
		return
	}
	t := Transition{
		From:        from,
		To:          to,
		PauseReason: reason,
		Line:        c.Line(),
		Outcome:     c.outcome,
	}
	if to == StatusEnded {
		t.Summary = c.summary
	}
	c.opts.Screens.OnTransition(t)
}

package session

import (
	"fmt"
	"time"

	"github.com/tomz197/starfall/internal/object"
	"github.com/tomz197/starfall/internal/progression"
)

// HUD receives the heads-up display values once per tick.
type HUD interface {
	UpdateHUD(HUDState)
}

// Screens is notified on every state machine transition so it can show or hide
// overlays (pause, dialogue, results).
type Screens interface {
	OnTransition(Transition)
}

// ProgressSink persists the profile. Calls must not block the tick.
type ProgressSink interface {
	Save(progression.State)
	Record(progression.RunSummary)
}

// BuffStatus is one active buff as shown on the HUD.
type BuffStatus struct {
	Name      string
	Kind      object.BuffKind
	Color     object.Color
	Remaining time.Duration // 0 for buffs consumed on use
}

// HUDState is what the HUD shows.
type HUDState struct {
	Health             int
	MaxHealth          int
	Elapsed            string
	Currency           int
	Wave               int
	Invincible         bool
	BossActive         bool
	BossName           string
	BossHealthFraction float64
	Buffs              []BuffStatus
}

// Transition describes a change of the controller's state.
type Transition struct {
	From, To    Status
	PauseReason PauseReason
	Line        string // dialogue line while paused for dialogue, outro when ended
	Outcome     Outcome
	Summary     *progression.RunSummary
}

// FormatElapsed renders a duration as mm:ss.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// hudState builds the HUD values from the run and the profile's currency.
func hudState(rs *RunState, currency int) HUDState {
	h := HUDState{
		Health:     object.DisplayHealth(rs.Player.Health),
		MaxHealth:  object.DisplayHealth(rs.Player.MaxHealth),
		Elapsed:    FormatElapsed(rs.Elapsed),
		Currency:   currency,
		Wave:       rs.Wave,
		Invincible: rs.PlayerInvincible(),
	}
	if rs.Boss != nil {
		h.BossActive = true
		h.BossName = rs.Boss.Name
		h.BossHealthFraction = rs.Boss.HealthFraction()
	}
	for _, b := range rs.Buffs {
		h.Buffs = append(h.Buffs, BuffStatus{
			Name:      b.Name,
			Kind:      b.Kind,
			Color:     b.Color,
			Remaining: b.Remaining(rs.Elapsed),
		})
	}
	return h
}

// Frame is the per-frame snapshot handed to renderers. Entity slices alias the run
// state and are valid until the next Step.
type Frame struct {
	RunID       string
	LevelName   string
	Status      Status
	PauseReason PauseReason
	Outcome     Outcome
	Line        string

	Bounds     object.Bounds
	Elapsed    time.Duration
	Wave       int
	Invincible bool

	Player       *object.Player
	Bullets      []*object.Bullet
	EnemyBullets []*object.EnemyBullet
	Enemies      []*object.Enemy
	Meteorites   []*object.Meteorite
	Comets       []*object.Comet
	Particles    []*object.Particle
	Boss         *object.Boss
	Buffs        object.Buffs
}

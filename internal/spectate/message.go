package spectate

import (
	"math"

	"github.com/tomz197/starfall/internal/loop/session"
	"github.com/tomz197/starfall/internal/object"
)

// Shape is one round entity, in logical play-area units.
type Shape struct {
	X     int          `json:"x"`
	Y     int          `json:"y"`
	R     int          `json:"r"`
	Color object.Color `json:"c"`
}

// BossView is the boss rectangle and its health.
type BossView struct {
	Name   string  `json:"name"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	HalfW  int     `json:"hw"`
	HalfH  int     `json:"hh"`
	Health float64 `json:"health"`
}

// FrameMessage is a single simulated frame as sent to viewers.
type FrameMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Level   string `json:"level"`
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
	Line    string `json:"line,omitempty"`
	Elapsed string `json:"elapsed"`
	Wave    int    `json:"wave"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`

	Health    int    `json:"health"`
	MaxHealth int    `json:"maxHealth"`
	Player    *Shape `json:"player,omitempty"`
	Shielded  bool   `json:"shielded,omitempty"`

	Enemies    []Shape   `json:"enemies"`
	Meteorites []Shape   `json:"meteorites"`
	Comets     []Shape   `json:"comets"`
	Bullets    []Shape   `json:"bullets"`
	Shots      []Shape   `json:"shots"`
	Particles  []Shape   `json:"particles"`
	Boss       *BossView `json:"boss,omitempty"`
}

// GameInfo describes a live game in the roster.
type GameInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Level   string `json:"level"`
	Elapsed string `json:"elapsed"`
}

// RosterMessage lists the live games.
type RosterMessage struct {
	Type  string     `json:"type"`
	Games []GameInfo `json:"games"`
}

// watchRequest is the only message viewers send. An empty ID follows whichever
// game is live.
type watchRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func round(v float64) int { return int(math.Round(v)) }

func shape(x, y, r float64, c object.Color) Shape {
	return Shape{X: round(x), Y: round(y), R: max(round(r), 1), Color: c}
}

// NewFrameMessage copies what viewers need out of f. Frames alias the live run
// state, so this has to happen on the goroutine that steps the run.
func NewFrameMessage(id, name string, f session.Frame) FrameMessage {
	m := FrameMessage{
		Type:    "frame",
		ID:      id,
		Name:    name,
		Level:   f.LevelName,
		Status:  f.Status.String(),
		Line:    f.Line,
		Elapsed: session.FormatElapsed(f.Elapsed),
		Wave:    f.Wave,
		Width:   round(f.Bounds.Width),
		Height:  round(f.Bounds.Height),

		Shielded: f.Invincible,

		Enemies:    make([]Shape, 0, len(f.Enemies)),
		Meteorites: make([]Shape, 0, len(f.Meteorites)),
		Comets:     make([]Shape, 0, len(f.Comets)),
		Bullets:    make([]Shape, 0, len(f.Bullets)),
		Shots:      make([]Shape, 0, len(f.EnemyBullets)),
		Particles:  make([]Shape, 0, len(f.Particles)),
	}
	if f.Outcome != session.OutcomeNone {
		m.Outcome = f.Outcome.String()
	}

	if p := f.Player; p != nil {
		m.Health = object.DisplayHealth(p.Health)
		m.MaxHealth = object.DisplayHealth(p.MaxHealth)
		if !p.Dead() {
			s := shape(p.X, p.Y, p.Radius, object.ColorCyan)
			m.Player = &s
		}
	}

	for _, e := range f.Enemies {
		c := object.ColorRed
		if e.Formation != nil {
			c = object.ColorOrange
		}
		m.Enemies = append(m.Enemies, shape(e.X, e.Y, e.Radius, c))
	}
	for _, mt := range f.Meteorites {
		m.Meteorites = append(m.Meteorites, shape(mt.X, mt.Y, mt.Radius, object.ColorBrown))
	}
	for _, c := range f.Comets {
		m.Comets = append(m.Comets, shape(c.X, c.Y, c.Radius, c.Buff.Color))
	}
	for _, b := range f.Bullets {
		m.Bullets = append(m.Bullets, shape(b.X, b.Y, b.Radius, object.ColorYellow))
	}
	for _, b := range f.EnemyBullets {
		c := object.ColorRed
		switch b.Kind {
		case object.ShotStraight:
			c = object.ColorOrange
		case object.ShotBossOrb:
			c = object.ColorMagenta
		}
		m.Shots = append(m.Shots, shape(b.X, b.Y, b.Radius, c))
	}
	for _, p := range f.Particles {
		if p.Alpha() <= 0.1 {
			continue
		}
		m.Particles = append(m.Particles, shape(p.X, p.Y, p.Radius*p.Alpha(), p.Color))
	}

	if b := f.Boss; b != nil {
		m.Boss = &BossView{
			Name:   b.Name,
			X:      round(b.X),
			Y:      round(b.Y),
			HalfW:  round(b.HalfW),
			HalfH:  round(b.HalfH),
			Health: math.Round(b.HealthFraction()*100) / 100,
		}
	}
	return m
}

package client

import (
	"bytes"
	"time"

	"github.com/tomz197/starfall/internal/input"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/loop/session"
)

// screen is the menu or game view a client is on.
type screen int

const (
	screenTitle    screen = iota // Level select
	screenShop                   // Permanent upgrades
	screenLoadout                // Run modifiers
	screenGame                   // Running, paused or results
	screenShutdown               // Server is shutting down
)

// clientState holds the per-terminal UI state around the run controller.
type clientState struct {
	screen     screen
	prevScreen screen
	in, prev   input.Input
	delta      time.Duration
	running    bool

	lastInput   time.Time
	inactive    bool
	wasInactive bool

	shutdownTimer time.Duration
	redraw        bool

	selected  int // level index on the title screen
	lastLevel config.LevelID
	message   string // feedback from the last menu action

	hud     session.HUDState
	results session.Transition
}

func newClientState() *clientState {
	return &clientState{
		screen:     screenTitle,
		prevScreen: screenTitle,
		running:    true,
		lastInput:  time.Now(),
		lastLevel:  config.FirstLevel,
		in:         input.Input{Number: -1},
		prev:       input.Input{Number: -1},
	}
}

// edges are the actions triggered this frame. Held keys only fire once until
// they are released.
type edges struct {
	up, down, enter, escape, pause, fire bool
	restart, shop, loadout, back         bool
	number                               int
}

func (s *clientState) edges() edges {
	in, prev := s.in, s.prev
	e := edges{
		up:      in.Up && !prev.Up,
		down:    in.Down && !prev.Down,
		enter:   in.Enter && !prev.Enter,
		escape:  in.Escape && !prev.Escape,
		pause:   in.Pause && !prev.Pause,
		fire:    in.Fire && !prev.Fire,
		back:    in.Backspace && !prev.Backspace,
		restart: bytes.ContainsAny(in.Pressed, "rR"),
		shop:    bytes.ContainsAny(in.Pressed, "uU"),
		loadout: bytes.ContainsAny(in.Pressed, "cC"),
		number:  -1,
	}
	if in.Number >= 0 && in.Number != prev.Number {
		e.number = in.Number
	}
	return e
}

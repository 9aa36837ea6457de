package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/loop/session"
	"github.com/tomz197/starfall/internal/progression"
)

// titleArt is figlet "small".
var titleArt = []string{
	` ___ _____ _   ___ ___ _   _    _    `,
	`/ __|_   _/_\ | _ \ __/_\ | |  | |   `,
	`\__ \ | |/ _ \|   / _/ _ \| |__| |__ `,
	`|___/ |_/_/ \_\_|_\_/_/ \_\____|____|`,
}

func (c *Client) updateTitle() {
	s := c.state
	e := s.edges()
	switch {
	case e.up:
		s.selected = (s.selected + len(config.Levels) - 1) % len(config.Levels)
	case e.down:
		s.selected = (s.selected + 1) % len(config.Levels)
	case e.number >= 1 && e.number <= len(config.Levels):
		s.selected = e.number - 1
		c.startRun(config.Levels[s.selected].ID)
	case e.enter || e.fire:
		c.startRun(config.Levels[s.selected].ID)
	case e.shop:
		s.message = ""
		s.screen = screenShop
	case e.loadout:
		s.message = ""
		s.screen = screenLoadout
	}
}

func (c *Client) updateShop() {
	s := c.state
	e := s.edges()
	switch {
	case e.escape || e.back || e.enter:
		s.message = ""
		s.screen = screenTitle
	case e.number >= 1 && e.number <= len(progression.Upgrades):
		u := progression.Upgrades[e.number-1]
		if err := c.ctrl.Buy(u); err != nil {
			s.message = shopError(err)
			return
		}
		s.message = fmt.Sprintf("%s upgraded to level %d", u.Label(), c.ctrl.Profile().Level(u))
	}
}

func (c *Client) updateLoadout() {
	s := c.state
	e := s.edges()
	switch {
	case e.escape || e.back || e.enter:
		s.message = ""
		s.screen = screenTitle
	case e.number >= 1 && e.number <= len(progression.Modifiers):
		m := progression.Modifiers[e.number-1]
		if err := c.ctrl.ToggleModifier(m); err != nil {
			s.message = shopError(err)
			return
		}
		s.message = ""
	}
}

// shopError turns a purchase error into a line for the player.
func shopError(err error) string {
	switch {
	case errors.Is(err, progression.ErrInsufficientFunds):
		return "Not enough credits"
	case errors.Is(err, progression.ErrMaxLevel):
		return "Already at max level"
	case errors.Is(err, progression.ErrTooManyModifiers):
		return fmt.Sprintf("At most %d modifiers per run", progression.MaxModifiers)
	default:
		return err.Error()
	}
}

// blinkOn toggles every 600ms for prompts.
func blinkOn() bool {
	return time.Now().UnixMilli()/600%2 == 0
}

func (c *Client) drawTitle() {
	w, h := c.canvas.TerminalWidth(), c.canvas.TerminalHeight()
	profile := c.ctrl.Profile()

	row := max(h/2-10, 1)
	for i, line := range titleArt {
		c.text(w, row+i, line)
	}
	row += len(titleArt) + 1
	c.text(w, row, fmt.Sprintf("Commander %s  ·  %d credits", c.opts.Name, profile.Currency))
	row += 2

	for i, l := range config.Levels {
		marker := "  "
		if i == c.state.selected {
			marker = "> "
		}
		status := "locked"
		if profile.IsUnlocked(l.ID) {
			status = fmt.Sprintf("x%.1f", l.BaseDifficulty)
		}
		c.text(w, row+i, fmt.Sprintf("%s%d. %-8s %-7s", marker, i+1, l.Name, status))
	}
	row += len(config.Levels) + 1

	if c.state.message != "" {
		c.text(w, row, c.state.message)
	}
	row++

	controls := []string{
		"WASD / arrows . Move    SPACE / mouse . Fire",
		"P . Pause    U . Upgrades    C . Loadout    Q . Quit",
	}
	for i, line := range controls {
		c.text(w, row+i, line)
	}
	row += len(controls) + 1
	if blinkOn() {
		c.text(w, row, ">>  Press ENTER to launch  <<")
	}

	a := profile.Achievements
	if a.Runs > 0 {
		best := "--:--"
		if a.BestTime > 0 {
			best = session.FormatElapsed(a.BestTime)
		}
		c.text(w, h, fmt.Sprintf("Runs %d  Victories %d  Kills %d  Best %s  Facts %d",
			a.Runs, a.Victories, a.Kills, best, len(profile.Facts)))
	}
}

func (c *Client) drawShop() {
	w, h := c.canvas.TerminalWidth(), c.canvas.TerminalHeight()
	profile := c.ctrl.Profile()

	row := max(h/2-6, 1)
	c.text(w, row, "UPGRADES")
	c.text(w, row+1, fmt.Sprintf("%d credits", profile.Currency))
	row += 3
	for i, u := range progression.Upgrades {
		lvl := profile.Level(u)
		cost := fmt.Sprintf("%4d", progression.UpgradeCost(lvl))
		if lvl >= progression.MaxUpgradeLevel {
			cost = " max"
		}
		c.text(w, row+i, fmt.Sprintf("%d. %-13s lvl %2d/%d  %s", i+1, u.Label(), lvl, progression.MaxUpgradeLevel, cost))
	}
	row += len(progression.Upgrades) + 1
	if c.state.message != "" {
		c.text(w, row, c.state.message)
	}
	c.text(w, row+2, "1-4 . Buy    ESC . Back")
}

func (c *Client) drawLoadout() {
	w, h := c.canvas.TerminalWidth(), c.canvas.TerminalHeight()
	profile := c.ctrl.Profile()

	row := max(h/2-6, 1)
	c.text(w, row, "LOADOUT")
	c.text(w, row+1, fmt.Sprintf("%d of %d selected", len(profile.Loadout), progression.MaxModifiers))
	row += 3
	for i, m := range progression.Modifiers {
		box := "[ ]"
		if profile.HasModifier(m) {
			box = "[x]"
		}
		c.text(w, row+i, fmt.Sprintf("%d. %s %-12s %s", i+1, box, m.Label(), modifierHint(m)))
	}
	row += len(progression.Modifiers) + 1
	if c.state.message != "" {
		c.text(w, row, c.state.message)
	}
	c.text(w, row+2, "1-3 . Toggle    ESC . Back")
}

func modifierHint(m progression.Modifier) string {
	switch m {
	case progression.ModOvercharge:
		return "chance of double damage shots"
	case progression.ModRapidFire:
		return "shorter fire cooldown"
	case progression.ModAutoRepair:
		return "slow hull regeneration"
	default:
		return ""
	}
}

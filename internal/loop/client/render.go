package client

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomz197/starfall/internal/draw"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/loop/session"
	"github.com/tomz197/starfall/internal/object"
)

// meteoriteShape gives meteorites a rough outline. Each entry scales the radius of
// one vertex.
var meteoriteShape = [...]float64{1, 0.82, 0.95, 0.78, 1, 0.88, 0.8, 0.96, 0.85}

// drawFrame draws the current frame.
func (c *Client) drawFrame() error {
	s := c.state
	// A screen change or transition clears the terminal so overlays from the
	// previous view don't persist.
	if s.screen != s.prevScreen || s.inactive != s.wasInactive || s.redraw {
		draw.ClearScreen(c.cw)
		c.canvas.Invalidate()
		s.prevScreen = s.screen
		s.wasInactive = s.inactive
		s.redraw = false
	}

	c.canvas.Clear()
	var f session.Frame
	if s.screen == screenGame {
		f = c.ctrl.Snapshot()
		c.drawWorld(f)
	}
	c.canvas.Render(c.cw)

	w, h := c.canvas.TerminalWidth(), c.canvas.TerminalHeight()
	switch {
	case s.screen == screenShutdown:
		c.drawShutdown(w, h)
	case s.inactive:
		c.drawInactivity(w, h)
	case s.screen == screenTitle:
		c.drawTitle()
	case s.screen == screenShop:
		c.drawShop()
	case s.screen == screenLoadout:
		c.drawLoadout()
	case s.screen == screenGame:
		c.drawHUD()
		c.drawOverlay(f, w, h)
	}

	return c.cw.Flush()
}

// text writes a line centered on a canvas row and marks it for repaint.
func (c *Client) text(width, row int, s string) {
	n := len([]rune(s))
	col := max((width-n)/2+1, 1)
	c.cw.WriteAt(col, row, s)
	c.canvas.MarkTextDirty(col, row, n)
}

func toColor(col object.Color) draw.Color {
	return draw.Color(col)
}

// drawWorld draws every entity of the frame onto the canvas.
func (c *Client) drawWorld(f session.Frame) {
	cv := c.canvas

	for _, p := range f.Particles {
		if p.Alpha() <= 0.1 {
			continue
		}
		cv.FillCircle(p.X, p.Y, p.Radius*p.Alpha(), toColor(p.Color))
	}

	for _, m := range f.Meteorites {
		pts := cv.BorrowPoints(len(meteoriteShape))
		for i, k := range meteoriteShape {
			a := m.Rotation + 2*math.Pi*float64(i)/float64(len(meteoriteShape))
			pts[i] = draw.Point{X: m.X + math.Cos(a)*m.Radius*k, Y: m.Y + math.Sin(a)*m.Radius*k}
		}
		color := object.ColorBrown
		if m.Health < m.MaxHealth/2 {
			color = object.ColorOrange
		}
		cv.DrawPolygon(pts, toColor(color), true)
	}

	for _, cm := range f.Comets {
		speed := math.Hypot(cm.VX, cm.VY)
		if speed > 0 {
			tail := 4 * cm.Radius
			cv.DrawLine(draw.Point{X: cm.X, Y: cm.Y},
				draw.Point{X: cm.X - cm.VX/speed*tail, Y: cm.Y - cm.VY/speed*tail}, toColor(object.ColorWhite))
		}
		cv.FillCircle(cm.X, cm.Y, cm.Radius, toColor(cm.Buff.Color))
	}

	for _, e := range f.Enemies {
		color := object.ColorRed
		if e.Formation != nil {
			color = object.ColorOrange
		}
		r := e.Radius
		pts := cv.BorrowPoints(4)
		pts[0] = draw.Point{X: e.X, Y: e.Y + r}
		pts[1] = draw.Point{X: e.X - r, Y: e.Y - r/2}
		pts[2] = draw.Point{X: e.X, Y: e.Y - r/3}
		pts[3] = draw.Point{X: e.X + r, Y: e.Y - r/2}
		cv.DrawPolygon(pts, toColor(color), true)
	}

	if b := f.Boss; b != nil {
		cv.FillRect(b.X, b.Y, b.HalfW, b.HalfH, toColor(object.ColorMagenta))
		cv.FillRect(b.X, b.Y+b.HalfH*0.4, b.HalfW*0.5, b.HalfH*0.25, toColor(object.ColorRed))
	}

	for _, b := range f.Bullets {
		cv.FillCircle(b.X, b.Y, b.Radius, toColor(object.ColorYellow))
	}
	for _, b := range f.EnemyBullets {
		color := object.ColorRed
		switch b.Kind {
		case object.ShotStraight:
			color = object.ColorOrange
		case object.ShotBossOrb:
			color = object.ColorMagenta
		}
		cv.FillCircle(b.X, b.Y, b.Radius, toColor(color))
	}

	if p := f.Player; p != nil && !p.Dead() && visible(f) {
		r := p.Radius
		pts := cv.BorrowPoints(4)
		pts[0] = draw.Point{X: p.X, Y: p.Y - r}
		pts[1] = draw.Point{X: p.X + r, Y: p.Y + r}
		pts[2] = draw.Point{X: p.X, Y: p.Y + r/2}
		pts[3] = draw.Point{X: p.X - r, Y: p.Y + r}
		color := object.ColorCyan
		if f.Buffs.Has(object.BuffInvincible) {
			color = object.ColorWhite
		}
		cv.DrawPolygon(pts, toColor(color), true)
	}
}

// visible blinks the player during the post-hit grace window.
func visible(f session.Frame) bool {
	if f.Player.Grace <= 0 {
		return true
	}
	return int(f.Elapsed.Seconds()*config.PlayerBlinkFrequency*2)%2 == 0
}

// drawHUD writes the two status rows above the play area. Rows are padded to the
// terminal width so shorter values overwrite longer ones.
func (c *Client) drawHUD() {
	h := c.state.hud
	line := fmt.Sprintf(" HULL %3d/%-3d  %s  %s  CREDITS %-6d  WAVE %-3d",
		h.Health, h.MaxHealth, healthBar(h.Health, h.MaxHealth, 10), h.Elapsed, h.Currency, h.Wave)
	if h.Invincible {
		line += "  SHIELDED"
	}
	c.hudLine(1, line)

	var second strings.Builder
	if h.BossActive {
		fmt.Fprintf(&second, " %s %s ", strings.ToUpper(h.BossName), bar(h.BossHealthFraction, 30))
	}
	for _, b := range h.Buffs {
		if b.Remaining > 0 {
			fmt.Fprintf(&second, " [%s %ds]", b.Name, int(math.Ceil(b.Remaining.Seconds())))
		} else {
			fmt.Fprintf(&second, " [%s]", b.Name)
		}
	}
	c.hudLine(2, second.String())
}

func (c *Client) hudLine(row int, s string) {
	width := max(c.termWidth, 1)
	if n := len([]rune(s)); n < width {
		s += strings.Repeat(" ", width-n)
	} else {
		s = string([]rune(s)[:width])
	}
	c.cw.MoveCursor(1, row)
	c.cw.WriteString(s)
}

func healthBar(health, maxHealth, width int) string {
	if maxHealth <= 0 {
		return bar(0, width)
	}
	return bar(float64(health)/float64(maxHealth), width)
}

func bar(frac float64, width int) string {
	frac = math.Max(0, math.Min(1, frac))
	filled := int(math.Round(frac * float64(width)))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("·", width-filled) + "]"
}

// drawOverlay shows the dialogue, pause and results boxes over the play area.
func (c *Client) drawOverlay(f session.Frame, w, h int) {
	mid := h / 2
	switch {
	case f.Status == session.StatusPaused && f.PauseReason == session.PauseDialogue:
		c.textBox(w, h-5, []string{f.Line, "", "ENTER . continue"})
	case f.Status == session.StatusPaused:
		c.textBox(w, mid-2, []string{"PAUSED", "", "P / ENTER . resume    ESC . abandon run"})
	case f.Status == session.StatusEnded:
		c.drawResults(w, mid)
	}
}

func (c *Client) drawResults(w, mid int) {
	t := c.state.results
	title := "SHIP DESTROYED"
	if t.Outcome == session.OutcomeVictory {
		title = "VICTORY"
	}
	lines := []string{title, ""}
	if sum := t.Summary; sum != nil {
		lines = append(lines,
			fmt.Sprintf("Time %s   Wave %d", session.FormatElapsed(sum.Elapsed), sum.Wave),
			fmt.Sprintf("Credits +%d   Kills %d   Meteorites %d   Comets %d",
				sum.Collected, sum.Kills, sum.Meteorites, sum.Comets),
		)
	}
	if t.Line != "" {
		lines = append(lines, "", t.Line)
	}
	lines = append(lines, "")
	if blinkOn() {
		lines = append(lines, "ENTER . menu    R . retry")
	} else {
		lines = append(lines, "")
	}
	c.textBox(w, mid-len(lines)/2, lines)
}

// textBox draws centered lines inside a frame.
func (c *Client) textBox(w, row int, lines []string) {
	inner := 0
	for _, l := range lines {
		inner = max(inner, len([]rune(l)))
	}
	inner = min(inner+4, max(w-2, 1))
	c.text(w, row, "┌"+strings.Repeat("─", inner)+"┐")
	for i, l := range lines {
		runes := []rune(l)
		if len(runes) > inner {
			runes = runes[:inner]
		}
		pad := inner - len(runes)
		c.text(w, row+1+i, "│"+strings.Repeat(" ", pad/2)+string(runes)+strings.Repeat(" ", pad-pad/2)+"│")
	}
	c.text(w, row+1+len(lines), "└"+strings.Repeat("─", inner)+"┘")
}

func (c *Client) drawInactivity(w, h int) {
	left := config.InactivityDisconnectUser - time.Since(c.state.lastInput)
	c.textBox(w, h/2-3, []string{
		"INACTIVITY WARNING",
		"",
		fmt.Sprintf("You will be disconnected in %d seconds.", int(left.Seconds())),
		"Press any key to continue",
	})
}

func (c *Client) drawShutdown(w, h int) {
	remaining := int(c.state.shutdownTimer.Seconds()) + 1
	c.textBox(w, h/2-4, []string{
		"SERVER SHUTTING DOWN",
		"",
		"Your progress has been saved.",
		"Please reconnect in a moment.",
		"",
		fmt.Sprintf("Disconnecting in %d seconds...", remaining),
		"Press Q to disconnect now",
	})
}

package client

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/starfall/internal/draw"
	"github.com/tomz197/starfall/internal/input"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/loop/session"
	"github.com/tomz197/starfall/internal/progression"
)

// hudRows are the terminal rows above the play area reserved for the HUD.
const hudRows = 2

// shutdownDisplay is how long the shutdown notice stays up before disconnecting.
const shutdownDisplay = 5 * time.Second

// FrameSink receives the snapshot of every simulated frame, e.g. to stream it to
// spectators. Publish is called on the client goroutine and must not block.
type FrameSink interface {
	Publish(id, name string, f session.Frame)
	Drop(id string)
}

// Options configures a client.
type Options struct {
	// ID identifies the client to the frame sink.
	ID string
	// Name is the profile shown on screen and used as the persistence key.
	Name    string
	Profile progression.State

	Progress     session.ProgressSink
	Frames       FrameSink
	Tuning       config.Tuning
	Seed         uint64
	FrameTime    time.Duration
	TermSizeFunc draw.TermSizeFunc
	Logger       *log.Logger
}

// Client runs the menus and the game for a single terminal.
type Client struct {
	opts   Options
	ctrl   *session.Controller
	logger *log.Logger

	canvas       *draw.Canvas
	cw           *draw.ChunkWriter
	writer       io.Writer
	inputStream  *input.Stream
	termSizeFunc draw.TermSizeFunc
	termWidth    int
	termHeight   int

	state *clientState
}

// New creates a client reading keys from r and drawing to w.
func New(r *bufio.Reader, w io.Writer, opts Options) *Client {
	if opts.TermSizeFunc == nil {
		opts.TermSizeFunc = draw.DefaultTermSizeFunc
	}
	if opts.FrameTime <= 0 {
		opts.FrameTime = config.ClientTargetFrameTime
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Tuning == (config.Tuning{}) {
		opts.Tuning = config.Default()
	}

	c := &Client{
		opts:         opts,
		logger:       opts.Logger.With("client", opts.Name),
		writer:       w,
		termSizeFunc: opts.TermSizeFunc,
		state:        newClientState(),
	}
	if r != nil {
		c.inputStream = input.StartStream(r)
	}
	c.ctrl = session.NewController(opts.Name, opts.Profile, session.Options{
		Tuning:   opts.Tuning,
		HUD:      c,
		Screens:  c,
		Progress: opts.Progress,
		Logger:   opts.Logger,
		Seed:     opts.Seed,
	})

	c.termWidth, c.termHeight, _ = c.termSizeFunc()
	vp := c.viewport()
	c.canvas = draw.NewScaledCanvas(vp.Width, vp.Height, config.PlayWidth, config.PlayHeight)
	c.canvas.SetOffset(vp.OffsetCol, vp.OffsetRow)
	c.cw = draw.NewChunkWriter(w, vp.OffsetCol, vp.OffsetRow)
	return c
}

// Controller exposes the run controller.
func (c *Client) Controller() *session.Controller { return c.ctrl }

// UpdateHUD implements session.HUD.
func (c *Client) UpdateHUD(h session.HUDState) {
	c.state.hud = h
}

// OnTransition implements session.Screens.
func (c *Client) OnTransition(t session.Transition) {
	c.state.redraw = true
	if t.To == session.StatusEnded {
		c.state.results = t
	}
}

// Run starts the frame loop. It blocks until the player quits, the input closes, or
// ctx is cancelled and the shutdown notice has been shown.
func (c *Client) Run(ctx context.Context) error {
	draw.HideCursor(c.writer)
	input.EnableMouse(c.writer)
	defer func() {
		input.DisableMouse(c.writer)
		draw.ShowCursor(c.writer)
	}()
	defer c.finish()
	draw.ClearScreen(c.writer)

	lastTime := time.Now()
	for c.state.running {
		frameStart := time.Now()
		c.state.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		if ctx.Err() != nil && c.state.screen != screenShutdown {
			c.beginShutdown()
		}

		c.processInput()
		c.updateScreen()
		c.update()

		if err := c.drawFrame(); err != nil {
			return err
		}
		c.publish()

		if elapsed := time.Since(frameStart); elapsed < c.opts.FrameTime {
			time.Sleep(c.opts.FrameTime - elapsed)
		}
	}

	draw.ClearScreen(c.writer)
	return nil
}

// finish commits an unfinished run and leaves the spectator feed.
func (c *Client) finish() {
	c.ctrl.Abandon()
	if c.opts.Frames != nil {
		c.opts.Frames.Drop(c.opts.ID)
	}
}

func (c *Client) publish() {
	if c.opts.Frames == nil || c.state.screen != screenGame {
		return
	}
	c.opts.Frames.Publish(c.opts.ID, c.opts.Name, c.ctrl.Snapshot())
}

// processInput samples the keyboard and tracks inactivity.
func (c *Client) processInput() {
	s := c.state
	s.prev = s.in
	if c.inputStream == nil {
		s.in = input.Input{Number: -1}
	} else {
		s.in = input.ReadInput(c.inputStream)
	}

	now := time.Now()
	switch {
	case len(s.in.Pressed) > 0:
		s.lastInput = now
		s.inactive = false
	case now.Sub(s.lastInput) > config.InactivityDisconnectUser:
		c.logger.Info("Disconnecting inactive client")
		s.running = false
	case now.Sub(s.lastInput) > config.InactivityWarnUser:
		if !s.inactive {
			c.ctrl.Pause()
		}
		s.inactive = true
	}

	if s.in.Quit {
		s.running = false
	}
}

func (c *Client) viewport() draw.Viewport {
	return draw.Fit(c.termWidth, c.termHeight, hudRows, config.MaxTermWidth, config.MaxTermHeight+hudRows,
		config.PlayWidth, config.PlayHeight)
}

// updateScreen follows terminal resizes. A change clears the terminal so nothing
// from the old layout stays behind.
func (c *Client) updateScreen() {
	w, h, err := c.termSizeFunc()
	if err != nil {
		return
	}
	if w == c.termWidth && h == c.termHeight {
		return
	}
	c.termWidth, c.termHeight = w, h
	vp := c.viewport()
	c.canvas.Resize(vp.Width, vp.Height)
	c.canvas.SetOffset(vp.OffsetCol, vp.OffsetRow)
	c.cw.SetOffset(vp.OffsetCol, vp.OffsetRow)
	c.state.redraw = true
}

// update advances whatever the current screen is.
func (c *Client) update() {
	s := c.state
	switch s.screen {
	case screenTitle:
		c.updateTitle()
	case screenShop:
		c.updateShop()
	case screenLoadout:
		c.updateLoadout()
	case screenGame:
		c.updateGame()
	case screenShutdown:
		s.shutdownTimer -= s.delta
		if s.shutdownTimer <= 0 {
			s.running = false
		}
	}
}

// startRun begins a run on level and switches to the game screen.
func (c *Client) startRun(id config.LevelID) {
	if err := c.ctrl.Start(id); err != nil {
		c.state.message = err.Error()
		return
	}
	if c.inputStream != nil {
		input.ResetKeyInput(c.inputStream)
	}
	c.state.lastLevel = id
	c.state.message = ""
	c.state.screen = screenGame
}

func (c *Client) updateGame() {
	s := c.state
	e := s.edges()

	switch c.ctrl.Status() {
	case session.StatusRunning:
		if e.pause || e.escape {
			c.ctrl.Pause()
			return
		}
		c.ctrl.Step(s.delta, c.command())

	case session.StatusPaused:
		switch {
		case c.ctrl.PauseReason() == session.PauseDialogue && (e.enter || e.fire):
			c.ctrl.Dismiss()
		case c.ctrl.PauseReason() == session.PauseManual && (e.pause || e.enter):
			if !s.inactive {
				c.ctrl.Resume()
			}
		case c.ctrl.PauseReason() == session.PauseManual && e.escape:
			c.ctrl.Abandon()
		}

	case session.StatusEnded:
		c.ctrl.Cosmetic(s.delta)
		switch {
		case e.enter:
			s.screen = screenTitle
		case e.restart:
			c.startRun(s.lastLevel)
		}
	}
}

// command converts this frame's input into a simulation command. The mouse
// pointer, when the terminal reports one, is the aim point.
func (c *Client) command() session.Command {
	in := c.state.in
	cmd := session.CommandFromInput(in)
	if in.HasPointer {
		if x, y, ok := c.canvas.TerminalToLogical(in.PointerCol, in.PointerRow); ok {
			cmd.HasAim, cmd.AimX, cmd.AimY = true, x, y
		}
	}
	return cmd
}

// beginShutdown ends any run in progress and shows the shutdown notice.
func (c *Client) beginShutdown() {
	c.ctrl.Abandon()
	c.state.screen = screenShutdown
	c.state.shutdownTimer = shutdownDisplay
}

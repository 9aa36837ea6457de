package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/tomz197/starfall/internal/config"
	"github.com/tomz197/starfall/internal/draw"
	"github.com/tomz197/starfall/internal/loop/client"
	"github.com/tomz197/starfall/internal/progression"
	"github.com/tomz197/starfall/internal/spectate"
)

const (
	// drainTimeout is how long players get to see the shutdown notice and leave.
	drainTimeout    = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

// gameServer holds what every SSH session shares.
type gameServer struct {
	cfg    config.Config
	logger *log.Logger
	store  progression.Store
	hub    *spectate.Hub // nil when spectating is disabled

	// ctx is cancelled when the process starts shutting down.
	ctx      context.Context
	active   atomic.Int32
	sessions sync.WaitGroup
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starfall-ssh: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stderr, cfg.Log.Level)
	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", "error", err)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	logger.Info("SSH config", "addr", cfg.SSH.Addr(), "hostKeyPath", cfg.SSH.HostKeyPath,
		"store", cfg.Store.Backend, "maxSessions", cfg.SSH.MaxSessions)

	gameCtx, stopGames := context.WithCancel(context.Background())
	defer stopGames()

	store, err := progression.Open(gameCtx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	gs := &gameServer{cfg: cfg, logger: logger, store: store, ctx: gameCtx}

	var spectateSrv *http.Server
	if cfg.Spectate.Enabled {
		gs.hub = spectate.NewHub(spectate.Options{MaxViewers: cfg.Spectate.MaxViewers, Logger: logger})
		go gs.hub.Run(gameCtx)
		spectateSrv = &http.Server{Addr: cfg.Spectate.Addr, Handler: gs.hub.Handler()}
		go func() {
			logger.Info("Starting spectator feed", "addr", cfg.Spectate.Addr)
			if err := spectateSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Spectator feed stopped", "error", err)
			}
		}()
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.SSH.Addr()),
		wish.WithMiddleware(
			gs.gameMiddleware,
			activeterm.Middleware(),
			logging.MiddlewareWithLogger(logger),
		),
		// Set TCP_NODELAY to reduce latency for game input
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if cfg.SSH.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(cfg.SSH.HostKeyPath))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	logger.Info("Starting SSH server", "addr", cfg.SSH.Addr())
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-serveErr:
		return err
	}
	logger.Info("Shutting down server...", "players", gs.active.Load())

	// Clients show the shutdown notice, save and disconnect on their own.
	stopGames()
	gs.waitSessions(drainTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if spectateSrv != nil {
		if err := spectateSrv.Shutdown(ctx); err != nil {
			logger.Warn("Spectator feed shutdown", "error", err)
		}
	}
	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// waitSessions blocks until every game session ended or the timeout passed.
func (gs *gameServer) waitSessions(timeout time.Duration) {
	finished := make(chan struct{})
	go func() {
		gs.sessions.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		gs.logger.Info("All players disconnected")
	case <-time.After(timeout):
		gs.logger.Warn("Players still connected after timeout", "players", gs.active.Load())
	}
}

// gameMiddleware handles SSH sessions and runs the game client.
func (gs *gameServer) gameMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		pty, winCh, ok := sess.Pty()
		if !ok {
			fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
			return
		}
		if gs.ctx.Err() != nil {
			fmt.Fprintln(sess, "Server is shutting down. Please reconnect in a moment.")
			return
		}
		if limit := gs.cfg.SSH.MaxSessions; limit > 0 && int(gs.active.Load()) >= limit {
			fmt.Fprintln(sess, "Server is full. Please try again later.")
			return
		}

		gs.active.Add(1)
		gs.sessions.Add(1)
		defer func() {
			gs.active.Add(-1)
			gs.sessions.Done()
		}()

		id := uuid.New().String()
		profile := progression.SanitizeProfile(sess.User())
		logger := gs.logger.With("session", id, "profile", profile)
		logger.Info("New game session", "terminal", pty.Term,
			"size", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

		// Create a terminal size tracker that updates on window changes
		sizeTracker := newSizeTracker(pty.Window.Width, pty.Window.Height)
		go func() {
			for win := range winCh {
				sizeTracker.update(win.Width, win.Height)
			}
		}()

		state := progression.LoadOrDefault(sess.Context(), gs.store, profile, logger)
		saver := progression.NewSaver(gs.store, profile, logger)
		defer saver.Close()

		opts := client.Options{
			ID:           id,
			Name:         profile,
			Profile:      state,
			Progress:     saver,
			Tuning:       gs.cfg.Game.Tuning(),
			Seed:         gs.cfg.Game.Seed,
			FrameTime:    gs.cfg.Game.FrameTime(),
			TermSizeFunc: sizeTracker.getSize,
			Logger:       logger,
		}
		if gs.hub != nil {
			opts.Frames = gs.hub
		}

		c := client.New(bufio.NewReader(sess), sess, opts)
		if err := c.Run(gs.ctx); err != nil {
			logger.Warn("Game error", "error", err)
		}

		logger.Info("Session ended")
		next(sess)
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize

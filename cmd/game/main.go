package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tomz197/starfall/internal/config"
	"github.com/tomz197/starfall/internal/loop/client"
	"github.com/tomz197/starfall/internal/progression"
	"golang.org/x/term"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	profileName := pflag.StringP("profile", "p", "", "profile to play (defaults to the current user)")
	logPath := pflag.String("log-file", "starfall.log", "where to write logs while the game owns the terminal")
	pflag.Parse()

	if err := run(*configPath, *profileName, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "starfall: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, profileName, logPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The terminal is the game screen, so logs go to a file.
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := config.NewLogger(logFile, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := progression.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	profile := progression.SanitizeProfile(defaultProfile(profileName))
	state := progression.LoadOrDefault(ctx, store, profile, logger)
	saver := progression.NewSaver(store, profile, logger)
	defer saver.Close()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	logger.Info("Starting local game", "profile", profile, "store", cfg.Store.Backend)
	c := client.New(bufio.NewReader(os.Stdin), os.Stdout, client.Options{
		ID:        "local",
		Name:      profile,
		Profile:   state,
		Progress:  saver,
		Tuning:    cfg.Game.Tuning(),
		Seed:      cfg.Game.Seed,
		FrameTime: cfg.Game.FrameTime(),
		Logger:    logger,
	})
	if err := c.Run(ctx); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

func defaultProfile(name string) string {
	if name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

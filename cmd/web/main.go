package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/tomz197/starfall/internal/config"
	loopcfg "github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/loop/session"
	"github.com/tomz197/starfall/internal/progression"
)

const (
	leaderboardSize    = 10
	leaderboardTimeout = 2 * time.Second
)

//go:embed index.html
var htmlPage string

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"clock": session.FormatElapsed,
}).Parse(htmlPage))

// leaderboard is implemented by stores that rank level clears.
type leaderboard interface {
	Leaderboard(ctx context.Context, level string, limit int) ([]progression.LeaderboardEntry, error)
}

type site struct {
	cfg    config.Config
	board  leaderboard // nil hides the rankings
	logger *log.Logger
}

type levelBoard struct {
	Level   loopcfg.Level
	Entries []progression.LeaderboardEntry
}

type pageData struct {
	SSHHost     string
	SSHPort     string
	SpectateURL string
	Boards      []levelBoard
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starfall-web: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &site{cfg: cfg, logger: logger}
	if cfg.Store.Backend == "redis" {
		rs, err := progression.NewRedisStore(ctx, cfg.Store.Redis)
		if err != nil {
			logger.Warn("Leaderboard unavailable", "error", err)
		} else {
			defer rs.Close()
			s.board = rs
		}
	}

	srv := &http.Server{
		Addr:              cfg.Web.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting web server", "url", "http://"+cfg.Web.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", "error", err)
	}
}

func (s *site) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/leaderboard/{level}", s.handleLeaderboard)
	return mux
}

func (s *site) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		SSHHost:     s.cfg.Web.DisplayHost,
		SSHPort:     s.cfg.SSH.Port,
		SpectateURL: s.cfg.Web.SpectateURL,
	}
	if s.board != nil {
		for _, l := range loopcfg.Levels {
			entries, err := s.top(r.Context(), l.ID)
			if err != nil {
				s.logger.Warn("Failed to load leaderboard", "level", l.ID, "error", err)
				continue
			}
			if len(entries) > 0 {
				data.Boards = append(data.Boards, levelBoard{Level: l, Entries: entries})
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("Failed to render page", "error", err)
	}
}

func (s *site) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id := loopcfg.LevelID(r.PathValue("level"))
	if _, ok := loopcfg.LevelByID(id); !ok {
		http.Error(w, "unknown level", http.StatusNotFound)
		return
	}
	if s.board == nil {
		http.Error(w, "leaderboard disabled", http.StatusServiceUnavailable)
		return
	}
	entries, err := s.top(r.Context(), id)
	if err != nil {
		s.logger.Warn("Failed to load leaderboard", "level", id, "error", err)
		http.Error(w, "leaderboard unavailable", http.StatusBadGateway)
		return
	}
	if entries == nil {
		entries = []progression.LeaderboardEntry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *site) top(ctx context.Context, id loopcfg.LevelID) ([]progression.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, leaderboardTimeout)
	defer cancel()
	return s.board.Leaderboard(ctx, string(id), leaderboardSize)
}

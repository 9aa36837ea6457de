package progression

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/starfall/internal/loop/config"
)

// ErrNotFound is returned by a Store when the profile has never been saved.
var ErrNotFound = errors.New("profile not found")

// Store persists profiles by name.
type Store interface {
	Load(ctx context.Context, profile string) (State, error)
	Save(ctx context.Context, profile string, s State) error
}

// RunSummary is the record of one finished run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Profile    string         `json:"profile"`
	Level      config.LevelID `json:"level"`
	Victory    bool           `json:"victory"`
	Elapsed    time.Duration  `json:"elapsed"`
	Collected  int            `json:"collected"`
	Kills      int            `json:"kills"`
	Meteorites int            `json:"meteorites"`
	Comets     int            `json:"comets"`
	Wave       int            `json:"wave"`
	EndedAt    time.Time      `json:"ended_at"`
}

// Outcome is "victory" or "defeat".
func (r RunSummary) Outcome() string {
	if r.Victory {
		return "victory"
	}
	return "defeat"
}

// RunRecorder is implemented by stores that keep a history of finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, r RunSummary) error
}

// ApplyRun folds a finished run into the lifetime achievements.
func (s *State) ApplyRun(r RunSummary) {
	a := &s.Achievements
	a.Runs++
	a.Kills += r.Kills
	a.Meteorites += r.Meteorites
	a.Comets += r.Comets
	if r.Victory {
		a.Victories++
		a.BossesDefeated++
		if a.BestTime == 0 || r.Elapsed < a.BestTime {
			a.BestTime = r.Elapsed
		}
	}
}

// SanitizeProfile turns a user-supplied name into a safe profile key.
func SanitizeProfile(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 32 {
			break
		}
	}
	if b.Len() == 0 {
		return "player"
	}
	return b.String()
}

// LoadOrDefault loads a profile and falls back to a fresh one when it is missing or
// the store fails. Store errors are logged, never returned.
func LoadOrDefault(ctx context.Context, store Store, profile string, logger *log.Logger) State {
	s, err := store.Load(ctx, profile)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("New profile", "profile", profile)
		return Default()
	case err != nil:
		logger.Warn("Failed to load profile, starting fresh", "profile", profile, "err", err)
		return Default()
	}
	s.Normalize()
	return s
}

// MemoryStore keeps profiles in process memory. Used for tests and guest sessions.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]State
	runs     []RunSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]State)}
}

func (m *MemoryStore) Load(_ context.Context, profile string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.profiles[profile]
	if !ok {
		return State{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, profile string, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile] = s.Clone()
	return nil
}

func (m *MemoryStore) RecordRun(_ context.Context, r RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// Runs returns the recorded runs, oldest first.
func (m *MemoryStore) Runs() []RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunSummary(nil), m.runs...)
}

// Open creates the store selected by the configuration.
func Open(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Dir)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	Dir      string         `mapstructure:"dir"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig holds the Postgres connection settings.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

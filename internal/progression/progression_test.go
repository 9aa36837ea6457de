package progression

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/starfall/internal/loop/config"
)

func TestBuyUpgrade(t *testing.T) {
	s := Default()
	s.Currency = 25

	if err := s.Buy(UpgradeDamage); err != nil {
		t.Fatalf("First purchase failed: %v", err)
	}
	if s.Currency != 15 || s.Level(UpgradeDamage) != 1 {
		t.Errorf("After first purchase: currency=%d level=%d", s.Currency, s.Level(UpgradeDamage))
	}
	if err := s.Buy(UpgradeDamage); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if s.Currency != 15 {
		t.Errorf("Failed purchase changed currency to %d", s.Currency)
	}
	if err := s.Buy("laser"); !errors.Is(err, ErrUnknownUpgrade) {
		t.Errorf("Expected ErrUnknownUpgrade, got %v", err)
	}

	s.Upgrades[UpgradeSpeed] = MaxUpgradeLevel
	s.Currency = 1000
	if err := s.Buy(UpgradeSpeed); !errors.Is(err, ErrMaxLevel) {
		t.Errorf("Expected ErrMaxLevel, got %v", err)
	}
}

func TestUpgradeCost(t *testing.T) {
	for lvl, want := range []int{10, 20, 30} {
		if got := UpgradeCost(lvl); got != want {
			t.Errorf("UpgradeCost(%d) = %d, want %d", lvl, got, want)
		}
	}
}

func TestToggleModifier(t *testing.T) {
	s := Default()
	for _, m := range Modifiers {
		if err := s.ToggleModifier(m); err != nil {
			t.Fatalf("Toggle %s: %v", m, err)
		}
	}
	if len(s.Loadout) != MaxModifiers {
		t.Fatalf("Loadout = %v", s.Loadout)
	}
	if err := s.ToggleModifier(ModRapidFire); err != nil || s.HasModifier(ModRapidFire) {
		t.Errorf("Second toggle should remove the modifier, err=%v", err)
	}
	if err := s.ToggleModifier("cloak"); !errors.Is(err, ErrUnknownModifier) {
		t.Errorf("Expected ErrUnknownModifier, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	s := State{
		Currency: -5,
		Unlocked: []config.LevelID{"venus", "pluto", "venus"},
		Upgrades: map[Upgrade]int{UpgradeHealth: 40, UpgradeSpeed: -1, "laser": 3},
		Loadout:  []Modifier{ModAutoRepair, ModAutoRepair, "cloak"},
		Facts:    []string{"a", "", "a"},
	}
	s.Normalize()

	if s.Currency != 0 {
		t.Errorf("Currency = %d, want 0", s.Currency)
	}
	if len(s.Unlocked) != 2 || s.Unlocked[0] != config.FirstLevel || s.Unlocked[1] != "venus" {
		t.Errorf("Unlocked = %v", s.Unlocked)
	}
	if len(s.Upgrades) != 1 || s.Upgrades[UpgradeHealth] != MaxUpgradeLevel {
		t.Errorf("Upgrades = %v", s.Upgrades)
	}
	if len(s.Loadout) != 1 || len(s.Facts) != 1 {
		t.Errorf("Loadout = %v, Facts = %v", s.Loadout, s.Facts)
	}
}

func TestCheckPlayable(t *testing.T) {
	s := Default()
	if err := s.CheckPlayable(config.FirstLevel); err != nil {
		t.Errorf("First level should be playable: %v", err)
	}
	if err := s.CheckPlayable("venus"); !errors.Is(err, ErrLevelLocked) {
		t.Errorf("Expected ErrLevelLocked, got %v", err)
	}
	if err := s.CheckPlayable("pluto"); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("Expected ErrUnknownLevel, got %v", err)
	}
	if !s.Unlock("venus") || s.Unlock("venus") {
		t.Errorf("Unlock should report true exactly once")
	}
}

func TestApplyRun(t *testing.T) {
	s := Default()
	s.ApplyRun(RunSummary{Victory: true, Elapsed: 11 * time.Minute, Kills: 3})
	s.ApplyRun(RunSummary{Victory: true, Elapsed: 10 * time.Minute, Kills: 2})
	s.ApplyRun(RunSummary{Elapsed: time.Minute, Kills: 1})

	a := s.Achievements
	if a.Runs != 3 || a.Victories != 2 || a.Kills != 6 || a.BestTime != 10*time.Minute {
		t.Errorf("Achievements = %+v", a)
	}
}

func TestSanitizeProfile(t *testing.T) {
	tests := map[string]string{
		"Alice":        "alice",
		"../etc/passwd": "etcpasswd",
		"":             "player",
		"a b-c_d":      "ab-c_d",
	}
	for in, want := range tests {
		if got := SanitizeProfile(in); got != want {
			t.Errorf("SanitizeProfile(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	s := Default()
	s.Currency = 42
	s.Unlock("venus")
	if err := store.Save(ctx, "bob", s); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if got.Currency != 42 || !got.IsUnlocked("venus") {
		t.Errorf("Loaded %+v", got)
	}
}

func TestLoadOrDefaultFallsBackOnCorruptProfile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "carol.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := LoadOrDefault(context.Background(), store, "carol", log.New(io.Discard))
	if s.Currency != 0 || !s.IsUnlocked(config.FirstLevel) {
		t.Errorf("Expected default profile, got %+v", s)
	}
}

// gatedStore blocks every Save until released, recording what was written.
type gatedStore struct {
	*MemoryStore
	gate  chan struct{}
	mu    sync.Mutex
	saved []int
}

func (g *gatedStore) Save(ctx context.Context, profile string, s State) error {
	<-g.gate
	g.mu.Lock()
	g.saved = append(g.saved, s.Currency)
	g.mu.Unlock()
	return g.MemoryStore.Save(ctx, profile, s)
}

func TestSaverKeepsLatestState(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), gate: make(chan struct{})}
	saver := NewSaver(store, "dave", log.New(io.Discard))

	s := Default()
	for i := 1; i <= 5; i++ {
		s.Currency = i
		saver.Save(s)
	}
	close(store.gate)
	saver.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.saved) == 0 || store.saved[len(store.saved)-1] != 5 {
		t.Fatalf("Last write = %v, want 5", store.saved)
	}
	if len(store.saved) > 2 {
		t.Errorf("Expected coalesced writes, got %v", store.saved)
	}

	got, err := store.Load(context.Background(), "dave")
	if err != nil || got.Currency != 5 {
		t.Errorf("Stored currency = %d (err %v), want 5", got.Currency, err)
	}
}

func TestSaverRecordsRuns(t *testing.T) {
	store := NewMemoryStore()
	saver := NewSaver(store, "erin", log.New(io.Discard))
	saver.Record(RunSummary{RunID: "r1", Profile: "erin", Victory: true})
	saver.Close()
	saver.Save(Default()) // ignored after close

	runs := store.Runs()
	if len(runs) != 1 || runs[0].RunID != "r1" {
		t.Errorf("Runs = %+v", runs)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"memory", StoreConfig{Backend: "memory"}, false},
		{"empty is memory", StoreConfig{}, false},
		{"file", StoreConfig{Backend: "file", Dir: t.TempDir()}, false},
		{"unknown", StoreConfig{Backend: "etcd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && store == nil {
				t.Fatal("Open() returned a nil store")
			}
		})
	}
}

// The Redis and Postgres stores run against real servers when the addresses are
// given, e.g. STARFALL_TEST_REDIS_ADDR=localhost:6379.

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("STARFALL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STARFALL_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisConfig{Addr: addr})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	suffix := time.Now().Format("150405.000000")
	profile := "redis-test-" + suffix
	level := config.LevelID("test-" + suffix)
	t.Cleanup(func() {
		store.client.Del(ctx, profileKeyPrefix+SanitizeProfile(profile), leaderboardPrefix+string(level))
	})

	if _, err := store.Load(ctx, profile); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	s := Default()
	s.Currency = 7
	if err := store.Save(ctx, profile, s); err != nil {
		t.Fatal(err)
	}
	if got, err := store.Load(ctx, profile); err != nil || got.Currency != 7 {
		t.Fatalf("Loaded %+v (err %v)", got, err)
	}

	runs := []RunSummary{
		{RunID: "r1-" + suffix, Profile: "alice", Level: level, Victory: true, Elapsed: 90 * time.Second},
		{RunID: "r2-" + suffix, Profile: "bob", Level: level, Victory: true, Elapsed: 60 * time.Second},
		{RunID: "r3-" + suffix, Profile: "alice", Level: level, Victory: true, Elapsed: 120 * time.Second},
		{RunID: "r4-" + suffix, Profile: "carol", Level: level, Victory: false, Elapsed: 10 * time.Second},
	}
	for _, r := range runs {
		if err := store.RecordRun(ctx, r); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { store.client.Del(ctx, runKeyPrefix+r.RunID) })
	}

	board, err := store.Leaderboard(ctx, string(level), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 || board[0].Profile != "bob" || board[1].Profile != "alice" || board[1].Time != 90*time.Second {
		t.Errorf("Leaderboard = %+v", board)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("STARFALL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STARFALL_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	profile := "pg-test-" + time.Now().Format("150405.000000")
	s := Default()
	s.Currency = 11
	s.Unlock("venus")
	if err := store.Save(ctx, profile, s); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, profile)
	if err != nil || got.Currency != 11 || !got.IsUnlocked("venus") {
		t.Fatalf("Loaded %+v (err %v)", got, err)
	}
}

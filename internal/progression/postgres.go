package progression

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	name       TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	profile     TEXT NOT NULL,
	level       TEXT NOT NULL,
	victory     BOOLEAN NOT NULL,
	elapsed_ms  BIGINT NOT NULL,
	collected   INTEGER NOT NULL,
	kills       INTEGER NOT NULL,
	wave        INTEGER NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL
);
`

// PostgresStore keeps profiles as JSONB rows and appends every finished run to a
// history table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the connection and creates the tables if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	s := NewPostgresStoreFromDB(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB accepts an existing DB handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables used by the store.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Load(ctx context.Context, profile string) (State, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT state FROM profiles WHERE name = $1`, SanitizeProfile(profile)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decode profile %s: %w", profile, err)
	}
	return s, nil
}

func (p *PostgresStore) Save(ctx context.Context, profile string, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO profiles (name, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET state = EXCLUDED.state,
		    updated_at = EXCLUDED.updated_at
	`, SanitizeProfile(profile), raw)
	return err
}

func (p *PostgresStore) RecordRun(ctx context.Context, r RunSummary) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO runs (id, profile, level, victory, elapsed_ms, collected, kills, wave, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, r.RunID, SanitizeProfile(r.Profile), string(r.Level), r.Victory, r.Elapsed.Milliseconds(),
		r.Collected, r.Kills, r.Wave, r.EndedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

package progression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis keys.
const (
	profileKeyPrefix    = "starfall:profile:"
	runKeyPrefix        = "starfall:run:"
	leaderboardPrefix   = "starfall:leaderboard:"
	runRetention        = 7 * 24 * time.Hour
	redisConnectTimeout = 5 * time.Second
)

// RedisStore keeps profiles as JSON strings and ranks victories per level in
// sorted sets (score is the negated clear time so faster runs rank higher).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Load(ctx context.Context, profile string) (State, error) {
	raw, err := r.client.Get(ctx, profileKeyPrefix+SanitizeProfile(profile)).Bytes()
	if errors.Is(err, redis.Nil) {
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

func (r *RedisStore) Save(ctx context.Context, profile string, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, profileKeyPrefix+SanitizeProfile(profile), raw, 0).Err()
}

// RecordRun stores the run summary and ranks victories on the level leaderboard.
// Only the best time per profile is kept.
func (r *RedisStore) RecordRun(ctx context.Context, run RunSummary) error {
	raw, err := json.Marshal(run)
	if err != nil {
		return err
	}

	key := leaderboardPrefix + string(run.Level)
	member := SanitizeProfile(run.Profile)
	score := -run.Elapsed.Seconds()
	rank := run.Victory
	if rank {
		best, err := r.client.ZScore(ctx, key, member).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		case best >= score:
			rank = false
		}
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, runKeyPrefix+run.RunID, raw, runRetention)
	if rank {
		pipe.ZAdd(ctx, key, &redis.Z{Score: score, Member: member})
	}
	_, err = pipe.Exec(ctx)
	return err
}

// LeaderboardEntry is one ranked clear of a level.
type LeaderboardEntry struct {
	Rank    int           `json:"rank"`
	Profile string        `json:"profile"`
	Time    time.Duration `json:"time"`
}

// Leaderboard returns the fastest clears of a level.
func (r *RedisStore) Leaderboard(ctx context.Context, level string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := r.client.ZRevRangeWithScores(ctx, leaderboardPrefix+level, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(members))
	for i, m := range members {
		name, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Rank:    i + 1,
			Profile: name,
			Time:    time.Duration(-m.Score * float64(time.Second)),
		})
	}
	return entries, nil
}

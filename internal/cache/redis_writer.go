package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itsmrval/willitbemax/pkg/models"
	"github.com/redis/go-redis/v9"
)

// TTL constants
const (
	LiveStateTTL = 90 * time.Second
	IdleStateTTL = 10 * time.Minute
)

const currentKey = "weekend:current"

// RedisWriter mirrors the latest resolved weekend into Redis for other services.
// Entries expire; nothing here is read back by the refresh loop.
type RedisWriter struct {
	client *redis.Client
}

// NewRedisWriter creates a new Redis writer
func NewRedisWriter(client *redis.Client) *RedisWriter {
	return &RedisWriter{
		client: client,
	}
}

// Name identifies the sink in logs and metrics
func (w *RedisWriter) Name() string { return "redis_mirror" }

// Write stores the snapshot's data and phase. Failed cycles and snapshots without data
// leave the mirror untouched: entries are renewed only by a successful fetch, so stale
// data expires on its own TTL.
func (w *RedisWriter) Write(ctx context.Context, snap models.Snapshot) error {
	if snap.Data == nil || snap.Failed() {
		return nil
	}

	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshaling resolved state: %w", err)
	}

	ttl := ttlFor(snap.Data)

	pipe := w.client.Pipeline()
	pipe.Set(ctx, currentKey, data, ttl)
	pipe.Set(ctx, phaseKey(snap.Season), string(snap.Data.Phase()), ttl)

	_, err = pipe.Exec(ctx)
	return err
}

// ReadCurrent retrieves the mirrored state
func (w *RedisWriter) ReadCurrent(ctx context.Context) (*models.ResolvedState, error) {
	data, err := w.client.Get(ctx, currentKey).Result()
	if err != nil {
		return nil, err
	}

	var state models.ResolvedState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("unmarshaling resolved state: %w", err)
	}

	return &state, nil
}

// ReadPhase retrieves the mirrored phase of a season
func (w *RedisWriter) ReadPhase(ctx context.Context, season int) (models.Phase, error) {
	phase, err := w.client.Get(ctx, phaseKey(season)).Result()
	if err != nil {
		return "", err
	}
	return models.Phase(phase), nil
}

func phaseKey(season int) string {
	return fmt.Sprintf("weekend:season:%d:phase", season)
}

// ttlFor keeps live entries short so a stalled poller does not advertise a stale live session
func ttlFor(state *models.ResolvedState) time.Duration {
	if state.IsLive {
		return LiveStateTTL
	}
	return IdleStateTTL
}

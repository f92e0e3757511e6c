package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/itsmrval/willitbemax/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T) (*RedisWriter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisWriter(client), mr
}

func TestRedisWriter_WriteAndRead(t *testing.T) {
	w, mr := newWriter(t)
	ctx := context.Background()

	snap := models.Snapshot{
		Season: 2025,
		Data: &models.ResolvedState{
			Round:   models.Round{RoundID: 8, Name: "Monaco"},
			Session: &models.Session{Type: models.SessionQualifying, IsLive: true},
			IsLive:  true,
		},
	}

	require.NoError(t, w.Write(ctx, snap))

	got, err := w.ReadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Monaco", got.Round.Name)
	require.NotNil(t, got.Session)
	assert.Equal(t, models.SessionQualifying, got.Session.Type)

	phase, err := w.ReadPhase(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseLive, phase)

	assert.Equal(t, LiveStateTTL, mr.TTL(currentKey))
}

func TestRedisWriter_IdleTTL(t *testing.T) {
	w, mr := newWriter(t)
	snap := models.Snapshot{
		Season: 2025,
		Data:   &models.ResolvedState{Round: models.Round{RoundID: 24}, IsFinished: true},
	}

	require.NoError(t, w.Write(context.Background(), snap))

	assert.Equal(t, IdleStateTTL, mr.TTL(currentKey))
	assert.Equal(t, IdleStateTTL, mr.TTL("weekend:season:2025:phase"))

	phase, err := w.ReadPhase(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseFinished, phase)
}

func TestRedisWriter_SkipsSnapshotsWithoutData(t *testing.T) {
	w, mr := newWriter(t)
	msg := "content API error: status=503"

	require.NoError(t, w.Write(context.Background(), models.Snapshot{Error: &msg}))

	assert.False(t, mr.Exists(currentKey))
	_, err := w.ReadCurrent(context.Background())
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisWriter_FailedCycleDoesNotRenewTTL(t *testing.T) {
	w, mr := newWriter(t)
	ctx := context.Background()
	live := &models.ResolvedState{
		Round:   models.Round{RoundID: 8},
		Session: &models.Session{Type: models.SessionRace, IsLive: true},
		IsLive:  true,
	}

	require.NoError(t, w.Write(ctx, models.Snapshot{Season: 2025, Data: live}))
	mr.FastForward(60 * time.Second)

	// Stale data is kept in the snapshot after a failed fetch
	msg := "content API error: status=503"
	require.NoError(t, w.Write(ctx, models.Snapshot{Season: 2025, Data: live, Error: &msg}))

	assert.Equal(t, LiveStateTTL-60*time.Second, mr.TTL(currentKey))
	assert.Equal(t, LiveStateTTL-60*time.Second, mr.TTL("weekend:season:2025:phase"))

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(currentKey))
}

func TestRedisWriter_ConnectionError(t *testing.T) {
	w, mr := newWriter(t)
	mr.Close()

	err := w.Write(context.Background(), models.Snapshot{Data: &models.ResolvedState{}})
	assert.Error(t, err)
}

package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/itsmrval/willitbemax/pkg/models"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream weekend changes are published to
const DefaultStream = "weekend.updates"

// streamMaxLen caps the stream length (approximate trimming)
const streamMaxLen = 1000

// StreamPublisher publishes resolved weekend changes to a Redis stream
type StreamPublisher struct {
	client *redis.Client
	stream string

	mu   sync.Mutex
	last *models.ResolvedState
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{
		client: client,
		stream: stream,
	}
}

// Name identifies the sink in logs and metrics
func (p *StreamPublisher) Name() string { return "redis_stream" }

// Write publishes the snapshot's data when the round, session or flags changed
// since the last published entry
func (p *StreamPublisher) Write(ctx context.Context, snap models.Snapshot) error {
	if snap.Data == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last.SameAs(snap.Data) {
		return nil
	}

	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshaling weekend update: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":     string(data),
			"phase":    string(snap.Data.Phase()),
			"round_id": strconv.Itoa(int(snap.Data.Round.RoundID)),
			"season":   strconv.Itoa(snap.Season),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing weekend update: %w", err)
	}

	p.last = snap.Data
	return nil
}

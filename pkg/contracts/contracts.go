package contracts

import (
	"context"
	"time"

	"github.com/itsmrval/willitbemax/pkg/models"
)

// RoundsProvider fetches the rounds of a season in schedule order
type RoundsProvider interface {
	FetchRounds(ctx context.Context, year int) ([]models.Round, error)
}

// StateSink receives every committed snapshot of the refresh loop
// (Redis mirror, stream publisher). Sink errors never stop polling.
type StateSink interface {
	Name() string
	Write(ctx context.Context, snap models.Snapshot) error
}

// Clock is the time source of the resolver and the refresh loop
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// PollingConfig defines the refresh cadence
type PollingConfig struct {
	LiveInterval   time.Duration // 30s while a session is live
	IdleInterval   time.Duration // 60s otherwise, and before the first success
	RequestTimeout time.Duration // upper bound for one resolution pass
}

// DefaultPollingConfig returns the reference cadence
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		LiveInterval:   30 * time.Second,
		IdleInterval:   60 * time.Second,
		RequestTimeout: 15 * time.Second,
	}
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

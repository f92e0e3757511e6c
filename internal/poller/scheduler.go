package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/itsmrval/willitbemax/internal/metrics"
	"github.com/itsmrval/willitbemax/internal/resolver"
	"github.com/itsmrval/willitbemax/internal/state"
	"github.com/itsmrval/willitbemax/pkg/contracts"
	"github.com/itsmrval/willitbemax/pkg/models"
)

// sinkTimeout bounds one sink write after a commit
const sinkTimeout = 5 * time.Second

// Resolver resolves the relevant round of a season. A nil state means the season is empty.
type Resolver interface {
	Resolve(ctx context.Context, year int) (*models.ResolvedState, error)
}

// RefreshScheduler keeps the store refreshed. It runs one resolution pass at a time and
// arms the next timer only after the pass has completed.
type RefreshScheduler struct {
	resolver Resolver
	store    *state.Store
	clock    contracts.Clock
	config   contracts.PollingConfig
	sinks    []contracts.StateSink
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a RefreshScheduler
type Option func(*RefreshScheduler)

// WithSinks adds sinks notified after every commit
func WithSinks(sinks ...contracts.StateSink) Option {
	return func(s *RefreshScheduler) { s.sinks = append(s.sinks, sinks...) }
}

// WithMetrics records cycle metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RefreshScheduler) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *RefreshScheduler) { s.logger = l }
}

// NewRefreshScheduler creates a scheduler writing into store
func NewRefreshScheduler(
	res Resolver,
	store *state.Store,
	clock contracts.Clock,
	config contracts.PollingConfig,
	opts ...Option,
) *RefreshScheduler {
	if clock == nil {
		clock = contracts.SystemClock{}
	}
	s := &RefreshScheduler{
		resolver: res,
		store:    store,
		clock:    clock,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "refresh_scheduler")
	return s
}

// Run polls until ctx is cancelled. A pass still in flight at cancellation is allowed
// to finish but its result is dropped.
func (s *RefreshScheduler) Run(ctx context.Context) {
	s.logger.Info("starting refresh loop",
		"live_interval", s.config.LiveInterval,
		"idle_interval", s.config.IdleInterval)

	for {
		s.pollOnce(ctx)
		if ctx.Err() != nil {
			s.logger.Info("stopping refresh loop")
			return
		}

		interval := s.nextInterval()
		s.metrics.SetInterval(interval)
		s.store.SetNextPoll(s.clock.Now().Add(interval))

		select {
		case <-ctx.Done():
			s.logger.Info("stopping refresh loop")
			return
		case <-s.clock.After(interval):
		}
	}
}

// nextInterval picks the cadence from the last stored data
func (s *RefreshScheduler) nextInterval() time.Duration {
	if s.store.Snapshot().Live() {
		return s.config.LiveInterval
	}
	return s.config.IdleInterval
}

// pollOnce performs one refresh cycle
func (s *RefreshScheduler) pollOnce(ctx context.Context) {
	start := s.clock.Now()
	year := start.UTC().Year()

	s.store.BeginCycle(year)

	cycleCtx := ctx
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	data, season, err := s.resolve(cycleCtx, year)
	took := s.clock.Now().Sub(start)

	// Teardown happened while the pass was in flight
	if ctx.Err() != nil {
		s.metrics.ObserveCycle(metrics.OutcomeCancelled, took)
		s.logger.Debug("discarding result after teardown", "season", year)
		return
	}

	prev := s.store.Snapshot()

	switch {
	case err != nil:
		s.store.CommitError(err)
		s.metrics.ObserveCycle(metrics.OutcomeError, took)
		s.logger.Warn("refresh failed", "season", year, "error", err, "stale_data", prev.Data != nil)

	case data == nil:
		s.store.CommitNoSeason(season)
		s.metrics.ObserveCycle(metrics.OutcomeNoSeason, took)
		s.metrics.SetLive(false)
		s.logger.Warn(resolver.ErrNoSeasonData.Error(), "season", year, "next_season", season)

	default:
		s.store.CommitData(season, data)
		s.metrics.ObserveCycle(metrics.OutcomeSuccess, took)
		s.metrics.SetLive(data.IsLive)
		s.logResolved(prev.Data, data, season)
	}

	s.notifySinks(ctx)
}

// resolve runs the current season and, when it is empty, the next one exactly once.
// It returns the season the data belongs to.
func (s *RefreshScheduler) resolve(ctx context.Context, year int) (*models.ResolvedState, int, error) {
	data, err := s.resolver.Resolve(ctx, year)
	if err != nil {
		return nil, year, err
	}
	if data != nil {
		return data, year, nil
	}

	s.metrics.IncRollover()
	s.logger.Debug("season empty, trying next season", "season", year)

	next := year + 1
	data, err = s.resolver.Resolve(ctx, next)
	if err != nil {
		return nil, next, err
	}
	return data, next, nil
}

// notifySinks hands the committed snapshot to every sink
func (s *RefreshScheduler) notifySinks(ctx context.Context) {
	if len(s.sinks) == 0 {
		return
	}

	snap := s.store.Snapshot()
	for _, sink := range s.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := sink.Write(sinkCtx, snap); err != nil {
			s.metrics.IncSinkError(sink.Name())
			s.logger.Warn("sink write failed", "sink", sink.Name(), "error", err)
		}
		cancel()
	}
}

func (s *RefreshScheduler) logResolved(prev, next *models.ResolvedState, season int) {
	attrs := []any{
		"season", season,
		"round", next.Round.Name,
		"round_id", next.Round.RoundID,
		"phase", next.Phase(),
	}
	if next.Session != nil {
		attrs = append(attrs, "session", next.Session.Type)
	}

	// The first live session is shown; upstream is not expected to flag more than one
	if n := next.Round.LiveSessionCount(); n > 1 {
		s.logger.Warn("multiple live sessions in round", append(attrs, "live_sessions", n)...)
	}

	if prev.SameAs(next) {
		s.logger.Debug("resolved weekend unchanged", attrs...)
		return
	}
	s.logger.Info("resolved weekend", attrs...)
}

var _ Resolver = (*resolver.SeasonResolver)(nil)

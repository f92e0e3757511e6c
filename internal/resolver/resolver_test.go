package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/itsmrval/willitbemax/internal/providers/content"
	"github.com/itsmrval/willitbemax/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const now int64 = 1_750_000_000

type fakeProvider struct {
	rounds []models.Round
	err    error
	years  []int
}

func (f *fakeProvider) FetchRounds(ctx context.Context, year int) ([]models.Round, error) {
	f.years = append(f.years, year)
	return f.rounds, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func (c fixedClock) After(d time.Duration) <-chan time.Time { return make(chan time.Time) }

func session(t models.SessionType, date int64, live bool) models.Session {
	return models.Session{Type: t, Date: date, IsLive: live, Status: models.SessionStatusScheduled}
}

func TestResolveRounds(t *testing.T) {
	r1 := models.Round{RoundID: 1, Name: "Bahrain", FirstDate: now - 10_000, EndDate: now - 5_000}
	r2 := models.Round{
		RoundID:   2,
		Name:      "Jeddah",
		FirstDate: now - 1_000,
		EndDate:   now + 1_000,
		Sessions: []models.Session{
			session(models.SessionQualifying, now-900, false),
			session(models.SessionRace, now-100, true),
		},
	}

	tests := []struct {
		name        string
		rounds      []models.Round
		wantRound   int32
		wantSession *models.SessionType
		wantLive    bool
		wantDone    bool
	}{
		{
			name:        "live session in ongoing round",
			rounds:      []models.Round{r1, r2},
			wantRound:   2,
			wantSession: ptr(models.SessionRace),
			wantLive:    true,
		},
		{
			name: "first future session wins over closer later one",
			rounds: []models.Round{{
				RoundID: 3,
				EndDate: now + 500,
				Sessions: []models.Session{
					session(models.SessionPractice1, now+100, false),
					session(models.SessionPractice2, now+50, false),
				},
			}},
			wantRound:   3,
			wantSession: ptr(models.SessionPractice1),
		},
		{
			name: "past sessions skipped",
			rounds: []models.Round{{
				RoundID: 4,
				EndDate: now + 500,
				Sessions: []models.Session{
					session(models.SessionPractice1, now-300, false),
					session(models.SessionQualifying, now+200, false),
				},
			}},
			wantRound:   4,
			wantSession: ptr(models.SessionQualifying),
		},
		{
			name: "live session after a future candidate still wins",
			rounds: []models.Round{{
				RoundID: 5,
				EndDate: now + 500,
				Sessions: []models.Session{
					session(models.SessionSprint, now+100, false),
					session(models.SessionQualifying, now-10, true),
				},
			}},
			wantRound:   5,
			wantSession: ptr(models.SessionQualifying),
			wantLive:    true,
		},
		{
			name: "first live session stops the scan",
			rounds: []models.Round{{
				RoundID: 6,
				EndDate: now + 500,
				Sessions: []models.Session{
					session(models.SessionSprint, now-100, true),
					session(models.SessionRace, now-50, true),
				},
			}},
			wantRound:   6,
			wantSession: ptr(models.SessionSprint),
			wantLive:    true,
		},
		{
			name:      "round without sessions",
			rounds:    []models.Round{r1, {RoundID: 7, EndDate: now + 100}},
			wantRound: 7,
		},
		{
			name: "all sessions past but round not ended",
			rounds: []models.Round{{
				RoundID:  8,
				EndDate:  now,
				Sessions: []models.Session{session(models.SessionRace, now-1, false)},
			}},
			wantRound: 8,
		},
		{
			name: "season over returns last round",
			rounds: []models.Round{
				r1,
				{RoundID: 9, EndDate: now - 4_000},
				{RoundID: 10, EndDate: now - 3_000, Sessions: []models.Session{session(models.SessionRace, now-3_500, false)}},
			},
			wantRound: 10,
			wantDone:  true,
		},
		{
			name: "ended rounds after the pick are not considered",
			rounds: []models.Round{
				{RoundID: 11, EndDate: now + 10},
				{RoundID: 12, EndDate: now - 10},
			},
			wantRound: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRounds(tt.rounds, now)
			require.NotNil(t, got)

			assert.Equal(t, tt.wantRound, got.Round.RoundID)
			assert.Equal(t, tt.wantLive, got.IsLive)
			assert.Equal(t, tt.wantDone, got.IsFinished)
			if tt.wantSession == nil {
				assert.Nil(t, got.Session)
			} else {
				require.NotNil(t, got.Session)
				assert.Equal(t, *tt.wantSession, got.Session.Type)
			}
		})
	}
}

func TestResolveRounds_Empty(t *testing.T) {
	assert.Nil(t, ResolveRounds(nil, now))
	assert.Nil(t, ResolveRounds([]models.Round{}, now))
}

func TestResolveRounds_Idempotent(t *testing.T) {
	rounds := []models.Round{
		{RoundID: 1, EndDate: now - 1},
		{
			RoundID: 2,
			EndDate: now + 100,
			Sessions: []models.Session{
				session(models.SessionPractice3, now+10, false),
				session(models.SessionQualifying, now+20, false),
			},
		},
	}

	first := ResolveRounds(rounds, now)
	second := ResolveRounds(rounds, now)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ResolveRounds not idempotent (-first +second):\n%s", diff)
	}
}

func TestResolveRounds_TwoLiveSessionsFirstWins(t *testing.T) {
	round := models.Round{
		RoundID: 5,
		EndDate: now + 100,
		Sessions: []models.Session{
			session(models.SessionSprint, now-50, true),
			session(models.SessionRace, now-10, true),
		},
	}

	got := ResolveRounds([]models.Round{round}, now)
	require.NotNil(t, got)
	require.NotNil(t, got.Session)
	assert.Equal(t, models.SessionSprint, got.Session.Type)
	assert.Equal(t, 2, got.Round.LiveSessionCount())
}

func TestResolveRounds_DetachedFromInput(t *testing.T) {
	rounds := []models.Round{
		{RoundID: 1, EndDate: now - 1, Sessions: []models.Session{session(models.SessionRace, now-10, false)}},
		{
			RoundID: 2,
			EndDate: now + 100,
			Sessions: []models.Session{
				{
					Type:       models.SessionRace,
					Date:       now + 10,
					CurrentLap: ptr(int32(3)),
					Results:    []models.SessionResult{{Position: 1, DriverName: "Max Verstappen"}},
				},
			},
		},
	}

	upcoming := ResolveRounds(rounds, now)
	finished := ResolveRounds(rounds[:1], now)
	require.NotNil(t, upcoming)
	require.NotNil(t, finished)

	rounds[1].Sessions[0].Type = models.SessionSprint
	*rounds[1].Sessions[0].CurrentLap = 40
	rounds[1].Sessions[0].Results[0].DriverName = "changed"
	rounds[0].Sessions[0].Type = models.SessionSprint

	assert.Equal(t, models.SessionRace, upcoming.Round.Sessions[0].Type)
	assert.Equal(t, int32(3), *upcoming.Round.Sessions[0].CurrentLap)
	assert.Equal(t, "Max Verstappen", upcoming.Round.Sessions[0].Results[0].DriverName)
	assert.Equal(t, models.SessionRace, upcoming.Session.Type)
	assert.Equal(t, int32(3), *upcoming.Session.CurrentLap)
	assert.Equal(t, "Max Verstappen", upcoming.Session.Results[0].DriverName)
	assert.Equal(t, models.SessionRace, finished.Round.Sessions[0].Type)
}

func TestResolve(t *testing.T) {
	clock := fixedClock{t: time.Unix(now, 0)}

	t.Run("uses provider rounds and injected clock", func(t *testing.T) {
		p := &fakeProvider{rounds: []models.Round{{RoundID: 1, EndDate: now + 1}}}
		got, err := New(p, clock).Resolve(context.Background(), 2025)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int32(1), got.Round.RoundID)
		assert.Equal(t, []int{2025}, p.years)
	})

	t.Run("empty season is absent", func(t *testing.T) {
		p := &fakeProvider{rounds: []models.Round{}}
		got, err := New(p, clock).Resolve(context.Background(), 2025)

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("provider errors pass through", func(t *testing.T) {
		fetchErr := &content.FetchError{URL: "http://x", StatusCode: 502, Err: errors.New("bad gateway")}
		p := &fakeProvider{err: fetchErr}
		got, err := New(p, clock).Resolve(context.Background(), 2025)

		assert.Nil(t, got)
		var fe *content.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Same(t, fetchErr, fe)
	})
}

func ptr[T any](v T) *T { return &v }

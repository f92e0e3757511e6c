package resolver

import (
	"context"
	"errors"
	"slices"

	"github.com/itsmrval/willitbemax/pkg/contracts"
	"github.com/itsmrval/willitbemax/pkg/models"
)

// ErrNoSeasonData marks a pass where neither the current nor the next season has rounds
var ErrNoSeasonData = errors.New("no season data available")

// SeasonResolver picks the round and session relevant now out of a season schedule
type SeasonResolver struct {
	provider contracts.RoundsProvider
	clock    contracts.Clock
}

// New creates a resolver reading rounds from provider and time from clock
func New(provider contracts.RoundsProvider, clock contracts.Clock) *SeasonResolver {
	if clock == nil {
		clock = contracts.SystemClock{}
	}
	return &SeasonResolver{
		provider: provider,
		clock:    clock,
	}
}

// Resolve fetches the rounds of year and resolves them against the current time.
// A nil state with a nil error means the season has no rounds.
// Provider errors are returned unmodified.
func (r *SeasonResolver) Resolve(ctx context.Context, year int) (*models.ResolvedState, error) {
	rounds, err := r.provider.FetchRounds(ctx, year)
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return nil, nil
	}

	return ResolveRounds(rounds, r.clock.Now().Unix()), nil
}

// ResolveRounds is the decision step of Resolve. Input order is trusted: rounds and
// sessions are never sorted, the first match wins.
func ResolveRounds(rounds []models.Round, now int64) *models.ResolvedState {
	if len(rounds) == 0 {
		return nil
	}

	for i := range rounds {
		round := rounds[i]
		if !round.OngoingOrUpcoming(now) {
			continue
		}

		var current, next *models.Session
		for j := range round.Sessions {
			session := &round.Sessions[j]
			if session.IsLive {
				current = session
				break
			}
			if next == nil && session.Date >= now {
				next = session
			}
		}

		chosen := current
		if chosen == nil {
			chosen = next
		}

		return &models.ResolvedState{
			Round:      copyRound(round),
			Session:    copySession(chosen),
			IsLive:     current != nil,
			IsFinished: false,
		}
	}

	return &models.ResolvedState{
		Round:      copyRound(rounds[len(rounds)-1]),
		Session:    nil,
		IsLive:     false,
		IsFinished: true,
	}
}

// copyRound detaches the round and its sessions from the caller's slice
func copyRound(r models.Round) models.Round {
	if r.Sessions == nil {
		return r
	}
	sessions := make([]models.Session, len(r.Sessions))
	for i := range r.Sessions {
		sessions[i] = *copySession(&r.Sessions[i])
	}
	r.Sessions = sessions
	return r
}

// copySession detaches the chosen session from the caller's slice
func copySession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	c.TotalLaps = copyInt32(s.TotalLaps)
	c.CurrentLap = copyInt32(s.CurrentLap)
	c.Results = slices.Clone(s.Results)
	return &c
}

func copyInt32(v *int32) *int32 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

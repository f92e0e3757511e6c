package models

import "time"

// Phase is the weekend status shown to viewers
type Phase string

const (
	PhaseLive     Phase = "live"
	PhaseUpcoming Phase = "upcoming"
	PhaseFinished Phase = "finished"
)

// ResolvedState is the round/session pair relevant at one resolution pass.
// It is rebuilt on every fetch and replaced as a whole, never edited.
type ResolvedState struct {
	Round      Round    `json:"round"`
	Session    *Session `json:"session"`
	IsLive     bool     `json:"is_live"`
	IsFinished bool     `json:"is_finished"`
}

// Phase derives the display status of the state
func (s *ResolvedState) Phase() Phase {
	switch {
	case s.IsLive:
		return PhaseLive
	case s.IsFinished:
		return PhaseFinished
	default:
		return PhaseUpcoming
	}
}

// SameAs reports whether two states point at the same round, session and flags
func (s *ResolvedState) SameAs(other *ResolvedState) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Round.RoundID != other.Round.RoundID || s.Round.Season != other.Round.Season {
		return false
	}
	if s.IsLive != other.IsLive || s.IsFinished != other.IsFinished {
		return false
	}
	if (s.Session == nil) != (other.Session == nil) {
		return false
	}
	if s.Session != nil && (s.Session.Type != other.Session.Type || s.Session.Date != other.Session.Date) {
		return false
	}
	return true
}

// Snapshot is the read-only view of the refresh state handed to consumers
type Snapshot struct {
	Data         *ResolvedState `json:"data"`
	Loading      bool           `json:"loading"`
	Error        *string        `json:"error"`
	NoSeasonData bool           `json:"no_season_data"`
	Season       int            `json:"season,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
	NextPollAt   time.Time      `json:"next_poll_at"`
	Version      uint64         `json:"version"`
}

// Live reports whether the last stored data is live
func (s Snapshot) Live() bool {
	return s.Data != nil && s.Data.IsLive
}

// Failed reports whether the last cycle ended in an error
func (s Snapshot) Failed() bool {
	return s.Error != nil
}

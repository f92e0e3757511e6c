package state

import (
	"sync"
	"time"

	"github.com/itsmrval/willitbemax/pkg/models"
)

// Store holds the refresh state. The refresh loop is its only writer; everyone else
// reads snapshots. Each subscriber channel holds at most the newest unread snapshot,
// so a subscriber always observes versions in increasing order.
type Store struct {
	mu     sync.Mutex
	snap   models.Snapshot
	subs   map[int]chan models.Snapshot
	nextID int
	closed bool
	now    func() time.Time
}

// NewStore creates a store in the initial loading state
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		snap: models.Snapshot{Loading: true},
		subs: make(map[int]chan models.Snapshot),
		now:  now,
	}
}

// Snapshot returns the current state
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe returns a channel primed with the current snapshot and a function to stop
// the subscription. The channel is closed on unsubscribe or Close.
func (s *Store) Subscribe() (<-chan models.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.snap

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// BeginCycle marks a refresh as in flight
func (s *Store) BeginCycle(season int) {
	s.update(func(snap *models.Snapshot) {
		snap.Loading = true
		snap.Season = season
	})
}

// CommitData stores a resolved state and clears the error
func (s *Store) CommitData(season int, data *models.ResolvedState) {
	s.update(func(snap *models.Snapshot) {
		snap.Data = data
		snap.Error = nil
		snap.NoSeasonData = false
		snap.Loading = false
		snap.Season = season
		snap.UpdatedAt = s.now()
	})
}

// CommitError stores a failure message. Previous data stays available.
func (s *Store) CommitError(err error) {
	msg := err.Error()
	s.update(func(snap *models.Snapshot) {
		snap.Error = &msg
		snap.Loading = false
		snap.UpdatedAt = s.now()
	})
}

// CommitNoSeason records that neither the current nor the next season has rounds
func (s *Store) CommitNoSeason(season int) {
	s.update(func(snap *models.Snapshot) {
		snap.Data = nil
		snap.Error = nil
		snap.NoSeasonData = true
		snap.Loading = false
		snap.Season = season
		snap.UpdatedAt = s.now()
	})
}

// SetNextPoll records when the next refresh is due
func (s *Store) SetNextPoll(at time.Time) {
	s.update(func(snap *models.Snapshot) {
		snap.NextPollAt = at
	})
}

// Close stops the store. Subscriber channels are closed and later writes are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// update applies fn to a copy of the state, bumps the version and fans it out
func (s *Store) update(fn func(*models.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	next := s.snap
	fn(&next)
	next.Version = s.snap.Version + 1
	s.snap = next

	for _, ch := range s.subs {
		// Replace an unread older snapshot with the newer one
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

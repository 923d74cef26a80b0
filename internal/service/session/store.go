package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daehak-dining/chatbot/backend/internal/model/chat"
)

// ErrNotFound is returned when an operation names a user without a live session.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is the sliding idle window after which a session is replaced.
const DefaultTTL = 30 * time.Minute

type entry struct {
	id         string
	createdAt  time.Time
	lastAccess time.Time
	history    []chat.Turn
}

// Store maps user ids to conversation sessions with a sliding TTL. All
// methods are safe for concurrent use; the store is the only shared mutable
// state in the service.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	maxTurns int
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxTurns caps per-session history length; the oldest turns are dropped
// first once the cap is exceeded. Zero means unbounded.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// WithClock overrides the time source, used by expiration tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store with the given idle TTL.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the live session for userID, replacing any expired one
// with a fresh empty session. The check-and-create happens under a single
// critical section so concurrent callers for the same user observe exactly
// one session.
func (s *Store) GetOrCreate(userID string) chat.Session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[userID]; ok && now.Sub(e.lastAccess) < s.ttl {
		e.lastAccess = now
		return snapshot(userID, e)
	}

	e := &entry{
		id:         uuid.NewString(),
		createdAt:  now,
		lastAccess: now,
	}
	s.sessions[userID] = e
	return snapshot(userID, e)
}

// AppendTurn records one turn in the named session and refreshes its
// last-access time. Returns ErrNotFound when no session exists; callers are
// expected to GetOrCreate first.
func (s *Store) AppendTurn(userID string, role chat.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[userID]
	if !ok {
		return ErrNotFound
	}

	e.history = append(e.history, chat.Turn{Role: role, Content: content})
	if s.maxTurns > 0 && len(e.history) > s.maxTurns {
		drop := len(e.history) - s.maxTurns
		e.history = append([]chat.Turn(nil), e.history[drop:]...)
	}
	e.lastAccess = s.now()
	return nil
}

// History returns a snapshot copy of the session's turns. It does not refresh
// the last-access time; reads happen as part of request handling, which pairs
// them with a subsequent append.
func (s *Store) History(userID string) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[userID]
	if !ok || len(e.history) == 0 {
		return nil
	}
	history := make([]chat.Turn, len(e.history))
	copy(history, e.history)
	return history
}

// Peek returns the user's session snapshot without refreshing the idle
// window. The second return is false when no live session exists.
func (s *Store) Peek(userID string) (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[userID]
	if !ok || s.now().Sub(e.lastAccess) >= s.ttl {
		return chat.Session{}, false
	}
	return snapshot(userID, e), true
}

// Clear drops the user's session immediately, independent of TTL.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Sweep removes every session idle longer than the TTL at the given instant
// and returns how many were removed. Expired keys are collected under the
// read lock first so a large map never blocks per-key operations for the
// whole iteration.
func (s *Store) Sweep(now time.Time) int {
	s.mu.RLock()
	var expired []string
	for userID, e := range s.sessions {
		if now.Sub(e.lastAccess) >= s.ttl {
			expired = append(expired, userID)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, userID := range expired {
		s.mu.Lock()
		// Recheck: the session may have been touched or replaced since the scan.
		if e, ok := s.sessions[userID]; ok && now.Sub(e.lastAccess) >= s.ttl {
			delete(s.sessions, userID)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// StartJanitor sweeps at the given interval until ctx is cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.now())
			}
		}
	}()
}

// ActiveCount reports the number of stored sessions, expired or not.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func snapshot(userID string, e *entry) chat.Session {
	return chat.Session{
		ID:           e.id,
		UserID:       userID,
		CreatedAt:    e.createdAt,
		LastAccessAt: e.lastAccess,
	}
}

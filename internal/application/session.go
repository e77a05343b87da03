package application

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/geo"
)

// Session is the per-user state owned by the service: the current position
// and the booking interaction. Operations on one session are serialized by mu.
type Session struct {
	id        uuid.UUID
	createdAt time.Time

	mu          sync.Mutex
	position    *geo.Position
	positionGen uint64
	interaction *booking.Interaction
	lastSeen    time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		id:          uuid.New(),
		createdAt:   now,
		lastSeen:    now,
		interaction: booking.NewInteraction(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// BeginPositionRequest starts a position request and returns its generation token.
// Starting a request supersedes every earlier one still in flight.
func (s *Session) BeginPositionRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positionGen++
	return s.positionGen
}

// ResolvePosition applies pos if token is still the latest request. It reports
// whether the position was applied.
func (s *Session) ResolvePosition(token uint64, pos geo.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.positionGen {
		return false
	}
	p := pos
	s.position = &p
	return true
}

// Position returns a copy of the current position, or nil when none is known.
func (s *Session) Position() *geo.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return nil
	}
	p := *s.position
	return &p
}

// withInteraction runs fn with the session locked. With restart set, a
// finished interaction is replaced by a fresh idle one first.
func (s *Session) withInteraction(restart bool, fn func(in *booking.Interaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interaction == nil || (restart && s.interaction.Status().IsTerminal()) {
		s.interaction = booking.NewInteraction()
	}
	return fn(s.interaction)
}

// read runs fn with the session locked.
func (s *Session) read(fn func(pos *geo.Position, in *booking.Interaction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.position, s.interaction)
}

// SessionStore keeps sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*Session), now: time.Now}
}

// Create registers a new session.
func (st *SessionStore) Create() *Session {
	s := newSession(st.now().UTC())
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Get looks up a session by its string id and marks it as seen.
func (st *SessionStore) Get(id string) (*Session, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewValidationError("invalid session ID")
	}
	st.mu.RLock()
	s, ok := st.sessions[sid]
	st.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Session", id)
	}
	s.mu.Lock()
	s.lastSeen = st.now().UTC()
	s.mu.Unlock()
	return s, nil
}

// Count returns the number of live sessions.
func (st *SessionStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// EvictIdle drops sessions not seen for longer than maxIdle and returns how many were removed.
func (st *SessionStore) EvictIdle(maxIdle time.Duration) int {
	cutoff := st.now().UTC().Add(-maxIdle)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

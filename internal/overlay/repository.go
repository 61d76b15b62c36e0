package overlay

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Session is one live overlay: a Scheduler plus the event log its sink feeds.
type Session struct {
	ID        SessionID
	Scheduler *Scheduler
	Events    *EventLog
	CreatedAt time.Time
}

// SessionRepository defines the concurrency-safe contract for tracking
// overlay sessions.
type SessionRepository interface {
	// Create stores a new session. It fails with ErrSessionExists if the ID
	// is already in use.
	Create(s *Session) error

	// Get returns the session with the given ID.
	Get(id SessionID) (*Session, bool)

	// Delete removes the session and tears down its Scheduler. Deleting a
	// missing session returns ErrSessionNotFound.
	Delete(id SessionID) error

	// IDs returns every session ID in creation order.
	IDs() []SessionID

	// Count returns the number of sessions. Used for metrics.
	Count() int
}

var (
	// ErrSessionNotFound is returned for operations on an unknown session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = errors.New("session already exists")
)

// InMemorySessionRepository is a concurrency-safe in-memory SessionRepository.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
}

// NewInMemorySessionRepository returns an empty repository.
func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: make(map[SessionID]*Session)}
}

// Create implements SessionRepository.Create.
func (r *InMemorySessionRepository) Create(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return ErrSessionExists
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.sessions[s.ID] = s
	return nil
}

// Get implements SessionRepository.Get.
func (r *InMemorySessionRepository) Get(id SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Delete implements SessionRepository.Delete.
func (r *InMemorySessionRepository) Delete(id SessionID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	// Close outside the repository lock; it takes the scheduler's own lock.
	s.Scheduler.Close()
	return nil
}

// IDs implements SessionRepository.IDs.
func (r *InMemorySessionRepository) IDs() []SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	ids := make([]SessionID, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

// Count implements SessionRepository.Count.
func (r *InMemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

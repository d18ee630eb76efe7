package checkout

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an untouched session survives.
const DefaultSessionTTL = 30 * time.Minute

// SessionStore keeps sessions between requests. Implementations expire
// sessions after a TTL and must report sessions of other users as
// ErrSessionNotFound.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, userID, id string) (*Session, error)
	Delete(ctx context.Context, userID, id string) error
}

type memoryEntry struct {
	session *Session
	expires time.Time
}

// MemoryStore is a process-local SessionStore. Sessions do not survive a
// restart and are not shared between replicas.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

// Save stores a copy of s and resets its expiry.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	m.sessions[s.ID] = memoryEntry{session: s.Clone(), expires: now.Add(m.ttl)}
	return nil
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(_ context.Context, userID, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

// Delete removes the session. Unknown sessions are ignored.
func (m *MemoryStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok && e.session.UserID == userID {
		delete(m.sessions, id)
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.sessions {
		if !now.Before(e.expires) {
			delete(m.sessions, id)
		}
	}
}

package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
)

// Registry holds live batch sessions in memory. Sessions are
// short-lived working state; anything durable lives in the intake
// rows and the marketplace itself.
type Registry struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[uuid.UUID]*registryEntry
	now      func() time.Time
}

type registryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewRegistry creates a session registry whose entries expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*registryEntry),
		now:      time.Now,
	}
}

// Open creates and stores a fresh session.
func (r *Registry) Open(providerID uuid.UUID, mode enums.PageMode) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	session := NewSession(providerID, mode, now)
	r.sessions[session.ID] = &registryEntry{
		session:   session,
		expiresAt: now.Add(r.ttl),
	}
	return session
}

// Get returns the current value of a session.
func (r *Registry) Get(id uuid.UUID) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[id]
	if !ok || r.now().After(entry.expiresAt) {
		return Session{}, pkgerrors.New(pkgerrors.CodeNotFound, "batch session not found")
	}
	return entry.session, nil
}

// Update replaces a session value under the registry lock and extends
// its lease.
func (r *Registry) Update(id uuid.UUID, fn func(Session) Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok || r.now().After(entry.expiresAt) {
		return Session{}, pkgerrors.New(pkgerrors.CodeNotFound, "batch session not found")
	}
	entry.session = fn(entry.session)
	entry.expiresAt = r.now().Add(r.ttl)
	return entry.session, nil
}

// Delete drops a session.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// SweepExpired removes sessions past their lease and reports how many
// were dropped.
func (r *Registry) SweepExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, entry := range r.sessions {
		if now.After(entry.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

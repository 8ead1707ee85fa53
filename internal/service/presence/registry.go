package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/safeping/relay/backend/internal/model/presence"
)

// Registry maps actor identity to its live session. It is the only record of
// who is online and with whom.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]presence.Session
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]presence.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register inserts or silently replaces the session for actorID.
// An empty counterpartID means the actor is not addressing anyone.
func (r *Registry) Register(actorID, transportID, counterpartID string) presence.Session {
	session := presence.Session{
		ActorID:       actorID,
		TransportID:   transportID,
		CounterpartID: counterpartID,
		ConnectedAt:   r.now(),
	}

	r.mu.Lock()
	r.sessions[actorID] = session
	r.mu.Unlock()

	return session
}

// Lookup returns the session registered for actorID.
func (r *Registry) Lookup(actorID string) (presence.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[actorID]
	return session, ok
}

// Remove deletes the session for actorID and reports whether one existed.
func (r *Registry) Remove(actorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[actorID]; !ok {
		return false
	}
	delete(r.sessions, actorID)
	return true
}

// BoundTo lists the actors whose current session uses transportID.
func (r *Registry) BoundTo(transportID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var actors []string
	for id, session := range r.sessions {
		if session.TransportID == transportID {
			actors = append(actors, id)
		}
	}
	sort.Strings(actors)
	return actors
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot copies the registered sessions ordered by actor id.
func (r *Registry) Snapshot() []presence.Session {
	r.mu.RLock()
	sessions := make([]presence.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ActorID < sessions[j].ActorID
	})
	return sessions
}

// Clear drops every session. Called on shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.sessions = make(map[string]presence.Session)
	r.mu.Unlock()
}

package session

import (
	"sync"

	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
)

// DefaultSessionID names the session every connection lands in unless a
// join message asks for another by id.
const DefaultSessionID = "default"

// Registry is a thread-safe map of session id to Session, bootstrapped
// with a "default" session so single-session deployments never need to
// create one explicitly.
type Registry struct {
	pool *pool.Pool[orderbook.Order]

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions share p as their order
// allocator, pre-populated with the default session.
func NewRegistry(p *pool.Pool[orderbook.Order]) *Registry {
	r := &Registry{
		pool:     p,
		sessions: make(map[string]*Session),
	}
	r.sessions[DefaultSessionID] = New(DefaultSessionID, p)
	return r
}

// GetOrCreate returns the session for id, creating an empty one if it
// does not exist yet.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[id]; ok {
		return s
	}
	s = New(id, r.pool)
	r.sessions[id] = s
	return s
}

// Default returns the always-present default session.
func (r *Registry) Default() *Session {
	return r.GetOrCreate(DefaultSessionID)
}

// Get looks up a session without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// IDs returns the ids of every session currently registered.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

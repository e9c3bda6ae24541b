package services

import (
	"sync"
)

// Registry maps session ids to live sessions. The lock is held only for
// map operations, never across PTY I/O or sink sends.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*ptySession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*ptySession)}
}

// Put registers s under its id and returns the session it replaced, if any.
// The caller must release the replaced session.
func (r *Registry) Put(s *ptySession) *ptySession {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[s.id]
	r.sessions[s.id] = s
	return prev
}

// Get looks up a session.
func (r *Registry) Get(id string) (*ptySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove unregisters a session and returns it, or nil if id is unknown.
func (r *Registry) Remove(id string) *ptySession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return s
}

// Snapshot returns every registered session in no particular order.
func (r *Registry) Snapshot() []*ptySession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*ptySession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Drain unregisters and returns every session.
func (r *Registry) Drain() []*ptySession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*ptySession, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

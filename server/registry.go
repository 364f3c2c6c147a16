package server

import "sync"

// Registry is the authoritative in-memory map of currently reachable
// usernames to their live session. It holds non-owning references: a
// session registers itself on login and is removed on close, and the
// registry never touches a session's lifecycle.
//
// All operations take the one lock as a unit, so readers never observe a
// half-applied registration. Callers that fan out (roster broadcast,
// group delivery) take a snapshot and do their I/O after the lock is
// released.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register binds a username to a session. It refuses a second live
// session for the same username, which keeps the at-most-one invariant
// under concurrent logins.
func (r *Registry) Register(username string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.sessions[username]; taken {
		return false
	}
	r.sessions[username] = s
	return true
}

// Unregister removes a session by identity, not by name, so a stale
// close can never evict a fresh re-registration under the same username.
// Unregistering a session that is not present is a no-op; concurrent
// close paths may both call this.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, sess := range r.sessions {
		if sess == s {
			delete(r.sessions, name)
			return
		}
	}
}

// Lookup returns the live session serving a username, if any.
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[username]
	return s, ok
}

// Snapshot copies the current session handles. The copy is what fan-out
// paths iterate so no I/O ever happens under the registry lock.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

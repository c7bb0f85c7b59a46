package presence

import "sync"

// Registry is the single source of truth for "is user X online". A user is in
// the map iff it has at least one live connection; the entry is removed, not
// left empty, when the last connection closes.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{} // userID -> connection ids
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]struct{})}
}

// Admit registers a connection under a user and reports whether this was the
// user's first live connection (an online transition).
func (r *Registry) Admit(userID, connID string) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
		first = true
	}
	set[connID] = struct{}{}
	return first
}

// Dismiss removes a connection and reports whether it was the user's last one
// (an offline transition). Dismissing an unknown connection is a no-op.
func (r *Registry) Dismiss(userID, connID string) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// OnlineUserIDs returns a snapshot of every user with at least one connection.
func (r *Registry) OnlineUserIDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.conns))
	for id := range r.conns {
		out[id] = struct{}{}
	}
	return out
}

// ConnectionCount reports how many live connections a user has.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

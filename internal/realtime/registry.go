package realtime

import (
	"errors"
	"sort"
	"sync"
)

var ErrTooManyConnections = errors.New("too many connections for user")

// Registry maps user ids to their live sessions. A user is online iff they
// have at least one registered session.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Session // userID -> connID -> session
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]Session)}
}

// Register adds s and reports whether it is the user's first live session.
// A positive limit caps the sessions one user may hold.
func (r *Registry) Register(s Session, limit int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.users[s.UserID()]
	if limit > 0 && len(conns) >= limit {
		return false, ErrTooManyConnections
	}
	if conns == nil {
		conns = make(map[string]Session)
		r.users[s.UserID()] = conns
	}
	conns[s.ID()] = s
	return len(conns) == 1, nil
}

// Unregister removes a session and reports whether it was the user's last.
// Unknown sessions are ignored.
func (r *Registry) Unregister(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// ConnectionsFor returns a snapshot of the user's sessions, empty if offline.
func (r *Registry) ConnectionsFor(userID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.users[userID]
	out := make([]Session, 0, len(conns))
	for _, s := range conns {
		out = append(out, s)
	}
	return out
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

func (r *Registry) Contains(userID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID][connID]
	return ok
}

func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// OnlineUsers returns the online user ids, sorted.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// All returns every live session.
func (r *Registry) All() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Session
	for _, conns := range r.users {
		for _, s := range conns {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) TotalConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conns := range r.users {
		n += len(conns)
	}
	return n
}

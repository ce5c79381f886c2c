package realtime

import (
	"strings"
	"sync"
)

const routingKeySep = ":"

// RoutingKey is the conversation scope of two users: both ids sorted and
// joined with ':'. It is the same whichever side computes it.
func RoutingKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + routingKeySep + b
}

// ParseRoutingKey splits a canonical key. Keys that are unsorted, name the
// same user twice or have an empty side are rejected.
func ParseRoutingKey(key string) (string, string, bool) {
	parts := strings.Split(key, routingKeySep)
	if len(parts) != 2 {
		return "", "", false
	}
	a, b := parts[0], parts[1]
	if a == "" || b == "" || a >= b {
		return "", "", false
	}
	return a, b, true
}

// Rooms tracks advisory scope membership used by the typing relay.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]Session  // key -> connID -> session
	joined  map[string]map[string]struct{} // connID -> keys
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]Session),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (r *Rooms) Join(s Session, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[key] == nil {
		r.members[key] = make(map[string]Session)
	}
	r.members[key][s.ID()] = s

	if r.joined[s.ID()] == nil {
		r.joined[s.ID()] = make(map[string]struct{})
	}
	r.joined[s.ID()][key] = struct{}{}
}

func (r *Rooms) Leave(connID, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, key)
}

// LeaveAll drops the connection from every scope it joined.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.joined[connID] {
		r.leaveLocked(connID, key)
	}
}

func (r *Rooms) leaveLocked(connID, key string) {
	if members, ok := r.members[key]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, key)
		}
	}
	if keys, ok := r.joined[connID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.joined, connID)
		}
	}
}

// Members returns a snapshot of the sessions in key.
func (r *Rooms) Members(key string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.members[key]
	out := make([]Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

func (r *Rooms) IsMember(connID, key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[key][connID]
	return ok
}

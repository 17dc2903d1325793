package websocket

import (
	"sync"

	"github.com/parcelworks/assessor-backend/internal/observability/metrics"
)

// SessionRegistry owns the sessionID → (userID → client) mapping. It is the
// only shared mutable state in the hub; every membership change goes through
// Join and Leave.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[int64]*Client
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]map[int64]*Client),
	}
}

// Join inserts the client under (sessionID, userID), creating the session
// entry lazily. A duplicate join for the same slot overwrites the previous
// client (last join wins) and returns it so the hub can close it.
func (r *SessionRegistry) Join(sessionID string, userID int64, c *Client) (evicted *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.sessions[sessionID]
	if !ok {
		members = make(map[int64]*Client)
		r.sessions[sessionID] = members
		metrics.CollabSessionsActive.Inc()
	}

	if prev, ok := members[userID]; ok && prev != c {
		evicted = prev
	}
	members[userID] = c
	return evicted
}

// Leave removes the client from whatever session it belongs to, identified by
// connection identity. An evicted client whose slot was already overwritten is
// not found and leaves membership untouched. The session entry is deleted the
// moment its member map becomes empty.
func (r *SessionRegistry) Leave(c *Client) (sessionID string, userID int64, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, userID, ok = r.locate(c)
	if !ok {
		return "", 0, 0, false
	}

	members := r.sessions[sessionID]
	delete(members, userID)
	if len(members) == 0 {
		delete(r.sessions, sessionID)
		metrics.CollabSessionsActive.Dec()
	}
	return sessionID, userID, len(members), true
}

// FindByClient resolves the owning (sessionID, userID) for a connection.
func (r *SessionRegistry) FindByClient(c *Client) (sessionID string, userID int64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locate(c)
}

func (r *SessionRegistry) locate(c *Client) (string, int64, bool) {
	for sessionID, members := range r.sessions {
		for userID, member := range members {
			if member == c {
				return sessionID, userID, true
			}
		}
	}
	return "", 0, false
}

// SnapshotMembers returns a copy of the session's current members so callers
// can perform blocking writes without holding the registry lock.
func (r *SessionRegistry) SnapshotMembers(sessionID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.sessions[sessionID]
	snapshot := make([]*Client, 0, len(members))
	for _, member := range members {
		snapshot = append(snapshot, member)
	}
	return snapshot
}

// SessionCounts returns member counts for all live sessions.
func (r *SessionRegistry) SessionCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.sessions))
	for sessionID, members := range r.sessions {
		counts[sessionID] = len(members)
	}
	return counts
}

// AllClients snapshots every registered client across sessions.
func (r *SessionRegistry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for _, members := range r.sessions {
		for _, member := range members {
			clients = append(clients, member)
		}
	}
	return clients
}

package websocket

import "time"

// MemberInfo is the read-only presence view of one session member, exposed to
// dashboards and pushed in session_state frames.
type MemberInfo struct {
	UserID       int64     `json:"userId"`
	UserName     string    `json:"userName"`
	UserRole     string    `json:"userRole"`
	LastActivity time.Time `json:"lastActivity"`
}

// ActiveSessions returns member counts for every session with at least one
// member. Never mutates the registry.
func (h *Hub) ActiveSessions() map[string]int {
	return h.registry.SessionCounts()
}

// ActiveMembers returns the current members of a session; order is
// unspecified. An unknown session yields an empty slice.
func (h *Hub) ActiveMembers(sessionID string) []MemberInfo {
	members := h.registry.SnapshotMembers(sessionID)
	infos := make([]MemberInfo, 0, len(members))
	for _, member := range members {
		infos = append(infos, MemberInfo{
			UserID:       member.userID,
			UserName:     member.userName,
			UserRole:     member.userRole,
			LastActivity: member.lastActivityTime(),
		})
	}
	return infos
}

package websocket

import (
	"encoding/json"
	"time"

	"github.com/parcelworks/assessor-backend/internal/store"
)

type MessageType string

// Handshake and control frames use lowercase identifiers; application events
// fanned out to session members use the uppercase identifiers shared with the
// front office clients.
const (
	TypeAuthRequired   MessageType = "auth_required"
	TypeAuthenticate   MessageType = "authenticate"
	TypeAuthSuccess    MessageType = "auth_success"
	TypeSessionState   MessageType = "session_state"
	TypeRecentActivity MessageType = "recent_activity"
	TypeError          MessageType = "error"

	TypeChatMessage  MessageType = "CHAT_MESSAGE"
	TypeStatusUpdate MessageType = "STATUS_UPDATE"
	TypeTaskAssigned MessageType = "TASK_ASSIGNED"
	TypeTaskUpdated  MessageType = "TASK_UPDATED"
	TypeCommentAdded MessageType = "COMMENT_ADDED"
	TypeUserActivity MessageType = "USER_ACTIVITY"
	TypeJoinSession  MessageType = "JOIN_SESSION"
	TypeLeaveSession MessageType = "LEAVE_SESSION"
)

func (mt MessageType) String() string {
	return string(mt)
}

// systemSenderName is stamped on hub-originated notices such as join/leave
// events; their senderId is always 0.
const systemSenderName = "System"

// Envelope is the common header of every application message. The server
// overwrites SenderID, SenderName and Timestamp on inbound messages so
// clients cannot spoof them.
type Envelope struct {
	Type       MessageType `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	SessionID  string      `json:"sessionId"`
	SenderID   int64       `json:"senderId"`
	SenderName string      `json:"senderName"`
}

type ChatMessage struct {
	Envelope
	Content  string `json:"content"`
	ThreadID string `json:"threadId,omitempty"`
}

type StatusUpdate struct {
	Envelope
	Status   string `json:"status"`
	Activity string `json:"activity,omitempty"`
}

type TaskAssigned struct {
	Envelope
	TaskID       int64  `json:"taskId"`
	TaskTitle    string `json:"taskTitle"`
	AssigneeID   int64  `json:"assigneeId"`
	AssigneeName string `json:"assigneeName"`
	Priority     string `json:"priority"`
}

type TaskUpdated struct {
	Envelope
	TaskID        int64    `json:"taskId"`
	TaskTitle     string   `json:"taskTitle"`
	UpdatedFields []string `json:"updatedFields"`
	UpdatedBy     int64    `json:"updatedBy"`
	UpdatedByName string   `json:"updatedByName"`
}

type CommentAdded struct {
	Envelope
	TaskID    int64  `json:"taskId"`
	CommentID int64  `json:"commentId"`
	Content   string `json:"content"`
}

// UserActivity.Details is passed through opaquely; its schema belongs to the
// emitting client, not the hub.
type UserActivity struct {
	Envelope
	UserID       int64           `json:"userId"`
	UserName     string          `json:"userName"`
	ActivityType string          `json:"activityType"`
	EntityType   string          `json:"entityType,omitempty"`
	EntityID     int64           `json:"entityId,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
}

type MembershipEvent struct {
	Envelope
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	UserRole string `json:"userRole"`
}

type ErrorMessage struct {
	Envelope
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type AuthRequired struct {
	Type         MessageType `json:"type"`
	ConnectionID string      `json:"connectionId"`
	Message      string      `json:"message"`
	Timestamp    time.Time   `json:"timestamp"`
}

type Authenticate struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId" validate:"required"`
	UserID    int64       `json:"userId" validate:"required,gt=0"`
	UserName  string      `json:"userName"`
	UserRole  string      `json:"userRole"`
}

type AuthSuccess struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	UserID    int64       `json:"userId"`
}

type SessionState struct {
	Type        MessageType  `json:"type"`
	SessionID   string       `json:"sessionId"`
	ActiveUsers []MemberInfo `json:"activeUsers"`
	Timestamp   time.Time    `json:"timestamp"`
}

type RecentActivity struct {
	Type       MessageType            `json:"type"`
	SessionID  string                 `json:"sessionId"`
	Activities []store.ActivityRecord `json:"activities"`
	Timestamp  time.Time              `json:"timestamp"`
}

// messageHead is the minimal probe unmarshalled from every inbound frame
// before the router picks the concrete shape.
type messageHead struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
}

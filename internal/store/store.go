// Package store is the persistence collaborator consumed by the collaboration
// hub. The hub only reads session/user records and writes activity, chat and
// task updates through it; all schema ownership lives with the back office.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("collaboration session not found")
	ErrUserNotFound    = errors.New("user not found")
)

type Session struct {
	ID        string
	Title     string
	Status    string
	CreatedAt time.Time
}

type User struct {
	ID       int64
	Name     string
	Role     string
	Status   string
	LastSeen time.Time
}

// ActivityRecord's Details field is an opaque blob; its schema is owned by the
// clients that emit it, not by the hub.
type ActivityRecord struct {
	SessionID    string          `json:"sessionId"`
	UserID       int64           `json:"userId"`
	UserName     string          `json:"userName"`
	ActivityType string          `json:"activityType"`
	EntityType   string          `json:"entityType,omitempty"`
	EntityID     int64           `json:"entityId,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type ChatRecord struct {
	SessionID  string
	SenderID   int64
	SenderName string
	Content    string
	ThreadID   string
	SentAt     time.Time
}

type Store interface {
	GetSessionByID(ctx context.Context, sessionID string) (Session, error)
	GetUserByID(ctx context.Context, userID int64) (User, error)
	CreateActivityRecord(ctx context.Context, rec ActivityRecord) error
	RecentActivity(ctx context.Context, sessionID string, limit int) ([]ActivityRecord, error)
	PersistChatMessage(ctx context.Context, rec ChatRecord) error
	UpdateUserStatus(ctx context.Context, userID int64, status string) error
	UpdateTaskAssignment(ctx context.Context, taskID, assigneeID int64) error
}

package websocket

import (
	"context"
	"sync"

	"github.com/parcelworks/assessor-backend/internal/store"
)

type mockStore struct {
	mu sync.Mutex

	getSessionFunc func(ctx context.Context, sessionID string) (store.Session, error)
	getUserFunc    func(ctx context.Context, userID int64) (store.User, error)
	recentFunc     func(ctx context.Context, sessionID string, limit int) ([]store.ActivityRecord, error)

	chatFailure     error
	activityFailure error

	chatRecords     []store.ChatRecord
	activities      []store.ActivityRecord
	statusUpdates   map[int64]string
	taskAssignments map[int64]int64
}

func newMockStore() *mockStore {
	return &mockStore{
		statusUpdates:   make(map[int64]string),
		taskAssignments: make(map[int64]int64),
	}
}

func (m *mockStore) GetSessionByID(ctx context.Context, sessionID string) (store.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	if sessionID == "S1" || sessionID == "S2" {
		return store.Session{ID: sessionID, Title: "Assessment " + sessionID, Status: "active"}, nil
	}
	return store.Session{}, store.ErrSessionNotFound
}

func (m *mockStore) GetUserByID(ctx context.Context, userID int64) (store.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	if userID > 0 && userID < 100 {
		return store.User{ID: userID, Name: "stored-name", Role: "appraiser"}, nil
	}
	return store.User{}, store.ErrUserNotFound
}

func (m *mockStore) CreateActivityRecord(ctx context.Context, rec store.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activityFailure != nil {
		return m.activityFailure
	}
	m.activities = append(m.activities, rec)
	return nil
}

func (m *mockStore) RecentActivity(ctx context.Context, sessionID string, limit int) ([]store.ActivityRecord, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, sessionID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ActivityRecord
	for _, rec := range m.activities {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) PersistChatMessage(ctx context.Context, rec store.ChatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chatFailure != nil {
		return m.chatFailure
	}
	m.chatRecords = append(m.chatRecords, rec)
	return nil
}

func (m *mockStore) UpdateUserStatus(ctx context.Context, userID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates[userID] = status
	return nil
}

func (m *mockStore) UpdateTaskAssignment(ctx context.Context, taskID, assigneeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskAssignments[taskID] = assigneeID
	return nil
}

func (m *mockStore) chatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chatRecords)
}

func (m *mockStore) activityTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.activities))
	for _, rec := range m.activities {
		types = append(types, rec.ActivityType)
	}
	return types
}

package websocket

import (
	"context"
	"encoding/json"

	"github.com/parcelworks/assessor-backend/internal/common/logger"
	"github.com/parcelworks/assessor-backend/internal/observability/metrics"
	"github.com/parcelworks/assessor-backend/internal/store"
)

// Per-type handlers. Each persists through the storage collaborator
// best-effort, writes an activity record best-effort, and fans the stamped
// message out to the whole session including the sender, whose echo confirms
// delivery. Collaborator failures are logged and never abort the broadcast.

func (h *Hub) handleChatMessage(c *Client, msg *ChatMessage) {
	h.persist("chat_message", func(ctx context.Context) error {
		return h.store.PersistChatMessage(ctx, store.ChatRecord{
			SessionID:  msg.SessionID,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Content:    msg.Content,
			ThreadID:   msg.ThreadID,
			SentAt:     msg.Timestamp,
		})
	})

	h.logActivity(store.ActivityRecord{
		SessionID:    msg.SessionID,
		UserID:       msg.SenderID,
		UserName:     msg.SenderName,
		ActivityType: "chat_message",
		CreatedAt:    msg.Timestamp,
	})

	h.Broadcast(msg.SessionID, msg)
}

func (h *Hub) handleStatusUpdate(c *Client, msg *StatusUpdate) {
	h.persist("user_status", func(ctx context.Context) error {
		return h.store.UpdateUserStatus(ctx, msg.SenderID, msg.Status)
	})

	h.logActivity(store.ActivityRecord{
		SessionID:    msg.SessionID,
		UserID:       msg.SenderID,
		UserName:     msg.SenderName,
		ActivityType: "status_update",
		Details:      mustDetails(map[string]string{"status": msg.Status, "activity": msg.Activity}),
		CreatedAt:    msg.Timestamp,
	})

	h.Broadcast(msg.SessionID, msg)
}

func (h *Hub) handleTaskAssigned(c *Client, msg *TaskAssigned) {
	h.persist("task_assignment", func(ctx context.Context) error {
		return h.store.UpdateTaskAssignment(ctx, msg.TaskID, msg.AssigneeID)
	})

	h.logActivity(store.ActivityRecord{
		SessionID:    msg.SessionID,
		UserID:       msg.SenderID,
		UserName:     msg.SenderName,
		ActivityType: "task_assigned",
		EntityType:   "task",
		EntityID:     msg.TaskID,
		Details:      mustDetails(map[string]any{"assigneeId": msg.AssigneeID, "assigneeName": msg.AssigneeName, "priority": msg.Priority}),
		CreatedAt:    msg.Timestamp,
	})

	h.Broadcast(msg.SessionID, msg)
}

func (h *Hub) handleTaskUpdated(c *Client, msg *TaskUpdated) {
	h.logActivity(store.ActivityRecord{
		SessionID:    msg.SessionID,
		UserID:       msg.SenderID,
		UserName:     msg.SenderName,
		ActivityType: "task_updated",
		EntityType:   "task",
		EntityID:     msg.TaskID,
		Details:      mustDetails(map[string]any{"updatedFields": msg.UpdatedFields}),
		CreatedAt:    msg.Timestamp,
	})

	h.Broadcast(msg.SessionID, msg)
}

func (h *Hub) handleCommentAdded(c *Client, msg *CommentAdded) {
	h.logActivity(store.ActivityRecord{
		SessionID:    msg.SessionID,
		UserID:       msg.SenderID,
		UserName:     msg.SenderName,
		ActivityType: "comment_added",
		EntityType:   "task",
		EntityID:     msg.TaskID,
		CreatedAt:    msg.Timestamp,
	})

	h.Broadcast(msg.SessionID, msg)
}

func (h *Hub) handleUserActivity(c *Client, msg *UserActivity) {
	h.logActivity(store.ActivityRecord{
		SessionID:    msg.SessionID,
		UserID:       msg.SenderID,
		UserName:     msg.SenderName,
		ActivityType: msg.ActivityType,
		EntityType:   msg.EntityType,
		EntityID:     msg.EntityID,
		Details:      msg.Details,
		CreatedAt:    msg.Timestamp,
	})

	h.Broadcast(msg.SessionID, msg)
}

// persist runs one best-effort collaborator write with the configured
// timeout.
func (h *Hub) persist(operation string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.StoreTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		metrics.CollabStoreFailures.WithLabelValues(operation).Inc()
		h.log.WithFields(ctx, logger.Fields{
			"operation": operation,
			"action":    "ws_persist_failed",
		}).Warnf("collaborator write failed: %v", err)
	}
}

func mustDetails(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

package websocket

import (
	"encoding/json"

	commonerrors "github.com/parcelworks/assessor-backend/internal/common/errors"
	"github.com/parcelworks/assessor-backend/internal/common/logger"
	"github.com/parcelworks/assessor-backend/internal/observability/metrics"
)

// Router validates membership and session access for inbound application
// messages, stamps the server-side sender metadata, and dispatches to the
// per-type handler. The type switch is exhaustive over the closed message
// set; types the hub does not know arrive only from newer clients and are
// dropped without an error frame.
type Router struct {
	hub *Hub
	log *logger.Logger
}

func NewRouter(hub *Hub, log *logger.Logger) *Router {
	return &Router{hub: hub, log: log}
}

func (r *Router) Route(c *Client, head messageHead, raw []byte) {
	sessionID, _, ok := r.hub.registry.FindByClient(c)
	if !ok {
		// Stale or superseded membership: the client keeps the socket but
		// no handler runs.
		r.hub.sendError(c, commonerrors.ErrNotAuthenticated)
		return
	}

	if head.SessionID != sessionID {
		r.log.WithFields(nil, logger.Fields{
			"session_id": sessionID,
			"declared":   head.SessionID,
			"user_id":    c.userID,
			"action":     "ws_session_access_denied",
		}).Warn("websocket message for a session the sender is not a member of")
		r.hub.sendError(c, commonerrors.ErrSessionAccessDenied)
		return
	}

	now := r.hub.clock.Now()
	c.touch(now)

	env := Envelope{
		Type:       head.Type,
		Timestamp:  now,
		SessionID:  sessionID,
		SenderID:   c.userID,
		SenderName: c.userName,
	}

	switch head.Type {
	case TypeChatMessage:
		dispatch(r, c, raw, &ChatMessage{}, env, r.hub.handleChatMessage)

	case TypeStatusUpdate:
		dispatch(r, c, raw, &StatusUpdate{}, env, r.hub.handleStatusUpdate)

	case TypeTaskAssigned:
		dispatch(r, c, raw, &TaskAssigned{}, env, r.hub.handleTaskAssigned)

	case TypeTaskUpdated:
		dispatch(r, c, raw, &TaskUpdated{}, env, r.hub.handleTaskUpdated)

	case TypeCommentAdded:
		dispatch(r, c, raw, &CommentAdded{}, env, r.hub.handleCommentAdded)

	case TypeUserActivity:
		dispatch(r, c, raw, &UserActivity{}, env, r.hub.handleUserActivity)

	case TypeJoinSession, TypeLeaveSession:
		// Hub-originated notices; clients never send these.
		r.logUnroutable(c, head.Type)

	case TypeAuthRequired, TypeAuthenticate, TypeAuthSuccess,
		TypeSessionState, TypeRecentActivity, TypeError:
		// Handshake and control frames are handled before routing.
		r.logUnroutable(c, head.Type)

	default:
		r.log.WithFields(nil, logger.Fields{
			"type":    string(head.Type),
			"user_id": c.userID,
			"action":  "ws_unknown_message_type",
		}).Warn("websocket unknown message type ignored")
	}
}

// stampable is implemented by every routable message so the router can
// overwrite the envelope after unmarshalling.
type stampable interface {
	setEnvelope(env Envelope)
}

func (m *ChatMessage) setEnvelope(env Envelope)  { m.Envelope = env }
func (m *StatusUpdate) setEnvelope(env Envelope) { m.Envelope = env }
func (m *TaskAssigned) setEnvelope(env Envelope) { m.Envelope = env }
func (m *TaskUpdated) setEnvelope(env Envelope)  { m.Envelope = env }
func (m *CommentAdded) setEnvelope(env Envelope) { m.Envelope = env }
func (m *UserActivity) setEnvelope(env Envelope) { m.Envelope = env }

func dispatch[M stampable](r *Router, c *Client, raw []byte, msg M, env Envelope, handler func(*Client, M)) {
	if err := json.Unmarshal(raw, msg); err != nil {
		r.hub.sendError(c, commonerrors.ErrInvalidMessage)
		return
	}
	msg.setEnvelope(env)
	metrics.CollabMessagesTotal.WithLabelValues(string(env.Type)).Inc()
	handler(c, msg)
}

func (r *Router) logUnroutable(c *Client, msgType MessageType) {
	r.log.WithFields(nil, logger.Fields{
		"type":    string(msgType),
		"user_id": c.userID,
		"action":  "ws_unroutable_message_type",
	}).Warn("websocket message type not routable from clients, ignored")
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"

	"github.com/parcelworks/assessor-backend/internal/common/clock"
	"github.com/parcelworks/assessor-backend/internal/common/deadline"
	commonerrors "github.com/parcelworks/assessor-backend/internal/common/errors"
	"github.com/parcelworks/assessor-backend/internal/common/logger"
	"github.com/parcelworks/assessor-backend/internal/observability/metrics"
	"github.com/parcelworks/assessor-backend/internal/store"
)

type Config struct {
	AuthTimeout         time.Duration
	WriteWait           time.Duration
	PongWait            time.Duration
	PingPeriod          time.Duration
	MaxMessageSize      int64
	SendBufSize         int
	StoreTimeout        time.Duration
	RecentActivityLimit int
}

func (c *Config) applyDefaults() {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512 * 1024
	}
	if c.SendBufSize <= 0 {
		c.SendBufSize = 256
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.RecentActivityLimit <= 0 {
		c.RecentActivityLimit = 50
	}
}

// pendingAuth tracks a connection that has not yet authenticated. Exactly one
// entry exists per such connection; it is removed on successful authenticate,
// on deadline expiry, or on early close — whichever wins under the hub lock.
type pendingAuth struct {
	client   *Client
	deadline *deadline.Deadline
}

// Hub accepts connections, runs the bounded authentication handshake, and
// fans session events out to members through the registry.
type Hub struct {
	registry *SessionRegistry
	store    store.Store
	log      *logger.Logger
	clock    clock.Clock
	validate *validator.Validate
	router   *Router
	cfg      Config

	mu      sync.Mutex
	pending map[string]*pendingAuth
}

func NewHub(log *logger.Logger, st store.Store, clk clock.Clock, cfg Config) *Hub {
	cfg.applyDefaults()

	h := &Hub{
		registry: NewSessionRegistry(),
		store:    st,
		log:      log,
		clock:    clk,
		validate: validator.New(),
		cfg:      cfg,
		pending:  make(map[string]*pendingAuth),
	}
	h.router = NewRouter(h, log)
	return h
}

func (h *Hub) Registry() *SessionRegistry {
	return h.registry
}

// HandleConnection takes ownership of a freshly upgraded socket: it issues a
// connection id, arms the authentication deadline and sends the auth_required
// notice. The connection either authenticates before the deadline or is
// closed.
func (h *Hub) HandleConnection(conn *gorillaWS.Conn) {
	connectionID := uuid.NewString()
	client := newClient(h, conn, connectionID, h.log)

	h.registerPending(client)

	metrics.CollabConnectionsActive.Inc()
	h.log.WithFields(nil, logger.Fields{
		"connection_id": connectionID,
		"action":        "ws_connected",
	}).Info("websocket connection accepted, awaiting authentication")

	client.start()

	notice := AuthRequired{
		Type:         TypeAuthRequired,
		ConnectionID: connectionID,
		Message:      "authenticate within the allowed window",
		Timestamp:    h.clock.Now(),
	}
	h.sendMessage(client, notice)
}

// registerPending tracks a not-yet-authenticated connection. The entry is
// registered and its deadline armed under one lock hold; expireAuth also
// takes the lock, so the timer can never observe a half-registered entry.
func (h *Hub) registerPending(client *Client) {
	entry := &pendingAuth{client: client}
	h.mu.Lock()
	h.pending[client.connectionID] = entry
	entry.deadline = deadline.After(h.cfg.AuthTimeout, func() {
		h.expireAuth(client.connectionID)
	})
	h.mu.Unlock()
}

// HandleFrame processes one inbound frame on the connection's read goroutine,
// preserving per-connection FIFO order. Panics in handlers are confined to
// the frame.
func (h *Hub) HandleFrame(c *Client, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithFields(nil, logger.Fields{
				"connection_id": c.connectionID,
				"action":        "ws_frame_panic",
			}).Errorf("recovered from frame handler panic: %v", r)
		}
	}()

	var head messageHead
	if err := json.Unmarshal(raw, &head); err != nil {
		h.sendError(c, commonerrors.ErrInvalidMessage)
		return
	}

	if head.Type == TypeAuthenticate {
		if c.authenticated.Load() {
			// No transition back to pending: a second authenticate on a
			// live connection is ignored.
			h.log.WithFields(nil, logger.Fields{
				"connection_id": c.connectionID,
				"user_id":       c.userID,
				"action":        "ws_reauthenticate_ignored",
			}).Warn("websocket authenticate on already-authenticated connection ignored")
			return
		}
		h.handleAuthenticate(c, raw)
		return
	}

	if !c.authenticated.Load() {
		h.sendError(c, commonerrors.ErrNotAuthenticated)
		return
	}

	h.router.Route(c, head, raw)
}

func (h *Hub) handleAuthenticate(c *Client, raw []byte) {
	var req Authenticate
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(c, commonerrors.ErrInvalidMessage)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(c, commonerrors.ErrInvalidMessage)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.StoreTimeout)
	defer cancel()

	if _, err := h.store.GetSessionByID(ctx, req.SessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			h.failAuth(c, commonerrors.ErrInvalidSession, req.SessionID)
		} else {
			h.log.WithFields(ctx, logger.Fields{
				"connection_id": c.connectionID,
				"session_id":    req.SessionID,
				"action":        "ws_auth_session_lookup",
			}).Errorf("session lookup failed: %v", err)
			h.failAuth(c, commonerrors.ErrAuthLookupFailed, req.SessionID)
		}
		return
	}

	user, err := h.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.failAuth(c, commonerrors.ErrInvalidUser, req.SessionID)
		} else {
			h.log.WithFields(ctx, logger.Fields{
				"connection_id": c.connectionID,
				"user_id":       req.UserID,
				"action":        "ws_auth_user_lookup",
			}).Errorf("user lookup failed: %v", err)
			h.failAuth(c, commonerrors.ErrAuthLookupFailed, req.SessionID)
		}
		return
	}

	userName := req.UserName
	if userName == "" {
		userName = user.Name
	}
	userRole := req.UserRole
	if userRole == "" {
		userRole = user.Role
	}

	// Deadline cancellation and the transition out of pending are
	// linearized under the hub lock so a concurrently firing timer can
	// never close a connection that just authenticated.
	h.mu.Lock()
	entry, ok := h.pending[c.connectionID]
	if !ok || !entry.deadline.Cancel() {
		h.mu.Unlock()
		return
	}
	delete(h.pending, c.connectionID)

	c.sessionID = req.SessionID
	c.userID = req.UserID
	c.userName = userName
	c.userRole = userRole
	c.touch(h.clock.Now())
	c.authenticated.Store(true)
	h.mu.Unlock()

	if evicted := h.registry.Join(req.SessionID, req.UserID, c); evicted != nil {
		h.log.WithFields(nil, logger.Fields{
			"session_id": req.SessionID,
			"user_id":    req.UserID,
			"action":     "ws_duplicate_join_evicted",
		}).Info("websocket closing superseded connection for duplicate join")
		evicted.close()
	}

	metrics.CollabAuthTotal.WithLabelValues("success").Inc()
	h.log.WithFields(nil, logger.Fields{
		"connection_id": c.connectionID,
		"session_id":    req.SessionID,
		"user_id":       req.UserID,
		"user_name":     userName,
		"action":        "ws_authenticated",
	}).Info("websocket client authenticated")

	h.sendMessage(c, AuthSuccess{
		Type:      TypeAuthSuccess,
		SessionID: req.SessionID,
		UserID:    req.UserID,
	})

	h.BroadcastSystem(req.SessionID, &MembershipEvent{
		Envelope: h.systemEnvelope(TypeJoinSession, req.SessionID),
		UserID:   req.UserID,
		UserName: userName,
		UserRole: userRole,
	}, req.UserID)

	h.sendMessage(c, SessionState{
		Type:        TypeSessionState,
		SessionID:   req.SessionID,
		ActiveUsers: h.ActiveMembers(req.SessionID),
		Timestamp:   h.clock.Now(),
	})

	activities, err := h.store.RecentActivity(ctx, req.SessionID, h.cfg.RecentActivityLimit)
	if err != nil {
		metrics.CollabStoreFailures.WithLabelValues("recent_activity").Inc()
		h.log.WithFields(ctx, logger.Fields{
			"session_id": req.SessionID,
			"action":     "ws_recent_activity_fetch",
		}).Warnf("recent activity fetch failed: %v", err)
		activities = nil
	}
	h.sendMessage(c, RecentActivity{
		Type:       TypeRecentActivity,
		SessionID:  req.SessionID,
		Activities: activities,
		Timestamp:  h.clock.Now(),
	})

	h.logActivity(store.ActivityRecord{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		UserName:     userName,
		ActivityType: "join_session",
		CreatedAt:    h.clock.Now(),
	})
}

// failAuth sends the specific error frame and closes the connection. The
// pending entry and its deadline are cleaned up by the disconnect path.
func (h *Hub) failAuth(c *Client, de commonerrors.DomainError, sessionID string) {
	metrics.CollabAuthTotal.WithLabelValues(de.Code()).Inc()
	h.log.WithFields(nil, logger.Fields{
		"connection_id": c.connectionID,
		"session_id":    sessionID,
		"action":        "ws_auth_failed",
		"code":          de.Code(),
	}).Warn("websocket authentication failed")
	h.sendError(c, de)
	c.close()
}

func (h *Hub) expireAuth(connectionID string) {
	h.mu.Lock()
	entry, ok := h.pending[connectionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.pending, connectionID)
	h.mu.Unlock()

	metrics.CollabAuthTotal.WithLabelValues("timeout").Inc()
	h.log.WithFields(nil, logger.Fields{
		"connection_id": connectionID,
		"action":        "ws_auth_timeout",
	}).Info("websocket authentication window expired")

	h.sendError(entry.client, commonerrors.ErrAuthTimeout)
	entry.client.close()
}

// Disconnect is the single cleanup path for a closing transport. A pending
// connection is discarded silently; a session member is removed and the rest
// of the session is notified.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if entry, ok := h.pending[c.connectionID]; ok {
		delete(h.pending, c.connectionID)
		h.mu.Unlock()
		entry.deadline.Cancel()
		metrics.CollabConnectionsActive.Dec()
		metrics.CollabDisconnections.WithLabelValues("unauthenticated").Inc()
		h.log.WithFields(nil, logger.Fields{
			"connection_id": c.connectionID,
			"action":        "ws_disconnect_pending",
		}).Info("websocket connection closed before authentication")
		return
	}
	h.mu.Unlock()

	metrics.CollabConnectionsActive.Dec()

	sessionID, userID, remaining, ok := h.registry.Leave(c)
	if !ok {
		// Already evicted by a duplicate join; nothing to announce.
		metrics.CollabDisconnections.WithLabelValues("superseded").Inc()
		return
	}

	metrics.CollabDisconnections.WithLabelValues("member").Inc()
	h.log.WithFields(nil, logger.Fields{
		"connection_id": c.connectionID,
		"session_id":    sessionID,
		"user_id":       userID,
		"remaining":     remaining,
		"action":        "ws_disconnect_member",
	}).Info("websocket session member disconnected")

	if remaining > 0 {
		h.BroadcastSystem(sessionID, &MembershipEvent{
			Envelope: h.systemEnvelope(TypeLeaveSession, sessionID),
			UserID:   userID,
			UserName: c.userName,
			UserRole: c.userRole,
		})
	}

	h.logActivity(store.ActivityRecord{
		SessionID:    sessionID,
		UserID:       userID,
		UserName:     c.userName,
		ActivityType: "leave_session",
		CreatedAt:    h.clock.Now(),
	})
}

// Broadcast serializes the message once and delivers it to every open member
// of the session except the excluded user ids. Unwritable members are skipped;
// their removal happens on their own close path, never here.
func (h *Hub) Broadcast(sessionID string, message any, excludeUserIDs ...int64) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithFields(nil, logger.Fields{
			"session_id": sessionID,
			"action":     "ws_broadcast_marshal",
		}).Errorf("broadcast marshal failed: %v", err)
		return
	}

	excluded := make(map[int64]struct{}, len(excludeUserIDs))
	for _, id := range excludeUserIDs {
		excluded[id] = struct{}{}
	}

	for _, member := range h.registry.SnapshotMembers(sessionID) {
		if _, skip := excluded[member.userID]; skip {
			continue
		}
		if !member.IsOpen() {
			continue
		}
		member.trySend(data)
	}
}

// BroadcastSystem stamps the hub's own sender identity before fanning out.
func (h *Hub) BroadcastSystem(sessionID string, message any, excludeUserIDs ...int64) {
	h.Broadcast(sessionID, message, excludeUserIDs...)
}

// SendToUser targets a single session member and reports whether delivery was
// attempted.
func (h *Hub) SendToUser(sessionID string, userID int64, message any) bool {
	data, err := json.Marshal(message)
	if err != nil {
		return false
	}
	for _, member := range h.registry.SnapshotMembers(sessionID) {
		if member.userID == userID && member.IsOpen() {
			return member.trySend(data)
		}
	}
	return false
}

func (h *Hub) systemEnvelope(msgType MessageType, sessionID string) Envelope {
	return Envelope{
		Type:       msgType,
		Timestamp:  h.clock.Now(),
		SessionID:  sessionID,
		SenderID:   0,
		SenderName: systemSenderName,
	}
}

func (h *Hub) sendMessage(c *Client, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithFields(nil, logger.Fields{
			"connection_id": c.connectionID,
			"action":        "ws_send_marshal",
		}).Errorf("message marshal failed: %v", err)
		return
	}
	c.trySend(data)
}

func (h *Hub) sendError(c *Client, de commonerrors.DomainError) {
	metrics.CollabErrorsTotal.WithLabelValues(de.Code()).Inc()
	h.sendMessage(c, ErrorMessage{
		Envelope: Envelope{
			Type:      TypeError,
			Timestamp: h.clock.Now(),
		},
		ErrorCode:    de.Code(),
		ErrorMessage: de.Message(),
	})
}

// logActivity writes an activity record best-effort; failures never affect
// protocol progress.
func (h *Hub) logActivity(rec store.ActivityRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.StoreTimeout)
	defer cancel()

	if err := h.store.CreateActivityRecord(ctx, rec); err != nil {
		metrics.CollabStoreFailures.WithLabelValues("activity_record").Inc()
		h.log.WithFields(ctx, logger.Fields{
			"session_id":    rec.SessionID,
			"user_id":       rec.UserID,
			"activity_type": rec.ActivityType,
			"action":        "ws_activity_log",
		}).Warnf("activity record write failed: %v", err)
	}
}

// Shutdown closes every pending and registered connection. Safe to call once
// during process teardown.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	pending := make([]*pendingAuth, 0, len(h.pending))
	for id, entry := range h.pending {
		pending = append(pending, entry)
		delete(h.pending, id)
	}
	h.mu.Unlock()

	for _, entry := range pending {
		entry.deadline.Cancel()
		entry.client.close()
	}

	clients := h.registry.AllClients()
	for _, client := range clients {
		client.close()
	}

	h.log.WithFields(ctx, logger.Fields{
		"pending": len(pending),
		"clients": len(clients),
		"action":  "ws_hub_shutdown",
	}).Info("collaboration hub shutdown completed")
	return nil
}

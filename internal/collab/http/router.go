package http

import (
	"net/http"
	"strings"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/parcelworks/assessor-backend/internal/collab/websocket"
	"github.com/parcelworks/assessor-backend/internal/common/config"
	commonhttp "github.com/parcelworks/assessor-backend/internal/common/http"
	"github.com/parcelworks/assessor-backend/internal/common/logger"
)

type Handler struct {
	hub      *websocket.Hub
	upgrader gorillaWS.Upgrader
	log      *logger.Logger
	cfg      config.CollabConfig
}

type sessionSummary struct {
	SessionID   string `json:"sessionId"`
	MemberCount int    `json:"memberCount"`
}

func NewHandler(hub *websocket.Hub, cfg config.CollabConfig, log *logger.Logger) *Handler {
	return &Handler{
		hub: hub,
		cfg: cfg,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				host := r.Host
				if host == "" {
					host = r.URL.Host
				}
				return origin == "http://"+host || origin == "https://"+host
			},
		},
		log: log,
	}
}

// PresenceMux serves the read-only presence API for dashboards.
func (h *Handler) PresenceMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collab/sessions", commonhttp.RequireMethod(http.MethodGet)(commonhttp.WithTimeout(h.cfg.RequestTimeout)(h.listSessions)))
	mux.HandleFunc("/api/collab/sessions/", commonhttp.RequireMethod(http.MethodGet)(commonhttp.WithTimeout(h.cfg.RequestTimeout)(h.listMembers)))
	return mux
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "ws_upgrade_failed",
		}).Errorf("websocket upgrade failed: %v", err)
		return
	}

	h.hub.HandleConnection(conn)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	counts := h.hub.ActiveSessions()

	sessions := make([]sessionSummary, 0, len(counts))
	for sessionID, count := range counts {
		sessions = append(sessions, sessionSummary{SessionID: sessionID, MemberCount: count})
	}

	commonhttp.WriteJSON(w, http.StatusOK, sessions)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := extractSessionID(r.URL.Path)
	if !ok {
		commonhttp.WriteError(w, http.StatusBadRequest, "session id is required")
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, h.hub.ActiveMembers(sessionID))
}

func extractSessionID(path string) (string, bool) {
	remaining := strings.TrimPrefix(path, "/api/collab/sessions/")
	remaining = strings.TrimSuffix(remaining, "/members")
	if remaining == "" || strings.Contains(remaining, "/") {
		return "", false
	}
	return remaining, true
}

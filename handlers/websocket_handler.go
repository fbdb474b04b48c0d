package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/court-scheduler/hub"
	"github.com/Dosada05/court-scheduler/middleware"
)

type WebSocketHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; "*" allows any origin.
func NewWebSocketHandler(h *hub.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
		logger: logger.With("component", "ws_handler"),
	}
}

// ServeWs godoc
// @Summary Subscribe to live schedule updates of a tournament
// @Tags realtime
// @Param tournamentID path int true "Tournament ID"
// @Success 101 "Switching Protocols"
// @Failure 503 {object} map[string]string "Subscriber capacity reached"
// @Router /ws/tournaments/{tournamentID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	connID := uuid.NewString()
	userID := middleware.UserIDOrAnonymous(r.Context())

	// Admission happens before the upgrade so a full hub answers with a plain 503.
	send, err := h.hub.Join(connID, tournamentID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		_ = h.hub.Disconnect(connID)
		return
	}

	client := hub.NewClient(h.hub, conn, connID, userID, send, h.logger)
	if err := h.hub.Notify(connID, "connected", map[string]any{
		"connection_id": connID,
		"tournament_id": tournamentID,
	}); err != nil {
		h.logger.Debug("welcome message not queued", slog.String("connection_id", connID), slog.Any("error", err))
	}
	if err := h.hub.Activate(connID); err != nil {
		h.logger.Warn("activate subscriber", slog.String("connection_id", connID), slog.Any("error", err))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("subscriber connected",
		slog.String("connection_id", connID),
		slog.Int("tournament_id", tournamentID),
		slog.Int("user_id", userID))
}

package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades authenticated requests to live-feed connections.
type WebSocketHandler struct {
	hub *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS already constrains browser callers; the cookie gate runs
		// before the upgrade.
		return true
	},
}

// Serve handles the WebSocket connection request. The session middleware has
// already authenticated the caller; non-admins are pinned to their own
// group's feed.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, apperr.Unauthorized("Authentication required"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	groupID := user.GroupID
	if user.IsAdmin {
		groupID = ws.AllGroups
	}

	client := ws.NewClient(h.hub, conn, user.ID, groupID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/uxlens/uxlens-backend/internal/platform/logger"
	"github.com/uxlens/uxlens-backend/internal/sse"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *sse.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*sse.SSEClient // key: owner user id
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log:     log.With("handler", "RealtimeHandler"),
		Hub:     hub,
		clients: make(map[uuid.UUID]*sse.SSEClient),
	}
}

// SSEStream opens the event stream for one owner. Session progress and
// terminal events are published on the owner's channel, so a single stream
// covers all of that owner's sessions.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}
	h.Log.Info("SSEStream open", "owner_user_id", ownerID.String())

	h.mu.Lock()
	// One stream per owner: a reconnect replaces the old client.
	if existing, ok := h.clients[ownerID]; ok {
		h.Hub.CloseClient(existing)
		delete(h.clients, ownerID)
	}
	client := h.Hub.NewSSEClient(ownerID)
	h.clients[ownerID] = client
	h.mu.Unlock()

	h.Hub.AddChannel(client, ownerID.String())

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[ownerID] == client {
		delete(h.clients, ownerID)
	}
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}

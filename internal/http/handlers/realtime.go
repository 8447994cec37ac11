package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	httpMW "github.com/clawbackhq/clawback-backend/internal/http/middleware"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(baseLog *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: baseLog.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// SSEStream opens the event stream for the authenticated user. Every
// workflow notification for the user lands on their user-ID channel, so
// a single subscription covers all of their syncs.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID := httpMW.UserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	client := h.hub.NewSSEClient(userID)
	client.Logger = h.log.With("sse_client_id", client.ID)
	h.hub.AddChannel(client, userID.String())
	h.log.Info("SSE stream open", "user_id", userID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
}

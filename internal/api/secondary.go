package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"replicated-log/internal/secondary"
)

// SecondaryHandler serves a replica's public read API and the /internal
// endpoints only the primary calls.
type SecondaryHandler struct {
	store  *secondary.Storage
	delay  time.Duration
	logger zerolog.Logger
}

// NewSecondaryHandler creates a handler around replica storage. delay is
// the artificial pause applied before every store, used to exercise
// out-of-order arrival and write-concern waiting.
func NewSecondaryHandler(store *secondary.Storage, delay time.Duration, logger zerolog.Logger) *SecondaryHandler {
	return &SecondaryHandler{store: store, delay: delay, logger: logger}
}

// Register mounts all secondary routes on r.
func (h *SecondaryHandler) Register(r *gin.Engine) {
	apiGroup := r.Group("/api")
	apiGroup.GET("/messages", h.ListMessages)
	apiGroup.GET("/health", h.Health)

	// Peer-only surface, called by the primary's replicator.
	internal := r.Group("/internal")
	internal.POST("/append", h.InternalAppend)
	internal.GET("/heartbeat", h.InternalHeartbeat)
}

// internalAppendRequest is the replication wire format.
type internalAppendRequest struct {
	ID      int64  `json:"id" binding:"required,min=1"`
	Content string `json:"content"`
}

// InternalAppend handles POST /internal/append.
//
// The call is idempotent: a duplicate id is reported as success so the
// primary's retry tasks can repeat deliveries freely.
func (h *SecondaryHandler) InternalAppend(c *gin.Context) {
	var body internalAppendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info().Int64("id", body.ID).Msg("secondary: append received")

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-c.Request.Context().Done():
			// Sender gave up; nothing was stored, the retry will
			// come back.
			c.Abort()
			return
		}
	}

	if added := h.store.Add(body.ID, body.Content); !added {
		h.logger.Info().Int64("id", body.ID).Msg("secondary: duplicate ignored")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// InternalHeartbeat handles GET /internal/heartbeat. Pure liveness probe:
// no body, no delay.
func (h *SecondaryHandler) InternalHeartbeat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

// ListMessages handles GET /api/messages. Only the contiguous prefix is
// returned; entries past the first gap stay hidden.
func (h *SecondaryHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.store.All()})
}

// Health handles GET /api/health — a readiness probe for load balancers,
// distinct from the replication heartbeat.
func (h *SecondaryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stored": h.store.Len()})
}

// Package api wires up the Gin routers for both node roles.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"replicated-log/internal/primary"
)

// PrimaryHandler serves the client-facing API of the primary node.
type PrimaryHandler struct {
	node *primary.Node
}

// NewPrimaryHandler creates a handler around the write coordinator.
func NewPrimaryHandler(node *primary.Node) *PrimaryHandler {
	return &PrimaryHandler{node: node}
}

// Register mounts all primary routes on r.
func (h *PrimaryHandler) Register(r *gin.Engine) {
	apiGroup := r.Group("/api")
	apiGroup.POST("/messages", h.AppendMessage)
	apiGroup.GET("/messages", h.ListMessages)
	apiGroup.GET("/health", h.Health)
}

// appendMessageRequest is the body of POST /api/messages. A missing
// write_concern defaults to 1 (primary-only acknowledgement).
type appendMessageRequest struct {
	Message      string `json:"message" binding:"required"`
	WriteConcern *int   `json:"write_concern" binding:"omitempty,min=1"`
}

// AppendMessage handles POST /api/messages.
//
// Status codes mirror the coordinator's outcomes: 503 when quorum is lost
// (nothing was written), 500 when the write concern was not met (the entry
// is on the primary and still being delivered), 200 otherwise.
func (h *PrimaryHandler) AppendMessage(c *gin.Context) {
	var body appendMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeConcern := 1
	if body.WriteConcern != nil {
		writeConcern = *body.WriteConcern
	}

	id, err := h.node.Append(c.Request.Context(), body.Message, writeConcern)
	switch {
	case errors.Is(err, primary.ErrQuorumLost):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
		return
	case errors.Is(err, primary.ErrWriteConcernUnmet):
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"message": body.Message,
		"status":  "success",
	})
}

// ListMessages handles GET /api/messages.
func (h *PrimaryHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.node.Messages()})
}

// Health handles GET /api/health.
func (h *PrimaryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.node.Health())
}

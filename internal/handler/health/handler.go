package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler manages health check endpoints
type Handler struct {
	readyFn  func() error
	statesFn func() map[string]string
}

// NewHandler creates a new health check handler. readyFn decides readiness;
// statesFn, when set, reports the load state of each address family.
func NewHandler(readyFn func() error, statesFn func() map[string]string) *Handler {
	return &Handler{readyFn: readyFn, statesFn: statesFn}
}

// Health is the liveness probe endpoint
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready is the readiness probe endpoint
// GET /ready
func (h *Handler) Ready(c *gin.Context) {
	body := gin.H{"status": "ready"}
	if h.statesFn != nil {
		body["data"] = h.statesFn()
	}

	if h.readyFn != nil {
		if err := h.readyFn(); err != nil {
			body["status"] = "not ready"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}

	c.JSON(http.StatusOK, body)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
	status func() map[string]interface{}
}

// NewHealthHandler creates a health handler. status, when set, is included in
// the readiness report.
func NewHealthHandler(checks map[string]HealthCheck, status func() map[string]interface{}) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		status: status,
	}
}

// GetHealth returns 200 while the server is running.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "ff-draft-sim",
	})
}

// GetReady runs every dependency check and reports 503 if any fails.
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			ready = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	body := gin.H{"checks": results}
	if h.status != nil {
		body["scheduler"] = h.status()
	}
	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}

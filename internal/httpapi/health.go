package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/idempotency"
	"github.com/yungbote/lesson-pipeline/internal/opstore"
)

// HealthHandler backs GET /health and GET /ready (spec.md §4.5, §6.2).
// Health reports liveness only; Ready additionally pings both stores and the
// idempotency cache so a load balancer never routes traffic to an instance
// that cannot actually serve a request.
type HealthHandler struct {
	ops  *opstore.Store
	an   *analyticalstore.Store
	idem *idempotency.Cache
}

func NewHealthHandler(ops *opstore.Store, an *analyticalstore.Store, idem *idempotency.Cache) *HealthHandler {
	return &HealthHandler{ops: ops, an: an, idem: idem}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if err := h.ops.Ping(); err != nil {
		checks["mysql"] = err.Error()
		ready = false
	} else {
		checks["mysql"] = "ok"
	}

	if err := h.an.Ping(c.Request.Context()); err != nil {
		checks["postgres"] = err.Error()
		ready = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.idem.Ping(c.Request.Context()); err != nil {
		checks["redis"] = err.Error()
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}

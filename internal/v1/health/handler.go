package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
)

// checkTimeout bounds the whole readiness sweep; a hung dependency must not
// hold the probe past the kubelet's own timeout.
const checkTimeout = 3 * time.Second

// Pinger probes a single dependency. Implementations must honor the context
// deadline.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Handler serves the liveness and readiness probe endpoints.
type Handler struct {
	checks map[string]Pinger
}

// NewHandler creates a health handler over named dependency checks. With no
// checks, readiness reports process health only; single-instance deployments
// with a file-backed quiz repository have nothing external to probe.
func NewHandler(checks map[string]Pinger) *Handler {
	return &Handler{checks: checks}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 only if all registered dependencies are healthy
// Returns 503 if any dependency is unhealthy
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true

	for name, pinger := range h.checks {
		status := "healthy"
		if err := pinger.Ping(ctx); err != nil {
			logging.Error(ctx, "readiness check failed",
				zap.String("check", name), zap.Error(err))
			status = "unhealthy"
			allHealthy = false
		}
		checks[name] = status
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

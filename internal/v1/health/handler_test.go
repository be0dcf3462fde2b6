package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz/live", nil)

	handler.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
	assert.Contains(t, w.Body.String(), "timestamp")
}

func TestReadiness_NoChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Single-instance mode with a file-backed quiz repository has no
	// external dependencies to probe.
	handler := NewHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz/ready", nil)

	handler.Readiness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestReadiness_AllHealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(map[string]Pinger{
		"quiz_service": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":        PingFunc(func(ctx context.Context) error { return nil }),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz/ready", nil)

	handler.Readiness(c)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["quiz_service"])
	assert.Equal(t, "healthy", resp.Checks["redis"])
	assert.NotEmpty(t, resp.Timestamp)
}

func TestReadiness_DependencyDown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(map[string]Pinger{
		"quiz_service": PingFunc(func(ctx context.Context) error { return assert.AnError }),
		"redis":        PingFunc(func(ctx context.Context) error { return nil }),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz/ready", nil)

	handler.Readiness(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["quiz_service"])
	assert.Equal(t, "healthy", resp.Checks["redis"])
}

func TestReadiness_ChecksReceiveDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(map[string]Pinger{
		"quiz_service": PingFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "readiness checks must run under a deadline")
			return nil
		}),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz/ready", nil)

	handler.Readiness(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLiveness_IgnoresDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Liveness must stay green while dependencies burn; restarts do not fix
	// a down quiz service.
	handler := NewHandler(map[string]Pinger{
		"quiz_service": PingFunc(func(ctx context.Context) error { return assert.AnError }),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz/live", nil)

	handler.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}

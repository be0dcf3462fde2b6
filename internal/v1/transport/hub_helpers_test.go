package transport

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// Tests for extractToken

func TestExtractToken_FromHeader(t *testing.T) {
	hub := NewHub(&MockTokenValidator{}, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Sec-WebSocket-Protocol", "access_token, test-token-123")

	result, err := hub.extractToken(c)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "test-token-123", result.Token)
	assert.True(t, result.FromHeader)
	assert.True(t, result.HasAccessTokenProtocol)
}

func TestExtractToken_MissingHeaderIsAnonymous(t *testing.T) {
	hub := NewHub(&MockTokenValidator{}, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws", nil)

	result, err := hub.extractToken(c)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result.Token)
	assert.False(t, result.HasAccessTokenProtocol)
}

func TestExtractToken_MarkerWithoutValidToken(t *testing.T) {
	hub := NewHub(&MockTokenValidator{shouldFail: true}, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Sec-WebSocket-Protocol", "access_token, garbage-token")

	result, err := hub.extractToken(c)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "token not provided")
}

func TestExtractToken_MarkerAlone(t *testing.T) {
	hub := NewHub(&MockTokenValidator{}, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Sec-WebSocket-Protocol", "access_token")

	result, err := hub.extractToken(c)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "token not provided")
}

func TestExtractToken_BareTokenWithoutMarker(t *testing.T) {
	hub := NewHub(&MockTokenValidator{}, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Sec-WebSocket-Protocol", "raw-jwt-value")

	result, err := hub.extractToken(c)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "raw-jwt-value", result.Token)
	assert.True(t, result.FromHeader)
	assert.False(t, result.HasAccessTokenProtocol)
}

// A junk subprotocol with no access_token marker degrades to anonymous
// rather than failing the handshake.
func TestExtractToken_InvalidTokenWithoutMarker(t *testing.T) {
	hub := NewHub(&MockTokenValidator{shouldFail: true}, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Sec-WebSocket-Protocol", "some-subprotocol")

	result, err := hub.extractToken(c)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result.Token)
}

// Tests for validateOrigin

func TestValidateOrigin_Allowed(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	allowedOrigins := []string{"http://localhost:3000", "https://quizdome.example.com"}

	err := validateOrigin(req, allowedOrigins)
	assert.NoError(t, err)
}

func TestValidateOrigin_Blocked(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "http://evil.example.com")

	allowedOrigins := []string{"http://localhost:3000", "https://quizdome.example.com"}

	err := validateOrigin(req, allowedOrigins)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "origin not allowed")
}

func TestValidateOrigin_MissingRejected(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)

	allowedOrigins := []string{"http://localhost:3000"}

	err := validateOrigin(req, allowedOrigins)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "origin required")
}

func TestValidateOrigin_NullRejected(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "null")

	allowedOrigins := []string{"http://localhost:3000"}

	err := validateOrigin(req, allowedOrigins)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "origin required")
}

func TestValidateOrigin_InvalidURL(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "://invalid-url")

	allowedOrigins := []string{"http://localhost:3000"}

	err := validateOrigin(req, allowedOrigins)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid origin")
}

func TestValidateOrigin_SchemeAndHostMatchRequired(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://localhost:3000")

	allowedOrigins := []string{"http://localhost:3000"}

	err := validateOrigin(req, allowedOrigins)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "origin not allowed")
}

func TestValidateOrigin_TrimsAllowedEntries(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	allowedOrigins := []string{"  http://localhost:3000  "}

	err := validateOrigin(req, allowedOrigins)
	assert.NoError(t, err)
}

// Tests for authenticateUser

func TestAuthenticateUser_Valid(t *testing.T) {
	hub := NewHub(&MockTokenValidator{shouldFail: false}, nil)

	claims, err := hub.authenticateUser("valid-token")

	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, "auth0|host-test", claims.Subject)
}

func TestAuthenticateUser_Invalid(t *testing.T) {
	hub := NewHub(&MockTokenValidator{shouldFail: true}, nil)

	claims, err := hub.authenticateUser("invalid-token")

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.Contains(t, err.Error(), "invalid token")
}

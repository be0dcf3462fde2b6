package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/auth"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
)

// tokenExtractionResult holds the result of token extraction.
type tokenExtractionResult struct {
	Token                  string
	FromHeader             bool
	HasAccessTokenProtocol bool
}

// extractToken pulls an optional JWT from the Sec-WebSocket-Protocol header.
// Browsers cannot set Authorization on WebSocket requests, so authenticated
// clients offer "access_token, <jwt>" as subprotocols. A missing header
// means an anonymous player or spectator; an access_token marker with no
// validating token is an authentication failure.
func (h *Hub) extractToken(c *gin.Context) (*tokenExtractionResult, error) {
	result := &tokenExtractionResult{}

	headerVal := c.GetHeader("Sec-WebSocket-Protocol")
	if headerVal == "" {
		return result, nil
	}

	parts := strings.Split(headerVal, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "access_token" {
			result.HasAccessTokenProtocol = true
			continue
		}
		if p == "" || result.Token != "" {
			continue
		}
		// Treat any other part as a candidate token; keep the first that
		// validates.
		if _, err := h.validator.ValidateToken(p); err == nil {
			result.Token = p
			result.FromHeader = true
		}
	}

	if result.HasAccessTokenProtocol && result.Token == "" {
		logging.Warn(context.Background(), "access_token subprotocol offered but no token validated")
		return nil, fmt.Errorf("token not provided")
	}

	return result, nil
}

// validateOrigin checks the request origin against the allowed list with
// exact scheme and host matching. Requests without an Origin header are
// rejected: every legitimate client of this endpoint is a browser.
func validateOrigin(r *http.Request, allowedOrigins []string) error {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		logging.Warn(context.Background(), "Missing or null origin header")
		return fmt.Errorf("origin required")
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Scheme == "" || originURL.Host == "" {
		logging.Warn(context.Background(), "Invalid origin URL", zap.String("origin", origin))
		return fmt.Errorf("invalid origin: %s", origin)
	}

	for _, allowed := range allowedOrigins {
		allowedURL, err := url.Parse(strings.TrimSpace(allowed))
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return nil
		}
	}

	logging.Warn(context.Background(), "Origin not in allowed list",
		zap.String("origin", origin), zap.Strings("allowedOrigins", allowedOrigins))
	return fmt.Errorf("origin not allowed: %s", origin)
}

// authenticateUser validates the token and extracts claims.
func (h *Hub) authenticateUser(token string) (*auth.CustomClaims, error) {
	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		logging.Warn(context.Background(), "Token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	logging.GetLogger().Debug("User authenticated", zap.String("userId", claims.Subject))
	return claims, nil
}

// upgradeWebSocket handles the WebSocket upgrade process, echoing the
// access_token subprotocol when the client offered one.
func (h *Hub) upgradeWebSocket(c *gin.Context, allowedOrigins []string, tokenResult *tokenExtractionResult) (wsConnection, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return validateOrigin(r, allowedOrigins) == nil
		},
		WriteBufferPool: &sync.Pool{
			New: func() any {
				return make([]byte, 4096)
			},
		},
	}

	responseHeader := http.Header{}
	if tokenResult.FromHeader {
		if tokenResult.HasAccessTokenProtocol {
			responseHeader.Set("Sec-WebSocket-Protocol", "access_token")
		} else {
			responseHeader.Set("Sec-WebSocket-Protocol", tokenResult.Token)
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, responseHeader)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to upgrade connection", zap.Error(err))
		return nil, err
	}

	return conn, nil
}

package transport

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const (
	qrDefaultSize = 256
	qrMinSize     = 128
	qrMaxSize     = 1024
)

// roomChecker is the read slice of the store the QR handler needs.
type roomChecker interface {
	Exists(pin types.PinType) bool
}

// JoinQRHandler serves a PNG QR code pointing players at the join page for
// a live room. Unknown or badly formed PINs return 404 so the endpoint
// cannot be used to probe PIN space cheaply; pair it with the public rate
// limit.
func JoinQRHandler(rooms roomChecker, publicJoinURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param("pin")
		if !game.ValidPin(raw) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		pin := types.PinType(raw)
		if !rooms.Exists(pin) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}

		size := qrDefaultSize
		if s := c.Query("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < qrMinSize || n > qrMaxSize {
				c.JSON(http.StatusBadRequest, gin.H{"error": "size must be an integer between 128 and 1024"})
				return
			}
			size = n
		}

		joinURL, err := url.Parse(publicJoinURL)
		if err != nil {
			logging.Error(c.Request.Context(), "invalid public join URL", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "join URL misconfigured"})
			return
		}
		query := joinURL.Query()
		query.Set("pin", raw)
		joinURL.RawQuery = query.Encode()

		png, err := qrcode.Encode(joinURL.String(), qrcode.Medium, size)
		if err != nil {
			logging.Error(c.Request.Context(), "failed to encode join QR", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render QR code"})
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}

// Package token issues the opaque session tokens handed to hosts, players
// and spectators. Possession of a token is the only proof of identity a
// reconnecting participant has, so tokens carry 128 bits of entropy.
package token

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const tokenBytes = 16

// New returns a fresh random session token as 32 hex characters.
func New() types.TokenType {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// Same stance as PIN generation: no entropy, no service.
		panic(err)
	}
	return types.TokenType(hex.EncodeToString(buf))
}

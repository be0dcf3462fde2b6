package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Format(t *testing.T) {
	tok := New()
	assert.Len(t, string(tok), 32)

	raw, err := hex.DecodeString(string(tok))
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}

func TestNew_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		tok := string(New())
		assert.False(t, seen[tok], "token %s issued twice", tok)
		seen[tok] = true
	}
}

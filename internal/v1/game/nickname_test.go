package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
)

func TestParseNickname_Valid(t *testing.T) {
	n, err := ParseNickname("Quiz_Master-1")
	require.NoError(t, err)
	assert.Equal(t, "Quiz_Master-1", n.Raw)
	assert.Equal(t, "quiz_master-1", n.Normalized)
}

func TestParseNickname_TrimsSurroundingWhitespace(t *testing.T) {
	n, err := ParseNickname("  Alice  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", n.Raw)
	assert.Equal(t, "alice", n.Normalized)
}

func TestParseNickname_Length(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"one char too short", "a", true},
		{"two chars ok", "ab", false},
		{"fifteen chars ok", strings.Repeat("a", 15), false},
		{"sixteen chars too long", strings.Repeat("a", 16), true},
		{"empty", "", true},
		{"only whitespace", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNickname(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, apperr.KindValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseNickname_Charset(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"letters digits", "abc123", false},
		{"underscore and hyphen", "a_b-c", false},
		{"inner space", "ab cd", true},
		{"emoji", "ab😀", true},
		{"punctuation", "ab!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNickname(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeNickname_CaseInsensitive(t *testing.T) {
	assert.Equal(t, NormalizeNickname("ALICE"), NormalizeNickname("alice"))
	assert.Equal(t, "bob", NormalizeNickname("  BoB "))
}

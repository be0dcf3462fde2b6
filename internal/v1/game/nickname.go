package game

import (
	"regexp"
	"strings"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
)

const (
	nicknameMinLen = 2
	nicknameMaxLen = 15
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Nickname is a validated display name. Normalized is the trimmed,
// lower-cased form used for uniqueness and ban checks.
type Nickname struct {
	Raw        string
	Normalized string
}

// ParseNickname validates raw and returns its canonical forms.
func ParseNickname(raw string) (Nickname, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < nicknameMinLen || len(trimmed) > nicknameMaxLen {
		return Nickname{}, apperr.Validation("nickname must be between %d and %d characters", nicknameMinLen, nicknameMaxLen)
	}
	if !nicknamePattern.MatchString(trimmed) {
		return Nickname{}, apperr.Validation("nickname may only contain letters, digits, underscores and hyphens")
	}
	return Nickname{Raw: trimmed, Normalized: strings.ToLower(trimmed)}, nil
}

// NormalizeNickname returns the canonical comparison form of a nickname
// without validating it. Ban lists store this form.
func NormalizeNickname(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

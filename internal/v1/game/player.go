package game

import (
	"time"

	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Player is a scoring participant. The Room owns the row; the player keeps
// only the room PIN as a back-reference, never a pointer.
type Player struct {
	ID                 types.PlayerIDType
	Nickname           string
	NormalizedNickname string
	RoomPin            types.PinType
	SocketID           types.SocketIDType
	Token              types.TokenType
	Score              int
	Streak             int
	LastCorrectAt      time.Time
	DisconnectedAt     time.Time
}

// Connected reports whether the player currently has a live socket.
func (p *Player) Connected() bool {
	return p.SocketID != ""
}

// Spectator observes a room without answering. Same reconnect mechanics as
// a player, no score.
type Spectator struct {
	ID                 types.SpectatorIDType
	Nickname           string
	NormalizedNickname string
	RoomPin            types.PinType
	SocketID           types.SocketIDType
	Token              types.TokenType
	DisconnectedAt     time.Time
}

// Connected reports whether the spectator currently has a live socket.
func (s *Spectator) Connected() bool {
	return s.SocketID != ""
}

// AnswerRecord captures one player's answer for the current round.
type AnswerRecord struct {
	AnswerIndex int
	SubmittedAt time.Time
}

// PlayerInfo is the wire-safe projection of a player.
type PlayerInfo struct {
	ID        types.PlayerIDType `json:"playerId"`
	Nickname  string             `json:"nickname"`
	Score     int                `json:"score"`
	Streak    int                `json:"streak"`
	Connected bool               `json:"connected"`
}

// SpectatorInfo is the wire-safe projection of a spectator.
type SpectatorInfo struct {
	ID        types.SpectatorIDType `json:"spectatorId"`
	Nickname  string                `json:"nickname"`
	Connected bool                  `json:"connected"`
}

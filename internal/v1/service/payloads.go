package service

import (
	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/timer"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Outbound payload shapes. Every struct here marshals to the `data` member
// of the socket envelope; field names are part of the wire contract.

// RoomSnapshot is the full room state a (re)connecting client needs to
// render: lifecycle, participants and the current timer position.
type RoomSnapshot struct {
	Pin             types.PinType        `json:"pin"`
	State           game.State           `json:"state"`
	QuizTitle       string               `json:"quizTitle"`
	CurrentQuestion int                  `json:"currentQuestion"`
	TotalQuestions  int                  `json:"totalQuestions"`
	Players         []game.PlayerInfo    `json:"players"`
	Spectators      []game.SpectatorInfo `json:"spectators"`
	AnsweredCount   int                  `json:"answeredCount"`
	HostConnected   bool                 `json:"hostConnected"`
	Timer           timer.Sync           `json:"timer"`
}

// RoomCreatedPayload answers a successful create_room. The host token is
// only ever unicast to the host's own socket.
type RoomCreatedPayload struct {
	Pin            types.PinType    `json:"pin"`
	HostToken      types.TokenType  `json:"hostToken"`
	QuizID         types.QuizIDType `json:"quizId"`
	QuizTitle      string           `json:"quizTitle"`
	TotalQuestions int              `json:"totalQuestions"`
}

// RoomJoinedPayload answers a successful join_room, unicast to the joiner.
type RoomJoinedPayload struct {
	Pin         types.PinType      `json:"pin"`
	PlayerID    types.PlayerIDType `json:"playerId"`
	PlayerToken types.TokenType    `json:"playerToken"`
	Nickname    string             `json:"nickname"`
	Room        RoomSnapshot       `json:"room"`
}

// SpectatorJoinedSelfPayload answers a successful join_as_spectator.
type SpectatorJoinedSelfPayload struct {
	Pin            types.PinType         `json:"pin"`
	SpectatorID    types.SpectatorIDType `json:"spectatorId"`
	SpectatorToken types.TokenType       `json:"spectatorToken"`
	Nickname       string                `json:"nickname"`
	Room           RoomSnapshot          `json:"room"`
}

// PlayerJoinedPayload announces a new player to the room.
type PlayerJoinedPayload struct {
	Player      game.PlayerInfo `json:"player"`
	PlayerCount int             `json:"playerCount"`
}

// PlayerLeftPayload announces a hard removal: voluntary leave or grace
// expiry.
type PlayerLeftPayload struct {
	PlayerID    types.PlayerIDType `json:"playerId"`
	Nickname    string             `json:"nickname"`
	Reason      string             `json:"reason"`
	PlayerCount int                `json:"playerCount"`
}

// PlayerDisconnectedPayload announces a drop that may still reconnect.
type PlayerDisconnectedPayload struct {
	PlayerID types.PlayerIDType `json:"playerId"`
	Nickname string             `json:"nickname"`
	GraceMs  int64              `json:"graceMs"`
}

// PlayerKickedPayload announces a host-initiated removal.
type PlayerKickedPayload struct {
	PlayerID types.PlayerIDType `json:"playerId"`
	Nickname string             `json:"nickname"`
}

// PlayerBannedPayload announces a removal plus nickname ban.
type PlayerBannedPayload struct {
	PlayerID types.PlayerIDType `json:"playerId"`
	Nickname string             `json:"nickname"`
}

// KickedPayload is unicast to the removed player before their socket leaves
// the group. Reason is "kicked" or "banned".
type KickedPayload struct {
	Reason string `json:"reason"`
}

// PlayerReturnedPayload announces a successful player reconnect.
type PlayerReturnedPayload struct {
	Player game.PlayerInfo `json:"player"`
}

// SpectatorJoinedPayload announces a new spectator to the room.
type SpectatorJoinedPayload struct {
	Spectator      game.SpectatorInfo `json:"spectator"`
	SpectatorCount int                `json:"spectatorCount"`
}

// SpectatorLeftPayload announces a spectator's hard removal.
type SpectatorLeftPayload struct {
	SpectatorID    types.SpectatorIDType `json:"spectatorId"`
	Nickname       string                `json:"nickname"`
	Reason         string                `json:"reason"`
	SpectatorCount int                   `json:"spectatorCount"`
}

// SpectatorReturnedPayload announces a successful spectator reconnect.
type SpectatorReturnedPayload struct {
	Spectator game.SpectatorInfo `json:"spectator"`
}

// PlayersListPayload answers get_players.
type PlayersListPayload struct {
	Players []game.PlayerInfo `json:"players"`
}

// SpectatorsListPayload answers get_spectators.
type SpectatorsListPayload struct {
	Spectators []game.SpectatorInfo `json:"spectators"`
}

// BannedNicknamesPayload answers get_banned_nicknames.
type BannedNicknamesPayload struct {
	Nicknames []string `json:"nicknames"`
}

// NicknameUnbannedPayload announces a lifted ban.
type NicknameUnbannedPayload struct {
	Nickname string `json:"nickname"`
}

// GameStartedPayload opens the game.
type GameStartedPayload struct {
	QuizTitle      string `json:"quizTitle"`
	TotalQuestions int    `json:"totalQuestions"`
}

// QuestionIntroPayload presents the upcoming question. CorrectAnswerIndex is
// only set on the host/spectator variant; the player broadcast omits it.
type QuestionIntroPayload struct {
	QuestionIndex      int      `json:"questionIndex"`
	TotalQuestions     int      `json:"totalQuestions"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	TimeLimitSeconds   int      `json:"timeLimitSeconds"`
	Points             int      `json:"points"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
}

// AnsweringStartedPayload opens the answering window.
type AnsweringStartedPayload struct {
	QuestionIndex    int `json:"questionIndex"`
	TimeLimitSeconds int `json:"timeLimitSeconds"`
	OptionCount      int `json:"optionCount"`
}

// AnswerCountPayload updates the answered tally while a round runs.
type AnswerCountPayload struct {
	AnsweredCount int `json:"answeredCount"`
	TotalPlayers  int `json:"totalPlayers"`
}

// RoundEndedPayload is the player-facing round close: the correct answer,
// without the full distribution the host screen shows.
type RoundEndedPayload struct {
	CorrectAnswerIndex int `json:"correctAnswerIndex"`
}

// LeaderboardPayload carries the interstitial standings.
type LeaderboardPayload struct {
	Entries []game.LeaderboardEntry `json:"entries"`
}

// GameOverPayload announces the end of the quiz with the podium.
type GameOverPayload struct {
	Podium []game.LeaderboardEntry `json:"podium"`
}

// FinalResultsPayload carries the complete final standings.
type FinalResultsPayload struct {
	Standings []game.LeaderboardEntry `json:"standings"`
}

// ResultsPayload answers get_results with the room's current scoring view.
type ResultsPayload struct {
	State              game.State              `json:"state"`
	QuestionIndex      int                     `json:"questionIndex"`
	CorrectAnswerIndex int                     `json:"correctAnswerIndex"`
	Distribution       map[string]int          `json:"distribution,omitempty"`
	Standings          []game.LeaderboardEntry `json:"standings"`
}

// TimeExpiredPayload announces that the countdown closed the round.
type TimeExpiredPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

// GamePausedPayload announces a pause.
type GamePausedPayload struct {
	PausedAt int64 `json:"pausedAt"`
}

// GameResumedPayload announces a resume.
type GameResumedPayload struct {
	State           game.State `json:"state"`
	PauseDurationMs int64      `json:"pauseDurationMs"`
}

// RoomClosedPayload is the last event a room's sockets receive.
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// HostDisconnectedPayload tells the room the host dropped and how long the
// room survives without them.
type HostDisconnectedPayload struct {
	GraceMs int64 `json:"graceMs"`
}

// HostDisconnectWarningPayload is the one-shot warning near the end of the
// host grace window.
type HostDisconnectWarningPayload struct {
	RemainingMs int64 `json:"remainingMs"`
}

// HostReconnectedPayload is unicast to the returning host.
type HostReconnectedPayload struct {
	Pin  types.PinType `json:"pin"`
	Room RoomSnapshot  `json:"room"`
}

// PlayerReconnectedPayload is unicast to the returning player with their
// rotated token.
type PlayerReconnectedPayload struct {
	Pin         types.PinType      `json:"pin"`
	PlayerID    types.PlayerIDType `json:"playerId"`
	PlayerToken types.TokenType    `json:"playerToken"`
	Nickname    string             `json:"nickname"`
	Room        RoomSnapshot       `json:"room"`
}

// SpectatorReconnectedPayload is unicast to the returning spectator with
// their rotated token.
type SpectatorReconnectedPayload struct {
	Pin            types.PinType         `json:"pin"`
	SpectatorID    types.SpectatorIDType `json:"spectatorId"`
	SpectatorToken types.TokenType       `json:"spectatorToken"`
	Nickname       string                `json:"nickname"`
	Room           RoomSnapshot          `json:"room"`
}

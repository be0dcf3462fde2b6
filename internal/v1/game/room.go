package game

import (
	"sync"
	"time"

	"github.com/quizdome/quizdome/backend/go/internal/v1/types"

	"k8s.io/utils/set"
)

// Room is the authoritative state of one quiz game: the lifecycle state
// machine, participants, bans, scores and round bookkeeping. Every invariant
// the game relies on is enforced here; no field is mutated from outside.
//
// Concurrency Design:
// Mutex acquisition is centralized in the use-case layer. A use-case locks
// the room for its whole critical section (entity calls, repository save,
// event emission) so broadcasts observe a totally ordered room history.
// Every method below except Lock/Unlock/RLock/RUnlock assumes the caller
// holds the appropriate lock.
type Room struct {
	mu sync.RWMutex

	// --- Identity and ownership ---
	ID         string
	Pin        types.PinType
	HostUserID string
	HostToken  types.TokenType

	hostSocketID       types.SocketIDType
	hostDisconnectedAt time.Time
	hostWarned         bool

	// --- Quiz linkage (only what the game needs to advance) ---
	QuizID         types.QuizIDType
	QuizTitle      string
	TotalQuestions int

	// --- Lifecycle ---
	state           State
	prePausedState  State
	currentQuestion int
	closed          bool

	// --- Participants ---
	players         map[types.PlayerIDType]*Player
	spectators      map[types.SpectatorIDType]*Spectator
	bannedNicknames set.Set[string]

	// --- Round state ---
	round              RoundSpec
	questionStartedAt  time.Time
	answers            map[types.PlayerIDType]AnswerRecord
	correctAnswerIndex int // -1 until the round ends

	// --- Pause bookkeeping ---
	pausedAt           time.Time
	accumulatedPauseMs int64
	pauseMsBeforeRound int64

	CreatedAt time.Time
}

// RoundSpec is the slice of a question the room needs while a round runs.
// The full question (text, options) stays in the quiz repository.
type RoundSpec struct {
	OptionCount  int
	CorrectIndex int
	Points       int
	TimeLimitMs  int64
}

// NewRoom creates a room in the lobby state.
func NewRoom(id string, pin types.PinType, hostUserID string, hostToken types.TokenType, quizID types.QuizIDType, quizTitle string, totalQuestions int, now time.Time) *Room {
	return &Room{
		ID:                 id,
		Pin:                pin,
		HostUserID:         hostUserID,
		HostToken:          hostToken,
		QuizID:             quizID,
		QuizTitle:          quizTitle,
		TotalQuestions:     totalQuestions,
		state:              StateWaitingPlayers,
		players:            make(map[types.PlayerIDType]*Player),
		spectators:         make(map[types.SpectatorIDType]*Spectator),
		bannedNicknames:    set.New[string](),
		answers:            make(map[types.PlayerIDType]AnswerRecord),
		correctAnswerIndex: -1,
		CreatedAt:          now,
	}
}

// Lock acquires the room's write lock for a use-case critical section.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room's write lock.
func (r *Room) Unlock() { r.mu.Unlock() }

// RLock acquires the room's read lock for read-only queries.
func (r *Room) RLock() { r.mu.RLock() }

// RUnlock releases the room's read lock.
func (r *Room) RUnlock() { r.mu.RUnlock() }

// --- Read accessors (caller must hold at least the read lock) ---

// State returns the current lifecycle state.
func (r *Room) State() State { return r.state }

// CurrentQuestion returns the zero-based index of the current question.
func (r *Room) CurrentQuestion() int { return r.currentQuestion }

// Closed reports whether the room has been terminated. A use-case that
// acquired a stale pointer must treat a closed room as gone.
func (r *Room) Closed() bool { return r.closed }

// MarkClosed terminates the room. Idempotent.
func (r *Room) MarkClosed() { r.closed = true }

// HostSocketID returns the host's live socket, or "" while disconnected.
func (r *Room) HostSocketID() types.SocketIDType { return r.hostSocketID }

// HostConnected reports whether the host currently has a live socket.
func (r *Room) HostConnected() bool { return r.hostSocketID != "" }

// HostDisconnectedAt returns when the host dropped, or the zero time.
func (r *Room) HostDisconnectedAt() time.Time { return r.hostDisconnectedAt }

// HostWarned reports whether the grace warning was already sent for the
// current disconnect episode.
func (r *Room) HostWarned() bool { return r.hostWarned }

// MarkHostWarned records that the grace warning went out.
func (r *Room) MarkHostWarned() { r.hostWarned = true }

// PlayerCount returns the number of player rows, connected or not.
func (r *Room) PlayerCount() int { return len(r.players) }

// SpectatorCount returns the number of spectator rows.
func (r *Room) SpectatorCount() int { return len(r.spectators) }

// Player returns the player with the given id, or nil.
func (r *Room) Player(id types.PlayerIDType) *Player { return r.players[id] }

// QuestionStartedAt returns when the current answering phase began.
func (r *Room) QuestionStartedAt() time.Time { return r.questionStartedAt }

// Round returns the active round spec.
func (r *Room) Round() RoundSpec { return r.round }

// CorrectAnswerIndex returns the cached correct index for the ended round,
// or -1 while answering is still open.
func (r *Room) CorrectAnswerIndex() int { return r.correctAnswerIndex }

// AnsweredCount returns how many answers were recorded this round.
func (r *Room) AnsweredCount() int { return len(r.answers) }

// PlayersInfo projects all players for the wire, sorted by nickname for
// stable output.
func (r *Room) PlayersInfo() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, PlayerInfo{
			ID:        p.ID,
			Nickname:  p.Nickname,
			Score:     p.Score,
			Streak:    p.Streak,
			Connected: p.Connected(),
		})
	}
	sortPlayerInfos(infos)
	return infos
}

// SpectatorsInfo projects all spectators for the wire.
func (r *Room) SpectatorsInfo() []SpectatorInfo {
	infos := make([]SpectatorInfo, 0, len(r.spectators))
	for _, s := range r.spectators {
		infos = append(infos, SpectatorInfo{
			ID:        s.ID,
			Nickname:  s.Nickname,
			Connected: s.Connected(),
		})
	}
	sortSpectatorInfos(infos)
	return infos
}

// BannedNicknames returns the normalized ban list, sorted.
func (r *Room) BannedNicknames() []string {
	return r.bannedNicknames.SortedList()
}

// IndexKeys is the snapshot of every index-relevant field the repository
// derives its lookup maps from. Rebuilt on each save so index maintenance
// is co-transactional with the room write.
type IndexKeys struct {
	Pin              types.PinType
	HostUserID       string
	HostToken        types.TokenType
	HostSocketID     types.SocketIDType
	PlayerTokens     map[types.TokenType]types.PlayerIDType
	PlayerSockets    map[types.SocketIDType]types.PlayerIDType
	SpectatorTokens  map[types.TokenType]types.SpectatorIDType
	SpectatorSockets map[types.SocketIDType]types.SpectatorIDType
}

// IndexKeys snapshots the current index-relevant fields.
func (r *Room) IndexKeys() IndexKeys {
	keys := IndexKeys{
		Pin:              r.Pin,
		HostUserID:       r.HostUserID,
		HostToken:        r.HostToken,
		HostSocketID:     r.hostSocketID,
		PlayerTokens:     make(map[types.TokenType]types.PlayerIDType, len(r.players)),
		PlayerSockets:    make(map[types.SocketIDType]types.PlayerIDType),
		SpectatorTokens:  make(map[types.TokenType]types.SpectatorIDType, len(r.spectators)),
		SpectatorSockets: make(map[types.SocketIDType]types.SpectatorIDType),
	}
	for id, p := range r.players {
		keys.PlayerTokens[p.Token] = id
		if p.SocketID != "" {
			keys.PlayerSockets[p.SocketID] = id
		}
	}
	for id, s := range r.spectators {
		keys.SpectatorTokens[s.Token] = id
		if s.SocketID != "" {
			keys.SpectatorSockets[s.SocketID] = id
		}
	}
	return keys
}

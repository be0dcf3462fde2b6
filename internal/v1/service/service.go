// Package service implements the room and game use-cases behind the socket
// dispatcher. Every method validates input, takes the target room's write
// lock, mutates the entity through its invariant-preserving operations,
// persists via the store and emits the resulting events while still holding
// the lock, so each room's event stream is totally ordered.
package service

import (
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
	"k8s.io/utils/set"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/joinlock"
	"github.com/quizdome/quizdome/backend/go/internal/v1/quiz"
	"github.com/quizdome/quizdome/backend/go/internal/v1/store"
	"github.com/quizdome/quizdome/backend/go/internal/v1/timer"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Room close reasons surfaced to clients.
const (
	CloseReasonHost        = "Closed by host"
	CloseReasonHostTimeout = "Host reconnection timeout"
	CloseReasonShutdown    = "Server shutting down"
)

// Broadcast audiences. nil means everyone in the PIN group.
var (
	hostAndSpectators = set.New(types.RoleTypeHost, types.RoleTypeSpectator)
	playersOnly       = set.New(types.RoleTypePlayer)
)

// Config carries the tunables the use-cases need.
type Config struct {
	PlayerGrace      time.Duration
	HostGrace        time.Duration
	HostGraceWarning time.Duration
	PinMaxAttempts   int
}

// Deps wires the service to its collaborators.
type Deps struct {
	Store       *store.Store
	Quizzes     quiz.Repository
	Locks       joinlock.Locker
	Timers      *timer.Service
	Broadcaster types.Broadcaster
	Clock       clock.PassiveClock
}

// Service is the use-case layer. One instance serves all rooms.
type Service struct {
	store       *store.Store
	quizzes     quiz.Repository
	locks       joinlock.Locker
	timers      *timer.Service
	broadcaster types.Broadcaster
	clock       clock.PassiveClock
	cfg         Config
}

// New builds the service.
func New(deps Deps, cfg Config) *Service {
	return &Service{
		store:       deps.Store,
		quizzes:     deps.Quizzes,
		locks:       deps.Locks,
		timers:      deps.Timers,
		broadcaster: deps.Broadcaster,
		clock:       deps.Clock,
		cfg:         cfg,
	}
}

// parsePin validates the wire form of a PIN.
func parsePin(raw string) (types.PinType, error) {
	if !game.ValidPin(raw) {
		return "", apperr.Validation("pin must be exactly 6 digits")
	}
	return types.PinType(raw), nil
}

// roomByPin resolves a PIN to a live room.
func (s *Service) roomByPin(rawPin string) (*game.Room, error) {
	pin, err := parsePin(rawPin)
	if err != nil {
		return nil, err
	}
	room, ok := s.store.FindByPin(pin)
	if !ok {
		return nil, apperr.NotFound("room %s not found", pin)
	}
	return room, nil
}

// requireHostLocked gates host-only verbs.
func requireHostLocked(room *game.Room, userID string) error {
	if userID == "" || room.HostUserID != userID {
		return apperr.Forbidden("only the host may perform this action")
	}
	return nil
}

// requireParticipantLocked gates participant-level queries to sockets that
// actually belong to the room.
func requireParticipantLocked(room *game.Room, socketID types.SocketIDType) error {
	if room.HostSocketID() == socketID {
		return nil
	}
	if room.FindPlayerBySocket(socketID) != nil {
		return nil
	}
	if room.FindSpectatorBySocket(socketID) != nil {
		return nil
	}
	return apperr.Forbidden("you are not a participant of room %s", room.Pin)
}

// snapshotLocked assembles the state payload a (re)connecting client needs
// to render the room.
func (s *Service) snapshotLocked(room *game.Room) RoomSnapshot {
	return RoomSnapshot{
		Pin:             room.Pin,
		State:           room.State(),
		QuizTitle:       room.QuizTitle,
		CurrentQuestion: room.CurrentQuestion(),
		TotalQuestions:  room.TotalQuestions,
		Players:         room.PlayersInfo(),
		Spectators:      room.SpectatorsInfo(),
		AnsweredCount:   room.AnsweredCount(),
		HostConnected:   room.HostConnected(),
		Timer:           s.timers.SyncFor(room.Pin),
	}
}

func pinField(pin types.PinType) zap.Field {
	return zap.String("pin", string(pin))
}

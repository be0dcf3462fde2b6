package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// GameService is the slice of the use-case layer the dispatcher drives. The
// concrete implementation is service.Service; tests substitute a recorder.
type GameService interface {
	CreateRoom(ctx context.Context, userID string, socketID types.SocketIDType, quizID string) error
	GetMyRoom(ctx context.Context, userID string, socketID types.SocketIDType) error
	ForceCloseRoom(ctx context.Context, userID string) error

	JoinRoom(ctx context.Context, pin, nickname string, socketID types.SocketIDType) error
	JoinAsSpectator(ctx context.Context, pin, nickname string, socketID types.SocketIDType) error
	LeaveRoom(ctx context.Context, pin string, socketID types.SocketIDType) error
	LeaveSpectator(ctx context.Context, pin string, socketID types.SocketIDType) error
	CloseRoom(ctx context.Context, pin, userID string) error

	ReconnectHost(ctx context.Context, pin, token, userID string, socketID types.SocketIDType) error
	ReconnectPlayer(ctx context.Context, pin, token string, socketID types.SocketIDType) error
	ReconnectSpectator(ctx context.Context, pin, token string, socketID types.SocketIDType) error
	Disconnect(ctx context.Context, socketID types.SocketIDType) error

	StartGame(ctx context.Context, pin, userID string) error
	StartAnswering(ctx context.Context, pin, userID string) error
	EndAnswering(ctx context.Context, pin, userID string) error
	ShowLeaderboard(ctx context.Context, pin, userID string) error
	NextQuestion(ctx context.Context, pin, userID string) error
	PauseGame(ctx context.Context, pin, userID string) error
	ResumeGame(ctx context.Context, pin, userID string) error
	SubmitAnswer(ctx context.Context, pin string, socketID types.SocketIDType, answerIndex int) error

	KickPlayer(ctx context.Context, pin, userID, playerID string) error
	BanPlayer(ctx context.Context, pin, userID, playerID string) error
	UnbanNickname(ctx context.Context, pin, userID, nickname string) error

	GetPlayers(ctx context.Context, pin string, socketID types.SocketIDType) error
	GetSpectators(ctx context.Context, pin string, socketID types.SocketIDType) error
	GetBannedNicknames(ctx context.Context, pin string, socketID types.SocketIDType) error
	RequestTimerSync(ctx context.Context, pin string, socketID types.SocketIDType) error
	GetResults(ctx context.Context, pin string, socketID types.SocketIDType) error
}

// Inbound request payloads. Fixed shapes; unknown fields are rejected at
// decode time.
type createRoomRequest struct {
	QuizID string `json:"quizId"`
}

type joinRequest struct {
	Pin      string `json:"pin"`
	Nickname string `json:"nickname"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type reconnectHostRequest struct {
	Pin       string `json:"pin"`
	HostToken string `json:"hostToken"`
}

type reconnectPlayerRequest struct {
	Pin         string `json:"pin"`
	PlayerToken string `json:"playerToken"`
}

type reconnectSpectatorRequest struct {
	Pin            string `json:"pin"`
	SpectatorToken string `json:"spectatorToken"`
}

type submitAnswerRequest struct {
	Pin         string `json:"pin"`
	AnswerIndex int    `json:"answerIndex"`
}

type targetPlayerRequest struct {
	Pin      string `json:"pin"`
	PlayerID string `json:"playerId"`
}

type unbanRequest struct {
	Pin      string `json:"pin"`
	Nickname string `json:"nickname"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Dispatcher decodes inbound envelopes and routes them to use-cases. Errors
// come back to the sender as unicast error events; they are never broadcast.
type Dispatcher struct {
	svc GameService
}

func NewDispatcher(svc GameService) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// HandleMessage implements Router.
func (d *Dispatcher) HandleMessage(ctx context.Context, c *Client, data []byte) {
	start := time.Now()

	var env Envelope
	if err := decodeStrict(data, &env); err != nil {
		metrics.WebsocketEvents.WithLabelValues("malformed", "error").Inc()
		d.sendError(ctx, c, "malformed", apperr.Validation("malformed message envelope"))
		return
	}

	err := d.route(ctx, c, env)
	status := "ok"
	if err != nil {
		status = "error"
		d.sendError(ctx, c, env.Event, err)
	}

	metrics.WebsocketEvents.WithLabelValues(string(env.Event), status).Inc()
	metrics.MessageProcessingDuration.WithLabelValues(string(env.Event)).Observe(time.Since(start).Seconds())
}

// HandleDisconnect implements Router.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, socketID types.SocketIDType) {
	if err := d.svc.Disconnect(ctx, socketID); err != nil {
		logging.Error(ctx, "disconnect handling failed",
			zap.String("socketId", string(socketID)), zap.Error(err))
	}
}

// route decodes the event-specific payload and invokes the matching
// use-case. The service owns all authorization decisions; the dispatcher
// only carries identity through.
func (d *Dispatcher) route(ctx context.Context, c *Client, env Envelope) error {
	switch env.Event {
	case types.EventCreateRoom:
		var req createRoomRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.CreateRoom(ctx, c.userID, c.socketID, req.QuizID)

	case types.EventGetMyRoom:
		return d.svc.GetMyRoom(ctx, c.userID, c.socketID)

	case types.EventForceCloseRoom:
		return d.svc.ForceCloseRoom(ctx, c.userID)

	case types.EventJoinRoom:
		var req joinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.JoinRoom(ctx, req.Pin, req.Nickname, c.socketID)

	case types.EventJoinAsSpectator:
		var req joinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.JoinAsSpectator(ctx, req.Pin, req.Nickname, c.socketID)

	case types.EventLeaveRoom:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.LeaveRoom(ctx, req.Pin, c.socketID)

	case types.EventLeaveSpectator:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.LeaveSpectator(ctx, req.Pin, c.socketID)

	case types.EventCloseRoom:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.CloseRoom(ctx, req.Pin, c.userID)

	case types.EventReconnectHost:
		var req reconnectHostRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.ReconnectHost(ctx, req.Pin, req.HostToken, c.userID, c.socketID)

	case types.EventReconnectPlayer:
		var req reconnectPlayerRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.ReconnectPlayer(ctx, req.Pin, req.PlayerToken, c.socketID)

	case types.EventReconnectSpec:
		var req reconnectSpectatorRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.ReconnectSpectator(ctx, req.Pin, req.SpectatorToken, c.socketID)

	case types.EventStartGame:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.StartGame(ctx, req.Pin, c.userID)

	case types.EventStartAnswering:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.StartAnswering(ctx, req.Pin, c.userID)

	case types.EventEndAnswering:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.EndAnswering(ctx, req.Pin, c.userID)

	case types.EventShowLeaderboard:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.ShowLeaderboard(ctx, req.Pin, c.userID)

	case types.EventNextQuestion:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.NextQuestion(ctx, req.Pin, c.userID)

	case types.EventPauseGame:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.PauseGame(ctx, req.Pin, c.userID)

	case types.EventResumeGame:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.ResumeGame(ctx, req.Pin, c.userID)

	case types.EventSubmitAnswer:
		var req submitAnswerRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.SubmitAnswer(ctx, req.Pin, c.socketID, req.AnswerIndex)

	case types.EventKickPlayer:
		var req targetPlayerRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.KickPlayer(ctx, req.Pin, c.userID, req.PlayerID)

	case types.EventBanPlayer:
		var req targetPlayerRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.BanPlayer(ctx, req.Pin, c.userID, req.PlayerID)

	case types.EventUnbanNickname:
		var req unbanRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.UnbanNickname(ctx, req.Pin, c.userID, req.Nickname)

	case types.EventGetPlayers:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.GetPlayers(ctx, req.Pin, c.socketID)

	case types.EventGetSpectators:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.GetSpectators(ctx, req.Pin, c.socketID)

	case types.EventGetBanned:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.GetBannedNicknames(ctx, req.Pin, c.socketID)

	case types.EventRequestTimerSync:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.RequestTimerSync(ctx, req.Pin, c.socketID)

	case types.EventGetResults:
		var req pinRequest
		if err := decodeRequest(env.Data, &req); err != nil {
			return err
		}
		return d.svc.GetResults(ctx, req.Pin, c.socketID)

	default:
		return apperr.Validation("unknown event %q", env.Event)
	}
}

// sendError converts any error into a client-safe error event. Domain errors
// pass their kind and message through; everything else reports as internal
// with a generic message.
func (d *Dispatcher) sendError(ctx context.Context, c *Client, event types.EventType, err error) {
	kind := apperr.KindInternal
	message := "internal server error"

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		kind = appErr.Kind
		message = appErr.Message
	} else {
		logging.Error(ctx, "internal error handling event",
			zap.String("event", string(event)),
			zap.String("socketId", string(c.socketID)),
			zap.Error(err))
	}

	metrics.ErrorEvents.WithLabelValues(string(kind)).Inc()
	c.sendEvent(types.EventError, errorPayload{Error: string(kind), Message: message})
}

// decodeRequest unmarshals an event payload with unknown fields rejected.
// A missing data object decodes as empty; the use-cases validate field
// content themselves.
func decodeRequest(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := decodeStrict(data, dst); err != nil {
		return apperr.Validation("malformed payload: %v", err)
	}
	return nil
}

func decodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

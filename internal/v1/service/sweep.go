package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// SweepExpired applies grace-window policy across all live rooms: warns on
// hosts nearing their deadline, closes rooms whose host stayed away past the
// host grace, hard-removes players and spectators past the player grace, and
// drops expired join locks. The reaper calls this on its cadence.
func (s *Service) SweepExpired(ctx context.Context) {
	now := s.clock.Now()
	for _, room := range s.store.Rooms() {
		s.sweepRoomLocked(ctx, room, now)
	}
	s.locks.SweepExpired(ctx)
}

func (s *Service) sweepRoomLocked(ctx context.Context, room *game.Room, now time.Time) {
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return
	}

	// Host window first: a timed-out host takes the whole room with it.
	if !room.HostConnected() && !room.HostDisconnectedAt().IsZero() {
		elapsed := now.Sub(room.HostDisconnectedAt())
		if elapsed > s.cfg.HostGrace {
			s.closeRoomLocked(ctx, room, CloseReasonHostTimeout)
			metrics.ReaperRemovals.WithLabelValues("room").Inc()
			return
		}
		remaining := s.cfg.HostGrace - elapsed
		if remaining <= s.cfg.HostGraceWarning && !room.HostWarned() {
			room.MarkHostWarned()
			s.broadcaster.Broadcast(room.Pin, types.EventHostDisconnectWarn, HostDisconnectWarningPayload{
				RemainingMs: remaining.Milliseconds(),
			}, nil)
		}
	}

	var removedPlayers, removedSpectators int
	for _, p := range room.DisconnectedPlayers(s.cfg.PlayerGrace, now) {
		if _, ok := room.RemovePlayerByID(p.ID); !ok {
			continue
		}
		removedPlayers++
		s.broadcaster.Broadcast(room.Pin, types.EventPlayerLeft, PlayerLeftPayload{
			PlayerID:    p.ID,
			Nickname:    p.Nickname,
			Reason:      ReasonGraceExpired,
			PlayerCount: room.PlayerCount(),
		}, nil)
		metrics.ReaperRemovals.WithLabelValues("player").Inc()
	}
	for _, sp := range room.DisconnectedSpectators(s.cfg.PlayerGrace, now) {
		if _, ok := room.RemoveSpectatorByID(sp.ID); !ok {
			continue
		}
		removedSpectators++
		s.broadcaster.Broadcast(room.Pin, types.EventSpectatorLeft, SpectatorLeftPayload{
			SpectatorID:    sp.ID,
			Nickname:       sp.Nickname,
			Reason:         ReasonGraceExpired,
			SpectatorCount: room.SpectatorCount(),
		}, nil)
		metrics.ReaperRemovals.WithLabelValues("spectator").Inc()
	}

	if removedPlayers > 0 || removedSpectators > 0 {
		s.store.Save(room)
		metrics.RoomPlayers.WithLabelValues(string(room.Pin)).Set(float64(room.PlayerCount()))
		logging.Info(ctx, "grace windows swept", pinField(room.Pin),
			zap.Int("players", removedPlayers),
			zap.Int("spectators", removedSpectators))
	}
}

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/token"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Removal reasons carried by player_left / spectator_left / you_were_kicked.
const (
	ReasonLeft         = "left"
	ReasonDisconnected = "disconnected"
	ReasonGraceExpired = "grace_expired"
	ReasonKicked       = "kicked"
	ReasonBanned       = "banned"
)

// CreateRoom builds a room for the authenticated host, binds the creating
// socket as the host socket and answers with room_created. A host may own at
// most one live room at a time.
func (s *Service) CreateRoom(ctx context.Context, userID string, socketID types.SocketIDType, quizID string) error {
	if userID == "" {
		return apperr.Forbidden("room creation requires an authenticated host")
	}
	if quizID == "" {
		return apperr.Validation("quizId is required")
	}
	if existing, ok := s.store.FindByHostUserID(userID); ok {
		return apperr.Conflict("you already host room %s", existing.Pin)
	}

	pin, err := s.store.AllocatePin(s.cfg.PinMaxAttempts)
	if err != nil {
		return err
	}

	qz, err := s.quizzes.FindByID(ctx, types.QuizIDType(quizID))
	if err != nil {
		s.store.ReleasePin(pin)
		return err
	}

	hostToken := token.New()
	room := game.NewRoom(uuid.NewString(), pin, userID, hostToken, qz.ID, qz.Title, qz.TotalQuestions(), s.clock.Now())
	room.BindHostSocket(socketID)
	s.store.Insert(room)

	s.broadcaster.JoinGroup(pin, socketID, types.RoleTypeHost)
	s.broadcaster.Unicast(socketID, types.EventRoomCreated, RoomCreatedPayload{
		Pin:            pin,
		HostToken:      hostToken,
		QuizID:         qz.ID,
		QuizTitle:      qz.Title,
		TotalQuestions: qz.TotalQuestions(),
	})

	metrics.RoomsCreated.Inc()
	metrics.ActiveRooms.Inc()
	logging.Info(ctx, "room created", pinField(pin),
		zap.String("quizId", string(qz.ID)),
		zap.Int("totalQuestions", qz.TotalQuestions()))
	return nil
}

// GetMyRoom answers my_room with the live room owned by the authenticated
// host, so a host whose page reloaded can locate it before reconnecting.
func (s *Service) GetMyRoom(ctx context.Context, userID string, socketID types.SocketIDType) error {
	if userID == "" {
		return apperr.Forbidden("room lookup requires an authenticated host")
	}
	room, ok := s.store.FindByHostUserID(userID)
	if !ok {
		return apperr.NotFound("you have no live room")
	}

	room.RLock()
	defer room.RUnlock()
	if room.Closed() {
		return apperr.NotFound("you have no live room")
	}
	s.broadcaster.Unicast(socketID, types.EventMyRoom, s.snapshotLocked(room))
	return nil
}

// JoinRoom admits a new player. The (pin, nickname) join lock closes the
// check-then-insert race: of two concurrent joins with the same nickname,
// exactly one acquires the lock and commits.
func (s *Service) JoinRoom(ctx context.Context, rawPin, rawNickname string, socketID types.SocketIDType) error {
	pin, err := parsePin(rawPin)
	if err != nil {
		return err
	}
	nick, err := game.ParseNickname(rawNickname)
	if err != nil {
		return err
	}
	if _, _, ok := s.store.FindBySocket(socketID); ok {
		return apperr.Conflict("this connection already belongs to a room")
	}

	acquired, err := s.locks.Acquire(ctx, pin, nick.Normalized)
	if err != nil {
		return fmt.Errorf("join lock acquire: %w", err)
	}
	if !acquired {
		return apperr.Conflict("a join with nickname %q is already in progress", nick.Raw)
	}
	defer func() {
		if relErr := s.locks.Release(ctx, pin, nick.Normalized); relErr != nil {
			logging.Warn(ctx, "join lock release failed", pinField(pin), zap.Error(relErr))
		}
	}()

	room, ok := s.store.FindByPin(pin)
	if !ok {
		return apperr.NotFound("room %s not found", pin)
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", pin)
	}

	player := &game.Player{
		ID:                 types.PlayerIDType(uuid.NewString()),
		Nickname:           nick.Raw,
		NormalizedNickname: nick.Normalized,
		RoomPin:            pin,
		SocketID:           socketID,
		Token:              token.New(),
	}
	if err := room.AddPlayer(player); err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.JoinGroup(pin, socketID, types.RoleTypePlayer)
	s.broadcaster.Unicast(socketID, types.EventRoomJoined, RoomJoinedPayload{
		Pin:         pin,
		PlayerID:    player.ID,
		PlayerToken: player.Token,
		Nickname:    player.Nickname,
		Room:        s.snapshotLocked(room),
	})
	s.broadcaster.Broadcast(pin, types.EventPlayerJoined, PlayerJoinedPayload{
		Player: game.PlayerInfo{
			ID:        player.ID,
			Nickname:  player.Nickname,
			Connected: true,
		},
		PlayerCount: room.PlayerCount(),
	}, nil)

	metrics.PlayersJoined.Inc()
	metrics.RoomPlayers.WithLabelValues(string(pin)).Set(float64(room.PlayerCount()))
	logging.Info(ctx, "player joined", pinField(pin), zap.String("nickname", player.Nickname))
	return nil
}

// JoinAsSpectator admits a read-only observer. Unlike players, spectators
// may join a game already in progress.
func (s *Service) JoinAsSpectator(ctx context.Context, rawPin, rawNickname string, socketID types.SocketIDType) error {
	pin, err := parsePin(rawPin)
	if err != nil {
		return err
	}
	nick, err := game.ParseNickname(rawNickname)
	if err != nil {
		return err
	}
	if _, _, ok := s.store.FindBySocket(socketID); ok {
		return apperr.Conflict("this connection already belongs to a room")
	}

	acquired, err := s.locks.Acquire(ctx, pin, nick.Normalized)
	if err != nil {
		return fmt.Errorf("join lock acquire: %w", err)
	}
	if !acquired {
		return apperr.Conflict("a join with nickname %q is already in progress", nick.Raw)
	}
	defer func() {
		if relErr := s.locks.Release(ctx, pin, nick.Normalized); relErr != nil {
			logging.Warn(ctx, "join lock release failed", pinField(pin), zap.Error(relErr))
		}
	}()

	room, ok := s.store.FindByPin(pin)
	if !ok {
		return apperr.NotFound("room %s not found", pin)
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", pin)
	}

	spec := &game.Spectator{
		ID:                 types.SpectatorIDType(uuid.NewString()),
		Nickname:           nick.Raw,
		NormalizedNickname: nick.Normalized,
		RoomPin:            pin,
		SocketID:           socketID,
		Token:              token.New(),
	}
	if err := room.AddSpectator(spec); err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.JoinGroup(pin, socketID, types.RoleTypeSpectator)
	s.broadcaster.Unicast(socketID, types.EventRoomJoinedSpec, SpectatorJoinedSelfPayload{
		Pin:            pin,
		SpectatorID:    spec.ID,
		SpectatorToken: spec.Token,
		Nickname:       spec.Nickname,
		Room:           s.snapshotLocked(room),
	})
	s.broadcaster.Broadcast(pin, types.EventSpectatorJoined, SpectatorJoinedPayload{
		Spectator: game.SpectatorInfo{
			ID:        spec.ID,
			Nickname:  spec.Nickname,
			Connected: true,
		},
		SpectatorCount: room.SpectatorCount(),
	}, nil)

	metrics.SpectatorsJoined.Inc()
	logging.Info(ctx, "spectator joined", pinField(pin), zap.String("nickname", spec.Nickname))
	return nil
}

// LeaveRoom removes the calling player immediately. Voluntary leave gets no
// grace window.
func (s *Service) LeaveRoom(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	player, ok := room.RemovePlayerBySocket(socketID)
	if !ok {
		return apperr.Forbidden("no player is bound to this connection")
	}
	s.store.Save(room)

	s.broadcaster.LeaveGroup(room.Pin, socketID)
	s.broadcaster.Broadcast(room.Pin, types.EventPlayerLeft, PlayerLeftPayload{
		PlayerID:    player.ID,
		Nickname:    player.Nickname,
		Reason:      ReasonLeft,
		PlayerCount: room.PlayerCount(),
	}, nil)

	metrics.RoomPlayers.WithLabelValues(string(room.Pin)).Set(float64(room.PlayerCount()))
	logging.Info(ctx, "player left", pinField(room.Pin), zap.String("nickname", player.Nickname))
	return nil
}

// LeaveSpectator removes the calling spectator immediately.
func (s *Service) LeaveSpectator(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	spec, ok := room.RemoveSpectatorBySocket(socketID)
	if !ok {
		return apperr.Forbidden("no spectator is bound to this connection")
	}
	s.store.Save(room)

	s.broadcaster.LeaveGroup(room.Pin, socketID)
	s.broadcaster.Broadcast(room.Pin, types.EventSpectatorLeft, SpectatorLeftPayload{
		SpectatorID:    spec.ID,
		Nickname:       spec.Nickname,
		Reason:         ReasonLeft,
		SpectatorCount: room.SpectatorCount(),
	}, nil)

	logging.Info(ctx, "spectator left", pinField(room.Pin), zap.String("nickname", spec.Nickname))
	return nil
}

// CloseRoom terminates the room on the host's request. Closing a PIN that no
// longer exists is not an error, so retried closes stay quiet.
func (s *Service) CloseRoom(ctx context.Context, rawPin, userID string) error {
	pin, err := parsePin(rawPin)
	if err != nil {
		return err
	}
	room, ok := s.store.FindByPin(pin)
	if !ok {
		return nil
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return nil
	}
	if err := requireHostLocked(room, userID); err != nil {
		return err
	}
	s.closeRoomLocked(ctx, room, CloseReasonHost)
	return nil
}

// ForceCloseRoom closes the authenticated host's room without requiring the
// PIN, for hosts that lost all client state.
func (s *Service) ForceCloseRoom(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.Forbidden("room closure requires an authenticated host")
	}
	room, ok := s.store.FindByHostUserID(userID)
	if !ok {
		return apperr.NotFound("you have no live room")
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return nil
	}
	s.closeRoomLocked(ctx, room, CloseReasonHost)
	return nil
}

// Disconnect reacts to a dropped socket. Hosts and mid-game players keep
// their rows for the grace window; lobby players are removed outright since
// they hold no score worth preserving.
func (s *Service) Disconnect(ctx context.Context, socketID types.SocketIDType) error {
	room, ref, ok := s.store.FindBySocket(socketID)
	if !ok {
		return nil
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return nil
	}
	now := s.clock.Now()

	switch ref.Role {
	case types.RoleTypeHost:
		room.SetHostDisconnected(now)
		s.store.Save(room)
		s.broadcaster.Broadcast(room.Pin, types.EventHostDisconnected, HostDisconnectedPayload{
			GraceMs: s.cfg.HostGrace.Milliseconds(),
		}, nil)
		logging.Info(ctx, "host disconnected", pinField(room.Pin))

	case types.RoleTypePlayer:
		if room.State() == game.StateWaitingPlayers {
			player, removed := room.RemovePlayerBySocket(socketID)
			if !removed {
				return nil
			}
			s.store.Save(room)
			s.broadcaster.Broadcast(room.Pin, types.EventPlayerLeft, PlayerLeftPayload{
				PlayerID:    player.ID,
				Nickname:    player.Nickname,
				Reason:      ReasonDisconnected,
				PlayerCount: room.PlayerCount(),
			}, nil)
			metrics.RoomPlayers.WithLabelValues(string(room.Pin)).Set(float64(room.PlayerCount()))
			return nil
		}
		player, marked := room.SetPlayerDisconnected(socketID, now)
		if !marked {
			return nil
		}
		s.store.Save(room)
		s.broadcaster.Broadcast(room.Pin, types.EventPlayerDisconnected, PlayerDisconnectedPayload{
			PlayerID: player.ID,
			Nickname: player.Nickname,
			GraceMs:  s.cfg.PlayerGrace.Milliseconds(),
		}, nil)

	case types.RoleTypeSpectator:
		// Spectator drops are quiet; the spectators_list query reflects the
		// connection flag and the reaper announces the final removal.
		if _, marked := room.SetSpectatorDisconnected(socketID, now); marked {
			s.store.Save(room)
		}
	}
	return nil
}

// ReconnectHost resumes the host on a new socket within the host grace
// window. The host token is bound to the authenticated user and is not
// rotated.
func (s *Service) ReconnectHost(ctx context.Context, rawPin, rawToken, userID string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if err := requireHostLocked(room, userID); err != nil {
		return err
	}
	if room.HostToken != types.TokenType(rawToken) {
		return apperr.NotFound("unknown host token")
	}

	oldSocket, err := room.ReconnectHost(socketID, s.cfg.HostGrace, s.clock.Now())
	if err != nil {
		return err
	}
	if oldSocket != "" && oldSocket != socketID {
		s.broadcaster.LeaveGroup(room.Pin, oldSocket)
	}
	s.store.Save(room)

	s.broadcaster.JoinGroup(room.Pin, socketID, types.RoleTypeHost)
	s.broadcaster.Unicast(socketID, types.EventHostReconnected, HostReconnectedPayload{
		Pin:  room.Pin,
		Room: s.snapshotLocked(room),
	})
	s.broadcaster.Broadcast(room.Pin, types.EventHostReturned, struct{}{}, nil)

	logging.Info(ctx, "host reconnected", pinField(room.Pin))
	return nil
}

// ReconnectPlayer resumes a player on a new socket within the player grace
// window. The presented token is single-use: a successful reconnect rotates
// it and the old token stops resolving.
func (s *Service) ReconnectPlayer(ctx context.Context, rawPin, rawToken string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}

	newToken := token.New()
	player, oldSocket, err := room.ReconnectPlayer(types.TokenType(rawToken), socketID, s.cfg.PlayerGrace, newToken, s.clock.Now())
	if err != nil {
		return err
	}
	if oldSocket != "" && oldSocket != socketID {
		s.broadcaster.LeaveGroup(room.Pin, oldSocket)
	}
	s.store.Save(room)

	s.broadcaster.JoinGroup(room.Pin, socketID, types.RoleTypePlayer)
	s.broadcaster.Unicast(socketID, types.EventPlayerReconnected, PlayerReconnectedPayload{
		Pin:         room.Pin,
		PlayerID:    player.ID,
		PlayerToken: player.Token,
		Nickname:    player.Nickname,
		Room:        s.snapshotLocked(room),
	})
	s.broadcaster.Broadcast(room.Pin, types.EventPlayerReturned, PlayerReturnedPayload{
		Player: game.PlayerInfo{
			ID:        player.ID,
			Nickname:  player.Nickname,
			Score:     player.Score,
			Streak:    player.Streak,
			Connected: true,
		},
	}, nil)

	logging.Info(ctx, "player reconnected", pinField(room.Pin), zap.String("nickname", player.Nickname))
	return nil
}

// ReconnectSpectator resumes a spectator on a new socket, rotating the token
// like the player flow.
func (s *Service) ReconnectSpectator(ctx context.Context, rawPin, rawToken string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}

	newToken := token.New()
	spec, oldSocket, err := room.ReconnectSpectator(types.TokenType(rawToken), socketID, s.cfg.PlayerGrace, newToken, s.clock.Now())
	if err != nil {
		return err
	}
	if oldSocket != "" && oldSocket != socketID {
		s.broadcaster.LeaveGroup(room.Pin, oldSocket)
	}
	s.store.Save(room)

	s.broadcaster.JoinGroup(room.Pin, socketID, types.RoleTypeSpectator)
	s.broadcaster.Unicast(socketID, types.EventSpectatorReconn, SpectatorReconnectedPayload{
		Pin:            room.Pin,
		SpectatorID:    spec.ID,
		SpectatorToken: spec.Token,
		Nickname:       spec.Nickname,
		Room:           s.snapshotLocked(room),
	})
	s.broadcaster.Broadcast(room.Pin, types.EventSpectatorReturned, SpectatorReturnedPayload{
		Spectator: game.SpectatorInfo{
			ID:        spec.ID,
			Nickname:  spec.Nickname,
			Connected: true,
		},
	}, nil)

	logging.Info(ctx, "spectator reconnected", pinField(room.Pin), zap.String("nickname", spec.Nickname))
	return nil
}

// KickPlayer removes a player on the host's request. The kicked player may
// rejoin under the same nickname.
func (s *Service) KickPlayer(ctx context.Context, rawPin, userID, playerID string) error {
	return s.removePlayer(ctx, rawPin, userID, playerID, false)
}

// BanPlayer removes a player and bans their nickname from the room.
func (s *Service) BanPlayer(ctx context.Context, rawPin, userID, playerID string) error {
	return s.removePlayer(ctx, rawPin, userID, playerID, true)
}

func (s *Service) removePlayer(ctx context.Context, rawPin, userID, playerID string, ban bool) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if err := requireHostLocked(room, userID); err != nil {
		return err
	}

	player, ok := room.RemovePlayerByID(types.PlayerIDType(playerID))
	if !ok {
		return apperr.NotFound("no player %s in room %s", playerID, room.Pin)
	}
	reason := ReasonKicked
	if ban {
		room.BanNickname(player.NormalizedNickname)
		reason = ReasonBanned
	}
	s.store.Save(room)

	if player.SocketID != "" {
		s.broadcaster.Unicast(player.SocketID, types.EventYouWereKicked, KickedPayload{Reason: reason})
		s.broadcaster.LeaveGroup(room.Pin, player.SocketID)
	}
	if ban {
		s.broadcaster.Broadcast(room.Pin, types.EventPlayerBanned, PlayerBannedPayload{
			PlayerID: player.ID,
			Nickname: player.Nickname,
		}, nil)
	} else {
		s.broadcaster.Broadcast(room.Pin, types.EventPlayerKicked, PlayerKickedPayload{
			PlayerID: player.ID,
			Nickname: player.Nickname,
		}, nil)
	}

	metrics.RoomPlayers.WithLabelValues(string(room.Pin)).Set(float64(room.PlayerCount()))
	logging.Info(ctx, "player removed by host", pinField(room.Pin),
		zap.String("nickname", player.Nickname), zap.String("reason", reason))
	return nil
}

// UnbanNickname lifts a nickname ban.
func (s *Service) UnbanNickname(ctx context.Context, rawPin, userID, rawNickname string) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if err := requireHostLocked(room, userID); err != nil {
		return err
	}

	normalized := game.NormalizeNickname(rawNickname)
	if !room.UnbanNickname(normalized) {
		return apperr.NotFound("nickname %q is not banned", rawNickname)
	}
	s.store.Save(room)

	s.broadcaster.Broadcast(room.Pin, types.EventNicknameUnbanned, NicknameUnbannedPayload{
		Nickname: normalized,
	}, nil)
	return nil
}

// GetPlayers answers players_list to any participant of the room.
func (s *Service) GetPlayers(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	defer room.RUnlock()
	if err := requireParticipantLocked(room, socketID); err != nil {
		return err
	}
	s.broadcaster.Unicast(socketID, types.EventPlayersList, PlayersListPayload{
		Players: room.PlayersInfo(),
	})
	return nil
}

// GetSpectators answers spectators_list to any participant of the room.
func (s *Service) GetSpectators(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	defer room.RUnlock()
	if err := requireParticipantLocked(room, socketID); err != nil {
		return err
	}
	s.broadcaster.Unicast(socketID, types.EventSpectatorsList, SpectatorsListPayload{
		Spectators: room.SpectatorsInfo(),
	})
	return nil
}

// GetBannedNicknames answers banned_nicknames to any participant.
func (s *Service) GetBannedNicknames(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	defer room.RUnlock()
	if err := requireParticipantLocked(room, socketID); err != nil {
		return err
	}
	s.broadcaster.Unicast(socketID, types.EventBannedNicknames, BannedNicknamesPayload{
		Nicknames: room.BannedNicknames(),
	})
	return nil
}

// Shutdown closes every live room, notifying clients before their sockets
// are torn down. Called once during graceful process shutdown.
func (s *Service) Shutdown(ctx context.Context) {
	for _, room := range s.store.Rooms() {
		room.Lock()
		if !room.Closed() {
			s.closeRoomLocked(ctx, room, CloseReasonShutdown)
		}
		room.Unlock()
	}
}

// closeRoomLocked terminates a room: marks it closed, stops its timer, drops
// it from the store and tells every socket before the group is torn down.
// Caller holds the room write lock.
func (s *Service) closeRoomLocked(ctx context.Context, room *game.Room, reason string) {
	room.MarkClosed()
	s.timers.Stop(room.Pin)
	s.store.Delete(room.Pin)

	s.broadcaster.Broadcast(room.Pin, types.EventRoomClosed, RoomClosedPayload{Reason: reason}, nil)
	s.broadcaster.CloseGroup(room.Pin)

	metrics.RoomsClosed.WithLabelValues(reason).Inc()
	metrics.ActiveRooms.Dec()
	metrics.RoomPlayers.DeleteLabelValues(string(room.Pin))
	logging.Info(ctx, "room closed", pinField(room.Pin), zap.String("reason", reason))
}

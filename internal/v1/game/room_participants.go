package game

import (
	"sort"
	"time"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// --- Admission (caller must hold the write lock) ---

// AddPlayer admits a player into the lobby. Joining is only legal before
// the game starts; nicknames must be unique among players and not banned.
func (r *Room) AddPlayer(p *Player) error {
	if r.state != StateWaitingPlayers {
		return apperr.IllegalTransition("cannot join: game already started")
	}
	if r.bannedNicknames.Has(p.NormalizedNickname) {
		return apperr.Conflict("nickname %q is banned from this room", p.Nickname)
	}
	for _, existing := range r.players {
		if existing.NormalizedNickname == p.NormalizedNickname {
			return apperr.Conflict("nickname %q is already taken", p.Nickname)
		}
	}
	r.players[p.ID] = p
	return nil
}

// AddSpectator admits a spectator. Spectators may join at any point of a
// live game; nicknames must be unique among spectators and not banned.
func (r *Room) AddSpectator(s *Spectator) error {
	if r.bannedNicknames.Has(s.NormalizedNickname) {
		return apperr.Conflict("nickname %q is banned from this room", s.Nickname)
	}
	for _, existing := range r.spectators {
		if existing.NormalizedNickname == s.NormalizedNickname {
			return apperr.Conflict("nickname %q is already taken", s.Nickname)
		}
	}
	r.spectators[s.ID] = s
	return nil
}

// --- Removal ---

// RemovePlayerBySocket hard-removes the player bound to socketID.
// Idempotent: returns false when no player holds that socket.
func (r *Room) RemovePlayerBySocket(socketID types.SocketIDType) (*Player, bool) {
	for id, p := range r.players {
		if p.SocketID == socketID {
			delete(r.players, id)
			delete(r.answers, id)
			return p, true
		}
	}
	return nil, false
}

// RemovePlayerByID hard-removes a player row.
func (r *Room) RemovePlayerByID(id types.PlayerIDType) (*Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	delete(r.players, id)
	delete(r.answers, id)
	return p, true
}

// RemoveSpectatorBySocket hard-removes the spectator bound to socketID.
func (r *Room) RemoveSpectatorBySocket(socketID types.SocketIDType) (*Spectator, bool) {
	for id, s := range r.spectators {
		if s.SocketID == socketID {
			delete(r.spectators, id)
			return s, true
		}
	}
	return nil, false
}

// RemoveSpectatorByID hard-removes a spectator row.
func (r *Room) RemoveSpectatorByID(id types.SpectatorIDType) (*Spectator, bool) {
	s, ok := r.spectators[id]
	if !ok {
		return nil, false
	}
	delete(r.spectators, id)
	return s, true
}

// --- Disconnect / reconnect ---

// SetPlayerDisconnected records the disconnect timestamp and frees the
// socket binding, keeping the row for the grace window.
func (r *Room) SetPlayerDisconnected(socketID types.SocketIDType, now time.Time) (*Player, bool) {
	for _, p := range r.players {
		if p.SocketID == socketID {
			p.SocketID = ""
			p.DisconnectedAt = now
			return p, true
		}
	}
	return nil, false
}

// SetSpectatorDisconnected records the disconnect timestamp for the
// spectator bound to socketID.
func (r *Room) SetSpectatorDisconnected(socketID types.SocketIDType, now time.Time) (*Spectator, bool) {
	for _, s := range r.spectators {
		if s.SocketID == socketID {
			s.SocketID = ""
			s.DisconnectedAt = now
			return s, true
		}
	}
	return nil, false
}

// ReconnectPlayer resumes a disconnected player within the grace window.
// The presented token is invalidated and replaced with newToken. Returns
// the superseded socket id when the player was still marked connected.
func (r *Room) ReconnectPlayer(oldToken types.TokenType, newSocketID types.SocketIDType, grace time.Duration, newToken types.TokenType, now time.Time) (*Player, types.SocketIDType, error) {
	var player *Player
	for _, p := range r.players {
		if p.Token == oldToken {
			player = p
			break
		}
	}
	if player == nil {
		return nil, "", apperr.NotFound("unknown player token")
	}
	if !player.DisconnectedAt.IsZero() && now.Sub(player.DisconnectedAt) > grace {
		return nil, "", apperr.GraceExpired("reconnection window of %s has elapsed", grace)
	}

	oldSocket := player.SocketID
	player.SocketID = newSocketID
	player.DisconnectedAt = time.Time{}
	player.Token = newToken
	return player, oldSocket, nil
}

// ReconnectSpectator mirrors ReconnectPlayer for spectators.
func (r *Room) ReconnectSpectator(oldToken types.TokenType, newSocketID types.SocketIDType, grace time.Duration, newToken types.TokenType, now time.Time) (*Spectator, types.SocketIDType, error) {
	var spec *Spectator
	for _, s := range r.spectators {
		if s.Token == oldToken {
			spec = s
			break
		}
	}
	if spec == nil {
		return nil, "", apperr.NotFound("unknown spectator token")
	}
	if !spec.DisconnectedAt.IsZero() && now.Sub(spec.DisconnectedAt) > grace {
		return nil, "", apperr.GraceExpired("reconnection window of %s has elapsed", grace)
	}

	oldSocket := spec.SocketID
	spec.SocketID = newSocketID
	spec.DisconnectedAt = time.Time{}
	spec.Token = newToken
	return spec, oldSocket, nil
}

// SetHostDisconnected frees the host socket binding and starts the host
// grace window.
func (r *Room) SetHostDisconnected(now time.Time) {
	r.hostSocketID = ""
	r.hostDisconnectedAt = now
}

// BindHostSocket attaches the host's socket at room creation time.
func (r *Room) BindHostSocket(socketID types.SocketIDType) {
	r.hostSocketID = socketID
	r.hostDisconnectedAt = time.Time{}
	r.hostWarned = false
}

// ReconnectHost resumes the host within the grace window. The host token is
// deliberately not rotated: host identity is also bound to the
// authenticated user. Returns the superseded socket id on takeover.
func (r *Room) ReconnectHost(newSocketID types.SocketIDType, grace time.Duration, now time.Time) (types.SocketIDType, error) {
	if !r.hostDisconnectedAt.IsZero() && now.Sub(r.hostDisconnectedAt) > grace {
		return "", apperr.GraceExpired("host reconnection window of %s has elapsed", grace)
	}
	oldSocket := r.hostSocketID
	r.hostSocketID = newSocketID
	r.hostDisconnectedAt = time.Time{}
	r.hostWarned = false
	return oldSocket, nil
}

// --- Ban list ---

// BanNickname adds a normalized nickname to the ban set.
func (r *Room) BanNickname(normalized string) {
	r.bannedNicknames.Insert(normalized)
}

// UnbanNickname removes a normalized nickname from the ban set. Returns
// false when it was not banned.
func (r *Room) UnbanNickname(normalized string) bool {
	if !r.bannedNicknames.Has(normalized) {
		return false
	}
	r.bannedNicknames.Delete(normalized)
	return true
}

// IsBanned reports whether a normalized nickname is banned.
func (r *Room) IsBanned(normalized string) bool {
	return r.bannedNicknames.Has(normalized)
}

// --- Lookup helpers ---

// FindPlayerBySocket returns the player bound to socketID, or nil.
func (r *Room) FindPlayerBySocket(socketID types.SocketIDType) *Player {
	for _, p := range r.players {
		if p.SocketID == socketID {
			return p
		}
	}
	return nil
}

// FindSpectatorBySocket returns the spectator bound to socketID, or nil.
func (r *Room) FindSpectatorBySocket(socketID types.SocketIDType) *Spectator {
	for _, s := range r.spectators {
		if s.SocketID == socketID {
			return s
		}
	}
	return nil
}

// DisconnectedPlayers returns players whose grace window has fully elapsed
// at now.
func (r *Room) DisconnectedPlayers(grace time.Duration, now time.Time) []*Player {
	var expired []*Player
	for _, p := range r.players {
		if !p.DisconnectedAt.IsZero() && now.Sub(p.DisconnectedAt) > grace {
			expired = append(expired, p)
		}
	}
	return expired
}

// DisconnectedSpectators returns spectators whose grace window has fully
// elapsed at now.
func (r *Room) DisconnectedSpectators(grace time.Duration, now time.Time) []*Spectator {
	var expired []*Spectator
	for _, s := range r.spectators {
		if !s.DisconnectedAt.IsZero() && now.Sub(s.DisconnectedAt) > grace {
			expired = append(expired, s)
		}
	}
	return expired
}

func sortPlayerInfos(infos []PlayerInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Nickname < infos[j].Nickname
	})
}

func sortSpectatorInfos(infos []SpectatorInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Nickname < infos[j].Nickname
	})
}

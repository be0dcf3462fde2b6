// Package store keeps every live room in process memory together with the
// secondary indexes the socket layer needs for O(1) lookups: PIN, host user,
// host token, participant tokens, and live socket IDs.
//
// The store's mutex only guards the maps. Room contents are guarded by the
// room's own lock; any mutation of a room must be followed by Save (while the
// room lock is still held) so the indexes stay in step with the entity.
package store

import (
	"sync"

	"k8s.io/utils/set"

	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Ref identifies the participant behind a live socket.
type Ref struct {
	Role        types.RoleType
	PlayerID    types.PlayerIDType
	SpectatorID types.SpectatorIDType
}

type playerRef struct {
	pin types.PinType
	id  types.PlayerIDType
}

type spectatorRef struct {
	pin types.PinType
	id  types.SpectatorIDType
}

// Store is the in-memory room repository.
type Store struct {
	mu sync.RWMutex

	rooms    map[types.PinType]*game.Room
	reserved set.Set[types.PinType]

	byHostUser   map[string]types.PinType
	byHostToken  map[types.TokenType]types.PinType
	byHostSocket map[types.SocketIDType]types.PinType

	byPlayerToken  map[types.TokenType]playerRef
	byPlayerSocket map[types.SocketIDType]playerRef

	bySpectatorToken  map[types.TokenType]spectatorRef
	bySpectatorSocket map[types.SocketIDType]spectatorRef

	// keys remembers the last indexed snapshot per room so Save can drop
	// entries that no longer exist (rotated tokens, freed sockets).
	keys map[types.PinType]game.IndexKeys
}

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms:             make(map[types.PinType]*game.Room),
		reserved:          set.New[types.PinType](),
		byHostUser:        make(map[string]types.PinType),
		byHostToken:       make(map[types.TokenType]types.PinType),
		byHostSocket:      make(map[types.SocketIDType]types.PinType),
		byPlayerToken:     make(map[types.TokenType]playerRef),
		byPlayerSocket:    make(map[types.SocketIDType]playerRef),
		bySpectatorToken:  make(map[types.TokenType]spectatorRef),
		bySpectatorSocket: make(map[types.SocketIDType]spectatorRef),
		keys:              make(map[types.PinType]game.IndexKeys),
	}
}

// AllocatePin draws a PIN that no live or pending room holds and reserves it
// until Insert claims it. Reservation and draw happen under one lock so two
// concurrent creates can never win the same PIN.
func (s *Store) AllocatePin(maxAttempts int) (types.PinType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pin, err := game.AllocatePin(maxAttempts, func(p types.PinType) bool {
		if _, taken := s.rooms[p]; taken {
			return true
		}
		return s.reserved.Has(p)
	})
	if err != nil {
		return "", err
	}
	s.reserved.Insert(pin)
	return pin, nil
}

// ReleasePin drops a reservation without inserting a room. Only needed when
// room creation fails between AllocatePin and Insert.
func (s *Store) ReleasePin(pin types.PinType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved.Delete(pin)
}

// Insert adds a freshly built room and indexes it. Call before the room
// pointer is shared with any other goroutine.
func (s *Store) Insert(room *game.Room) {
	keys := room.IndexKeys()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserved.Delete(keys.Pin)
	s.rooms[keys.Pin] = room
	s.applyLocked(keys)
}

// Save refreshes the indexes after a room mutation. The caller must hold the
// room lock so the snapshot is consistent with what it just changed.
func (s *Store) Save(room *game.Room) {
	keys := room.IndexKeys()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[keys.Pin]; !ok {
		// Room already deleted; do not resurrect index entries.
		return
	}
	if prev, ok := s.keys[keys.Pin]; ok {
		s.removeLocked(prev)
	}
	s.applyLocked(keys)
}

// Delete removes the room and every index entry that points at it.
// Idempotent: deleting an unknown PIN is a no-op.
func (s *Store) Delete(pin types.PinType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.keys[pin]; ok {
		s.removeLocked(prev)
	}
	delete(s.keys, pin)
	delete(s.rooms, pin)
}

// Exists reports whether a live room holds the PIN.
func (s *Store) Exists(pin types.PinType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[pin]
	return ok
}

// FindByPin returns the room with the given PIN.
func (s *Store) FindByPin(pin types.PinType) (*game.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[pin]
	return room, ok
}

// FindByHostUserID returns the room hosted by the given account, if any.
func (s *Store) FindByHostUserID(userID string) (*game.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pin, ok := s.byHostUser[userID]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[pin]
	return room, ok
}

// FindByHostToken returns the room whose host holds the given token.
func (s *Store) FindByHostToken(token types.TokenType) (*game.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pin, ok := s.byHostToken[token]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[pin]
	return room, ok
}

// FindByPlayerToken returns the room and player ID behind a player token.
func (s *Store) FindByPlayerToken(token types.TokenType) (*game.Room, types.PlayerIDType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.byPlayerToken[token]
	if !ok {
		return nil, "", false
	}
	room, ok := s.rooms[ref.pin]
	return room, ref.id, ok
}

// FindBySpectatorToken returns the room and spectator ID behind a spectator token.
func (s *Store) FindBySpectatorToken(token types.TokenType) (*game.Room, types.SpectatorIDType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.bySpectatorToken[token]
	if !ok {
		return nil, "", false
	}
	room, ok := s.rooms[ref.pin]
	return room, ref.id, ok
}

// FindBySocket resolves a live socket to its room and participant.
func (s *Store) FindBySocket(socketID types.SocketIDType) (*game.Room, Ref, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pin, ok := s.byHostSocket[socketID]; ok {
		if room, ok := s.rooms[pin]; ok {
			return room, Ref{Role: types.RoleTypeHost}, true
		}
	}
	if ref, ok := s.byPlayerSocket[socketID]; ok {
		if room, ok := s.rooms[ref.pin]; ok {
			return room, Ref{Role: types.RoleTypePlayer, PlayerID: ref.id}, true
		}
	}
	if ref, ok := s.bySpectatorSocket[socketID]; ok {
		if room, ok := s.rooms[ref.pin]; ok {
			return room, Ref{Role: types.RoleTypeSpectator, SpectatorID: ref.id}, true
		}
	}
	return nil, Ref{}, false
}

// Rooms returns a snapshot of every live room.
func (s *Store) Rooms() []*game.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*game.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Store) applyLocked(keys game.IndexKeys) {
	s.byHostUser[keys.HostUserID] = keys.Pin
	s.byHostToken[keys.HostToken] = keys.Pin
	if keys.HostSocketID != "" {
		s.byHostSocket[keys.HostSocketID] = keys.Pin
	}
	for token, id := range keys.PlayerTokens {
		s.byPlayerToken[token] = playerRef{pin: keys.Pin, id: id}
	}
	for socketID, id := range keys.PlayerSockets {
		s.byPlayerSocket[socketID] = playerRef{pin: keys.Pin, id: id}
	}
	for token, id := range keys.SpectatorTokens {
		s.bySpectatorToken[token] = spectatorRef{pin: keys.Pin, id: id}
	}
	for socketID, id := range keys.SpectatorSockets {
		s.bySpectatorSocket[socketID] = spectatorRef{pin: keys.Pin, id: id}
	}
	s.keys[keys.Pin] = keys
}

func (s *Store) removeLocked(keys game.IndexKeys) {
	delete(s.byHostUser, keys.HostUserID)
	delete(s.byHostToken, keys.HostToken)
	if keys.HostSocketID != "" {
		delete(s.byHostSocket, keys.HostSocketID)
	}
	for token := range keys.PlayerTokens {
		delete(s.byPlayerToken, token)
	}
	for socketID := range keys.PlayerSockets {
		delete(s.byPlayerSocket, socketID)
	}
	for token := range keys.SpectatorTokens {
		delete(s.bySpectatorToken, token)
	}
	for socketID := range keys.SpectatorSockets {
		delete(s.bySpectatorSocket, socketID)
	}
}

package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRoom(pin types.PinType, hostUserID string) *game.Room {
	return game.NewRoom(
		"room-"+string(pin),
		pin,
		hostUserID,
		types.TokenType("host-token-"+string(pin)),
		"quiz-1",
		"Capitals of Europe",
		5,
		testBase,
	)
}

func addPlayer(t *testing.T, room *game.Room, n int) *game.Player {
	t.Helper()
	p := &game.Player{
		ID:                 types.PlayerIDType(fmt.Sprintf("p-%d", n)),
		Nickname:           fmt.Sprintf("Player_%d", n),
		NormalizedNickname: fmt.Sprintf("player_%d", n),
		RoomPin:            room.Pin,
		SocketID:           types.SocketIDType(fmt.Sprintf("sock-%d", n)),
		Token:              types.TokenType(fmt.Sprintf("token-%d", n)),
	}
	require.NoError(t, room.AddPlayer(p))
	return p
}

func TestInsertAndFindByPin(t *testing.T) {
	s := New()
	room := newTestRoom("111111", "auth0|host")

	s.Insert(room)

	got, ok := s.FindByPin("111111")
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.True(t, s.Exists("111111"))
	assert.False(t, s.Exists("222222"))
	assert.Equal(t, 1, s.Len())
}

func TestAllocatePin_ReservesAgainstConcurrentCreates(t *testing.T) {
	s := New()

	pin, err := s.AllocatePin(50)
	require.NoError(t, err)
	require.Len(t, string(pin), 6)

	// A second allocation must never hand out the reserved PIN, even though
	// no room holds it yet.
	for i := 0; i < 20; i++ {
		other, err := s.AllocatePin(50)
		require.NoError(t, err)
		assert.NotEqual(t, pin, other)
	}
}

func TestAllocatePin_Exhausted(t *testing.T) {
	s := New()

	_, err := s.AllocatePin(0)
	assert.Error(t, err)
}

func TestReleasePin(t *testing.T) {
	s := New()

	pin, err := s.AllocatePin(50)
	require.NoError(t, err)
	s.ReleasePin(pin)

	// Released PINs are eligible again; inserting a room under it must work.
	room := newTestRoom(pin, "auth0|host")
	s.Insert(room)
	assert.True(t, s.Exists(pin))
}

func TestFindByHostIndexes(t *testing.T) {
	s := New()
	room := newTestRoom("333333", "auth0|alice")
	s.Insert(room)

	byUser, ok := s.FindByHostUserID("auth0|alice")
	require.True(t, ok)
	assert.Same(t, room, byUser)

	byToken, ok := s.FindByHostToken(room.HostToken)
	require.True(t, ok)
	assert.Same(t, room, byToken)

	_, ok = s.FindByHostUserID("auth0|bob")
	assert.False(t, ok)
	_, ok = s.FindByHostToken("nope")
	assert.False(t, ok)
}

func TestSave_IndexesHostSocket(t *testing.T) {
	s := New()
	room := newTestRoom("444444", "auth0|host")
	s.Insert(room)

	room.Lock()
	room.BindHostSocket("host-sock")
	s.Save(room)
	room.Unlock()

	got, ref, ok := s.FindBySocket("host-sock")
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.Equal(t, types.RoleTypeHost, ref.Role)
}

func TestSave_PlayerLifecycle(t *testing.T) {
	s := New()
	room := newTestRoom("555555", "auth0|host")
	s.Insert(room)

	room.Lock()
	p := addPlayer(t, room, 1)
	s.Save(room)
	room.Unlock()

	// Token and socket indexes both resolve.
	byToken, id, ok := s.FindByPlayerToken(p.Token)
	require.True(t, ok)
	assert.Same(t, room, byToken)
	assert.Equal(t, p.ID, id)

	bySock, ref, ok := s.FindBySocket(p.SocketID)
	require.True(t, ok)
	assert.Same(t, room, bySock)
	assert.Equal(t, types.RoleTypePlayer, ref.Role)
	assert.Equal(t, p.ID, ref.PlayerID)

	// Disconnect frees the socket entry but keeps the token for reconnect.
	room.Lock()
	_, found := room.SetPlayerDisconnected(p.SocketID, testBase)
	require.True(t, found)
	s.Save(room)
	room.Unlock()

	_, _, ok = s.FindBySocket("sock-1")
	assert.False(t, ok)
	_, _, ok = s.FindByPlayerToken(p.Token)
	assert.True(t, ok)

	// Reconnect rotates the token: old entry gone, new one live.
	oldToken := p.Token
	room.Lock()
	_, _, err := room.ReconnectPlayer(oldToken, "sock-1b", time.Minute, "token-1b", testBase.Add(time.Second))
	require.NoError(t, err)
	s.Save(room)
	room.Unlock()

	_, _, ok = s.FindByPlayerToken(oldToken)
	assert.False(t, ok, "rotated token must leave the index")
	_, id, ok = s.FindByPlayerToken("token-1b")
	require.True(t, ok)
	assert.Equal(t, p.ID, id)
	_, ref, ok = s.FindBySocket("sock-1b")
	require.True(t, ok)
	assert.Equal(t, p.ID, ref.PlayerID)

	// Removal drops every trace of the player.
	room.Lock()
	_, removed := room.RemovePlayerByID(p.ID)
	require.True(t, removed)
	s.Save(room)
	room.Unlock()

	_, _, ok = s.FindByPlayerToken("token-1b")
	assert.False(t, ok)
	_, _, ok = s.FindBySocket("sock-1b")
	assert.False(t, ok)
}

func TestSave_SpectatorIndexes(t *testing.T) {
	s := New()
	room := newTestRoom("666666", "auth0|host")
	s.Insert(room)

	spec := &game.Spectator{
		ID:                 "spec-1",
		Nickname:           "Watcher",
		NormalizedNickname: "watcher",
		RoomPin:            room.Pin,
		SocketID:           "spec-sock-1",
		Token:              "spec-token-1",
	}
	room.Lock()
	require.NoError(t, room.AddSpectator(spec))
	s.Save(room)
	room.Unlock()

	byToken, id, ok := s.FindBySpectatorToken("spec-token-1")
	require.True(t, ok)
	assert.Same(t, room, byToken)
	assert.Equal(t, spec.ID, id)

	_, ref, ok := s.FindBySocket("spec-sock-1")
	require.True(t, ok)
	assert.Equal(t, types.RoleTypeSpectator, ref.Role)
	assert.Equal(t, spec.ID, ref.SpectatorID)
}

func TestDelete_DropsAllIndexEntries(t *testing.T) {
	s := New()
	room := newTestRoom("777777", "auth0|host")
	s.Insert(room)

	room.Lock()
	room.BindHostSocket("host-sock-7")
	p := addPlayer(t, room, 7)
	s.Save(room)
	room.Unlock()

	s.Delete("777777")

	assert.False(t, s.Exists("777777"))
	_, ok := s.FindByHostUserID("auth0|host")
	assert.False(t, ok)
	_, ok = s.FindByHostToken(room.HostToken)
	assert.False(t, ok)
	_, _, ok = s.FindByPlayerToken(p.Token)
	assert.False(t, ok)
	_, _, ok = s.FindBySocket(p.SocketID)
	assert.False(t, ok)
	_, _, ok = s.FindBySocket("host-sock-7")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	// Second delete is a no-op.
	s.Delete("777777")
}

func TestSave_AfterDeleteDoesNotResurrect(t *testing.T) {
	s := New()
	room := newTestRoom("888888", "auth0|host")
	s.Insert(room)
	s.Delete("888888")

	room.Lock()
	s.Save(room)
	room.Unlock()

	assert.False(t, s.Exists("888888"))
	_, ok := s.FindByHostToken(room.HostToken)
	assert.False(t, ok)
}

func TestRooms_Snapshot(t *testing.T) {
	s := New()
	s.Insert(newTestRoom("100001", "auth0|h1"))
	s.Insert(newTestRoom("100002", "auth0|h2"))
	s.Insert(newTestRoom("100003", "auth0|h3"))

	rooms := s.Rooms()
	assert.Len(t, rooms, 3)

	pins := make(map[types.PinType]bool)
	for _, r := range rooms {
		pins[r.Pin] = true
	}
	assert.True(t, pins["100001"] && pins["100002"] && pins["100003"])
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	room := newTestRoom("999999", "auth0|host")
	s.Insert(room)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch n % 3 {
				case 0:
					room.Lock()
					s.Save(room)
					room.Unlock()
				case 1:
					s.FindByPin("999999")
					s.FindBySocket(types.SocketIDType(fmt.Sprintf("sock-%d-%d", n, j)))
				default:
					s.Rooms()
					s.Len()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.True(t, s.Exists("999999"))
}

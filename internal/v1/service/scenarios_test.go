package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// TestFullGame_TwoPlayers drives a complete two question game through the
// public use-cases and checks scores, standings and the event order a client
// would observe.
func TestFullGame_TwoPlayers(t *testing.T) {
	f := newFixture(t)
	pin := f.createRoom(t, testQuizID)
	f.joinPlayer(t, pin, "Alice", "sock-a")
	f.joinPlayer(t, pin, "Bob", "sock-b")
	f.joinSpectator(t, pin, "Watcher", "sock-w")

	// Question 1: Alice instant and correct, Bob late and wrong.
	require.NoError(t, f.svc.StartGame(ctx, string(pin), hostUser))
	require.NoError(t, f.svc.StartAnswering(ctx, string(pin), hostUser))
	require.NoError(t, f.svc.SubmitAnswer(ctx, string(pin), "sock-a", 2))
	f.clk.Step(2 * time.Second)
	require.NoError(t, f.svc.SubmitAnswer(ctx, string(pin), "sock-b", 0))
	assert.Equal(t, 1, f.fb.count(types.EventAllAnswered))

	require.NoError(t, f.svc.EndAnswering(ctx, string(pin), hostUser))
	results, _ := f.fb.lastBroadcast(types.EventShowResults)
	round1 := results.payload.(game.RoundResults)
	assert.Equal(t, 2, round1.CorrectAnswerIndex)
	assert.Equal(t, 1, round1.CorrectCount)
	assert.Equal(t, map[string]int{"0": 1, "1": 0, "2": 1, "3": 0}, round1.Distribution)

	require.NoError(t, f.svc.ShowLeaderboard(ctx, string(pin), hostUser))
	board, _ := f.fb.lastBroadcast(types.EventLeaderboard)
	entries := board.payload.(LeaderboardPayload).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice", entries[0].Nickname)
	assert.Equal(t, 1000, entries[0].Score)
	assert.Equal(t, "Bob", entries[1].Nickname)
	assert.Equal(t, 0, entries[1].Score)

	// Question 2: Bob fast, Alice slower but on a streak.
	require.NoError(t, f.svc.NextQuestion(ctx, string(pin), hostUser))
	require.NoError(t, f.svc.StartAnswering(ctx, string(pin), hostUser))
	f.clk.Step(time.Second)
	require.NoError(t, f.svc.SubmitAnswer(ctx, string(pin), "sock-b", 0))
	bob, _ := f.fb.lastUnicast("sock-b", types.EventAnswerReceived)
	assert.Equal(t, 950, bob.payload.(game.AnswerResult).Score)
	assert.Equal(t, 0, bob.payload.(game.AnswerResult).StreakBonus)

	f.clk.Step(2 * time.Second)
	require.NoError(t, f.svc.SubmitAnswer(ctx, string(pin), "sock-a", 0))
	alice, _ := f.fb.lastUnicast("sock-a", types.EventAnswerReceived)
	assert.Equal(t, 850, alice.payload.(game.AnswerResult).Score)
	assert.Equal(t, 100, alice.payload.(game.AnswerResult).StreakBonus, "second consecutive hit")
	assert.Equal(t, 1950, alice.payload.(game.AnswerResult).TotalScore)

	require.NoError(t, f.svc.EndAnswering(ctx, string(pin), hostUser))
	require.NoError(t, f.svc.ShowLeaderboard(ctx, string(pin), hostUser))
	require.NoError(t, f.svc.NextQuestion(ctx, string(pin), hostUser))

	over, ok := f.fb.lastBroadcast(types.EventGameOver)
	require.True(t, ok)
	podium := over.payload.(GameOverPayload).Podium
	require.Len(t, podium, 2)
	assert.Equal(t, "Alice", podium[0].Nickname)
	assert.Equal(t, 1950, podium[0].Score)
	assert.Equal(t, "Bob", podium[1].Nickname)
	assert.Equal(t, 950, podium[1].Score)

	room, _ := f.store.FindByPin(pin)
	room.RLock()
	assert.Equal(t, game.StatePodium, room.State())
	room.RUnlock()

	// A client replaying the stream must see the phases in game order.
	order := []types.EventType{
		types.EventGameStarted,
		types.EventQuestionIntro,
		types.EventAnsweringStarted,
		types.EventShowResults,
		types.EventLeaderboard,
		types.EventGameOver,
		types.EventFinalResults,
	}
	for i := 1; i < len(order); i++ {
		prev, cur := f.fb.firstIndexOf(order[i-1]), f.fb.firstIndexOf(order[i])
		require.NotEqual(t, -1, prev)
		require.NotEqual(t, -1, cur)
		assert.Less(t, prev, cur, "%s must precede %s", order[i-1], order[i])
	}

	require.NoError(t, f.svc.CloseRoom(ctx, string(pin), hostUser))
	assert.Equal(t, 0, f.store.Len())
}

// TestConcurrentJoins_SameNickname races many sockets onto one nickname.
// Exactly one may win; the rest get a conflict, never a partial join.
func TestConcurrentJoins_SameNickname(t *testing.T) {
	f := newFixture(t)
	pin := f.createRoom(t, testQuizID)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			socket := types.SocketIDType(fmt.Sprintf("sock-%d", i))
			errs[i] = f.svc.JoinRoom(ctx, string(pin), "Racer", socket)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), "loser error: %v", err)
	}
	assert.Equal(t, 1, winners)

	room, _ := f.store.FindByPin(pin)
	room.RLock()
	assert.Equal(t, 1, room.PlayerCount())
	room.RUnlock()
	assert.Equal(t, 1, f.fb.count(types.EventPlayerJoined))
}

// TestConcurrentJoins_DistinctNicknames verifies the admission lock only
// serializes identical nicknames; distinct ones all get in.
func TestConcurrentJoins_DistinctNicknames(t *testing.T) {
	f := newFixture(t)
	pin := f.createRoom(t, testQuizID)

	const joiners = 8
	errs := make([]error, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			socket := types.SocketIDType(fmt.Sprintf("sock-%d", i))
			errs[i] = f.svc.JoinRoom(ctx, string(pin), fmt.Sprintf("Player%d", i), socket)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "joiner %d", i)
	}

	room, _ := f.store.FindByPin(pin)
	room.RLock()
	assert.Equal(t, joiners, room.PlayerCount())
	room.RUnlock()
}

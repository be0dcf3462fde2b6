package game

import (
	"sort"
	"strconv"
	"time"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// AnswerResult is what a player learns immediately after submitting.
type AnswerResult struct {
	IsCorrect   bool `json:"isCorrect"`
	Score       int  `json:"score"`
	StreakBonus int  `json:"streakBonus"`
	TotalScore  int  `json:"totalScore"`
	Streak      int  `json:"streak"`
}

// RoundResults summarizes an ended round for the results screen.
type RoundResults struct {
	CorrectAnswerIndex int            `json:"correctAnswerIndex"`
	Distribution       map[string]int `json:"distribution"`
	CorrectCount       int            `json:"correctCount"`
	TotalPlayers       int            `json:"totalPlayers"`
}

// LeaderboardEntry is one row of the standings.
type LeaderboardEntry struct {
	Rank     int                `json:"rank"`
	PlayerID types.PlayerIDType `json:"playerId"`
	Nickname string             `json:"nickname"`
	Score    int                `json:"score"`
	Streak   int                `json:"streak"`
}

// --- State machine (caller must hold the write lock) ---

// Start moves the lobby into the first question's intro.
func (r *Room) Start() error {
	if r.state != StateWaitingPlayers {
		return apperr.IllegalTransition("cannot start game from %s", r.state)
	}
	r.state = StateQuestionIntro
	return nil
}

// BeginAnswering opens the answering phase for the current question and
// resets the round bookkeeping.
func (r *Room) BeginAnswering(round RoundSpec, now time.Time) error {
	if r.state != StateQuestionIntro {
		return apperr.IllegalTransition("cannot open answering from %s", r.state)
	}
	r.state = StateAnswering
	r.round = round
	r.questionStartedAt = now
	r.answers = make(map[types.PlayerIDType]AnswerRecord, len(r.players))
	r.correctAnswerIndex = -1
	r.pauseMsBeforeRound = r.accumulatedPauseMs
	return nil
}

// SubmitAnswer records a player's answer and applies scoring in the same
// step, so a player's score moves exactly once per question.
func (r *Room) SubmitAnswer(playerID types.PlayerIDType, answerIndex int, now time.Time) (AnswerResult, error) {
	if r.state != StateAnswering {
		return AnswerResult{}, apperr.IllegalTransition("answers are not being accepted in %s", r.state)
	}
	p, ok := r.players[playerID]
	if !ok {
		return AnswerResult{}, apperr.NotFound("unknown player")
	}
	if _, dup := r.answers[playerID]; dup {
		return AnswerResult{}, apperr.Conflict("answer already submitted for this question")
	}
	if answerIndex < 0 || answerIndex >= r.round.OptionCount {
		return AnswerResult{}, apperr.Validation("answer index %d out of range [0,%d)", answerIndex, r.round.OptionCount)
	}

	r.answers[playerID] = AnswerRecord{AnswerIndex: answerIndex, SubmittedAt: now}

	elapsed := now.Sub(r.questionStartedAt).Milliseconds()
	elapsed -= r.accumulatedPauseMs - r.pauseMsBeforeRound

	result := AnswerResult{IsCorrect: answerIndex == r.round.CorrectIndex}
	if result.IsCorrect {
		p.Streak++
		p.LastCorrectAt = now
		result.Score = speedScore(r.round.Points, elapsed, r.round.TimeLimitMs)
		result.StreakBonus = streakBonus(p.Streak)
	} else {
		p.Streak = 0
	}
	p.Score += result.Score + result.StreakBonus
	result.TotalScore = p.Score
	result.Streak = p.Streak
	return result, nil
}

// AllConnectedAnswered reports whether every currently connected player has
// answered this round. False when nobody is connected.
func (r *Room) AllConnectedAnswered() bool {
	connected := 0
	for id, p := range r.players {
		if !p.Connected() {
			continue
		}
		connected++
		if _, ok := r.answers[id]; !ok {
			return false
		}
	}
	return connected > 0
}

// EndAnswering closes the round: caches the correct answer, resets streaks
// of silent players and computes the answer distribution.
func (r *Room) EndAnswering() (RoundResults, error) {
	if r.state != StateAnswering {
		return RoundResults{}, apperr.IllegalTransition("cannot end answering from %s", r.state)
	}
	r.state = StateShowResults
	r.correctAnswerIndex = r.round.CorrectIndex

	results := RoundResults{
		CorrectAnswerIndex: r.round.CorrectIndex,
		Distribution:       make(map[string]int, r.round.OptionCount),
		TotalPlayers:       len(r.players),
	}
	for i := 0; i < r.round.OptionCount; i++ {
		results.Distribution[strconv.Itoa(i)] = 0
	}
	for _, rec := range r.answers {
		results.Distribution[strconv.Itoa(rec.AnswerIndex)]++
		if rec.AnswerIndex == r.round.CorrectIndex {
			results.CorrectCount++
		}
	}
	// No answer this round breaks the streak.
	for id, p := range r.players {
		if _, answered := r.answers[id]; !answered {
			p.Streak = 0
		}
	}
	return results, nil
}

// ShowLeaderboard moves from results to the interstitial standings screen.
func (r *Room) ShowLeaderboard() error {
	if r.state != StateShowResults {
		return apperr.IllegalTransition("cannot show leaderboard from %s", r.state)
	}
	r.state = StateLeaderboard
	return nil
}

// NextQuestionOrFinish advances to the next question's intro, or to the
// podium when the quiz is exhausted. Returns true when the game finished.
func (r *Room) NextQuestionOrFinish() (bool, error) {
	if r.state != StateLeaderboard {
		return false, apperr.IllegalTransition("cannot advance question from %s", r.state)
	}
	if r.currentQuestion+1 < r.TotalQuestions {
		r.currentQuestion++
		r.state = StateQuestionIntro
		return false, nil
	}
	r.state = StatePodium
	return true, nil
}

// Pause suspends the game in an interstitial state, remembering where to
// resume.
func (r *Room) Pause(now time.Time) error {
	if !r.state.pausable() {
		return apperr.IllegalTransition("cannot pause from %s", r.state)
	}
	r.prePausedState = r.state
	r.state = StatePaused
	r.pausedAt = now
	return nil
}

// Resume returns to the pre-paused state and accounts the paused wall time.
func (r *Room) Resume(now time.Time) (time.Duration, error) {
	if r.state != StatePaused {
		return 0, apperr.IllegalTransition("cannot resume from %s", r.state)
	}
	pauseDuration := now.Sub(r.pausedAt)
	r.accumulatedPauseMs += pauseDuration.Milliseconds()
	r.state = r.prePausedState
	r.pausedAt = time.Time{}
	return pauseDuration, nil
}

// --- Standings ---

// Leaderboard returns all players ranked by score. Ties are broken by the
// most recent correct submission, then player id, so ordering is
// deterministic.
func (r *Room) Leaderboard() []LeaderboardEntry {
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.LastCorrectAt.Equal(b.LastCorrectAt) {
			return a.LastCorrectAt.After(b.LastCorrectAt)
		}
		return a.ID < b.ID
	})

	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
			Streak:   p.Streak,
		}
	}
	return entries
}

// Podium returns the top three of the final standings.
func (r *Room) Podium() []LeaderboardEntry {
	entries := r.Leaderboard()
	if len(entries) > 3 {
		entries = entries[:3]
	}
	return entries
}

// CurrentDistribution snapshots the answer distribution of the round in
// progress or just ended, for late-joining observers.
func (r *Room) CurrentDistribution() map[string]int {
	if r.round.OptionCount == 0 {
		return nil
	}
	dist := make(map[string]int, r.round.OptionCount)
	for i := 0; i < r.round.OptionCount; i++ {
		dist[strconv.Itoa(i)] = 0
	}
	for _, rec := range r.answers {
		dist[strconv.Itoa(rec.AnswerIndex)]++
	}
	return dist
}

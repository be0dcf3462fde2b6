package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/game"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/quiz"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// StartGame moves the lobby into the first question's intro. Quiz content is
// fetched before the room lock is taken; repository calls never run inside a
// room's critical section.
func (s *Service) StartGame(ctx context.Context, rawPin, userID string) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	qz, err := s.quizzes.FindByID(ctx, room.QuizID)
	if err != nil {
		return err
	}
	first, err := qz.Question(0)
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
	if err := room.Start(); err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.Broadcast(room.Pin, types.EventGameStarted, GameStartedPayload{
		QuizTitle:      room.QuizTitle,
		TotalQuestions: room.TotalQuestions,
	}, nil)
	s.broadcastQuestionIntroLocked(room, 0, first)

	metrics.GamesStarted.Inc()
	logging.Info(ctx, "game started", pinField(room.Pin),
		zap.String("quizId", string(room.QuizID)),
		zap.Int("players", room.PlayerCount()))
	return nil
}

// StartAnswering opens the answering window for the current question and
// starts its countdown. The timer_started broadcast and the first tick go
// out inside this critical section, so clients always see answering_started
// before any timer event.
func (s *Service) StartAnswering(ctx context.Context, rawPin, userID string) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	closed := room.Closed()
	hostErr := requireHostLocked(room, userID)
	index := room.CurrentQuestion()
	room.RUnlock()
	if closed {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if hostErr != nil {
		return hostErr
	}

	qz, err := s.quizzes.FindByID(ctx, room.QuizID)
	if err != nil {
		return err
	}
	question, err := qz.Question(index)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if room.CurrentQuestion() != index {
		return apperr.IllegalTransition("room advanced past question %d", index)
	}
	round := game.RoundSpec{
		OptionCount:  len(question.Options),
		CorrectIndex: question.CorrectAnswerIndex,
		Points:       question.Points,
		TimeLimitMs:  int64(question.TimeLimitSeconds) * 1000,
	}
	if err := room.BeginAnswering(round, s.clock.Now()); err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.Broadcast(room.Pin, types.EventAnsweringStarted, AnsweringStartedPayload{
		QuestionIndex:    index,
		TimeLimitSeconds: question.TimeLimitSeconds,
		OptionCount:      len(question.Options),
	}, nil)

	expiryCtx := context.WithoutCancel(ctx)
	s.timers.Start(room.Pin, question.TimeLimitSeconds, func() {
		s.handleTimerExpiry(expiryCtx, room.Pin, index)
	})

	logging.Info(ctx, "answering started", pinField(room.Pin), zap.Int("question", index))
	return nil
}

// SubmitAnswer records a player's answer, answers them with their score and
// keeps the room's answered tally current. Late submissions that beat the
// expiry callback to the room lock still land in the answering phase and are
// clamped by the scoring curve, never rejected.
func (s *Service) SubmitAnswer(ctx context.Context, rawPin string, socketID types.SocketIDType, answerIndex int) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	player := room.FindPlayerBySocket(socketID)
	if player == nil {
		return apperr.Forbidden("only players may submit answers")
	}

	now := s.clock.Now()
	result, err := room.SubmitAnswer(player.ID, answerIndex, now)
	if err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.Unicast(socketID, types.EventAnswerReceived, result)
	s.broadcaster.Broadcast(room.Pin, types.EventAnswerCount, AnswerCountPayload{
		AnsweredCount: room.AnsweredCount(),
		TotalPlayers:  room.PlayerCount(),
	}, nil)
	if room.AllConnectedAnswered() {
		s.broadcaster.Broadcast(room.Pin, types.EventAllAnswered, struct{}{}, nil)
	}

	metrics.AnswersSubmitted.WithLabelValues(strconv.FormatBool(result.IsCorrect)).Inc()
	metrics.AnswerLatency.Observe(now.Sub(room.QuestionStartedAt()).Seconds())
	return nil
}

// EndAnswering closes the round on the host's request, typically after the
// all_players_answered signal.
func (s *Service) EndAnswering(ctx context.Context, rawPin, userID string) error {
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

	results, err := room.EndAnswering()
	if err != nil {
		return err
	}
	s.timers.Stop(room.Pin)
	s.store.Save(room)
	s.finishRoundLocked(room, results)

	logging.Info(ctx, "round ended", pinField(room.Pin), zap.Int("question", room.CurrentQuestion()))
	return nil
}

// handleTimerExpiry is the countdown's expiry callback. It runs on its own
// goroutine and must win the room lock itself; by the time it does, the host
// may already have ended the round, so a stale fire aborts quietly.
func (s *Service) handleTimerExpiry(ctx context.Context, pin types.PinType, questionIndex int) {
	room, ok := s.store.FindByPin(pin)
	if !ok {
		return
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() || room.State() != game.StateAnswering || room.CurrentQuestion() != questionIndex {
		return
	}

	s.broadcaster.Broadcast(pin, types.EventTimeExpired, TimeExpiredPayload{QuestionIndex: questionIndex}, nil)
	results, err := room.EndAnswering()
	if err != nil {
		logging.Error(ctx, "end answering on timer expiry", pinField(pin), zap.Error(err))
		return
	}
	s.timers.Stop(pin)
	s.store.Save(room)
	s.finishRoundLocked(room, results)

	logging.Info(ctx, "round ended by timer", pinField(pin), zap.Int("question", questionIndex))
}

// ShowLeaderboard moves to the interstitial standings screen.
func (s *Service) ShowLeaderboard(ctx context.Context, rawPin, userID string) error {
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
	if err := room.ShowLeaderboard(); err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.Broadcast(room.Pin, types.EventLeaderboard, LeaderboardPayload{
		Entries: room.Leaderboard(),
	}, nil)
	return nil
}

// NextQuestion advances to the next question's intro, or to the podium when
// the quiz is exhausted.
func (s *Service) NextQuestion(ctx context.Context, rawPin, userID string) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	closed := room.Closed()
	hostErr := requireHostLocked(room, userID)
	current := room.CurrentQuestion()
	room.RUnlock()
	if closed {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if hostErr != nil {
		return hostErr
	}

	var next quiz.Question
	if current+1 < room.TotalQuestions {
		qz, err := s.quizzes.FindByID(ctx, room.QuizID)
		if err != nil {
			return err
		}
		next, err = qz.Question(current + 1)
		if err != nil {
			return err
		}
	}

	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return apperr.NotFound("room %s not found", room.Pin)
	}
	if room.CurrentQuestion() != current {
		return apperr.IllegalTransition("room advanced past question %d", current)
	}
	finished, err := room.NextQuestionOrFinish()
	if err != nil {
		return err
	}
	s.store.Save(room)

	if finished {
		s.broadcaster.Broadcast(room.Pin, types.EventGameOver, GameOverPayload{
			Podium: room.Podium(),
		}, nil)
		s.broadcaster.Broadcast(room.Pin, types.EventFinalResults, FinalResultsPayload{
			Standings: room.Leaderboard(),
		}, nil)
		metrics.GamesFinished.Inc()
		logging.Info(ctx, "game finished", pinField(room.Pin))
		return nil
	}

	s.broadcastQuestionIntroLocked(room, room.CurrentQuestion(), next)
	return nil
}

// PauseGame suspends the game on an interstitial screen.
func (s *Service) PauseGame(ctx context.Context, rawPin, userID string) error {
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

	now := s.clock.Now()
	if err := room.Pause(now); err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.Broadcast(room.Pin, types.EventGamePaused, GamePausedPayload{
		PausedAt: now.UnixMilli(),
	}, nil)
	logging.Info(ctx, "game paused", pinField(room.Pin))
	return nil
}

// ResumeGame returns a paused game to its pre-paused screen.
func (s *Service) ResumeGame(ctx context.Context, rawPin, userID string) error {
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

	paused, err := room.Resume(s.clock.Now())
	if err != nil {
		return err
	}
	s.store.Save(room)

	s.broadcaster.Broadcast(room.Pin, types.EventGameResumed, GameResumedPayload{
		State:           room.State(),
		PauseDurationMs: paused.Milliseconds(),
	}, nil)
	logging.Info(ctx, "game resumed", pinField(room.Pin),
		zap.Int64("pausedMs", paused.Milliseconds()))
	return nil
}

// RequestTimerSync answers timer_sync so a reconnecting client can realign
// its countdown display.
func (s *Service) RequestTimerSync(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	defer room.RUnlock()
	if err := requireParticipantLocked(room, socketID); err != nil {
		return err
	}
	s.broadcaster.Unicast(socketID, types.EventTimerSync, s.timers.SyncFor(room.Pin))
	return nil
}

// GetResults answers results with the room's current scoring view: standings
// plus the distribution of the round in progress or just ended.
func (s *Service) GetResults(ctx context.Context, rawPin string, socketID types.SocketIDType) error {
	room, err := s.roomByPin(rawPin)
	if err != nil {
		return err
	}

	room.RLock()
	defer room.RUnlock()
	if err := requireParticipantLocked(room, socketID); err != nil {
		return err
	}
	s.broadcaster.Unicast(socketID, types.EventResults, ResultsPayload{
		State:              room.State(),
		QuestionIndex:      room.CurrentQuestion(),
		CorrectAnswerIndex: room.CorrectAnswerIndex(),
		Distribution:       room.CurrentDistribution(),
		Standings:          room.Leaderboard(),
	})
	return nil
}

// finishRoundLocked emits the two round-close views: the full results for
// the host and spectator screens, the correct answer alone for players.
func (s *Service) finishRoundLocked(room *game.Room, results game.RoundResults) {
	s.broadcaster.Broadcast(room.Pin, types.EventShowResults, results, hostAndSpectators)
	s.broadcaster.Broadcast(room.Pin, types.EventRoundEnded, RoundEndedPayload{
		CorrectAnswerIndex: results.CorrectAnswerIndex,
	}, playersOnly)
}

// broadcastQuestionIntroLocked emits the intro in two variants: players get
// the question without the correct index, host and spectator screens get it
// with the index so they can highlight the answer.
func (s *Service) broadcastQuestionIntroLocked(room *game.Room, index int, question quiz.Question) {
	intro := QuestionIntroPayload{
		QuestionIndex:    index,
		TotalQuestions:   room.TotalQuestions,
		Text:             question.Text,
		Options:          question.Options,
		TimeLimitSeconds: question.TimeLimitSeconds,
		Points:           question.Points,
		ImageURL:         question.ImageURL,
	}
	s.broadcaster.Broadcast(room.Pin, types.EventQuestionIntro, intro, playersOnly)

	correct := question.CorrectAnswerIndex
	intro.CorrectAnswerIndex = &correct
	s.broadcaster.Broadcast(room.Pin, types.EventQuestionIntro, intro, hostAndSpectators)
}

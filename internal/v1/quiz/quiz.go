// Package quiz defines the quiz content model and the repositories rooms load
// their questions from. Content is read-only to the game server; authoring
// lives in a separate service.
package quiz

import (
	"context"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const (
	minOptions = 2
	maxOptions = 4

	minTimeLimitSeconds = 5
	maxTimeLimitSeconds = 120

	minPoints = 100
	maxPoints = 10000
)

// Question is one timed round of a quiz.
type Question struct {
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	TimeLimitSeconds   int      `json:"timeLimitSeconds"`
	Points             int      `json:"points"`
	ImageURL           string   `json:"imageUrl,omitempty"`
}

// Quiz is an ordered set of questions.
type Quiz struct {
	ID        types.QuizIDType `json:"id"`
	Title     string           `json:"title"`
	Questions []Question       `json:"questions"`
}

// TotalQuestions returns the number of questions.
func (q *Quiz) TotalQuestions() int {
	return len(q.Questions)
}

// Question returns the question at the given zero-based index.
func (q *Quiz) Question(index int) (Question, error) {
	if index < 0 || index >= len(q.Questions) {
		return Question{}, apperr.NotFound("quiz %q has no question %d", q.ID, index)
	}
	return q.Questions[index], nil
}

// Validate rejects quizzes a room could not run: empty question lists,
// correct answers pointing outside the options, or timing and scoring values
// outside the supported ranges.
func (q *Quiz) Validate() error {
	if q.ID == "" {
		return apperr.Validation("quiz is missing an id")
	}
	if q.Title == "" {
		return apperr.Validation("quiz %q is missing a title", q.ID)
	}
	if len(q.Questions) == 0 {
		return apperr.Validation("quiz %q has no questions", q.ID)
	}
	for i, question := range q.Questions {
		if question.Text == "" {
			return apperr.Validation("quiz %q question %d has no text", q.ID, i)
		}
		if len(question.Options) < minOptions || len(question.Options) > maxOptions {
			return apperr.Validation("quiz %q question %d must have %d-%d options, got %d",
				q.ID, i, minOptions, maxOptions, len(question.Options))
		}
		if question.CorrectAnswerIndex < 0 || question.CorrectAnswerIndex >= len(question.Options) {
			return apperr.Validation("quiz %q question %d has correct answer index %d outside its %d options",
				q.ID, i, question.CorrectAnswerIndex, len(question.Options))
		}
		if question.TimeLimitSeconds < minTimeLimitSeconds || question.TimeLimitSeconds > maxTimeLimitSeconds {
			return apperr.Validation("quiz %q question %d time limit must be %d-%ds, got %d",
				q.ID, i, minTimeLimitSeconds, maxTimeLimitSeconds, question.TimeLimitSeconds)
		}
		if question.Points < minPoints || question.Points > maxPoints {
			return apperr.Validation("quiz %q question %d points must be %d-%d, got %d",
				q.ID, i, minPoints, maxPoints, question.Points)
		}
	}
	return nil
}

// Repository loads quiz content by ID.
type Repository interface {
	FindByID(ctx context.Context, id types.QuizIDType) (*Quiz, error)
}

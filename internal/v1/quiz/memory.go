package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// MemoryRepository serves quizzes from an in-process map. It backs local
// development and tests, and is the fallback when no quiz service URL is
// configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	quizzes map[types.QuizIDType]*Quiz
}

// NewMemoryRepository builds a repository holding the given quizzes.
// Invalid quizzes are rejected up front so rooms never see them.
func NewMemoryRepository(quizzes ...*Quiz) (*MemoryRepository, error) {
	repo := &MemoryRepository{quizzes: make(map[types.QuizIDType]*Quiz, len(quizzes))}
	for _, q := range quizzes {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := repo.quizzes[q.ID]; dup {
			return nil, apperr.Validation("duplicate quiz id %q", q.ID)
		}
		repo.quizzes[q.ID] = q
	}
	return repo, nil
}

// NewMemoryRepositoryFromFile loads a JSON array of quizzes from disk.
func NewMemoryRepositoryFromFile(path string) (*MemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quiz fixtures: %w", err)
	}
	var quizzes []*Quiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		return nil, fmt.Errorf("quiz fixtures %s: %w", path, err)
	}
	return NewMemoryRepository(quizzes...)
}

// FindByID returns the quiz or a NotFound error.
func (r *MemoryRepository) FindByID(_ context.Context, id types.QuizIDType) (*Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, apperr.NotFound("quiz %q not found", id)
	}
	return q, nil
}

// Demo returns the quizzes seeded in development when neither a quiz service
// URL nor a fixtures file is configured.
func Demo() []*Quiz {
	return []*Quiz{
		{
			ID:    "demo-capitals",
			Title: "Capitals of Europe",
			Questions: []Question{
				{
					Text:               "What is the capital of France?",
					Options:            []string{"Lyon", "Marseille", "Paris", "Nice"},
					CorrectAnswerIndex: 2,
					TimeLimitSeconds:   20,
					Points:             1000,
				},
				{
					Text:               "What is the capital of Poland?",
					Options:            []string{"Warsaw", "Krakow", "Gdansk"},
					CorrectAnswerIndex: 0,
					TimeLimitSeconds:   20,
					Points:             1000,
				},
				{
					Text:               "What is the capital of Switzerland?",
					Options:            []string{"Zurich", "Geneva", "Bern", "Basel"},
					CorrectAnswerIndex: 2,
					TimeLimitSeconds:   30,
					Points:             2000,
				},
			},
		},
		{
			ID:    "demo-go",
			Title: "Go Fundamentals",
			Questions: []Question{
				{
					Text:               "Which keyword starts a new goroutine?",
					Options:            []string{"go", "spawn", "async", "run"},
					CorrectAnswerIndex: 0,
					TimeLimitSeconds:   15,
					Points:             500,
				},
				{
					Text:               "What does a nil map lookup return?",
					Options:            []string{"panic", "the zero value"},
					CorrectAnswerIndex: 1,
					TimeLimitSeconds:   15,
					Points:             500,
				},
			},
		},
	}
}

package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const breakerName = "quiz-service"

// HTTPRepository fetches quizzes from the quiz authoring service over HTTP.
// Calls run through a circuit breaker so a dead quiz service fails room
// creation fast instead of piling up blocked sockets.
type HTTPRepository struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

// NewHTTPRepository builds a repository against the given base URL,
// e.g. "http://quiz-service:8080".
func NewHTTPRepository(baseURL string) *HTTPRepository {
	st := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateVal)
		},
	}

	return &HTTPRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		cb:      gobreaker.NewCircuitBreaker(st),
	}
}

// FindByID fetches and validates one quiz. A 404 from the quiz service maps
// to NotFound and does not count against the breaker; transport errors and
// 5xx responses do.
func (r *HTTPRepository) FindByID(ctx context.Context, id types.QuizIDType) (*Quiz, error) {
	result, err := r.cb.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/api/v1/quizzes/%s", r.baseURL, id)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("quiz service: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("quiz service: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusNotFound {
			// A miss is a valid answer, not a backend failure.
			return nil, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("quiz service returned %d for quiz %q", resp.StatusCode, id)
		}

		var q Quiz
		if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
			return nil, fmt.Errorf("quiz service: decode quiz %q: %w", id, err)
		}
		return &q, nil
	})
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(breakerName).Inc()
		return nil, err
	}

	if result == nil {
		return nil, apperr.NotFound("quiz %q not found", id)
	}
	q := result.(*Quiz)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Ping probes the quiz service for the readiness endpoint. It bypasses the
// breaker so health reporting keeps observing the real backend while the
// breaker is open.
func (r *HTTPRepository) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("quiz service: build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("quiz service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quiz service health returned %d", resp.StatusCode)
	}
	return nil
}

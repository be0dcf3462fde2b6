package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the quiz game backend.
// Declared in one package to keep naming consistent and avoid
// coupling between packages.
//
// Naming convention: namespace_subsystem_name
// - namespace: quizgame (application-level grouping)
// - subsystem: websocket, room, game, reaper, ratelimit, breaker
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (rooms created, answers scored, errors)
// - Histogram: Latency distributions (processing time, answer latency)

var (
	// ActiveWebSocketConnections tracks the current number of active WebSocket connections (Gauge - current state)
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quizgame",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// WebsocketEvents tracks the total number of WebSocket events processed (CounterVec - cumulative)
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MessageProcessingDuration tracks the time spent processing WebSocket messages (HistogramVec - latency distribution)
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quizgame",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing WebSocket messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	// ErrorEvents tracks error events sent back to clients by error kind (CounterVec - cumulative)
	ErrorEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "websocket",
		Name:      "errors_total",
		Help:      "Total error events emitted to clients",
	}, []string{"kind"})

	// ActiveRooms tracks the current number of active rooms (Gauge - current state)
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quizgame",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomsCreated tracks the total number of rooms created (Counter - cumulative)
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "room",
		Name:      "rooms_created_total",
		Help:      "Total rooms created",
	})

	// RoomsClosed tracks the total number of rooms closed, by reason (CounterVec - cumulative)
	RoomsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "room",
		Name:      "rooms_closed_total",
		Help:      "Total rooms closed",
	}, []string{"reason"})

	// RoomPlayers tracks the number of player rows in each room (GaugeVec with pin label - current state per room)
	// Using Gauge instead of Histogram because we want the current player count per room,
	// not a distribution of historical counts. Label values are deleted when the room closes.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "quizgame",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"pin"})

	// PlayersJoined tracks the total number of successful player joins (Counter - cumulative)
	PlayersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "room",
		Name:      "players_joined_total",
		Help:      "Total successful player joins",
	})

	// SpectatorsJoined tracks the total number of successful spectator joins (Counter - cumulative)
	SpectatorsJoined = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "room",
		Name:      "spectators_joined_total",
		Help:      "Total successful spectator joins",
	})

	// AnswersSubmitted tracks the total number of accepted answers, by correctness (CounterVec - cumulative)
	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "game",
		Name:      "answers_submitted_total",
		Help:      "Total accepted answer submissions",
	}, []string{"correct"})

	// AnswerLatency tracks the time between question start and answer arrival (Histogram - latency distribution)
	AnswerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizgame",
		Subsystem: "game",
		Name:      "answer_latency_seconds",
		Help:      "Time between answering phase start and answer arrival",
		Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	// GamesStarted tracks the total number of games started (Counter - cumulative)
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "game",
		Name:      "games_started_total",
		Help:      "Total games started",
	})

	// GamesFinished tracks the total number of games that reached the final results (Counter - cumulative)
	GamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "game",
		Name:      "games_finished_total",
		Help:      "Total games that reached final results",
	})

	// ReaperRemovals tracks participants and rooms reaped after grace expiry (CounterVec - cumulative)
	ReaperRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "reaper",
		Name:      "removals_total",
		Help:      "Total grace-period expiries handled by the reaper",
	}, []string{"kind"})

	// RateLimitRequests tracks requests checked by the rate limiter (CounterVec - cumulative)
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "ratelimit",
		Name:      "requests_total",
		Help:      "Total requests checked by the rate limiter",
	}, []string{"endpoint"})

	// RateLimitExceeded tracks requests rejected by the rate limiter (CounterVec - cumulative)
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "ratelimit",
		Name:      "exceeded_total",
		Help:      "Total requests rejected by the rate limiter",
	}, []string{"endpoint", "limit_type"})

	// CircuitBreakerState tracks the current state of each circuit breaker (GaugeVec - current state)
	// 0 = closed, 1 = open, 2 = half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "quizgame",
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})

	// CircuitBreakerFailures tracks requests rejected or failed through a circuit breaker (CounterVec - cumulative)
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizgame",
		Subsystem: "breaker",
		Name:      "failures_total",
		Help:      "Total failures observed by circuit breakers",
	}, []string{"name"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}

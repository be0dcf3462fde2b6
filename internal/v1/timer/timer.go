// Package timer runs the authoritative per-room countdown. Each room has at
// most one active timer; ticks and the start announcement carry the absolute
// deadline plus the server's own clock so clients can correct for skew
// instead of trusting tick cadence.
package timer

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Sync is the skew-correction snapshot returned to reconnecting clients and
// on request_timer_sync. Times are unix milliseconds.
type Sync struct {
	Running     bool  `json:"running"`
	ServerTime  int64 `json:"serverTime"`
	EndTime     int64 `json:"endTime,omitempty"`
	RemainingMs int64 `json:"remainingMs"`
	Remaining   int   `json:"remaining"`
}

// StartedPayload announces a fresh countdown.
type StartedPayload struct {
	Duration   int   `json:"duration"`
	DurationMs int64 `json:"durationMs"`
	ServerTime int64 `json:"serverTime"`
	EndTime    int64 `json:"endTime"`
}

// TickPayload is the 1 Hz heartbeat while a countdown runs.
type TickPayload struct {
	ServerTime  int64 `json:"serverTime"`
	EndTime     int64 `json:"endTime"`
	RemainingMs int64 `json:"remainingMs"`
	Remaining   int   `json:"remaining"`
}

type entry struct {
	pin       types.PinType
	startTime time.Time
	endTime   time.Time

	mu      sync.Mutex
	stopped bool
	expire  clock.Timer
	ticker  clock.Ticker
	stopCh  chan struct{}
}

func (e *entry) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// halt cancels the schedules exactly once. Safe against racing expiry.
func (e *entry) halt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.stopCh)
	if e.expire != nil {
		e.expire.Stop()
	}
}

// Service owns every room countdown in the process.
type Service struct {
	mu      sync.Mutex
	entries map[types.PinType]*entry

	broadcaster types.Broadcaster
	clock       clock.WithTickerAndDelayedExecution
	tick        time.Duration
}

// New builds the timer service. tick is the broadcast cadence, normally one
// second.
func New(broadcaster types.Broadcaster, tick time.Duration, clk clock.WithTickerAndDelayedExecution) *Service {
	return &Service{
		entries:     make(map[types.PinType]*entry),
		broadcaster: broadcaster,
		clock:       clk,
		tick:        tick,
	}
}

// Start replaces any running countdown for the PIN with a fresh one of
// durationSec seconds. It broadcasts timer_started plus an immediate first
// tick before returning, so a caller holding the room lock keeps those in
// order with its own events. onExpire runs on its own goroutine when the
// deadline passes; it must acquire the room lock itself.
func (s *Service) Start(pin types.PinType, durationSec int, onExpire func()) {
	s.Stop(pin)

	now := s.clock.Now()
	duration := time.Duration(durationSec) * time.Second
	e := &entry{
		pin:       pin,
		startTime: now,
		endTime:   now.Add(duration),
		stopCh:    make(chan struct{}),
	}

	s.mu.Lock()
	s.entries[pin] = e
	s.mu.Unlock()

	s.broadcaster.Broadcast(pin, types.EventTimerStarted, StartedPayload{
		Duration:   durationSec,
		DurationMs: duration.Milliseconds(),
		ServerTime: now.UnixMilli(),
		EndTime:    e.endTime.UnixMilli(),
	}, nil)
	s.broadcastTick(e, now)

	e.mu.Lock()
	if !e.stopped {
		e.expire = s.clock.AfterFunc(duration, func() {
			// Hand off immediately; the expiry path takes room locks and must
			// never run inside the clock's own dispatch.
			go s.fireExpiry(e, onExpire)
		})
		e.ticker = s.clock.NewTicker(s.tick)
		go s.tickLoop(e)
	}
	e.mu.Unlock()
}

// Stop cancels the countdown for the PIN. Idempotent; late ticks and a
// concurrently firing expiry are suppressed by the stopped flag.
func (s *Service) Stop(pin types.PinType) {
	s.mu.Lock()
	e := s.entries[pin]
	delete(s.entries, pin)
	s.mu.Unlock()

	if e != nil {
		e.halt()
	}
}

// StopAll cancels every countdown. Called on shutdown so no callback can
// fire into a torn-down server.
func (s *Service) StopAll() {
	s.mu.Lock()
	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	s.entries = make(map[types.PinType]*entry)
	s.mu.Unlock()

	for _, e := range all {
		e.halt()
	}
}

// SyncFor reports the current countdown state for the PIN.
func (s *Service) SyncFor(pin types.PinType) Sync {
	s.mu.Lock()
	e := s.entries[pin]
	s.mu.Unlock()

	now := s.clock.Now()
	if e == nil || e.isStopped() {
		return Sync{Running: false, ServerTime: now.UnixMilli()}
	}
	return e.syncAt(now)
}

func (e *entry) syncAt(now time.Time) Sync {
	remainingMs := e.endTime.Sub(now).Milliseconds()
	if remainingMs < 0 {
		remainingMs = 0
	}
	return Sync{
		Running:     true,
		ServerTime:  now.UnixMilli(),
		EndTime:     e.endTime.UnixMilli(),
		RemainingMs: remainingMs,
		Remaining:   int((remainingMs + 999) / 1000),
	}
}

func (s *Service) broadcastTick(e *entry, now time.Time) {
	sync := e.syncAt(now)
	s.broadcaster.Broadcast(e.pin, types.EventTimerTick, TickPayload{
		ServerTime:  sync.ServerTime,
		EndTime:     sync.EndTime,
		RemainingMs: sync.RemainingMs,
		Remaining:   sync.Remaining,
	}, nil)
}

func (s *Service) tickLoop(e *entry) {
	defer e.ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-e.ticker.C():
			if e.isStopped() {
				return
			}
			if !now.Before(e.endTime) {
				// The expiry one-shot owns the final word.
				return
			}
			s.broadcastTick(e, now)
		}
	}
}

func (s *Service) fireExpiry(e *entry, onExpire func()) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()

	s.mu.Lock()
	if s.entries[e.pin] == e {
		delete(s.entries, e.pin)
	}
	s.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}

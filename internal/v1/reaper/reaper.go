// Package reaper drives the grace-window sweep. Disconnect deadlines for
// hosts, players, and join locks only take effect when something checks
// them; the reaper checks them on a fixed cadence.
package reaper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
)

// Sweeper is one full eviction pass. The game service implements it.
type Sweeper interface {
	SweepExpired(ctx context.Context)
}

// Reaper runs a Sweeper on every tick until stopped.
type Reaper struct {
	sweeper  Sweeper
	interval time.Duration
	clock    clock.WithTicker

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New builds a reaper. Nothing runs until Start.
func New(sweeper Sweeper, interval time.Duration, clk clock.WithTicker) *Reaper {
	return &Reaper{
		sweeper:  sweeper,
		interval: interval,
		clock:    clk,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop on its own goroutine. Calling Start twice,
// or after Stop, is a no-op.
func (r *Reaper) Start() {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true
	ticker := r.clock.NewTicker(r.interval)
	r.mu.Unlock()

	logging.Info(context.Background(), "Reaper started", zap.Duration("interval", r.interval))
	go r.run(ticker)
}

func (r *Reaper) run(ticker clock.Ticker) {
	defer close(r.done)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C():
			r.sweeper.SweepExpired(context.Background())
		}
	}
}

// Stop halts the loop and waits for an in-flight sweep to finish, so the
// caller can tear down the service the sweeper points at. Idempotent.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	close(r.stopCh)
	r.mu.Unlock()

	if started {
		<-r.done
	}
	logging.Info(context.Background(), "Reaper stopped")
}

// Package sweeper implements C4, the background activity that enforces
// order lifetimes. Grounded on the teacher's registry.Hub runEvictor/
// performEviction ticker loop, retargeted from idle-timeout reclamation
// to the absolute expiry_at set once at order creation.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/orderflow/coordinator/internal/domain/orderqueue"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
)

// DefaultInterval matches spec's sweep_interval default of 30s.
const DefaultInterval = 30 * time.Second

// ProposalUpdater is the narrow slice of C11 the sweeper needs: marking
// every affected proposal PAUSED on expiry.
type ProposalUpdater interface {
	OrderPaused(ctx context.Context, orderID string) error
}

// Sweeper owns its own background loop, started by New and stopped by
// Stop; the constructor is the supervisor, matching the Design Notes'
// "supervised long-running task owned by the component constructor".
type Sweeper struct {
	states   orderstate.Manager
	queues   orderqueue.Manager
	updater  ProposalUpdater
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	onExpHdl []func(orderID string)

	stopCh chan struct{}
	doneCh chan struct{}
}

type Option func(*Sweeper)

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.interval = d }
}

// OnExpire registers a hook invoked for every order the sweeper removes,
// before C1/C2 teardown; the stream handler uses this to cancel its
// own per-stream context without the sweeper needing to know about
// streams at all.
func OnExpire(fn func(orderID string)) Option {
	return func(s *Sweeper) { s.onExpHdl = append(s.onExpHdl, fn) }
}

func New(states orderstate.Manager, queues orderqueue.Manager, updater ProposalUpdater, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		states:   states,
		queues:   queues,
		updater:  updater,
		logger:   logger,
		interval: DefaultInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func (s *Sweeper) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

// sweepOnce processes every expired order independently: one failure
// never blocks the rest.
func (s *Sweeper) sweepOnce() {
	now := time.Now()
	for _, id := range s.states.ExpiredIDs(now) {
		s.cleanupOne(id)
	}
}

func (s *Sweeper) cleanupOne(orderID string) {
	for _, hook := range s.onExpHdl {
		func() {
			defer func() { recover() }()
			hook(orderID)
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.updater.OrderPaused(ctx, orderID); err != nil {
		s.logger.Warn("sweeper: persistence update failed", "order_id", orderID, "error", err)
	}

	s.states.Remove(orderID)
	s.queues.Drop(orderID)
}

// Stop signals the sweep loop to exit and waits for it to return.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

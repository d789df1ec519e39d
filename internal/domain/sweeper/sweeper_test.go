package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/orderflow/coordinator/internal/domain/orderqueue"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
)

type fakeUpdater struct {
	calls int32
	err   error
}

func (f *fakeUpdater) OrderPaused(ctx context.Context, orderID string) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeperRemovesExpiredWithinOneInterval(t *testing.T) {
	states := orderstate.New()
	queues := orderqueue.NewManager(4)
	states.GetOrCreate("O1", -time.Second, "")
	queues.GetOrCreate("O1")

	updater := &fakeUpdater{}
	var expired int32
	sw := New(states, queues, updater, silentLogger(),
		WithInterval(10*time.Millisecond),
		OnExpire(func(orderID string) { atomic.AddInt32(&expired, 1) }),
	)
	defer sw.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := states.Get("O1"); !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := states.Get("O1"); ok {
		t.Fatal("expected order to be removed")
	}
	if atomic.LoadInt32(&updater.calls) == 0 {
		t.Fatal("expected OrderPaused to be invoked")
	}
	if atomic.LoadInt32(&expired) == 0 {
		t.Fatal("expected onExpire hook to fire")
	}
}

func TestSweeperIsolatesPerOrderFailures(t *testing.T) {
	states := orderstate.New()
	queues := orderqueue.NewManager(4)
	states.GetOrCreate("O1", -time.Second, "")
	states.GetOrCreate("O2", -time.Second, "")

	updater := &fakeUpdater{err: errors.New("persistence down")}
	sw := New(states, queues, updater, silentLogger(), WithInterval(10*time.Millisecond))
	defer sw.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, ok1 := states.Get("O1")
		_, ok2 := states.Get("O2")
		if !ok1 && !ok2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := states.Get("O1"); ok {
		t.Fatal("O1 should be removed despite updater failure")
	}
	if _, ok := states.Get("O2"); ok {
		t.Fatal("O2 should be removed despite updater failure")
	}
}

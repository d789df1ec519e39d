// Package scheduler implements C3, a bounded worker pool that runs
// streaming tasks ordered by priority then FIFO. Grounded on
// original_source's priorityTask_queue_manager.py (TaskPriority,
// PriorityTask.__lt__, bounded active_tasks, worker poll loop), realized
// with container/heap instead of asyncio.PriorityQueue. The w_-prefixed
// kwargs convention from the original is replaced by a plain closure, per
// the Design Notes: the scheduler carries no user args, only the
// closure and its priority.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority mirrors TaskPriority: lower value runs first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Work is the closure a submitted task runs. ctx is cancelled on
// Shutdown; a long-running Work should observe it at its next
// suspension point.
type Work func(ctx context.Context) (any, error)

// Outcome records one completed task's result.
type Outcome struct {
	Success     bool
	Result      any
	Err         error
	CompletedAt time.Time
}

// Scheduler is the C3 contract.
type Scheduler interface {
	Submit(priority Priority, orderID string, work Work) string
	Result(taskID string) (Outcome, bool)
	CleanupOlderThan(maxAge time.Duration)
	Shutdown()
}

type task struct {
	id         string
	priority   Priority
	enqueuedAt time.Time
	orderID    string
	work       Work
	index      int // heap bookkeeping
}

// taskHeap orders by priority ascending, then by enqueuedAt ascending
// (FIFO within a priority), matching PriorityTask.__lt__.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].enqueuedAt.Before(h[j].enqueuedAt)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

type scheduler struct {
	width int

	mu      sync.Mutex
	cond    *sync.Cond
	pending taskHeap
	stopped bool

	resultsMu sync.Mutex
	results   map[string]Outcome

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a scheduler with a fixed worker pool of the given width
// (default 10, per MAX_CONCURRENT_TASKS). At most width tasks execute
// concurrently; excess queue by priority then FIFO.
func New(width int) Scheduler {
	if width <= 0 {
		width = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &scheduler{
		width:   width,
		results: make(map[string]Outcome),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cond = sync.NewCond(&s.mu)
	heap.Init(&s.pending)

	for i := 0; i < width; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *scheduler) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped && len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.pending).(*task)
		s.mu.Unlock()

		s.runTask(t)
	}
}

// runTask executes exactly once; a panic or returned error is recorded,
// never propagated to the worker loop, so pool capacity is always
// released.
func (s *scheduler) runTask(t *task) {
	var outcome Outcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome.Success = false
				outcome.Err = panicToError(r)
			}
		}()
		result, err := t.work(s.ctx)
		if err != nil {
			outcome.Success = false
			outcome.Err = err
		} else {
			outcome.Success = true
			outcome.Result = result
		}
	}()
	outcome.CompletedAt = time.Now()

	s.resultsMu.Lock()
	s.results[t.id] = outcome
	s.resultsMu.Unlock()
}

func (s *scheduler) Submit(priority Priority, orderID string, work Work) string {
	id := uuid.New().String()
	t := &task{
		id:         id,
		priority:   priority,
		enqueuedAt: time.Now(),
		orderID:    orderID,
		work:       work,
	}

	s.mu.Lock()
	heap.Push(&s.pending, t)
	s.mu.Unlock()
	s.cond.Signal()

	return id
}

func (s *scheduler) Result(taskID string) (Outcome, bool) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	o, ok := s.results[taskID]
	return o, ok
}

// CleanupOlderThan ages out completed outcomes, mirroring
// cleanup_old_results(max_age_hours) from the original.
func (s *scheduler) CleanupOlderThan(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	for id, o := range s.results {
		if o.CompletedAt.Before(cutoff) {
			delete(s.results, id)
		}
	}
}

// Shutdown cancels queued tasks and cooperatively signals running tasks
// to stop via ctx; it then waits for in-flight workers to return.
func (s *scheduler) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.pending = nil
	s.mu.Unlock()
	s.cond.Broadcast()
	s.cancel()
	s.wg.Wait()
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{v: r}
}

type panicError struct{ v any }

func (p *panicError) Error() string { return "task panicked: " + toString(p.v) }

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown"
}

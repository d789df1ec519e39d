// Package tracking implements C10, the client-side order registry that
// is authoritative for duplicate-stream prevention. Grounded on
// original_source's order_tracking_service.py (order_req_id_list /
// active_grpc_streams dual-dict shape) and the teacher's registry.Hub
// for the sync.Map-keyed concurrency pattern.
package tracking

import (
	"sync"
	"time"
)

// Note is a client-observed follow-up recorded against an order.
type Note struct {
	FollowUpID string
	Content    string
	AddedAt    time.Time
}

// Entry is one tracked order's client-side record.
type Entry struct {
	OrderReqID string
	Session    string

	mu           sync.Mutex
	notes        []Note
	streamActive bool
}

func (e *Entry) AppendNote(n Note) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes = append(e.notes, n)
}

func (e *Entry) Notes() []Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Note(nil), e.notes...)
}

func (e *Entry) StreamActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streamActive
}

func (e *Entry) setStreamActive(active bool) {
	e.mu.Lock()
	e.streamActive = active
	e.mu.Unlock()
}

// Tracker is the C10 contract.
type Tracker interface {
	// AddOrder is idempotent: a second call for an already-tracked
	// order_req_id returns the existing entry unchanged.
	AddOrder(orderReqID, session string) *Entry
	Get(orderReqID string) (*Entry, bool)
	// MarkStreamActive reports whether this call is the one that
	// transitioned the entry from inactive to active: false means a
	// stream was already active and the caller must short-circuit
	// rather than open a second one.
	MarkStreamActive(orderReqID string) bool
	MarkStreamInactive(orderReqID string)
	All() []*Entry
}

type tracker struct {
	entries sync.Map // string -> *Entry
	// activateMu serializes the check-then-set on streamActive so two
	// concurrent initiate-order calls for the same id cannot both win.
	activateMu sync.Mutex
}

func New() Tracker {
	return &tracker{}
}

func (t *tracker) AddOrder(orderReqID, session string) *Entry {
	if v, ok := t.entries.Load(orderReqID); ok {
		return v.(*Entry)
	}
	entry := &Entry{OrderReqID: orderReqID, Session: session}
	actual, _ := t.entries.LoadOrStore(orderReqID, entry)
	return actual.(*Entry)
}

func (t *tracker) Get(orderReqID string) (*Entry, bool) {
	v, ok := t.entries.Load(orderReqID)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

func (t *tracker) MarkStreamActive(orderReqID string) bool {
	entry := t.AddOrder(orderReqID, "")

	t.activateMu.Lock()
	defer t.activateMu.Unlock()
	if entry.StreamActive() {
		return false
	}
	entry.setStreamActive(true)
	return true
}

func (t *tracker) MarkStreamInactive(orderReqID string) {
	if entry, ok := t.Get(orderReqID); ok {
		entry.setStreamActive(false)
	}
}

func (t *tracker) All() []*Entry {
	var entries []*Entry
	t.entries.Range(func(_, value any) bool {
		entries = append(entries, value.(*Entry))
		return true
	})
	return entries
}

// Package orderstate implements C1, the process-wide registry of
// OrderState keyed by order id. Grounded on the teacher's registry.Hub
// (sync.Map-keyed actor registry), retargeted from idle-timeout eviction
// to the absolute expiry-at-creation-time semantics this domain requires.
package orderstate

import (
	"sync"
	"time"

	"github.com/orderflow/coordinator/internal/domain/model"
)

// Manager is the C1 contract: get_or_create, get, remove, expired_ids, all.
type Manager interface {
	GetOrCreate(orderID string, expiryDuration time.Duration, session string) *model.OrderState
	Get(orderID string) (*model.OrderState, bool)
	Remove(orderID string) bool
	ExpiredIDs(now time.Time) []string
	All() []*model.OrderState
}

// manager holds OrderID -> *model.OrderState. The top-level map needs a
// lock around insert/remove only; reads of an already-fetched entry
// never touch it again (sync.Map gives us that for free).
type manager struct {
	orders sync.Map // string -> *model.OrderState
	// createMu serializes the read-check-then-insert sequence so two
	// concurrent get_or_create calls for the same unseen id cannot both
	// win and construct two different OrderState values.
	createMu sync.Mutex
}

func New() Manager {
	return &manager{}
}

// GetOrCreate is idempotent: an existing entry is returned unchanged,
// expiry_at is never reset on an already-created order.
func (m *manager) GetOrCreate(orderID string, expiryDuration time.Duration, session string) *model.OrderState {
	if v, ok := m.orders.Load(orderID); ok {
		return v.(*model.OrderState)
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	if v, ok := m.orders.Load(orderID); ok {
		return v.(*model.OrderState)
	}

	state := model.NewOrderState(orderID, session, time.Now().Add(expiryDuration))
	m.orders.Store(orderID, state)
	return state
}

func (m *manager) Get(orderID string) (*model.OrderState, bool) {
	v, ok := m.orders.Load(orderID)
	if !ok {
		return nil, false
	}
	return v.(*model.OrderState), true
}

// Remove deletes the order's state. Called exactly once, by the sweeper.
func (m *manager) Remove(orderID string) bool {
	_, existed := m.orders.LoadAndDelete(orderID)
	return existed
}

// ExpiredIDs does not mutate; it is a read-only snapshot of ids whose
// expiry_at <= now.
func (m *manager) ExpiredIDs(now time.Time) []string {
	var ids []string
	m.orders.Range(func(key, value any) bool {
		state := value.(*model.OrderState)
		if state.IsExpired(now) {
			ids = append(ids, key.(string))
		}
		return true
	})
	return ids
}

// All returns a snapshot of every tracked OrderState.
func (m *manager) All() []*model.OrderState {
	var states []*model.OrderState
	m.orders.Range(func(_, value any) bool {
		states = append(states, value.(*model.OrderState))
		return true
	})
	return states
}

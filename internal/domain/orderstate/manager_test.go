package orderstate

import (
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	m := New()
	a := m.GetOrCreate("O1", 30*time.Minute, "s1")
	b := m.GetOrCreate("O1", time.Hour, "s2")

	if a != b {
		t.Fatal("expected same OrderState instance")
	}
	if a.ExpiryAt != b.ExpiryAt {
		t.Fatal("expiry_at must not change on second get_or_create")
	}
	if a.Session != "s1" {
		t.Fatalf("session should come from first creation, got %q", a.Session)
	}
}

func TestGetOrCreateConcurrentSingleWinner(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	results := make([]*struct{ id string }, 50)
	_ = results

	seen := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := m.GetOrCreate("O1", 30*time.Minute, "")
			seen <- st.OrderID
		}()
	}
	wg.Wait()
	close(seen)

	all := m.All()
	if len(all) != 1 {
		t.Fatalf("expected exactly one OrderState, got %d", len(all))
	}
}

func TestExpiredIDsDoesNotMutate(t *testing.T) {
	m := New()
	m.GetOrCreate("O1", -time.Minute, "")
	m.GetOrCreate("O2", time.Hour, "")

	ids := m.ExpiredIDs(time.Now())
	if len(ids) != 1 || ids[0] != "O1" {
		t.Fatalf("expected [O1], got %v", ids)
	}

	if _, ok := m.Get("O1"); !ok {
		t.Fatal("expired_ids must not remove the entry")
	}
}

func TestRemove(t *testing.T) {
	m := New()
	m.GetOrCreate("O1", time.Hour, "")

	if !m.Remove("O1") {
		t.Fatal("expected Remove to report existing")
	}
	if m.Remove("O1") {
		t.Fatal("second Remove should report absent")
	}
	if _, ok := m.Get("O1"); ok {
		t.Fatal("order should be gone")
	}
}

func TestGetUnknownID(t *testing.T) {
	m := New()
	if _, ok := m.Get("missing"); ok {
		t.Fatal("expected absent for unknown id")
	}
}

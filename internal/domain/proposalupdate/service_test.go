package proposalupdate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/orderflow/coordinator/internal/domain/notify"
)

type fakeFacade struct {
	fail bool
}

func (f *fakeFacade) Apply(ctx context.Context, req Request, followUpID string) error {
	if f.fail {
		return errors.New("facade down")
	}
	return nil
}

type noopPublisher struct{ published int }

func (p *noopPublisher) Publish(string, ...*message.Message) error { return nil }
func (p *noopPublisher) Close() error                              { return nil }

func newTestService(fail bool) (Service, *notifyRecorder) {
	rec := &notifyRecorder{}
	svc := New(&fakeFacade{fail: fail}, rec)
	return svc, rec
}

type notifyRecorder struct {
	calls int
}

func (r *notifyRecorder) Publish(ctx context.Context, topic notify.Topic, msg notify.Message) bool {
	r.calls++
	return true
}
func (r *notifyRecorder) PublishChat(ctx context.Context, text string) bool { return true }

func TestFollowUpIDFormat(t *testing.T) {
	svc, _ := newTestService(false)
	result, err := svc.Apply(context.Background(), Request{Mode: ProposalUpdate, OrderID: "O1", ProposalID: "P1", Content: "please confirm"})
	if err != nil {
		t.Fatal(err)
	}
	matched, _ := regexp.MatchString(`^F-P1-[0-9a-f]{8}$`, result.FollowUpID)
	if !matched {
		t.Fatalf("unexpected follow up id format: %q", result.FollowUpID)
	}
}

func TestApplyFailureEmitsNotificationAndPropagates(t *testing.T) {
	svc, rec := newTestService(true)
	_, err := svc.Apply(context.Background(), Request{Mode: ProposalClosed, OrderID: "O1", ProposalID: "P1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if rec.calls != 1 {
		t.Fatalf("expected one PRP_FAILURES notification, got %d", rec.calls)
	}
}

func TestOrderPausedDispatchesMode(t *testing.T) {
	svc, _ := newTestService(false)
	if err := svc.OrderPaused(context.Background(), "O1"); err != nil {
		t.Fatal(err)
	}
}

func TestFollowUpIDUniquePerParent(t *testing.T) {
	r := newFollowUpRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := r.generate("P1")
		if seen[id] {
			t.Fatalf("duplicate follow up id generated: %s", id)
		}
		seen[id] = true
	}
}

package streamclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/scheduler"
	"github.com/orderflow/coordinator/internal/requestor/tracking"
)

type fakeStream struct {
	grpc.ClientStream
	events []*deliverypb.StreamOrderEvent
	i      int
	err    error
}

func (f *fakeStream) Recv() (*deliverypb.StreamOrderEvent, error) {
	if f.i < len(f.events) {
		ev := f.events[f.i]
		f.i++
		return ev, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, io.EOF
}

type fakeConn struct {
	mu       sync.Mutex
	calls    int
	events   []*deliverypb.StreamOrderEvent
	firstErr error
}

func (f *fakeConn) ProcessOrderStream(ctx context.Context, in *deliverypb.StreamOrderRequest, opts ...grpc.CallOption) (deliverypb.Delivery_ProcessOrderStreamClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.firstErr != nil {
		return nil, f.firstErr
	}
	return &fakeStream{events: f.events}, nil
}

func (f *fakeConn) ProcessFollowUp(ctx context.Context, in *deliverypb.FollowUpRequest, opts ...grpc.CallOption) (*deliverypb.FollowUpResponse, error) {
	return nil, errors.New("not implemented")
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingPublisher) Publish(ctx context.Context, topic notify.Topic, msg notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return true
}
func (r *recordingPublisher) PublishChat(context.Context, string) bool { return true }

func (r *recordingPublisher) snapshot() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

func silentLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestInitiateOrderPublishesMappedMessages(t *testing.T) {
	conn := &fakeConn{events: []*deliverypb.StreamOrderEvent{
		{Status: deliverypb.StatusNewProposal, ProposalID: "P1"},
		{Status: deliverypb.StatusOrderPaused, ProposalID: ""},
	}}
	tr := tracking.New()
	pub := &recordingPublisher{}
	sched := scheduler.New(2)
	defer sched.Shutdown()

	c := New(conn, tr, pub, sched, silentLogger(), 3, time.Millisecond, 0)
	if !c.InitiateOrder(context.Background(), "O1", "s1", "") {
		t.Fatal("expected first InitiateOrder to win")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(pub.snapshot()) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	msgs := pub.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 published messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Body != "New Proposal received" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Body != "Choose one proposal " {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
}

func TestInitiateOrderShortCircuitsWhileActive(t *testing.T) {
	conn := &fakeConn{events: nil}
	tr := tracking.New()
	pub := &recordingPublisher{}
	sched := scheduler.New(2)
	defer sched.Shutdown()

	c := New(conn, tr, pub, sched, silentLogger(), 3, time.Millisecond, 0)
	tr.MarkStreamActive("O1")

	if c.InitiateOrder(context.Background(), "O1", "s1", "") {
		t.Fatal("expected second initiate to short-circuit")
	}
}

func TestRunStreamRetriesThenGivesUp(t *testing.T) {
	conn := &fakeConn{firstErr: errors.New("transport down"), events: nil}
	tr := tracking.New()
	pub := &recordingPublisher{}
	sched := scheduler.New(1)
	defer sched.Shutdown()

	c := New(conn, tr, pub, sched, silentLogger(), 1, time.Millisecond, 0)
	c.InitiateOrder(context.Background(), "O1", "s1", "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entry, ok := tr.Get("O1"); ok && !entry.StreamActive() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected stream_active to clear after retries are exhausted")
}

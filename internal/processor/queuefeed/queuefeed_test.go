package queuefeed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx/fxtest"

	"github.com/orderflow/coordinator/internal/domain/orderqueue"
)

type fakePublisher struct {
	fail    bool
	topic   string
	lastMsg *message.Message
}

func (f *fakePublisher) Publish(topic string, messages ...*message.Message) error {
	if f.fail {
		return errors.New("bus down")
	}
	f.topic = topic
	if len(messages) > 0 {
		f.lastMsg = messages[0]
	}
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func TestPublisherTagsOrderIDAndUsesTopic(t *testing.T) {
	fp := &fakePublisher{}
	p := NewPublisher(fp)

	if err := p.Publish(context.Background(), "O1", "P1/New"); err != nil {
		t.Fatal(err)
	}
	if fp.topic != Topic {
		t.Fatalf("expected topic %q, got %q", Topic, fp.topic)
	}
	if fp.lastMsg.Metadata.Get("order_id") != "O1" {
		t.Fatalf("expected order_id metadata O1, got %q", fp.lastMsg.Metadata.Get("order_id"))
	}
	if string(fp.lastMsg.Payload) != "P1/New" {
		t.Fatalf("expected payload P1/New, got %q", fp.lastMsg.Payload)
	}
}

func TestPublisherPropagatesBusFailure(t *testing.T) {
	fp := &fakePublisher{fail: true}
	p := NewPublisher(fp)

	if err := p.Publish(context.Background(), "O1", "P1/New"); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}

type fakeSubscriber struct {
	messages chan *message.Message
	closed   bool
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return f.messages, nil
}
func (f *fakeSubscriber) Close() error {
	f.closed = true
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartConsumerEnqueuesIntoLocalManager(t *testing.T) {
	sub := &fakeSubscriber{messages: make(chan *message.Message, 1)}
	queues := orderqueue.NewManager(16)

	lc := fxtest.NewLifecycle(t)
	StartConsumer(lc, sub, queues, silentLogger())
	if err := lc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	msg := message.NewMessage("m1", []byte("P1/New"))
	msg.Metadata.Set("order_id", "O1")
	sub.messages <- msg

	payload, ok := queues.GetOrCreate("O1").Dequeue(time.Second)
	if !ok || payload != "P1/New" {
		t.Fatalf("expected P1/New enqueued for O1, got %q ok=%v", payload, ok)
	}

	if err := lc.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sub.closed {
		t.Fatal("expected OnStop to close the subscriber")
	}
}

func TestConsumeSkipsMessageMissingOrderID(t *testing.T) {
	queues := orderqueue.NewManager(16)
	messages := make(chan *message.Message, 1)

	msg := message.NewMessage("m1", []byte("P1/New"))
	messages <- msg
	close(messages)

	consume(messages, queues, silentLogger())

	if _, ok := queues.GetOrCreate("O1").Dequeue(10 * time.Millisecond); ok {
		t.Fatal("expected nothing enqueued for a message missing order_id")
	}
}

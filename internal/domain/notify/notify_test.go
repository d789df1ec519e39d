package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
)

type fakePublisher struct {
	fail    bool
	calls   []string
	lastMsg *message.Message
}

func (f *fakePublisher) Publish(topic string, messages ...*message.Message) error {
	if f.fail {
		return errors.New("bus down")
	}
	f.calls = append(f.calls, topic)
	if len(messages) > 0 {
		f.lastMsg = messages[0]
	}
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishSuccess(t *testing.T) {
	fp := &fakePublisher{}
	p := New(fp, silentLogger(), "")

	ok := p.Publish(context.Background(), SellerNotify, Message{OrderID: "O1", Key: PrpRequest, Body: "hi"})
	if !ok {
		t.Fatal("expected success")
	}
	if len(fp.calls) != 1 || fp.calls[0] != string(SellerNotify) {
		t.Fatalf("unexpected calls: %v", fp.calls)
	}
}

func TestPublishFailureIsBooleanNotError(t *testing.T) {
	fp := &fakePublisher{fail: true}
	p := New(fp, silentLogger(), "")

	ok := p.Publish(context.Background(), SellerNotify, Message{OrderID: "O1", Key: PrpRequest})
	if ok {
		t.Fatal("expected false on bus failure")
	}
}

func TestPublishChatNoURLIsNoop(t *testing.T) {
	p := New(&fakePublisher{}, silentLogger(), "")
	if p.PublishChat(context.Background(), "hello") {
		t.Fatal("expected false when no chat URL configured")
	}
}

func TestPublishChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(&fakePublisher{}, silentLogger(), srv.URL)
	if !p.PublishChat(context.Background(), "hello") {
		t.Fatal("expected true on 200 response")
	}
}

func TestPublishChatFailureIsBoolean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(&fakePublisher{}, silentLogger(), srv.URL)
	if p.PublishChat(context.Background(), "hello") {
		t.Fatal("expected false on 5xx response")
	}
}

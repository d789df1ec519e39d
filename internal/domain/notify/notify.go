// Package notify implements C6, fan-out to message-bus topics and a
// chat endpoint. Grounded on the teacher's adapter/pubsub/dispatcher.go
// (watermill publish wrapper) and original_source's notification_service.py
// (closed topic/key sets, best-effort-never-raise semantics).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
)

// Topic is the closed set of message-bus topics this system publishes to.
type Topic string

const (
	SellerAcknowledgements Topic = "SELLER_ACKNOWLEDGEMENTS"
	SellerNotify           Topic = "SELLER_NOTIFY"
	SellerFollowup         Topic = "SELLER_FOLLOWUP"
	PrpFailures            Topic = "PRP_FAILURES"
	BuyerAcknowledgements  Topic = "BUYER_ACKNOWLEDGEMENTS"
	BuyerNotify            Topic = "BUYER_NOTIFY"
	BuyerFollowup          Topic = "BUYER_FOLLOWUP"
	ReqFailures            Topic = "REQ_FAILURES"
)

// Key is the closed set of message keys.
type Key string

const (
	OrdSubmission Key = "ORD_SUBMISSION"
	OrdUpdates    Key = "ORD_UPDATES"
	PrpSubmission Key = "PRP_SUBMISSION"
	PrpUpdates    Key = "PRP_UPDATES"
	PrpRequest    Key = "PRP_REQUEST"
)

// Message is the minimum payload shape every notification carries.
type Message struct {
	OrderID string `json:"order_id"`
	Session string `json:"session,omitempty"`
	Key     Key    `json:"key"`
	Body    any    `json:"body"`
}

// Publisher is the C6 contract. Publish never returns an error to the
// caller: failure is logged and surfaced only as the boolean result, so
// the order pipeline never stalls on notification errors.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, msg Message) bool
	PublishChat(ctx context.Context, text string) bool
}

type publisher struct {
	pub       message.Publisher
	logger    *slog.Logger
	chatURL   string
	http      *http.Client
	chatBreak *gobreaker.CircuitBreaker
}

// New wires a watermill publisher for bus topics and an HTTP client,
// circuit-broken via sony/gobreaker, for the chat webhook.
func New(pub message.Publisher, logger *slog.Logger, chatURL string) Publisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gchat-webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &publisher{
		pub:       pub,
		logger:    logger,
		chatURL:   chatURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		chatBreak: cb,
	}
}

func (p *publisher) Publish(ctx context.Context, topic Topic, msg Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("notify: marshal failed", "topic", topic, "error", err)
		return false
	}

	wmsg := message.NewMessage(watermill.NewUUID(), payload)
	wmsg.SetContext(ctx)
	if err := p.pub.Publish(string(topic), wmsg); err != nil {
		p.logger.Warn("notify: publish failed", "topic", topic, "key", msg.Key, "error", err)
		return false
	}
	return true
}

func (p *publisher) PublishChat(ctx context.Context, text string) bool {
	if p.chatURL == "" {
		return false
	}
	_, err := p.chatBreak.Execute(func() (any, error) {
		body, _ := json.Marshal(map[string]string{"text": text})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := p.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, errStatus(resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		p.logger.Warn("notify: chat publish failed", "error", err)
		return false
	}
	return true
}

type errStatus int

func (e errStatus) Error() string { return "chat webhook returned non-2xx status" }

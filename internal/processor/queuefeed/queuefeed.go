// Package queuefeed replicates C2 queue messages across processor
// replicas: a proposal submission handled by the node that received the
// HTTP request is not necessarily the node holding the order's active
// ProcessOrderStream. Publishing every enqueue over the shared AMQP
// exchange and having every replica consume it back into its own
// orderqueue.Manager means whichever node actually owns the stream
// still sees the message. Grounded on internal/domain/notify's
// watermill.NewUUID/message.NewMessage publish shape and the teacher's
// handler/amqp/router.go per-node queue fan-out.
package queuefeed

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/orderflow/coordinator/internal/domain/orderqueue"
)

// Topic carries every orderqueue.Queue message across processor
// replicas, keyed by order id in metadata.
const Topic = "processor.queue.feed"

// Publisher is the C2 replication contract the HTTP ingress publishes
// through, alongside its own fast local enqueue.
type Publisher interface {
	Publish(ctx context.Context, orderID, payload string) error
}

type publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) Publisher {
	return &publisher{pub: pub}
}

func (p *publisher) Publish(ctx context.Context, orderID, payload string) error {
	msg := message.NewMessage(watermill.NewUUID(), []byte(payload))
	msg.Metadata.Set("order_id", orderID)
	msg.SetContext(ctx)
	return p.pub.Publish(Topic, msg)
}

// StartConsumer feeds every replica's orderqueue.Manager from the
// shared topic; call from an fx.Invoke so it starts/stops with the app.
func StartConsumer(lc fx.Lifecycle, sub message.Subscriber, queues orderqueue.Manager, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			messages, err := sub.Subscribe(ctx, Topic)
			if err != nil {
				cancel()
				return err
			}
			go consume(messages, queues, logger)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return sub.Close()
		},
	})
}

func consume(messages <-chan *message.Message, queues orderqueue.Manager, logger *slog.Logger) {
	for msg := range messages {
		orderID := msg.Metadata.Get("order_id")
		if orderID == "" {
			logger.Warn("queuefeed: message missing order_id", "message_id", msg.UUID)
			msg.Nack()
			continue
		}
		queues.GetOrCreate(orderID).Enqueue(string(msg.Payload))
		msg.Ack()
	}
}

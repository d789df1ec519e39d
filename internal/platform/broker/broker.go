// Package broker wires the watermill message.Publisher/Subscriber pair
// over AMQP: C6 publishes through it, and the processor's queuefeed
// both publishes and consumes through it. Grounded
// on the teacher's internal/handler/amqp/module.go (watermill.Router,
// slog-backed watermill.LoggerAdapter) and adapter/pubsub's publisher
// wrapper shape; the teacher's own infra/pubsub/factory package — the
// thing that actually built amqp.Config — was not present in the
// retrieved pack, so this builds the ThreeDotsLabs/watermill-amqp/v3
// config directly off the amqp091-go connection string.
package broker

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Exchange is the topic exchange every notify.Topic is published to;
// routing keys are the topic names themselves.
const Exchange = "orderflow.notify"

// NewPublisher opens a durable topic-exchange publisher against amqpURL.
func NewPublisher(amqpURL string, logger *slog.Logger) (message.Publisher, error) {
	cfg := amqp.NewDurablePubSubConfig(amqpURL, nil)
	cfg.Exchange.GenerateName = func(topic string) string { return Exchange }
	cfg.Exchange.Type = "topic"
	return amqp.NewPublisher(cfg, watermill.NewSlogLogger(logger))
}

// NewSubscriber opens a durable, per-node queue subscriber bound to
// Exchange, mirroring the teacher's per-node unique-queue fan-out
// pattern from handler/amqp/router.go.
func NewSubscriber(amqpURL, queueSuffix string, logger *slog.Logger) (message.Subscriber, error) {
	cfg := amqp.NewDurablePubSubConfig(amqpURL, func(topic string) string {
		return topic + "." + queueSuffix
	})
	cfg.Exchange.GenerateName = func(topic string) string { return Exchange }
	cfg.Exchange.Type = "topic"
	return amqp.NewSubscriber(cfg, watermill.NewSlogLogger(logger))
}

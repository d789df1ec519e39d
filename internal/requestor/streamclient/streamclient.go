// Package streamclient implements C9, the requestor-side consumer of
// ProcessOrderStream. Grounded on original_source's
// grpc_stream_client.py (start_stream_with_retry reconnect loop, event
// to buyer-message mapping) and the teacher's handler/grpc client dial
// pattern.
package streamclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v3"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/scheduler"
	"github.com/orderflow/coordinator/internal/requestor/tracking"
)

// DefaultMaxRetries matches max_retries's default of 3.
const DefaultMaxRetries = 3

// messageFor maps a stream event to its buyer-facing text, per the
// event -> notification table.
func messageFor(ev *deliverypb.StreamOrderEvent) (string, bool) {
	switch ev.Status {
	case deliverypb.StatusNewProposal:
		return "New Proposal received", true
	case deliverypb.StatusProposalClosed:
		return "Proposal closed " + ev.ProposalID, true
	case deliverypb.StatusProposalUpdate:
		return "Proposal updates " + ev.ProposalID, true
	case deliverypb.StatusOrderPaused:
		return "Choose one proposal " + ev.ProposalID, true
	case deliverypb.StatusEditLock:
		return "Proposal updates in progress " + ev.ProposalID, true
	default:
		return "", false
	}
}

// Client is the C9 contract: open the stream (priority High on C3),
// consume events, publish buyer notifications via C6, and track
// stream_active via C10 for duplicate-initiate prevention.
type Client struct {
	conn      deliverypb.DeliveryClient
	tracker   tracking.Tracker
	notifier  notify.Publisher
	scheduler scheduler.Scheduler
	logger    *slog.Logger

	maxRetries     int
	reconnectDelay time.Duration
	requestTimeout time.Duration // 0 means hold the stream open indefinitely
}

func New(conn deliverypb.DeliveryClient, tracker tracking.Tracker, notifier notify.Publisher, sched scheduler.Scheduler, logger *slog.Logger, maxRetries int, reconnectDelay, requestTimeout time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Client{
		conn:           conn,
		tracker:        tracker,
		notifier:       notifier,
		scheduler:      sched,
		logger:         logger,
		maxRetries:     maxRetries,
		reconnectDelay: reconnectDelay,
		requestTimeout: requestTimeout,
	}
}

// InitiateOrder is idempotent: if a stream is already active for
// orderReqID, it short-circuits and reports false; otherwise it submits
// the stream-consumption task at High priority and reports true.
func (c *Client) InitiateOrder(ctx context.Context, orderReqID, session, notificationType string) bool {
	c.tracker.AddOrder(orderReqID, session)
	if !c.tracker.MarkStreamActive(orderReqID) {
		return false
	}

	c.scheduler.Submit(scheduler.PriorityHigh, orderReqID, func(ctx context.Context) (any, error) {
		c.runStream(ctx, orderReqID, notificationType)
		return nil, nil
	})
	return true
}

// runStream drives the reconnect loop. A clean EOF ends the loop
// without retrying; a transport error retries up to maxRetries with
// reconnectDelay between attempts.
func (c *Client) runStream(ctx context.Context, orderReqID, notificationType string) {
	defer c.tracker.MarkStreamInactive(orderReqID)

	bo := backoff.WithMaxRetries(backoff.WithContext(backoff.NewConstantBackOff(c.reconnectDelay), ctx), uint64(c.maxRetries))

	err := backoff.Retry(func() error {
		return c.consumeOnce(ctx, orderReqID, notificationType)
	}, bo)
	if err != nil {
		c.logger.Warn("streamclient: stream consumption gave up", "order_req_id", orderReqID, "error", err)
	}
}

func (c *Client) consumeOnce(ctx context.Context, orderReqID, notificationType string) error {
	streamCtx := ctx
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	stream, err := c.conn.ProcessOrderStream(streamCtx, &deliverypb.StreamOrderRequest{
		OrderReqID:       orderReqID,
		NotificationType: notificationType,
	})
	if err != nil {
		return err
	}

	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		c.publish(ctx, orderReqID, ev)
	}
}

func (c *Client) publish(ctx context.Context, orderReqID string, ev *deliverypb.StreamOrderEvent) {
	text, ok := messageFor(ev)
	if !ok {
		c.logger.Warn("streamclient: unrecognized event status", "order_req_id", orderReqID, "status", ev.Status)
		return
	}
	c.notifier.Publish(ctx, notify.BuyerNotify, notify.Message{
		OrderID: orderReqID,
		Key:     notify.OrdUpdates,
		Body:    text,
	})
}

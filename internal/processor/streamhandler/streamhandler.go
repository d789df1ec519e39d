// Package streamhandler implements C7, the server-streaming RPC handler
// that drives C1-C6 for one order's lifetime. Grounded on the teacher's
// handler/grpc/delivery.go (stream loop shape) and original_source's
// streaming_server.py (bind-select-notify-emit lifecycle).
package streamhandler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/event"
	"github.com/orderflow/coordinator/internal/domain/model"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/orderqueue"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
	"github.com/orderflow/coordinator/internal/processor/sellerselect"
)

// DefaultOrderExpiry matches ORDER_EXPIRY_MINUTES's default of 30.
const DefaultOrderExpiry = 30 * time.Minute

// dequeueTimeout is the interleave granularity between queue reads and
// expiry checks in the emit loop.
const dequeueTimeout = time.Second

// NotificationTypeGChat is the sentinel notification_type that triggers
// best-effort chat fan-out to sellers.
const NotificationTypeGChat = "GChat"

// Handler implements ProcessOrderStream.
type Handler struct {
	states     orderstate.Manager
	queues     orderqueue.Manager
	selector   sellerselect.Selector
	notifier   notify.Publisher
	updates    proposalupdate.Service
	logger     *slog.Logger
	expiry     time.Duration
	maxSellers int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func New(states orderstate.Manager, queues orderqueue.Manager, selector sellerselect.Selector, notifier notify.Publisher, updates proposalupdate.Service, logger *slog.Logger, expiry time.Duration, maxSellers int) *Handler {
	if expiry <= 0 {
		expiry = DefaultOrderExpiry
	}
	return &Handler{
		states:     states,
		queues:     queues,
		selector:   selector,
		notifier:   notifier,
		updates:    updates,
		logger:     logger,
		expiry:     expiry,
		maxSellers: maxSellers,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// CancelOrderTasks is wired as a sweeper.OnExpire hook: it cancels only
// this order's per-stream background context, never the sweeper or the
// order's lifetime.
func (h *Handler) CancelOrderTasks(orderID string) {
	h.mu.Lock()
	cancel, ok := h.cancels[orderID]
	delete(h.cancels, orderID)
	h.mu.Unlock()
	if ok {
		cancel()
	}
}

// ProcessOrderStream implements deliverypb.DeliveryServer.
func (h *Handler) ProcessOrderStream(req *deliverypb.StreamOrderRequest, stream deliverypb.Delivery_ProcessOrderStreamServer) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	h.mu.Lock()
	h.cancels[req.OrderReqID] = cancel
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.cancels, req.OrderReqID)
		h.mu.Unlock()
	}()

	// 1. Bind state.
	state := h.states.GetOrCreate(req.OrderReqID, h.expiry, "")
	queue := h.queues.GetOrCreate(req.OrderReqID)

	// 2. Select sellers. Fatal on failure.
	if err := h.selector.Select(ctx, state, h.maxSellers); err != nil {
		return model.ErrInternal("seller selection failed", err).GRPCStatus().Err()
	}

	// 3. Notify sellers.
	if req.NotificationType == NotificationTypeGChat {
		for _, seller := range state.Sellers() {
			h.notifier.PublishChat(ctx, "new order available: "+req.OrderReqID+" for seller "+seller.SellerID)
		}
	}
	h.notifier.Publish(ctx, notify.SellerNotify, notify.Message{OrderID: req.OrderReqID, Key: notify.PrpRequest, Body: state.Sellers()})

	// 4. Emit loop.
	for {
		if state.IsExpired(time.Now()) {
			break
		}

		msg, ok := queue.Dequeue(dequeueTimeout)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}

		payload, ok := event.Parse(msg)
		if !ok {
			h.logger.Warn("streamhandler: unparseable queue message", "order_id", req.OrderReqID, "message", msg)
			continue
		}
		if _, known := state.Proposal(payload.ProposalID); !known {
			h.logger.Warn("streamhandler: unknown proposal in queue message", "order_id", req.OrderReqID, "proposal_id", payload.ProposalID)
			continue
		}
		status, ok := payload.StatusFor()
		if !ok {
			h.logger.Warn("streamhandler: unrecognized code", "order_id", req.OrderReqID, "message", msg)
			continue
		}

		ev := &deliverypb.StreamOrderEvent{
			OrderReqID: req.OrderReqID,
			Status:     deliverypb.StreamingResponseStatus(status),
			ProposalID: payload.ProposalID,
			FollowUpID: payload.FollowUpID,
		}
		if err := stream.Send(ev); err != nil {
			// Client disconnect ends emission but not the order.
			return nil
		}
	}

	// 5. Expiry: update persistence, emit terminal frame.
	if err := h.updates.OrderPaused(ctx, req.OrderReqID); err != nil {
		h.logger.Warn("streamhandler: persistence update on expiry failed", "order_id", req.OrderReqID, "error", err)
	}
	terminal := event.TerminalOrderPaused(req.OrderReqID)
	_ = stream.Send(&deliverypb.StreamOrderEvent{
		OrderReqID: terminal.OrderReqID,
		Status:     deliverypb.StreamingResponseStatus(terminal.Status),
	})

	// 6. Cleanup: per-stream tasks only. The sweeper removes OrderState
	// and its queue when expiry_at is actually reached.
	return nil
}

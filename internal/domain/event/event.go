// Package event defines the streamed event sent from the processor stream
// handler to the requestor stream client, and the parser that turns a raw
// per-order queue message (internal/domain/orderqueue's wire grammar) into
// one, per the Design Notes' tagged-variant strategy: the `/` and `.`
// separators stay on the wire for producer compatibility, but everything
// past the queue boundary works with this typed shape.
package event

// Status is the streaming_response_status enum carried on every frame.
type Status string

const (
	NewProposal    Status = "NewProposal"
	ProposalClosed Status = "ProposalClosed"
	ProposalUpdate Status = "ProposalUpdate"
	OrderPaused    Status = "OrderPaused"
	EditLock       Status = "EditLock"
)

// StreamEvent is one frame of the processor's server stream.
type StreamEvent struct {
	OrderReqID string
	Status     Status
	ProposalID string
	FollowUpID string
}

// TerminalOrderPaused builds the sentinel terminal frame: OrderPaused
// with an empty proposal id, sent as the last frame of every stream
// that runs until the order's expiry.
func TerminalOrderPaused(orderReqID string) StreamEvent {
	return StreamEvent{OrderReqID: orderReqID, Status: OrderPaused}
}

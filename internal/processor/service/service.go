// Package service composes the processor-side domain components into
// the single deliverypb.DeliveryServer a gRPC server registers.
// Grounded on the teacher's service/delivery.go, which plays the same
// composing role over its chat-domain handlers.
package service

import (
	"context"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/processor/followup"
	"github.com/orderflow/coordinator/internal/processor/streamhandler"
)

// Delivery implements deliverypb.DeliveryServer by delegating each RPC
// to the component that owns it: C7 for the stream, C8 for follow-ups.
type Delivery struct {
	stream *streamhandler.Handler
	reply  *followup.Handler
}

func New(stream *streamhandler.Handler, reply *followup.Handler) *Delivery {
	return &Delivery{stream: stream, reply: reply}
}

var _ deliverypb.DeliveryServer = (*Delivery)(nil)

func (d *Delivery) ProcessOrderStream(req *deliverypb.StreamOrderRequest, stream deliverypb.Delivery_ProcessOrderStreamServer) error {
	return d.stream.ProcessOrderStream(req, stream)
}

func (d *Delivery) ProcessFollowUp(ctx context.Context, req *deliverypb.FollowUpRequest) (*deliverypb.FollowUpResponse, error) {
	return d.reply.ProcessFollowUp(ctx, req)
}

// Package deliverypb defines the wire messages and service descriptor
// for ProcessOrderStream/ProcessFollowUp. No generated protobuf code
// exists in this lineage — only a `//go:generate buf generate` directive
// survives without its generator ever having been run here. The
// messages below are plain Go structs; codec.go registers a JSON codec
// under grpc-go's "proto" content-subtype name so they marshal over the
// wire without generated Marshal/Unmarshal methods. See DESIGN.md.
package deliverypb

// StreamingResponseStatus mirrors event.Status as the wire enum.
type StreamingResponseStatus string

const (
	StatusNewProposal    StreamingResponseStatus = "NewProposal"
	StatusProposalClosed StreamingResponseStatus = "ProposalClosed"
	StatusProposalUpdate StreamingResponseStatus = "ProposalUpdate"
	StatusOrderPaused    StreamingResponseStatus = "OrderPaused"
	StatusEditLock       StreamingResponseStatus = "EditLock"
)

// StreamOrderRequest is ProcessOrderStream's request message.
type StreamOrderRequest struct {
	OrderReqID       string `json:"order_req_id"`
	NotificationType string `json:"notification_type"`
}

// StreamOrderEvent is one frame of ProcessOrderStream's response stream.
type StreamOrderEvent struct {
	OrderReqID string                  `json:"order_req_id"`
	Status     StreamingResponseStatus `json:"streaming_response_status"`
	ProposalID string                  `json:"proposal_id"`
	FollowUpID string                  `json:"follow_up_id"`
}

// FollowUpStatus mirrors C8's per-audience response status.
type FollowUpStatus string

const (
	FollowUpEditLock FollowUpStatus = "EditLock"
	FollowUpUpdated  FollowUpStatus = "Updated"
	FollowUpFailed   FollowUpStatus = "Failed"
	FollowUpError    FollowUpStatus = "Error"
)

// FollowUpRequest is ProcessFollowUp's request message.
type FollowUpRequest struct {
	OrderReqID      string   `json:"order_req_id"`
	Audience        []string `json:"audience"`
	OrderFollowUpID string   `json:"order_follow_up_id"`
}

// FollowUpResult is one audience entry's outcome.
type FollowUpResult struct {
	ProposalID string         `json:"proposal_id"`
	Status     FollowUpStatus `json:"status"`
	AddedTime  string         `json:"added_time"`
}

// FollowUpResponse is ProcessFollowUp's response message.
type FollowUpResponse struct {
	Results []FollowUpResult `json:"ns_follow_up_resp"`
}

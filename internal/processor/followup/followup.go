// Package followup implements C8, the unary RPC handler that applies a
// follow-up to many proposals atomically (sequentially, per audience
// entry). Grounded on original_source's non_streaming_server.py.
package followup

import (
	"context"
	"errors"
	"time"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/model"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
)

// Handler implements ProcessFollowUp.
type Handler struct {
	states  orderstate.Manager
	updates proposalupdate.Service
}

func New(states orderstate.Manager, updates proposalupdate.Service) *Handler {
	return &Handler{states: states, updates: updates}
}

// ProcessFollowUp implements deliverypb.DeliveryServer. The audience
// loop is sequential, not parallel: this preserves a simple error story
// and avoids contention on per-proposal locks, per spec 4.8.
func (h *Handler) ProcessFollowUp(ctx context.Context, req *deliverypb.FollowUpRequest) (*deliverypb.FollowUpResponse, error) {
	resp := &deliverypb.FollowUpResponse{Results: make([]deliverypb.FollowUpResult, 0, len(req.Audience))}

	state, ok := h.states.Get(req.OrderReqID)
	if !ok {
		// Empty audience on an unknown order is not an error either;
		// there is simply nothing to update.
		for _, proposalID := range req.Audience {
			resp.Results = append(resp.Results, deliverypb.FollowUpResult{ProposalID: proposalID, Status: deliverypb.FollowUpError})
		}
		return resp, nil
	}

	applied := false
	for _, proposalID := range req.Audience {
		proposal, known := state.Proposal(proposalID)
		if known && proposal.Status == model.ProposalEditLock {
			resp.Results = append(resp.Results, deliverypb.FollowUpResult{ProposalID: proposalID, Status: deliverypb.FollowUpEditLock, AddedTime: ""})
			continue
		}

		_, err := h.updates.Apply(ctx, proposalupdate.Request{
			Mode:            proposalupdate.UserEdits,
			OrderID:         req.OrderReqID,
			ProposalID:      proposalID,
			OrderFollowUpID: req.OrderFollowUpID,
		})
		if err != nil {
			resp.Results = append(resp.Results, deliverypb.FollowUpResult{ProposalID: proposalID, Status: followUpStatus(err), AddedTime: ""})
			continue
		}

		applied = true
		addedAt := time.Now()
		state.AppendProposalNote(proposalID, model.Note{FollowUpID: req.OrderFollowUpID, AddedAt: addedAt})
		resp.Results = append(resp.Results, deliverypb.FollowUpResult{
			ProposalID: proposalID,
			Status:     deliverypb.FollowUpUpdated,
			AddedTime:  addedAt.Format(time.RFC3339),
		})
	}

	// order_follow_up_id names the follow-up itself, not any one
	// proposal; record it once at the order level when it actually
	// reached at least one audience member.
	if applied {
		state.AppendNote(model.Note{FollowUpID: req.OrderFollowUpID, AddedAt: time.Now()})
	}

	return resp, nil
}

// followUpStatus distinguishes a negative update result — the facade
// was reached and declined the edit, or is down and that was already
// classified — from an unexpected exception: anything our own code
// never gave a Kind to, mirroring non_streaming_server.py's
// except-clause split between a handled failure and a bare exception.
func followUpStatus(err error) deliverypb.FollowUpStatus {
	var e *model.Error
	if !errors.As(err, &e) {
		return deliverypb.FollowUpError
	}
	if e.Kind == model.KindInternal {
		return deliverypb.FollowUpError
	}
	return deliverypb.FollowUpFailed
}

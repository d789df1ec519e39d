package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/model"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
)

type fakeFacade struct{ failFor string }

func (f *fakeFacade) Apply(ctx context.Context, req proposalupdate.Request, followUpID string) error {
	if req.ProposalID == f.failFor {
		return errors.New("facade down")
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, notify.Topic, notify.Message) bool { return true }
func (noopNotifier) PublishChat(context.Context, string) bool                   { return true }

func newServiceFor(t *testing.T, failFor string) (orderstate.Manager, proposalupdate.Service) {
	t.Helper()
	states := orderstate.New()
	facade := &fakeFacade{failFor: failFor}
	svc := proposalupdate.New(facade, noopNotifier{})
	return states, svc
}

func TestEditLockShortCircuitsWithoutPersistence(t *testing.T) {
	states, svc := newServiceFor(t, "")
	state := states.GetOrCreate("O1", time.Hour, "")
	if err := state.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalEditLock}); err != nil {
		t.Fatal(err)
	}

	h := New(states, svc)
	resp, err := h.ProcessFollowUp(context.Background(), &deliverypb.FollowUpRequest{
		OrderReqID:      "O1",
		Audience:        []string{"P1"},
		OrderFollowUpID: "F-P1-abc12345",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Status != deliverypb.FollowUpEditLock {
		t.Fatalf("expected EditLock short-circuit, got %+v", resp.Results)
	}
	if resp.Results[0].AddedTime != "" {
		t.Fatalf("EditLock entries must not carry an added_time, got %q", resp.Results[0].AddedTime)
	}

	notes := 0
	for _, p := range state.Proposals() {
		notes += len(p.Notes)
	}
	if notes != 0 {
		t.Fatal("EditLock proposal must not be mutated")
	}
}

func TestSequentialAudienceMixedOutcomes(t *testing.T) {
	states, svc := newServiceFor(t, "P2")
	state := states.GetOrCreate("O1", time.Hour, "")
	state.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalSubmitted})
	state.AppendProposal(model.Proposal{ProposalID: "P2", Status: model.ProposalSubmitted})

	h := New(states, svc)
	resp, err := h.ProcessFollowUp(context.Background(), &deliverypb.FollowUpRequest{
		OrderReqID:      "O1",
		Audience:        []string{"P1", "P2"},
		OrderFollowUpID: "F-P1-abc12345",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected one result per audience entry, got %d", len(resp.Results))
	}
	if resp.Results[0].Status != deliverypb.FollowUpUpdated {
		t.Fatalf("expected P1 updated, got %+v", resp.Results[0])
	}
	if resp.Results[1].Status != deliverypb.FollowUpFailed {
		t.Fatalf("expected P2 failed, got %+v", resp.Results[1])
	}
}

func TestAppliedFollowUpRecordsOrderLevelNote(t *testing.T) {
	states, svc := newServiceFor(t, "")
	state := states.GetOrCreate("O1", time.Hour, "")
	state.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalSubmitted})

	h := New(states, svc)
	_, err := h.ProcessFollowUp(context.Background(), &deliverypb.FollowUpRequest{
		OrderReqID:      "O1",
		Audience:        []string{"P1"},
		OrderFollowUpID: "F-O1-abc12345",
	})
	if err != nil {
		t.Fatal(err)
	}

	notes := state.Notes()
	if len(notes) != 1 || notes[0].FollowUpID != "F-O1-abc12345" {
		t.Fatalf("expected one order-level note recording the follow-up, got %+v", notes)
	}
}

func TestNoProposalAppliedLeavesOrderNotesEmpty(t *testing.T) {
	states, svc := newServiceFor(t, "P1")
	state := states.GetOrCreate("O1", time.Hour, "")
	state.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalSubmitted})

	h := New(states, svc)
	resp, err := h.ProcessFollowUp(context.Background(), &deliverypb.FollowUpRequest{
		OrderReqID:      "O1",
		Audience:        []string{"P1"},
		OrderFollowUpID: "F-O1-abc12345",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].Status != deliverypb.FollowUpFailed {
		t.Fatalf("expected facade failure to classify as Failed, got %+v", resp.Results[0])
	}
	if len(state.Notes()) != 0 {
		t.Fatal("expected no order-level note when nothing was applied")
	}
}

func TestInternalFacadeErrorClassifiesAsError(t *testing.T) {
	states := orderstate.New()
	state := states.GetOrCreate("O1", time.Hour, "")
	state.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalSubmitted})

	svc := proposalupdate.New(internalFailingFacade{}, noopNotifier{})
	h := New(states, svc)
	resp, err := h.ProcessFollowUp(context.Background(), &deliverypb.FollowUpRequest{
		OrderReqID:      "O1",
		Audience:        []string{"P1"},
		OrderFollowUpID: "F-O1-abc12345",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].Status != deliverypb.FollowUpError {
		t.Fatalf("expected an Internal-kind facade error to surface as Error, got %+v", resp.Results[0])
	}
}

type internalFailingFacade struct{}

func (internalFailingFacade) Apply(ctx context.Context, req proposalupdate.Request, followUpID string) error {
	return model.ErrInternal("unexpected panic recovery", errors.New("nil pointer"))
}

func TestEmptyAudienceOnUnknownOrderProducesNoResults(t *testing.T) {
	states, svc := newServiceFor(t, "")
	h := New(states, svc)
	resp, err := h.ProcessFollowUp(context.Background(), &deliverypb.FollowUpRequest{
		OrderReqID:      "UNKNOWN",
		Audience:        nil,
		OrderFollowUpID: "F-X-abc12345",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no results for empty audience, got %d", len(resp.Results))
	}
}

// Package httpapi implements the Processor's HTTP ingress: proposal
// submission, follow-up, and edit-lock, plus supplemented diagnostic
// endpoints. Grounded on the teacher's handler/lp/delivery.go (chi
// URLParam extraction, manual JSON write) and original_source's
// processor/app/api/v1/proposals.py (persist-before-enqueue ordering).
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orderflow/coordinator/internal/domain/event"
	"github.com/orderflow/coordinator/internal/domain/model"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/orderqueue"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
	"github.com/orderflow/coordinator/internal/processor/queuefeed"
)

type Handler struct {
	states  orderstate.Manager
	queues  orderqueue.Manager
	updates proposalupdate.Service
	notify  notify.Publisher
	feed    queuefeed.Publisher
	logger  *slog.Logger
	expiry  time.Duration
}

func New(states orderstate.Manager, queues orderqueue.Manager, updates proposalupdate.Service, notifier notify.Publisher, feed queuefeed.Publisher, logger *slog.Logger, expiry time.Duration) *Handler {
	return &Handler{states: states, queues: queues, updates: updates, notify: notifier, feed: feed, logger: logger, expiry: expiry}
}

// enqueue pushes payload onto this node's local queue for immediate
// delivery, and replicates it over queuefeed so a peer node holding the
// order's active stream enqueues it too.
func (h *Handler) enqueue(ctx context.Context, orderID, payload string) {
	h.queues.GetOrCreate(orderID).Enqueue(payload)
	if err := h.feed.Publish(ctx, orderID, payload); err != nil {
		h.logger.Warn("httpapi: queuefeed publish failed", "order_id", orderID, "error", err)
	}
}

// Routes mounts the Processor's HTTP surface onto a fresh chi.Mux.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/proposals/proposal-submissions", h.submitProposal)
	r.Post("/proposals/{proposal_id}/followup", h.followUp)
	r.Post("/proposals/edit-lock", h.editLock)
	r.Post("/proposals/proposal-lock", h.proposalLock)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.healthz)
	return r
}

type submitProposalRequest struct {
	OrderReqID string  `json:"order_req_id"`
	ProposalID string  `json:"proposal_id"`
	Price      float64 `json:"price"`
}

func (h *Handler) submitProposal(w http.ResponseWriter, r *http.Request) {
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderReqID == "" || req.ProposalID == "" {
		writeError(w, model.ErrValidation("order_req_id and proposal_id are required"))
		return
	}

	state := h.states.GetOrCreate(req.OrderReqID, h.expiry, "")
	if err := state.AppendProposal(model.Proposal{ProposalID: req.ProposalID, Price: req.Price, Status: model.ProposalSubmitted}); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.updates.Apply(r.Context(), proposalupdate.Request{Mode: proposalupdate.ProposalSubmissions, OrderID: req.OrderReqID, ProposalID: req.ProposalID}); err != nil {
		writeError(w, err)
		return
	}

	h.enqueue(r.Context(), req.OrderReqID, event.Encode(req.ProposalID, "", "New"))
	h.notify.Publish(r.Context(), notify.SellerAcknowledgements, notify.Message{OrderID: req.OrderReqID, Key: notify.PrpSubmission, Body: req.ProposalID})

	writeJSON(w, http.StatusCreated, map[string]string{"status": "accepted"})
}

type followUpRequest struct {
	OrderReqID string `json:"order_req_id"`
	Content    string `json:"content"`
}

func (h *Handler) followUp(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposal_id")
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderReqID == "" {
		writeError(w, model.ErrValidation("order_req_id is required"))
		return
	}

	state, ok := h.states.Get(req.OrderReqID)
	if !ok {
		writeError(w, model.ErrNotFound("order not found: "+req.OrderReqID))
		return
	}

	result, err := h.updates.Apply(r.Context(), proposalupdate.Request{
		Mode:       proposalupdate.ProposalUpdate,
		OrderID:    req.OrderReqID,
		ProposalID: proposalID,
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	state.AppendProposalNote(proposalID, model.Note{FollowUpID: result.FollowUpID, Content: req.Content, AddedAt: result.AddedAt})
	h.enqueue(r.Context(), req.OrderReqID, event.Encode(proposalID, result.FollowUpID, "Update"))

	writeJSON(w, http.StatusOK, map[string]string{"follow_up_id": result.FollowUpID})
}

type editLockRequest struct {
	OrderReqID string `json:"order_req_id"`
	ProposalID string `json:"proposal_id"`
}

func (h *Handler) editLock(w http.ResponseWriter, r *http.Request) {
	var req editLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderReqID == "" || req.ProposalID == "" {
		writeError(w, model.ErrValidation("order_req_id and proposal_id are required"))
		return
	}

	state, ok := h.states.Get(req.OrderReqID)
	if !ok {
		writeError(w, model.ErrNotFound("order not found: "+req.OrderReqID))
		return
	}

	if _, err := h.updates.Apply(r.Context(), proposalupdate.Request{Mode: proposalupdate.EditLock, OrderID: req.OrderReqID, ProposalID: req.ProposalID}); err != nil {
		writeError(w, err)
		return
	}
	state.SetProposalStatus(req.ProposalID, model.ProposalEditLock)
	h.enqueue(r.Context(), req.OrderReqID, event.Encode(req.ProposalID, "", "EditLock"))

	writeJSON(w, http.StatusOK, map[string]string{"status": "locked"})
}

// proposalLock is the supplemented admin counterpart to editLock,
// carried over from original_source's ProposalLock mode (spec 4.10's
// mode table omits an HTTP entry point for it; this gives it one).
func (h *Handler) proposalLock(w http.ResponseWriter, r *http.Request) {
	var req editLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderReqID == "" || req.ProposalID == "" {
		writeError(w, model.ErrValidation("order_req_id and proposal_id are required"))
		return
	}

	state, ok := h.states.Get(req.OrderReqID)
	if !ok {
		writeError(w, model.ErrNotFound("order not found: "+req.OrderReqID))
		return
	}

	if _, err := h.updates.Apply(r.Context(), proposalupdate.Request{Mode: proposalupdate.ProposalLock, OrderID: req.OrderReqID, ProposalID: req.ProposalID}); err != nil {
		writeError(w, err)
		return
	}
	state.SetProposalStatus(req.ProposalID, model.ProposalProposalLck)

	writeJSON(w, http.StatusOK, map[string]string{"status": "locked"})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := model.ToHTTPBody(err)
	writeJSON(w, status, body)
}

// Package httpapi implements the Requestor's HTTP ingress: order
// initiation, follow-up, finalize/pause, plus the supplemented tracking
// diagnostic endpoints. Grounded on the teacher's handler/lp/delivery.go
// (chi URLParam extraction) and original_source's
// requestor/app/api/v1/orders.py (idempotent initiate, status PUTs).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/model"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
	"github.com/orderflow/coordinator/internal/requestor/streamclient"
	"github.com/orderflow/coordinator/internal/requestor/tracking"
)

type Handler struct {
	tracker tracking.Tracker
	client  *streamclient.Client
	conn    deliverypb.DeliveryClient
	updates proposalupdate.Service
}

func New(tracker tracking.Tracker, client *streamclient.Client, conn deliverypb.DeliveryClient, updates proposalupdate.Service) *Handler {
	return &Handler{tracker: tracker, client: client, conn: conn, updates: updates}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/orders/initiate", h.initiate)
	r.Post("/orders/{order_req_id}/followup", h.followUp)
	r.Put("/orders/finalize/{id}", h.finalize)
	r.Put("/orders/pause/{id}", h.pause)
	r.Get("/orders/tracking/status", h.trackingStatus)
	r.Get("/orders/tracking/{order_req_id}", h.trackingEntry)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.healthz)
	return r
}

type initiateRequest struct {
	OrderReqID       string `json:"order_req_id"`
	Session          string `json:"session"`
	NotificationType string `json:"notification_type"`
}

// initiate is idempotent per order_req_id: a second call while the
// stream is already active short-circuits to success without opening a
// new one, per C10's authority over duplicate-stream prevention.
func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderReqID == "" {
		writeError(w, model.ErrValidation("order_req_id is required"))
		return
	}

	h.client.InitiateOrder(r.Context(), req.OrderReqID, req.Session, req.NotificationType)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "initiated"})
}

type followUpRequest struct {
	Audience        []string `json:"audience"`
	OrderFollowUpID string   `json:"order_follow_up_id"`
}

func (h *Handler) followUp(w http.ResponseWriter, r *http.Request) {
	orderReqID := chi.URLParam(r, "order_req_id")
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrValidation("malformed request body"))
		return
	}

	entry, ok := h.tracker.Get(orderReqID)
	if !ok {
		writeError(w, model.ErrNotFound("order not tracked: "+orderReqID))
		return
	}

	resp, err := h.conn.ProcessFollowUp(r.Context(), &deliverypb.FollowUpRequest{
		OrderReqID:      orderReqID,
		Audience:        req.Audience,
		OrderFollowUpID: req.OrderFollowUpID,
	})
	if err != nil {
		writeError(w, model.ErrExternalUnavailable("follow-up rpc failed", err))
		return
	}

	entry.AppendNote(tracking.Note{FollowUpID: req.OrderFollowUpID})
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, proposalupdate.RequestFinalized)
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, proposalupdate.RequestPaused)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, mode proposalupdate.Mode) {
	orderReqID := chi.URLParam(r, "id")
	if _, err := h.updates.Apply(r.Context(), proposalupdate.Request{Mode: mode, OrderID: orderReqID}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type trackingStatusResponse struct {
	TrackedOrders int `json:"tracked_orders"`
	ActiveStreams int `json:"active_streams"`
}

func (h *Handler) trackingStatus(w http.ResponseWriter, r *http.Request) {
	entries := h.tracker.All()
	active := 0
	for _, e := range entries {
		if e.StreamActive() {
			active++
		}
	}
	writeJSON(w, http.StatusOK, trackingStatusResponse{TrackedOrders: len(entries), ActiveStreams: active})
}

type trackingEntryResponse struct {
	OrderReqID   string          `json:"order_req_id"`
	Session      string          `json:"session"`
	Notes        []tracking.Note `json:"notes"`
	StreamActive bool            `json:"stream_active"`
}

func (h *Handler) trackingEntry(w http.ResponseWriter, r *http.Request) {
	orderReqID := chi.URLParam(r, "order_req_id")
	entry, ok := h.tracker.Get(orderReqID)
	if !ok {
		writeError(w, model.ErrNotFound("order not tracked: "+orderReqID))
		return
	}
	writeJSON(w, http.StatusOK, trackingEntryResponse{
		OrderReqID:   entry.OrderReqID,
		Session:      entry.Session,
		Notes:        entry.Notes(),
		StreamActive: entry.StreamActive(),
	})
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

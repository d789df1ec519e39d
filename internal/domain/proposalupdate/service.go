// Package proposalupdate implements C11, the mode-dispatched operation
// against the remote persistence facade. Grounded on original_source's
// proposal_service.py (mode dispatch table, FollowUpID generation) and
// processor/app/api/v1/proposals.py (persist-before-enqueue ordering).
package proposalupdate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/coordinator/internal/domain/model"
	"github.com/orderflow/coordinator/internal/domain/notify"
)

// Request carries the union of fields any mode might need; unused
// fields for a given mode are left zero.
type Request struct {
	Mode            Mode
	OrderID         string
	Session         string
	ProposalID      string   // proposal-scoped modes
	Audience        []string // UserEdits
	Content         string   // ProposalUpdate, UserEdits
	OrderFollowUpID string   // UserEdits
}

// Result is returned by modes that produce a server-generated id.
type Result struct {
	FollowUpID string
	AddedAt    time.Time
}

// Facade is the remote persistence client this service dispatches to.
// A thin interface so tests substitute an in-memory fake, per the
// Design Notes' "inject interface handles" strategy.
type Facade interface {
	Apply(ctx context.Context, req Request, followUpID string) error
}

// Service is C11's contract.
type Service interface {
	Apply(ctx context.Context, req Request) (Result, error)
	// OrderPaused satisfies sweeper.ProposalUpdater: C4 invokes this with
	// only an order id when an order's deadline is reached.
	OrderPaused(ctx context.Context, orderID string) error
}

type service struct {
	facade   Facade
	notifier notify.Publisher
	// seen guards per-parent FollowUpID uniqueness (Design Notes: scoped
	// per-parent, no cross-parent coordination).
	seen *followUpRegistry
}

func New(facade Facade, notifier notify.Publisher) Service {
	return &service{facade: facade, notifier: notifier, seen: newFollowUpRegistry()}
}

// Apply dispatches req.Mode, emitting a PRP_FAILURES notification
// (best-effort) and propagating the error on any facade failure.
func (s *service) Apply(ctx context.Context, req Request) (Result, error) {
	var result Result

	switch req.Mode {
	case ProposalUpdate:
		parent := req.ProposalID
		id := s.seen.generate(parent)
		if err := s.facade.Apply(ctx, req, id); err != nil {
			s.fail(ctx, req, err)
			return Result{}, classifyFacadeErr(err)
		}
		result = Result{FollowUpID: id, AddedAt: time.Now()}

	case UserEdits:
		if err := s.facade.Apply(ctx, req, req.OrderFollowUpID); err != nil {
			s.fail(ctx, req, err)
			return Result{}, classifyFacadeErr(err)
		}
		result = Result{AddedAt: time.Now()}

	default:
		if err := s.facade.Apply(ctx, req, ""); err != nil {
			s.fail(ctx, req, err)
			return Result{}, classifyFacadeErr(err)
		}
	}

	return result, nil
}

// classifyFacadeErr preserves a facade's own *model.Error classification
// (e.g. a rejected edit it could tell apart from a transport failure)
// and only defaults to ExternalUnavailable for an error it never
// classified itself.
func classifyFacadeErr(err error) error {
	var e *model.Error
	if errors.As(err, &e) {
		return e
	}
	return model.ErrExternalUnavailable("persistence facade update failed", err)
}

func (s *service) OrderPaused(ctx context.Context, orderID string) error {
	_, err := s.Apply(ctx, Request{Mode: OrderPausedMode, OrderID: orderID})
	return err
}

func (s *service) fail(ctx context.Context, req Request, err error) {
	s.notifier.Publish(ctx, notify.PrpFailures, notify.Message{
		OrderID: req.OrderID,
		Session: req.Session,
		Key:     notify.PrpUpdates,
		Body:    fmt.Sprintf("mode=%s proposal=%s: %v", req.Mode, req.ProposalID, err),
	})
}

// followUpRegistry enforces per-parent FollowUpID uniqueness among the
// ids it generates itself. Callers cannot supply a FollowUpID for
// ProposalUpdate, so there is no caller-supplied id to check; the
// OrderFollowUpID carried by UserEdits is passed through unchecked.
type followUpRegistry struct {
	mu   sync.Mutex
	byID map[string]map[string]struct{}
}

func newFollowUpRegistry() *followUpRegistry {
	return &followUpRegistry{byID: make(map[string]map[string]struct{})}
}

// generate produces F-<ParentID>-<first-8-hex-of-uuidv4>, regenerating
// on an (astronomically unlikely) collision within the same parent.
func (r *followUpRegistry) generate(parentID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byID[parentID]
	if !ok {
		set = make(map[string]struct{})
		r.byID[parentID] = set
	}

	for {
		suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
		id := fmt.Sprintf("F-%s-%s", parentID, suffix)
		if _, exists := set[id]; !exists {
			set[id] = struct{}{}
			return id
		}
	}
}

package model

import (
	"sync"
	"time"
)

// ProposalStatus is the lifecycle state of a single proposal, owned by
// the persistence layer and observed by the stream handler.
type ProposalStatus string

const (
	ProposalSubmitted   ProposalStatus = "SUBMITTED"
	ProposalClosed      ProposalStatus = "CLOSED"
	ProposalPaused      ProposalStatus = "PAUSED"
	ProposalEditLock    ProposalStatus = "EDITLOCK"
	ProposalProposalLck ProposalStatus = "PROPOSALLOCK"
)

// Note is a follow-up annotation appended to a proposal.
type Note struct {
	FollowUpID string
	Content    string
	AddedAt    time.Time
}

// Proposal is a seller's response to an order.
type Proposal struct {
	ProposalID   string
	Price        float64
	DeliveryDate time.Time
	Notes        []Note
	Status       ProposalStatus
}

// SellerEntry is a candidate or selected seller with its resolved distance.
type SellerEntry struct {
	SellerID   string
	DistanceKM float64
}

// OrderState is the per-order record owned by the order state manager (C1).
// Created lazily on first touch; destroyed exactly once by the sweeper (C4).
type OrderState struct {
	OrderID  string
	Session  string
	ExpiryAt time.Time

	// mu serializes mutation points on this OrderState: seller
	// assignment, proposal append, note append. Per-order only, never
	// shared across orders.
	mu        sync.Mutex
	sellers   []SellerEntry
	proposals []Proposal
	notes     []Note
}

// NewOrderState constructs an OrderState with an absolute expiry. Sellers,
// proposals and notes start empty.
func NewOrderState(orderID, session string, expiryAt time.Time) *OrderState {
	return &OrderState{
		OrderID:  orderID,
		Session:  session,
		ExpiryAt: expiryAt,
	}
}

// SetSellers assigns the seller list exactly once (C5's contract). A
// second call is a no-op: the first assignment wins.
func (s *OrderState) SetSellers(sellers []SellerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sellers != nil {
		return
	}
	s.sellers = append([]SellerEntry(nil), sellers...)
}

// Sellers returns a snapshot of the assigned sellers.
func (s *OrderState) Sellers() []SellerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SellerEntry(nil), s.sellers...)
}

// AppendProposal adds a newly submitted proposal. proposal_id must be
// unique within the order; duplicate ids are rejected.
func (s *OrderState) AppendProposal(p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.proposals {
		if existing.ProposalID == p.ProposalID {
			return ErrConflict("proposal_id already exists: " + p.ProposalID)
		}
	}
	s.proposals = append(s.proposals, p)
	return nil
}

// Proposals returns a snapshot slice; callers never observe shrinkage.
func (s *OrderState) Proposals() []Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Proposal(nil), s.proposals...)
}

// Proposal looks up one proposal by id.
func (s *OrderState) Proposal(proposalID string) (Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.ProposalID == proposalID {
			return p, true
		}
	}
	return Proposal{}, false
}

// SetProposalStatus updates one proposal's status in place.
func (s *OrderState) SetProposalStatus(proposalID string, status ProposalStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ProposalID == proposalID {
			s.proposals[i].Status = status
			return true
		}
	}
	return false
}

// AppendProposalNote appends a follow-up note to one proposal.
func (s *OrderState) AppendProposalNote(proposalID string, note Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ProposalID == proposalID {
			s.proposals[i].Notes = append(s.proposals[i].Notes, note)
			return true
		}
	}
	return false
}

// AppendNote adds a top-level, order-wide follow-up.
func (s *OrderState) AppendNote(note Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, note)
}

// Notes returns a snapshot of order-level notes.
func (s *OrderState) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Note(nil), s.notes...)
}

// IsExpired reports whether now is at or past the order's expiry.
func (s *OrderState) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiryAt)
}

package event

import "strings"

// Payload is the parsed, tagged form of a raw queue message. Exactly one
// of the two shapes is populated; IsFollowUp discriminates them instead
// of relying on zero-value inspection.
type Payload struct {
	IsFollowUp bool
	ProposalID string
	FollowUpID string // only set when IsFollowUp
	Code       string // "New" | "Closed" | "EditLock" | "Update"
}

// Parse decodes a raw orderqueue message of the grammar:
//
//	<proposal_id>/New | <proposal_id>/Closed | <proposal_id>/EditLock
//	<proposal_id>.<follow_up_id>/Update
//
// ok is false when the message does not match either shape; callers
// should log and skip, never treat it as fatal.
func Parse(raw string) (p Payload, ok bool) {
	head, code, found := strings.Cut(raw, "/")
	if !found || head == "" || code == "" {
		return Payload{}, false
	}
	if proposalID, followUpID, isFollowUp := strings.Cut(head, "."); isFollowUp {
		if proposalID == "" || followUpID == "" {
			return Payload{}, false
		}
		return Payload{IsFollowUp: true, ProposalID: proposalID, FollowUpID: followUpID, Code: code}, true
	}
	return Payload{ProposalID: head, Code: code}, true
}

// StatusFor maps a parsed payload's code to the streamed event status,
// per spec's event mapping table. ok is false for an unrecognized code.
func (p Payload) StatusFor() (Status, bool) {
	if p.IsFollowUp {
		if p.Code == "Update" {
			return ProposalUpdate, true
		}
		return "", false
	}
	switch p.Code {
	case "New":
		return NewProposal, true
	case "Closed":
		return ProposalClosed, true
	case "EditLock":
		return EditLock, true
	default:
		return "", false
	}
}

// Encode renders a Payload back to the wire grammar. Used by producers
// (HTTP ingress handlers) to build the string passed to orderqueue.Enqueue.
func Encode(proposalID, followUpID, code string) string {
	if followUpID != "" {
		return proposalID + "." + followUpID + "/" + code
	}
	return proposalID + "/" + code
}

package event

import "testing"

func TestParseProposalCodes(t *testing.T) {
	cases := map[string]Status{
		"P1/New":      NewProposal,
		"P1/Closed":   ProposalClosed,
		"P1/EditLock": EditLock,
	}
	for raw, want := range cases {
		p, ok := Parse(raw)
		if !ok {
			t.Fatalf("Parse(%q): expected ok", raw)
		}
		if p.IsFollowUp {
			t.Fatalf("Parse(%q): expected non-followup", raw)
		}
		got, ok := p.StatusFor()
		if !ok || got != want {
			t.Fatalf("Parse(%q) status = %v, %v; want %v", raw, got, ok, want)
		}
	}
}

func TestParseFollowUp(t *testing.T) {
	p, ok := Parse("P1.F-P1-abcd1234/Update")
	if !ok {
		t.Fatal("expected ok")
	}
	if !p.IsFollowUp || p.ProposalID != "P1" || p.FollowUpID != "F-P1-abcd1234" {
		t.Fatalf("unexpected parse result: %+v", p)
	}
	status, ok := p.StatusFor()
	if !ok || status != ProposalUpdate {
		t.Fatalf("status = %v, %v; want ProposalUpdate", status, ok)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "noslash", "/New", "P1/"} {
		if _, ok := Parse(raw); ok {
			t.Fatalf("Parse(%q): expected not ok", raw)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := Encode("P1", "", "New")
	p, ok := Parse(raw)
	if !ok || p.ProposalID != "P1" || p.Code != "New" {
		t.Fatalf("round trip failed: %q -> %+v", raw, p)
	}

	raw = Encode("P1", "F-P1-abcd1234", "Update")
	p, ok = Parse(raw)
	if !ok || !p.IsFollowUp || p.FollowUpID != "F-P1-abcd1234" {
		t.Fatalf("round trip failed: %q -> %+v", raw, p)
	}
}

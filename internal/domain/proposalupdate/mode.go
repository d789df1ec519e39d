package proposalupdate

// Mode is the mode-dispatch discriminator for C11, shared by both the
// Processor (proposal-centric modes) and the Requestor (order-centric
// modes, supplemented from original_source's constants.py UpdateMode
// enum since the distilled spec only tabulates the Processor side).
type Mode string

const (
	ProposalSubmissions Mode = "ProposalSubmissions"
	ProposalUpdate      Mode = "ProposalUpdate"
	ProposalClosed      Mode = "ProposalClosed"
	OrderPausedMode     Mode = "OrderPaused"
	EditLock            Mode = "EditLock"
	ProposalLock        Mode = "ProposalLock"
	UserEdits           Mode = "UserEdits"

	// Requestor-side order-status modes, supplemented from original_source.
	RequestInitiated Mode = "RequestInitiated"
	RequestFinalized Mode = "RequestFinalized"
	RequestPaused    Mode = "RequestPaused"
)

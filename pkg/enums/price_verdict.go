package enums

// PriceVerdict is the boundary classification that decides the approval route.
type PriceVerdict string

const (
	// PriceVerdictRejected means the effective price exceeds the maximum ceiling.
	PriceVerdictRejected PriceVerdict = "rejected"
	// PriceVerdictBlocked means the effective price fell below the promotional floor.
	PriceVerdictBlocked PriceVerdict = "blocked"
	// PriceVerdictNeedsEscalation means the price sits between the promotional and minimum floors.
	PriceVerdictNeedsEscalation PriceVerdict = "needs_escalation"
	// PriceVerdictAutoApprovable means the price sits inside the normal band.
	PriceVerdictAutoApprovable PriceVerdict = "auto_approvable"
)

// String implements fmt.Stringer.
func (p PriceVerdict) String() string {
	return string(p)
}

// Accepted reports whether the submission may enter the approval state machine.
func (p PriceVerdict) Accepted() bool {
	return p == PriceVerdictNeedsEscalation || p == PriceVerdictAutoApprovable
}

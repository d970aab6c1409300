package enums

// BidStanding classifies a bidder's bid against the listing's live state.
type BidStanding string

const (
	BidStandingWinning BidStanding = "winning"
	BidStandingOutbid  BidStanding = "outbid"
	BidStandingWon     BidStanding = "won"
	BidStandingLost    BidStanding = "lost"
)

// String implements fmt.Stringer.
func (b BidStanding) String() string {
	return string(b)
}

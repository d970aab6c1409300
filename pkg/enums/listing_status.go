package enums

// ListingStatus tracks the lifecycle of an auction listing.
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusSold    ListingStatus = "sold"
	ListingStatusExpired ListingStatus = "expired"
)

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the listing has been settled.
func (s ListingStatus) IsTerminal() bool {
	return s == ListingStatusSold || s == ListingStatusExpired
}

// CanTransitionTo enforces active -> sold|expired and nothing else.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	return s == ListingStatusActive && next.IsTerminal()
}

package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/pkg/enums"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// BidPlacedEvent is emitted when a bid is accepted and the listing price moves.
type BidPlacedEvent struct {
	BidID         uuid.UUID   `json:"bidId"`
	ListingID     uuid.UUID   `json:"listingId"`
	BidderID      uuid.UUID   `json:"bidderId"`
	SellerID      uuid.UUID   `json:"sellerId"`
	Amount        money.Cents `json:"amount"`
	PreviousPrice money.Cents `json:"previousPrice"`
	PlacedAt      time.Time   `json:"placedAt"`
}

// ListingCreatedEvent is emitted when a seller opens a new auction.
type ListingCreatedEvent struct {
	ListingID     uuid.UUID   `json:"listingId"`
	SellerID      uuid.UUID   `json:"sellerId"`
	CategoryID    uuid.UUID   `json:"categoryId"`
	Title         string      `json:"title"`
	StartingPrice money.Cents `json:"startingPrice"`
	EndTime       time.Time   `json:"endTime"`
}

// ListingSettledEvent is emitted once per listing when the sweeper finalizes it.
// Buyer fields are only present for sold listings.
type ListingSettledEvent struct {
	ListingID     uuid.UUID           `json:"listingId"`
	SellerID      uuid.UUID           `json:"sellerId"`
	Outcome       enums.ListingStatus `json:"outcome"`
	FinalPrice    money.Cents         `json:"finalPrice"`
	TransactionID *uuid.UUID          `json:"transactionId,omitempty"`
	BuyerID       *uuid.UUID          `json:"buyerId,omitempty"`
	SettledAt     time.Time           `json:"settledAt"`
}

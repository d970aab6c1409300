package bidding

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// Validate decides whether bidder may bid amount on listing. It has no side
// effects; the result only binds when called on a locked listing row.
//
// Checks run in order and stop at the first failure: the listing must exist
// and be active, the amount must beat the current price, and the bidder must
// not be the seller.
func Validate(listing *models.Listing, amount money.Cents, bidder uuid.UUID) error {
	if listing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if listing.Status != enums.ListingStatusActive {
		return pkgerrors.New(pkgerrors.CodeAuctionEnded, "auction has ended").
			WithDetails(map[string]any{"status": listing.Status})
	}
	if amount <= listing.CurrentPrice {
		return pkgerrors.New(pkgerrors.CodeBidTooLow, "bid must exceed the current price").
			WithDetails(map[string]any{"currentPrice": listing.CurrentPrice})
	}
	if bidder == listing.SellerID {
		return pkgerrors.New(pkgerrors.CodeSelfBid, "sellers cannot bid on their own listing")
	}
	return nil
}

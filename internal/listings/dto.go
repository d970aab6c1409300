package listings

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// ListingDTO is the public listing projection.
type ListingDTO struct {
	ID            uuid.UUID           `json:"id"`
	SellerID      uuid.UUID           `json:"sellerId"`
	CategoryID    uuid.UUID           `json:"categoryId"`
	CategoryName  string              `json:"categoryName"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	StartingPrice money.Cents         `json:"startingPrice"`
	CurrentPrice  money.Cents         `json:"currentPrice"`
	EndTime       time.Time           `json:"endTime"`
	Status        enums.ListingStatus `json:"status"`
	BidCount      int64               `json:"bidCount"`
	HasEnded      bool                `json:"hasEnded"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// BidDTO is one entry of a listing's bid history.
type BidDTO struct {
	ID        uuid.UUID   `json:"id"`
	BidderID  uuid.UUID   `json:"bidderId"`
	Amount    money.Cents `json:"amount"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ListingDetailDTO adds the bid history and, for sold listings, the winner.
type ListingDetailDTO struct {
	ListingDTO
	Bids        []BidDTO        `json:"bids"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
}

// TransactionDTO describes the sale of a listing.
type TransactionDTO struct {
	ID        uuid.UUID   `json:"id"`
	BuyerID   uuid.UUID   `json:"buyerId"`
	Amount    money.Cents `json:"amount"`
	CreatedAt time.Time   `json:"createdAt"`
}

// UserBidDTO pairs a bid with the listing's live state.
type UserBidDTO struct {
	ID           uuid.UUID           `json:"id"`
	ListingID    uuid.UUID           `json:"listingId"`
	Amount       money.Cents         `json:"amount"`
	CreatedAt    time.Time           `json:"createdAt"`
	Title        string              `json:"title"`
	Status       enums.ListingStatus `json:"status"`
	CurrentPrice money.Cents         `json:"currentPrice"`
	EndTime      time.Time           `json:"endTime"`
	Standing     enums.BidStanding   `json:"standing"`
}

// CategoryDTO is a category lookup row.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ListingPage is one page of active listings.
type ListingPage struct {
	Listings   []ListingDTO `json:"listings"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func newListingDTO(record listingRecord, now time.Time) ListingDTO {
	return ListingDTO{
		ID:            record.ID,
		SellerID:      record.SellerID,
		CategoryID:    record.CategoryID,
		CategoryName:  record.CategoryName,
		Title:         record.Title,
		Description:   record.Description,
		StartingPrice: record.StartingPrice,
		CurrentPrice:  record.CurrentPrice,
		EndTime:       record.EndTime.UTC(),
		Status:        record.Status,
		BidCount:      record.BidCount,
		HasEnded:      record.EndTime.Before(now),
		CreatedAt:     record.CreatedAt.UTC(),
	}
}

func newBidDTO(bid models.Bid) BidDTO {
	return BidDTO{
		ID:        bid.ID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt.UTC(),
	}
}

func newUserBidDTO(record bidderBidRecord) UserBidDTO {
	return UserBidDTO{
		ID:           record.ID,
		ListingID:    record.ListingID,
		Amount:       record.Amount,
		CreatedAt:    record.CreatedAt.UTC(),
		Title:        record.Title,
		Status:       record.Status,
		CurrentPrice: record.CurrentPrice,
		EndTime:      record.EndTime.UTC(),
		Standing:     standingFor(record),
	}
}

// standingFor classifies a bid against its listing. While active, the bid
// matching the current price is winning; bids are strictly increasing so at
// most one bid per listing matches. Once sold, only the transaction's bid won.
func standingFor(record bidderBidRecord) enums.BidStanding {
	switch record.Status {
	case enums.ListingStatusActive:
		if record.Amount == record.CurrentPrice {
			return enums.BidStandingWinning
		}
		return enums.BidStandingOutbid
	case enums.ListingStatusSold:
		if record.WinningBidID != nil && *record.WinningBidID == record.ID {
			return enums.BidStandingWon
		}
		return enums.BidStandingLost
	default:
		return enums.BidStandingLost
	}
}

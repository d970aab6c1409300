package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// Bid is an accepted, immutable offer against a listing.
type Bid struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID uuid.UUID   `gorm:"column:listing_id;type:uuid;not null"`
	BidderID  uuid.UUID   `gorm:"column:bidder_id;type:uuid;not null"`
	Amount    money.Cents `gorm:"column:amount_cents;not null"`
	CreatedAt time.Time   `gorm:"column:created_at;not null"`
}

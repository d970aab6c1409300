package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// Transaction records the winning bid of a sold listing. At most one per listing.
type Transaction struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID uuid.UUID   `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:ux_transactions_listing_id"`
	BidID     uuid.UUID   `gorm:"column:bid_id;type:uuid;not null"`
	BuyerID   uuid.UUID   `gorm:"column:buyer_id;type:uuid;not null"`
	Amount    money.Cents `gorm:"column:amount_cents;not null"`
	CreatedAt time.Time   `gorm:"column:created_at;not null"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/pkg/enums"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// Listing is an item up for auction. CurrentPrice starts at StartingPrice and
// only moves up while Status is active.
type Listing struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	CategoryID    uuid.UUID           `gorm:"column:category_id;type:uuid;not null"`
	Title         string              `gorm:"column:title;not null"`
	Description   string              `gorm:"column:description;not null;default:''"`
	StartingPrice money.Cents         `gorm:"column:starting_price_cents;not null"`
	CurrentPrice  money.Cents         `gorm:"column:current_price_cents;not null"`
	EndTime       time.Time           `gorm:"column:end_time;not null"`
	Status        enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// HasEnded reports whether the listing's end time is strictly before now.
func (l *Listing) HasEnded(now time.Time) bool {
	return l.EndTime.Before(now)
}

// HasBids reports whether any bid raised the price; equality never counts.
func (l *Listing) HasBids() bool {
	return l.CurrentPrice > l.StartingPrice
}

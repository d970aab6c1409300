package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	"github.com/angelmondragon/onauc-backend/pkg/money"
	"github.com/angelmondragon/onauc-backend/pkg/pagination"
)

// likeEscaper makes LIKE wildcards in user search text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

const listingSummaryColumns = "l.id, l.seller_id, l.category_id, c.name AS category_name, l.title, l.description, " +
	"l.starting_price_cents, l.current_price_cents, l.end_time, l.status, l.created_at, " +
	"(SELECT COUNT(*) FROM bids b WHERE b.listing_id = l.id) AS bid_count"

// Repository serves the listing read models and listing creation.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateListing(ctx context.Context, listing *models.Listing) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(listing).Error
}

// FindCategory returns nil when the category does not exist.
func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

type activeListQuery struct {
	CategoryID *uuid.UUID
	Search     string
	Pagination pagination.Params
}

// ListActive pages through active listings, soonest deadline first.
func (r *Repository) ListActive(ctx context.Context, query activeListQuery) ([]listingRecord, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.summaryQuery(ctx).Where("l.status = ?", enums.ListingStatusActive)
	if query.CategoryID != nil {
		qb = qb.Where("l.category_id = ?", *query.CategoryID)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		qb = qb.Where(`(LOWER(l.title) LIKE ? ESCAPE '\' OR LOWER(l.description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(l.end_time > ?) OR (l.end_time = ? AND l.id > ?)", cursor.Time, cursor.Time, cursor.ID)
	}

	var records []listingRecord
	err = qb.Order("l.end_time ASC").
		Order("l.id ASC").
		Limit(pagination.LimitWithBuffer(query.Pagination.Limit)).
		Scan(&records).Error
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		next = pagination.EncodeCursor(pagination.Cursor{Time: last.EndTime, ID: last.ID})
	}
	return records, next, nil
}

// FindListing returns nil when the listing does not exist.
func (r *Repository) FindListing(ctx context.Context, id uuid.UUID) (*listingRecord, error) {
	var records []listingRecord
	if err := r.summaryQuery(ctx).Where("l.id = ?", id).Limit(1).Scan(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]listingRecord, error) {
	var records []listingRecord
	err := r.summaryQuery(ctx).
		Where("l.seller_id = ?", sellerID).
		Order("l.created_at DESC").
		Order("l.id DESC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListBids returns the bid history, highest first with the earliest bid
// winning ties.
func (r *Repository) ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("amount_cents DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// FindTransaction returns nil for listings that have not sold.
func (r *Repository) FindTransaction(ctx context.Context, listingID uuid.UUID) (*models.Transaction, error) {
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Limit(1).Find(&txns).Error; err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, nil
	}
	return &txns[0], nil
}

// ListBidsByBidder joins each of the bidder's bids with the listing's live
// state and, when sold, the winning bid id.
func (r *Repository) ListBidsByBidder(ctx context.Context, bidderID uuid.UUID) ([]bidderBidRecord, error) {
	var records []bidderBidRecord
	err := r.db.WithContext(ctx).
		Table("bids b").
		Select("b.id, b.listing_id, b.amount_cents, b.created_at, "+
			"l.title, l.status, l.current_price_cents, l.end_time, t.bid_id AS winning_bid_id").
		Joins("JOIN listings l ON l.id = b.listing_id").
		Joins("LEFT JOIN transactions t ON t.listing_id = l.id").
		Where("b.bidder_id = ?", bidderID).
		Order("b.created_at DESC").
		Order("b.id DESC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Repository) summaryQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("listings l").
		Select(listingSummaryColumns).
		Joins("JOIN categories c ON c.id = l.category_id")
}

type listingRecord struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	CategoryID    uuid.UUID
	CategoryName  string
	Title         string
	Description   string
	StartingPrice money.Cents `gorm:"column:starting_price_cents"`
	CurrentPrice  money.Cents `gorm:"column:current_price_cents"`
	EndTime       time.Time
	Status        enums.ListingStatus
	CreatedAt     time.Time
	BidCount      int64
}

type bidderBidRecord struct {
	ID           uuid.UUID
	ListingID    uuid.UUID
	Amount       money.Cents `gorm:"column:amount_cents"`
	CreatedAt    time.Time
	Title        string
	Status       enums.ListingStatus
	CurrentPrice money.Cents `gorm:"column:current_price_cents"`
	EndTime      time.Time
	WinningBidID *uuid.UUID
}

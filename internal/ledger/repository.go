package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/onauc-backend/pkg/db"
	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

// ErrStaleListing means a guarded write matched no row because the listing
// changed underneath the caller. The atomic unit is replayed.
var ErrStaleListing = errors.New("listing changed concurrently")

// Repository holds the write paths that mutate a listing's price, status, bids
// and transaction. Every method expects to run on a transaction handle.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle so callers can enlist other writers, such as
// the outbox, in the same transaction.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// LockListing reads the listing and holds a row lock until the transaction ends.
func (r *Repository) LockListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, err
	}
	return &listing, nil
}

func (r *Repository) InsertBid(ctx context.Context, bid *models.Bid) error {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(bid).Error
}

// RaiseCurrentPrice moves the price to amount. The WHERE clause re-asserts the
// bid rules so a write racing past the lock cannot lower or overwrite a price.
func (r *Repository) RaiseCurrentPrice(ctx context.Context, listingID uuid.UUID, amount money.Cents, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ? AND current_price_cents < ?", listingID, enums.ListingStatusActive, amount).
		Updates(map[string]any{
			"current_price_cents": amount,
			"updated_at":          now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleListing
	}
	return nil
}

// HighestBid returns the winning bid: highest amount, then earliest, then id
// for a stable order. Returns nil when the listing has no bids.
func (r *Repository) HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("amount_cents DESC").
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, nil
	}
	return &bids[0], nil
}

func (r *Repository) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(txn).Error
	if dbpkg.IsUniqueViolation(err, "ux_transactions_listing_id") || dbpkg.IsUniqueViolation(err, "transactions.listing_id") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "listing already settled")
	}
	return err
}

// FinalizeListing flips an active listing to a terminal status.
func (r *Repository) FinalizeListing(ctx context.Context, listingID uuid.UUID, status enums.ListingStatus, now time.Time) error {
	if !enums.ListingStatusActive.CanTransitionTo(status) {
		return pkgerrors.New(pkgerrors.CodeInternal, "invalid listing transition to "+status.String())
	}
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", listingID, enums.ListingStatusActive).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleListing
	}
	return nil
}

// ExpiredActiveIDs lists active listings whose end time is before now, oldest
// deadline first. IDs in exclude are left out of the page.
func (r *Repository) ExpiredActiveIDs(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("status = ? AND end_time < ?", enums.ListingStatusActive, now)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	q = q.Order("end_time ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

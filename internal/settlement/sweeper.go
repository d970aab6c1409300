// Package settlement finalizes listings whose auctions have ended.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/onauc-backend/internal/ledger"
	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/metrics"
	"github.com/angelmondragon/onauc-backend/pkg/outbox"
	"github.com/angelmondragon/onauc-backend/pkg/outbox/payloads"
)

const (
	jobName          = "listing-settlement"
	operationSettle  = "settle_listing"
	defaultBatchSize = 500
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

type atomicRunner interface {
	Atomically(ctx context.Context, operation string, fn func(repo *ledger.Repository) error) error
}

type expiredReader interface {
	ExpiredActiveIDs(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]uuid.UUID, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Summary counts what one sweep did.
type Summary struct {
	Scanned int
	Sold    int
	Expired int
	Skipped int
	Failed  int
}

// Outcome is the result of settling a single listing.
type Outcome struct {
	ListingID     uuid.UUID
	Status        enums.ListingStatus
	TransactionID *uuid.UUID
	// Skipped is set when the listing was already settled or had not ended
	// by the time its row was locked.
	Skipped bool
}

// SweeperParams wires the sweeper's collaborators.
type SweeperParams struct {
	Store     atomicRunner
	Reader    expiredReader
	Outbox    outboxEmitter
	Logger    *logger.Logger
	Metrics   *metrics.AuctionMetrics
	BatchSize int
}

// Sweeper settles expired active listings one atomic unit at a time.
type Sweeper struct {
	store     atomicRunner
	reader    expiredReader
	outbox    outboxEmitter
	logg      *logger.Logger
	metrics   *metrics.AuctionMetrics
	batchSize int
	now       func() time.Time
}

// NewSweeper builds the settlement sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("expired listing reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Sweeper{
		store:     params.Store,
		reader:    params.Reader,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

func (s *Sweeper) Name() string { return jobName }

// Run lets the cron service drive the sweeper.
func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep settles every active listing whose end time has passed. Listings are
// read in pages of batchSize until a short page comes back. Each listing
// commits on its own; a failure is recorded and the sweep moves on, leaving the
// listing active for the next tick.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	var summary Summary
	now := s.now().UTC()
	// Listings that are still active after this tick touched them.
	var passed []uuid.UUID

	var errs error
pages:
	for {
		ids, err := s.reader.ExpiredActiveIDs(ctx, now, s.batchSize, passed)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("query expired listings: %w", err))
			break
		}
		summary.Scanned += len(ids)

		for _, id := range ids {
			if ctx.Err() != nil {
				errs = multierr.Append(errs, ctx.Err())
				break pages
			}
			outcome, err := s.SettleListing(ctx, id)
			if err != nil {
				summary.Failed++
				passed = append(passed, id)
				s.metrics.ObserveSettlement(outcomeFailed)
				errs = multierr.Append(errs, fmt.Errorf("settle listing %s: %w", id, err))
				logCtx := s.logg.WithListingID(ctx, id.String())
				s.logg.Error(logCtx, "listing settlement failed", err)
				continue
			}
			switch {
			case outcome.Skipped:
				summary.Skipped++
				passed = append(passed, id)
				s.metrics.ObserveSettlement(outcomeSkipped)
			case outcome.Status == enums.ListingStatusSold:
				summary.Sold++
				s.metrics.ObserveSettlement(string(enums.ListingStatusSold))
			default:
				summary.Expired++
				s.metrics.ObserveSettlement(string(enums.ListingStatusExpired))
			}
		}

		if len(ids) < s.batchSize {
			break
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"scanned": summary.Scanned,
		"sold":    summary.Sold,
		"expired": summary.Expired,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	s.logg.Info(logCtx, "settlement sweep complete")
	return summary, errs
}

// SettleListing re-reads the listing under a row lock and, if it is still
// active and past its end time, moves it to sold or expired. A sold listing
// also gets its Transaction. Re-running against a settled listing is a no-op.
func (s *Sweeper) SettleListing(ctx context.Context, listingID uuid.UUID) (*Outcome, error) {
	var outcome *Outcome
	err := s.store.Atomically(ctx, operationSettle, func(repo *ledger.Repository) error {
		now := s.now().UTC().Truncate(time.Microsecond)
		listing, err := repo.LockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.Status != enums.ListingStatusActive || !listing.HasEnded(now) {
			outcome = &Outcome{ListingID: listingID, Status: listing.Status, Skipped: true}
			return nil
		}

		status := enums.ListingStatusExpired
		event := payloads.ListingSettledEvent{
			ListingID:  listing.ID,
			SellerID:   listing.SellerID,
			FinalPrice: listing.CurrentPrice,
			SettledAt:  now,
		}
		var txnID *uuid.UUID
		if listing.HasBids() {
			status = enums.ListingStatusSold
			txn, err := s.recordSale(ctx, repo, listing, now)
			if err != nil {
				return err
			}
			txnID = &txn.ID
			event.TransactionID = &txn.ID
			event.BuyerID = &txn.BuyerID
		}
		event.Outcome = status

		if err := repo.FinalizeListing(ctx, listing.ID, status, now); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, repo.DB(), outbox.DomainEvent{
			EventType:     enums.EventListingSettled,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			OccurredAt:    now,
			Data:          event,
		}); err != nil {
			return err
		}
		outcome = &Outcome{ListingID: listing.ID, Status: status, TransactionID: txnID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *Sweeper) recordSale(ctx context.Context, repo *ledger.Repository, listing *models.Listing, now time.Time) (*models.Transaction, error) {
	winner, err := repo.HighestBid(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing price moved but no bid exists").
			WithDetails(map[string]any{"listingId": listing.ID, "currentPrice": listing.CurrentPrice})
	}
	if winner.Amount != listing.CurrentPrice {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "winning bid does not match current price").
			WithDetails(map[string]any{"listingId": listing.ID, "bidAmount": winner.Amount, "currentPrice": listing.CurrentPrice})
	}
	txn := &models.Transaction{
		ListingID: listing.ID,
		BidID:     winner.ID,
		BuyerID:   winner.BidderID,
		Amount:    winner.Amount,
		CreatedAt: now,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

package bidding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/onauc-backend/internal/ledger"
	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/metrics"
	"github.com/angelmondragon/onauc-backend/pkg/money"
	"github.com/angelmondragon/onauc-backend/pkg/outbox"
	"github.com/angelmondragon/onauc-backend/pkg/outbox/payloads"
)

const operationPlaceBid = "place_bid"

type atomicRunner interface {
	Atomically(ctx context.Context, operation string, fn func(repo *ledger.Repository) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Engine accepts bids against active listings.
type Engine interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*BidAccepted, error)
}

// PlaceBidInput is an authenticated bidder's offer on one listing.
type PlaceBidInput struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    money.Cents
}

// BidAccepted describes a committed bid and the listing's new price.
type BidAccepted struct {
	BidID           uuid.UUID   `json:"bidId"`
	ListingID       uuid.UUID   `json:"listingId"`
	Amount          money.Cents `json:"amount"`
	NewCurrentPrice money.Cents `json:"newCurrentPrice"`
	PlacedAt        time.Time   `json:"placedAt"`
}

// EngineParams wires the engine's collaborators.
type EngineParams struct {
	Store   atomicRunner
	Outbox  outboxPublisher
	Metrics *metrics.AuctionMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type engine struct {
	store   atomicRunner
	outbox  outboxPublisher
	metrics *metrics.AuctionMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewEngine builds the bidding engine.
func NewEngine(params EngineParams) (Engine, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &engine{
		store:   params.Store,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// PlaceBid locks the listing, validates the bid against the locked row, then
// writes the bid, the new price and a bid_placed event in one transaction.
// Losers of a race re-read the winner's price and fail with BID_TOO_LOW.
func (e *engine) PlaceBid(ctx context.Context, input PlaceBidInput) (*BidAccepted, error) {
	if err := validateInput(input); err != nil {
		e.metrics.ObserveBid("invalid")
		return nil, err
	}

	var result *BidAccepted
	err := e.store.Atomically(ctx, operationPlaceBid, func(repo *ledger.Repository) error {
		listing, err := repo.LockListing(ctx, input.ListingID)
		if err != nil {
			return err
		}
		if err := Validate(listing, input.Amount, input.BidderID); err != nil {
			return err
		}

		placedAt := e.now().UTC().Truncate(time.Microsecond)
		bid := &models.Bid{
			ListingID: listing.ID,
			BidderID:  input.BidderID,
			Amount:    input.Amount,
			CreatedAt: placedAt,
		}
		if err := repo.InsertBid(ctx, bid); err != nil {
			return err
		}
		if err := repo.RaiseCurrentPrice(ctx, listing.ID, input.Amount, placedAt); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: input.BidderID},
			OccurredAt:    placedAt,
			Data: payloads.BidPlacedEvent{
				BidID:         bid.ID,
				ListingID:     listing.ID,
				BidderID:      input.BidderID,
				SellerID:      listing.SellerID,
				Amount:        input.Amount,
				PreviousPrice: listing.CurrentPrice,
				PlacedAt:      placedAt,
			},
		}
		if err := e.outbox.Emit(ctx, repo.DB(), event); err != nil {
			return err
		}

		result = &BidAccepted{
			BidID:           bid.ID,
			ListingID:       listing.ID,
			Amount:          input.Amount,
			NewCurrentPrice: input.Amount,
			PlacedAt:        placedAt,
		}
		return nil
	})
	if err != nil {
		outcome := outcomeFor(err)
		e.metrics.ObserveBid(outcome)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place bid failed")
		}
		if e.logg != nil && outcome == "error" {
			logCtx := e.logg.WithListingID(ctx, input.ListingID.String())
			e.logg.Error(logCtx, "place bid failed", err)
		}
		return nil, err
	}

	e.metrics.ObserveBid("accepted")
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"listing_id": input.ListingID.String(),
			"bid_id":     result.BidID.String(),
			"amount":     input.Amount.String(),
		})
		e.logg.Info(logCtx, "bid accepted")
	}
	return result, nil
}

func validateInput(input PlaceBidInput) error {
	if input.ListingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.BidderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bidder id required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

func outcomeFor(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeBidTooLow:
		return "bid_too_low"
	case pkgerrors.CodeSelfBid:
		return "self_bid"
	case pkgerrors.CodeAuctionEnded:
		return "auction_ended"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeConflict:
		return "conflict"
	default:
		return "error"
	}
}

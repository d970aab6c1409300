package listings

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/onauc-backend/pkg/db/models"
	"github.com/angelmondragon/onauc-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/money"
	"github.com/angelmondragon/onauc-backend/pkg/outbox"
	"github.com/angelmondragon/onauc-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/onauc-backend/pkg/pagination"
)

const maxTitleLength = 200

// Service creates listings and serves the read side of the marketplace.
type Service interface {
	CreateListing(ctx context.Context, input CreateListingInput) (*ListingDTO, error)
	ActiveListings(ctx context.Context, filter ActiveListingsFilter) (*ListingPage, error)
	ListingDetail(ctx context.Context, listingID uuid.UUID) (*ListingDetailDTO, error)
	UserListings(ctx context.Context, userID uuid.UUID) ([]ListingDTO, error)
	UserBids(ctx context.Context, userID uuid.UUID) ([]UserBidDTO, error)
	Categories(ctx context.Context) ([]CategoryDTO, error)
}

// CreateListingInput is a seller's new auction.
type CreateListingInput struct {
	SellerID      uuid.UUID
	Title         string
	Description   string
	CategoryID    uuid.UUID
	StartingPrice money.Cents
	EndTime       time.Time
}

// ActiveListingsFilter narrows the active listing browse.
type ActiveListingsFilter struct {
	CategoryID *uuid.UUID
	Search     string
	Pagination pagination.Params
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the listing service.
type ServiceParams struct {
	DB         txRunner
	Repository *Repository
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	db     txRunner
	repo   *Repository
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the listing service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) CreateListing(ctx context.Context, input CreateListingInput) (*ListingDTO, error) {
	now := s.now().UTC()
	if err := validateCreate(&input, now); err != nil {
		return nil, err
	}

	var created *listingRecord
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		category, err := repo.FindCategory(ctx, input.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}

		listing := &models.Listing{
			SellerID:      input.SellerID,
			CategoryID:    category.ID,
			Title:         input.Title,
			Description:   input.Description,
			StartingPrice: input.StartingPrice,
			CurrentPrice:  input.StartingPrice,
			EndTime:       input.EndTime,
			Status:        enums.ListingStatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.CreateListing(ctx, listing); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventListingCreated,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: input.SellerID},
			OccurredAt:    now,
			Data: payloads.ListingCreatedEvent{
				ListingID:     listing.ID,
				SellerID:      listing.SellerID,
				CategoryID:    listing.CategoryID,
				Title:         listing.Title,
				StartingPrice: listing.StartingPrice,
				EndTime:       listing.EndTime,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		created = &listingRecord{
			ID:            listing.ID,
			SellerID:      listing.SellerID,
			CategoryID:    category.ID,
			CategoryName:  category.Name,
			Title:         listing.Title,
			Description:   listing.Description,
			StartingPrice: listing.StartingPrice,
			CurrentPrice:  listing.CurrentPrice,
			EndTime:       listing.EndTime,
			Status:        listing.Status,
			CreatedAt:     listing.CreatedAt,
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing failed")
		}
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithListingID(ctx, created.ID.String())
		s.logg.Info(logCtx, "listing created")
	}
	dto := newListingDTO(*created, now)
	return &dto, nil
}

func validateCreate(input *CreateListingInput, now time.Time) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.EndTime = input.EndTime.UTC().Truncate(time.Microsecond)

	if input.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if utf8.RuneCountInString(input.Title) > maxTitleLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if input.CategoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if !input.StartingPrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "starting price must be greater than zero")
	}
	if !input.EndTime.After(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end time must be in the future")
	}
	return nil
}

func (s *service) ActiveListings(ctx context.Context, filter ActiveListingsFilter) (*ListingPage, error) {
	if _, err := pagination.ParseCursor(filter.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	records, next, err := s.repo.ListActive(ctx, activeListQuery{
		CategoryID: filter.CategoryID,
		Search:     filter.Search,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active listings failed")
	}
	now := s.now().UTC()
	page := &ListingPage{Listings: make([]ListingDTO, 0, len(records)), NextCursor: next}
	for _, record := range records {
		page.Listings = append(page.Listings, newListingDTO(record, now))
	}
	return page, nil
}

func (s *service) ListingDetail(ctx context.Context, listingID uuid.UUID) (*ListingDetailDTO, error) {
	record, err := s.repo.FindListing(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing failed")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	bids, err := s.repo.ListBids(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bids failed")
	}

	detail := &ListingDetailDTO{
		ListingDTO: newListingDTO(*record, s.now().UTC()),
		Bids:       make([]BidDTO, 0, len(bids)),
	}
	for _, bid := range bids {
		detail.Bids = append(detail.Bids, newBidDTO(bid))
	}
	if record.Status == enums.ListingStatusSold {
		txn, err := s.repo.FindTransaction(ctx, listingID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction failed")
		}
		if txn != nil {
			detail.Transaction = &TransactionDTO{
				ID:        txn.ID,
				BuyerID:   txn.BuyerID,
				Amount:    txn.Amount,
				CreatedAt: txn.CreatedAt.UTC(),
			}
		}
	}
	return detail, nil
}

func (s *service) UserListings(ctx context.Context, userID uuid.UUID) ([]ListingDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	records, err := s.repo.ListBySeller(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user listings failed")
	}
	now := s.now().UTC()
	out := make([]ListingDTO, 0, len(records))
	for _, record := range records {
		out = append(out, newListingDTO(record, now))
	}
	return out, nil
}

func (s *service) UserBids(ctx context.Context, userID uuid.UUID) ([]UserBidDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	records, err := s.repo.ListBidsByBidder(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user bids failed")
	}
	out := make([]UserBidDTO, 0, len(records))
	for _, record := range records {
		out = append(out, newUserBidDTO(record))
	}
	return out, nil
}

func (s *service) Categories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories failed")
	}
	out := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		out = append(out, CategoryDTO{ID: category.ID, Name: category.Name})
	}
	return out, nil
}

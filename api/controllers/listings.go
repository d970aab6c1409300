package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/onauc-backend/api/responses"
	"github.com/angelmondragon/onauc-backend/api/validators"
	"github.com/angelmondragon/onauc-backend/internal/listings"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

const maxSearchLength = 100

// ListActiveListings serves the public browse of open auctions.
func ListActiveListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		categoryID, err := validators.ParseOptionalUUIDQuery(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ActiveListings(r.Context(), listings.ActiveListingsFilter{
			CategoryID: categoryID,
			Search:     validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLength),
			Pagination: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetListing returns one listing with its bid history and settlement.
func GetListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.ListingDetail(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type createListingRequest struct {
	Title         string      `json:"title" validate:"required,max=200"`
	Description   string      `json:"description"`
	CategoryID    string      `json:"categoryId" validate:"required,uuid"`
	StartingPrice money.Cents `json:"startingPrice" validate:"gt=0"`
	EndTime       time.Time   `json:"endTime" validate:"required"`
}

// CreateListing opens a new auction owned by the caller.
func CreateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := uuid.Parse(payload.CategoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
			return
		}

		listing, err := svc.CreateListing(r.Context(), listings.CreateListingInput{
			SellerID:      sellerID,
			Title:         payload.Title,
			Description:   payload.Description,
			CategoryID:    categoryID,
			StartingPrice: payload.StartingPrice,
			EndTime:       payload.EndTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/onauc-backend/api/responses"
	"github.com/angelmondragon/onauc-backend/api/validators"
	"github.com/angelmondragon/onauc-backend/internal/bidding"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/money"
)

type placeBidRequest struct {
	Amount money.Cents `json:"amount" validate:"gt=0"`
}

// PlaceBid submits the caller's bid on a listing. Rejections map to
// BID_TOO_LOW, SELF_BID, AUCTION_ENDED or NOT_FOUND.
func PlaceBid(engine bidding.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding engine unavailable"))
			return
		}

		bidderID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeBidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithListingID(ctx, listingID.String())
		}

		accepted, err := engine.PlaceBid(ctx, bidding.PlaceBidInput{
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    payload.Amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, accepted)
	}
}

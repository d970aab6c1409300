package controllers

import (
	"net/http"

	"github.com/angelmondragon/onauc-backend/api/responses"
	"github.com/angelmondragon/onauc-backend/internal/listings"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
)

// ListCategories returns every category for the browse filters.
func ListCategories(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/pagination"
)

// Encoded cursors are an RFC3339Nano timestamp plus a uuid in base64.
const maxCursorLength = 128

// ParseUUIDParam reads a chi URL parameter as a UUID.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter required").WithDetails(map[string]any{"field": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "path parameter must be a uuid").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// ParseOptionalUUIDQuery returns nil when the query parameter is absent.
func ParseOptionalUUIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "query parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// ParsePageParams reads the limit and cursor query parameters used by the
// listing browse endpoints. A malformed cursor is rejected here so it never
// reaches the repository.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	query := r.URL.Query()
	params := pagination.Params{Limit: pagination.DefaultLimit}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": "limit"})
		}
		if limit < 1 || limit > pagination.MaxLimit {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": "limit", "min": 1, "max": pagination.MaxLimit})
		}
		params.Limit = limit
	}

	cursor := strings.TrimSpace(query.Get("cursor"))
	if cursor == "" {
		return params, nil
	}
	if len(cursor) > maxCursorLength {
		return params, pkgerrors.New(pkgerrors.CodeValidation, "cursor is malformed").WithDetails(map[string]any{"field": "cursor"})
	}
	if _, err := pagination.ParseCursor(cursor); err != nil {
		return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is malformed").WithDetails(map[string]any{"field": "cursor"})
	}
	params.Cursor = cursor
	return params, nil
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/onauc-backend/api/responses"
	"github.com/angelmondragon/onauc-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
)

type identityVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// Auth validates a bearer token and seeds the request context with the caller id.
func Auth(verifier identityVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if pkgerrors.As(err) == nil {
					err = pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			userID := identity.UserID.String()
			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

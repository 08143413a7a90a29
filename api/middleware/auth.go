package middleware

import (
	"net/http"

	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/pkg/auth"
	"github.com/kartwise/storefront-backend/pkg/config"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

// Auth verifies the bearer token and attaches the caller as a Principal.
// A broken JWT config fails every request rather than admitting anyone.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	keys, keysErr := auth.NewKeys(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keysErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, keysErr, "auth misconfigured"))
				return
			}
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			id, err := keys.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := id.UserID.String()
			ctx := WithPrincipal(r.Context(), Principal{UserID: userID, Role: id.Role})
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), string(id.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/agoralabs/bazaar-backend/api/responses"
	pkgAuth "github.com/agoralabs/bazaar-backend/pkg/auth"
	"github.com/agoralabs/bazaar-backend/pkg/config"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// resolved actor identity. The core services only ever see the ids.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
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

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			if claims.ActiveStoreID != nil {
				ctx = WithStoreID(ctx, claims.ActiveStoreID.String())
			}

			if logg != nil {
				fields := map[string]any{"user_id": claims.UserID.String()}
				if claims.ActiveStoreID != nil {
					fields["store_id"] = claims.ActiveStoreID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

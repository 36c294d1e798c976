package middleware

import (
	"net/http"

	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	pkgAuth "github.com/asdwsxzc123/jiale-mrp/pkg/auth"
	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the acting operator.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	keys, keysErr := pkgAuth.NewKeys(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keysErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, keysErr, "token verification unavailable"))
				return
			}

			token, err := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := keys.Parse(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID, role := claims.UserID.String(), string(claims.Role)
			ctx := WithRole(WithUserID(r.Context(), userID), role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"net/http"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
)

// RequireOrgAdmin halts requests from principals that are not organization superadmins
func RequireOrgAdmin(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return gate(metrics, auth.RequireOrgAdmin)
}

// RequireGlobalAdmin halts requests from principals that are not global superadmins
func RequireGlobalAdmin(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return gate(metrics, auth.RequireGlobalAdmin)
}

func gate(metrics *observability.Metrics, check func(*auth.Principal) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				err := apperrors.Unauthorized("Authentication required")
				recordDenied(metrics, apperrors.KindUnauthorized)
				httputil.WriteAppError(w, r, err)
				return
			}
			if err := check(principal); err != nil {
				recordDenied(metrics, apperrors.KindOf(err))
				httputil.WriteAppError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

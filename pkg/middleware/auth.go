package middleware

import (
	"net/http"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/contextkeys"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
)

// AuthMiddleware resolves the bearer token into a principal
type AuthMiddleware struct {
	resolver *auth.Resolver
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware. metrics may be nil.
func NewAuthMiddleware(resolver *auth.Resolver, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, metrics: metrics}
}

// Handler rejects requests without a valid credential with 401
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.deny(w, r, apperrors.Unauthorized("Missing or invalid authorization header"))
			return
		}

		principal, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			m.deny(w, r, err)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = contextkeys.WithUserID(ctx, principal.UserIDString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	recordDenied(m.metrics, apperrors.KindOf(err))
	httputil.WriteAppError(w, r, err)
}

func recordDenied(metrics *observability.Metrics, kind apperrors.Kind) {
	if metrics == nil || kind == apperrors.KindInternal {
		return
	}
	metrics.AccessDeniedTotal.WithLabelValues(string(kind)).Inc()
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/users"
)

const (
	surfaceApp = "app"
	surfaceCRM = "crm"
)

// AuthHandlers handles login, token refresh and logout
type AuthHandlers struct {
	s *Server
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(s *Server) *AuthHandlers {
	return &AuthHandlers{s: s}
}

// RegisterRoutes registers auth routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/auth/login", h.s.opts.LoginLimiter.Handler(http.HandlerFunc(h.Login))).Methods("POST")
	router.Handle("/auth/refresh", h.s.authn.Handler(http.HandlerFunc(h.Refresh))).Methods("POST")
	router.Handle("/auth/logout", h.s.authn.Handler(http.HandlerFunc(h.Logout))).Methods("POST")
}

// Login exchanges email and password for a bearer token
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.authenticate(r, surfaceApp, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	h.writeToken(w, r, u)
}

// Refresh issues a new token for the caller
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	u, err := h.s.stores.Users.GetUser(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	h.writeToken(w, r, u)
}

func (h *AuthHandlers) writeToken(w http.ResponseWriter, r *http.Request, u *users.User) {
	token, err := h.s.opts.Tokens.Issue(u)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, LoginResponse{
		Token:        token.Value,
		Type:         "Bearer",
		ID:           u.ID,
		Email:        u.Email,
		IsSuperadmin: u.IsSuperadmin,
	})
}

// Logout revokes the caller's token until it expires
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if err := h.s.opts.Revocations.Revoke(r.Context(), p.TokenID, p.ExpiresAt); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if h.s.opts.Revocations.Enabled() && h.s.opts.Metrics != nil {
		h.s.opts.Metrics.TokensRevokedTotal.Inc()
	}

	observability.FromContext(r.Context()).Info("User logged out")
	httputil.WriteMessage(w, "User logged out successfully")
}

// authenticate checks the credentials and records the attempt. Unknown emails and wrong
// passwords produce the same error.
func (s *Server) authenticate(r *http.Request, surface string, req LoginRequest) (*users.User, error) {
	invalid := apperrors.Unauthorized("Invalid email or password")

	u, err := s.stores.Users.GetUserByEmail(r.Context(), req.Email)
	if apperrors.IsNotFound(err) {
		s.recordLogin(surface, "invalid_credentials")
		return nil, invalid
	}
	if err != nil {
		s.recordLogin(surface, "error")
		return nil, err
	}

	ok, err := s.opts.Passwords.Matches(u.PasswordHash, req.Password)
	if err != nil {
		s.recordLogin(surface, "error")
		return nil, err
	}
	if !ok {
		s.recordLogin(surface, "invalid_credentials")
		observability.FromContext(r.Context()).
			WithField("user_id", u.ID).
			Warn("Login failed: wrong password")
		return nil, invalid
	}

	s.recordLogin(surface, "success")
	return u, nil
}

func (s *Server) recordLogin(surface, outcome string) {
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.LoginAttemptsTotal.WithLabelValues(surface, outcome).Inc()
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/middleware"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/orgs"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// CRMHandlers handles cross-organization administration. Routes are not tenant scoped; the
// global superadmin gate is their only guard.
type CRMHandlers struct {
	s *Server
}

// crmUserMessage is a CRM user response carrying a confirmation message
type crmUserMessage struct {
	*CRMUserResponse
	Message string `json:"message"`
}

// NewCRMHandlers creates a new CRMHandlers
func NewCRMHandlers(s *Server) *CRMHandlers {
	return &CRMHandlers{s: s}
}

// RegisterRoutes registers CRM routes
func (h *CRMHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/crm/login", h.s.opts.LoginLimiter.Handler(http.HandlerFunc(h.Login))).Methods("POST")

	crm := router.PathPrefix("/crm").Subrouter()
	crm.Use(h.s.authn.Handler, middleware.RequireGlobalAdmin(h.s.opts.Metrics))

	crm.HandleFunc("/organizations", h.ListOrganizations).Methods("GET")
	crm.HandleFunc("/organizations", h.CreateOrganization).Methods("POST")
	crm.HandleFunc("/organizations/{id}", h.GetOrganization).Methods("GET")
	crm.HandleFunc("/organizations/{id}", h.UpdateOrganization).Methods("PUT")
	crm.HandleFunc("/organizations/{id}", h.DeleteOrganization).Methods("DELETE")
	crm.HandleFunc("/organizations/{id}/users", h.ListOrganizationSuperadmins).Methods("GET")

	crm.HandleFunc("/superadmins", h.CreateSuperadmin).Methods("POST")
	crm.HandleFunc("/superadmins/{id}", h.UpdateSuperadmin).Methods("PUT")

	crm.HandleFunc("/users", h.CreateUser).Methods("POST")
	crm.HandleFunc("/users/{id}/superadmin", h.SetSuperadmin).Methods("PUT")
	crm.HandleFunc("/users/{id}", h.DeleteUser).Methods("DELETE")
}

// Login authenticates a global superadmin
func (h *CRMHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.authenticate(r, surfaceCRM, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if !u.IsGlobalSuperadmin {
		h.s.recordLogin(surfaceCRM, "forbidden")
		httputil.WriteAppError(w, r, apperrors.Forbidden("Access denied. Only global super admins can access the CRM."))
		return
	}

	token, err := h.s.opts.Tokens.Issue(u)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, CRMLoginResponse{
		Token:              token.Value,
		UserID:             u.ID,
		Email:              u.Email,
		IsGlobalSuperAdmin: u.IsGlobalSuperadmin,
	})
}

// ListOrganizations lists every organization
func (h *CRMHandlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := h.s.stores.Orgs.ListOrganizations(r.Context())
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if list == nil {
		list = []*orgs.Organization{}
	}
	httputil.WriteSuccess(w, list)
}

// GetOrganization returns one organization
func (h *CRMHandlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	org, err := h.s.stores.Orgs.GetOrganization(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// CreateOrganization creates an organization
func (h *CRMHandlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	org := &orgs.Organization{Name: req.Name, Description: req.Description}
	if err := h.s.stores.Orgs.CreateOrganization(r.Context(), org); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).WithField("org_id", org.ID).Info("Organization created")
	httputil.WriteSuccess(w, org)
}

// UpdateOrganization renames an organization
func (h *CRMHandlers) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req OrganizationRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	org := &orgs.Organization{ID: id, Name: req.Name, Description: req.Description}
	if err := h.s.stores.Orgs.UpdateOrganization(r.Context(), org); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// DeleteOrganization deletes an organization together with its users
func (h *CRMHandlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	removed, err := h.s.stores.Orgs.DeleteOrganization(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).
		WithFields(map[string]interface{}{"org_id": id, "users_removed": removed}).
		Info("Organization deleted")
	httputil.WriteMessage(w, "Organization deleted successfully")
}

// ListOrganizationSuperadmins lists the superadmins of an organization
func (h *CRMHandlers) ListOrganizationSuperadmins(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	list, err := h.s.stores.Users.ListSuperadmins(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	resp := make([]*CRMUserResponse, 0, len(list))
	for _, u := range list {
		resp = append(resp, newCRMUserResponse(u))
	}
	httputil.WriteSuccess(w, resp)
}

// CreateSuperadmin creates a superadmin of an organization
func (h *CRMHandlers) CreateSuperadmin(w http.ResponseWriter, r *http.Request) {
	u, ok := h.createSuperadmin(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, newCRMUserResponse(u))
}

// CreateUser creates a superadmin of an organization and confirms it with a message
func (h *CRMHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.createSuperadmin(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, crmUserMessage{newCRMUserResponse(u), "User created successfully"})
}

func (h *CRMHandlers) createSuperadmin(w http.ResponseWriter, r *http.Request) (*users.User, bool) {
	var req SuperadminRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}

	taken, err := h.s.stores.Users.EmailTaken(r.Context(), req.Email, 0)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}
	if taken {
		httputil.WriteAppError(w, r, apperrors.Duplicate("Email already exists"))
		return nil, false
	}

	org, err := h.s.stores.Orgs.GetOrganization(r.Context(), req.OrganizationID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}

	hash, err := h.s.opts.Passwords.Hash(req.Password)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}

	u := &users.User{
		Email:          req.Email,
		PasswordHash:   hash,
		OrganizationID: &org.ID,
		IsSuperadmin:   true,
	}
	if err := h.s.stores.Users.CreateUser(r.Context(), u); err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}

	observability.FromContext(r.Context()).
		WithFields(map[string]interface{}{"new_user_id": u.ID, "org_id": org.ID}).
		Info("Superadmin created")
	return u, true
}

// UpdateSuperadmin changes a user's email and, when supplied, password
func (h *CRMHandlers) UpdateSuperadmin(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req SuperadminUpdateRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.stores.Users.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	taken, err := h.s.stores.Users.EmailTaken(r.Context(), req.Email, u.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if taken {
		httputil.WriteAppError(w, r, apperrors.Duplicate("Email already exists"))
		return
	}

	u.Email = req.Email
	if req.Password != "" {
		if u.PasswordHash, err = h.s.opts.Passwords.Hash(req.Password); err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
	}
	if err := h.s.stores.Users.UpdateUser(r.Context(), u); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, newCRMUserResponse(u))
}

// SetSuperadmin grants or revokes the superadmin flag of a user
func (h *CRMHandlers) SetSuperadmin(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req SuperadminFlagRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.stores.Users.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if u.IsGlobalSuperadmin {
		httputil.WriteAppError(w, r, apperrors.Validation("Cannot modify global superadmin status"))
		return
	}

	u.IsSuperadmin = *req.IsSuperadmin
	if err := h.s.stores.Users.UpdateUser(r.Context(), u); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, crmUserMessage{newCRMUserResponse(u), "User superadmin status updated successfully"})
}

// DeleteUser deletes a user that is not a global superadmin
func (h *CRMHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.stores.Users.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if u.IsGlobalSuperadmin {
		httputil.WriteAppError(w, r, apperrors.Validation("Cannot delete global superadmin users"))
		return
	}

	if err := h.s.stores.Users.DeleteUser(r.Context(), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "User deleted successfully")
}

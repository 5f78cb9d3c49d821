package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/access"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/middleware"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/rbac"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// AdminHandlers handles organization administration. Every read and write is scoped to the
// caller's organization.
type AdminHandlers struct {
	s *Server
}

// NewAdminHandlers creates a new AdminHandlers
func NewAdminHandlers(s *Server) *AdminHandlers {
	return &AdminHandlers{s: s}
}

// RegisterRoutes registers admin routes
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	// open to the user themselves, so it sits outside the superadmin gate
	router.Handle("/admin/users/{userId}/role-modules",
		h.s.authn.Handler(http.HandlerFunc(h.GetUserRoleModules))).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(h.s.authn.Handler, middleware.RequireOrgAdmin(h.s.opts.Metrics))

	admin.HandleFunc("/roles", h.ListRoles).Methods("GET")
	admin.HandleFunc("/roles", h.CreateRole).Methods("POST")
	admin.HandleFunc("/roles/{roleId}", h.UpdateRole).Methods("PUT")
	admin.HandleFunc("/roles/{roleId}", h.DeleteRole).Methods("DELETE")

	admin.HandleFunc("/users", h.ListUsers).Methods("GET")
	admin.HandleFunc("/users", h.CreateUser).Methods("POST")
	admin.HandleFunc("/users/{userId}", h.UpdateUser).Methods("PUT")

	admin.HandleFunc("/modules", h.ListModules).Methods("GET")
	admin.HandleFunc("/product-modules", h.ListProductModules).Methods("GET")
}

// ListRoles lists the roles held by users of the caller's organization
func (h *AdminHandlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.s.tenant.ListRoles(r.Context(), principalFrom(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	resp := make([]*RoleResponse, 0, len(roles))
	for _, role := range roles {
		rr, err := h.roleResponse(r.Context(), role)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		resp = append(resp, rr)
	}
	httputil.WriteSuccess(w, resp)
}

// CreateRole creates a role granting product modules of the caller's organization
func (h *AdminHandlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req RoleRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if err := h.requireUniqueRoleName(r.Context(), req.Name, 0); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := h.s.tenant.ValidateRoleModules(r.Context(), p, req.ProductModuleIDs); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	role := &rbac.Role{
		Name:             req.Name,
		Description:      req.Description,
		ProductModuleIDs: req.ProductModuleIDs,
	}
	if err := h.s.stores.Roles.CreateRole(r.Context(), role); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).
		WithFields(map[string]interface{}{"role_id": role.ID, "role_name": role.Name}).
		Info("Role created")
	h.writeRole(w, r, role)
}

// UpdateRole changes the supplied fields of a role
func (h *AdminHandlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	roleID, err := httputil.ParsePathInt64(r, "roleId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req RoleUpdateRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	role, err := h.requireTenantRole(r.Context(), p, roleID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if req.Name != nil && *req.Name != role.Name {
		if err := h.requireUniqueRoleName(r.Context(), *req.Name, role.ID); err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.ProductModuleIDs != nil {
		if err := h.s.tenant.ValidateRoleModules(r.Context(), p, *req.ProductModuleIDs); err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		role.ProductModuleIDs = *req.ProductModuleIDs
	}

	if err := h.s.stores.Roles.UpdateRole(r.Context(), role); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	h.writeRole(w, r, role)
}

// DeleteRole deletes a role; users holding it are left without a role
func (h *AdminHandlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := httputil.ParsePathInt64(r, "roleId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if _, err := h.requireTenantRole(r.Context(), principalFrom(r), roleID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := h.s.stores.Roles.DeleteRole(r.Context(), roleID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ListUsers lists the users of the caller's organization
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.s.tenant.ListUsers(r.Context(), principalFrom(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	resp := make([]*UserResponse, 0, len(list))
	for _, u := range list {
		ur, err := h.userResponse(r.Context(), u)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		resp = append(resp, ur)
	}
	httputil.WriteSuccess(w, resp)
}

// CreateUser creates a regular user in the caller's organization
func (h *AdminHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req UserRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if _, err := access.OrganizationOf(p); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if req.RoleID != nil {
		if _, err := h.requireTenantRole(r.Context(), p, *req.RoleID); err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
	}

	hash, err := h.s.opts.Passwords.Hash(req.Password)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u := &users.User{
		Email:          req.Email,
		PasswordHash:   hash,
		OrganizationID: p.OrganizationID,
		RoleID:         req.RoleID,
	}
	if err := h.s.stores.Users.CreateUser(r.Context(), u); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).WithField("new_user_id", u.ID).Info("User created")
	h.writeUser(w, r, u)
}

// UpdateUser assigns or clears the role of a user of the caller's organization
func (h *AdminHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	userID, err := httputil.ParsePathInt64(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req UserUpdateRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.tenant.RequireUserInOrg(r.Context(), p, userID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if req.RoleID != nil {
		if _, err := h.requireTenantRole(r.Context(), p, *req.RoleID); err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
	}

	u.RoleID = req.RoleID
	if err := h.s.stores.Users.UpdateUser(r.Context(), u); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	h.writeUser(w, r, u)
}

// ListModules lists the active catalog modules by display order
func (h *AdminHandlers) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.s.stores.Catalog.ListActiveModules(r.Context())
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if modules == nil {
		modules = []*catalog.Module{}
	}
	httputil.WriteSuccess(w, modules)
}

// ListProductModules lists the product modules of the caller's organization
func (h *AdminHandlers) ListProductModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.s.tenant.ListProductModules(r.Context(), principalFrom(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, modules)
}

// GetUserRoleModules returns the product modules granted by a user's role. Users may read
// their own; superadmins may read those of their organization's users.
func (h *AdminHandlers) GetUserRoleModules(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	userID, err := httputil.ParsePathInt64(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	u, err := h.s.stores.Users.GetUser(r.Context(), userID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := auth.RequireSelfOrAbove(p, u.ID, u.OrganizationID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	modules := []*catalog.ProductModule{}
	if u.RoleID != nil {
		if modules, err = h.s.stores.Catalog.ListProductModulesForRole(r.Context(), *u.RoleID); err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		if modules == nil {
			modules = []*catalog.ProductModule{}
		}
	}
	httputil.WriteSuccess(w, modules)
}

// requireTenantRole loads a role whose product modules all belong to the caller's
// organization and that no user of another organization holds. Any other role is
// reported as not found.
func (h *AdminHandlers) requireTenantRole(ctx context.Context, p *auth.Principal, roleID int64) (*rbac.Role, error) {
	orgID, err := access.OrganizationOf(p)
	if err != nil {
		return nil, err
	}
	role, err := h.s.stores.Roles.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	notFound := apperrors.NotFound("Role not found with id: %d", roleID)

	err = h.s.tenant.ValidateRoleModules(ctx, p, role.ProductModuleIDs)
	if kind := apperrors.KindOf(err); kind == apperrors.KindValidation || kind == apperrors.KindNotFound {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}

	foreign, err := h.s.stores.Roles.RoleHeldOutsideOrganization(ctx, roleID, orgID)
	if err != nil {
		return nil, err
	}
	if foreign {
		return nil, notFound
	}
	return role, nil
}

func (h *AdminHandlers) requireUniqueRoleName(ctx context.Context, name string, excludeID int64) error {
	exists, err := h.s.stores.Roles.RoleNameExists(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Duplicate("Role with name '%s' already exists", name)
	}
	return nil
}

func (h *AdminHandlers) roleResponse(ctx context.Context, role *rbac.Role) (*RoleResponse, error) {
	var modules []*catalog.ProductModule
	if len(role.ProductModuleIDs) > 0 {
		var err error
		if modules, err = h.s.stores.Catalog.GetProductModulesByIDs(ctx, role.ProductModuleIDs); err != nil {
			return nil, err
		}
	}
	return newRoleResponse(role, modules), nil
}

func (h *AdminHandlers) userResponse(ctx context.Context, u *users.User) (*UserResponse, error) {
	if u.RoleID == nil {
		return newUserResponse(u, nil), nil
	}
	role, err := h.s.stores.Roles.GetRole(ctx, *u.RoleID)
	if apperrors.IsNotFound(err) {
		return newUserResponse(u, nil), nil
	}
	if err != nil {
		return nil, err
	}
	rr, err := h.roleResponse(ctx, role)
	if err != nil {
		return nil, err
	}
	return newUserResponse(u, rr), nil
}

func (h *AdminHandlers) writeRole(w http.ResponseWriter, r *http.Request, role *rbac.Role) {
	resp, err := h.roleResponse(r.Context(), role)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, resp)
}

func (h *AdminHandlers) writeUser(w http.ResponseWriter, r *http.Request, u *users.User) {
	resp, err := h.userResponse(r.Context(), u)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, resp)
}

package access

import (
	"context"
	"sort"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/rbac"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// UserStore is the subset of the user store the tenant accessor needs
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*users.User, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*users.User, error)
}

// RoleStore is the subset of the role store the tenant accessor needs
type RoleStore interface {
	ListRolesHeldByOrganization(ctx context.Context, orgID int64) ([]*rbac.Role, error)
}

// ProductModuleStore is the subset of the catalog store the accessors need
type ProductModuleStore interface {
	ListProductModulesByOrganization(ctx context.Context, orgID int64) ([]*catalog.ProductModule, error)
	GetProductModulesByIDs(ctx context.Context, ids []int64) ([]*catalog.ProductModule, error)
}

// Tenant scopes admin operations to the principal's organization
type Tenant struct {
	users   UserStore
	roles   RoleStore
	modules ProductModuleStore
}

// NewTenant creates a new Tenant accessor
func NewTenant(users UserStore, roles RoleStore, modules ProductModuleStore) *Tenant {
	return &Tenant{users: users, roles: roles, modules: modules}
}

// OrganizationOf returns the principal's organization id, or InvalidState when it has none
func OrganizationOf(p *auth.Principal) (int64, error) {
	if p == nil || p.OrganizationID == nil {
		return 0, apperrors.InvalidState("User is not assigned to an organization")
	}
	return *p.OrganizationID, nil
}

// ListUsers lists the users of the principal's organization
func (t *Tenant) ListUsers(ctx context.Context, p *auth.Principal) ([]*users.User, error) {
	orgID, err := OrganizationOf(p)
	if err != nil {
		return nil, err
	}
	list, err := t.users.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*users.User{}
	}
	return list, nil
}

// ListRoles lists the roles currently held by users of the principal's organization
func (t *Tenant) ListRoles(ctx context.Context, p *auth.Principal) ([]*rbac.Role, error) {
	orgID, err := OrganizationOf(p)
	if err != nil {
		return nil, err
	}
	list, err := t.roles.ListRolesHeldByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*rbac.Role{}
	}
	return list, nil
}

// ListProductModules lists the product modules of products in the principal's organization
func (t *Tenant) ListProductModules(ctx context.Context, p *auth.Principal) ([]*catalog.ProductModule, error) {
	orgID, err := OrganizationOf(p)
	if err != nil {
		return nil, err
	}
	list, err := t.modules.ListProductModulesByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*catalog.ProductModule{}
	}
	return list, nil
}

// ValidateRoleModules checks that every product-module id exists and belongs to a product of
// the principal's organization. Callers run it before writing a role.
func (t *Tenant) ValidateRoleModules(ctx context.Context, p *auth.Principal, ids []int64) error {
	orgID, err := OrganizationOf(p)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := t.modules.GetProductModulesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]*catalog.ProductModule, len(found))
	for _, pm := range found {
		byID[pm.ID] = pm
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		pm, ok := byID[id]
		if !ok {
			return apperrors.NotFound("Product module not found with id: %d", id)
		}
		if pm.OrganizationID == nil || *pm.OrganizationID != orgID {
			return apperrors.Validation("Product module %d does not belong to your organization", id)
		}
	}
	return nil
}

// RequireUserInOrg loads a user of the principal's organization. Users of other organizations
// are reported as not found.
func (t *Tenant) RequireUserInOrg(ctx context.Context, p *auth.Principal, userID int64) (*users.User, error) {
	if _, err := OrganizationOf(p); err != nil {
		return nil, err
	}
	u, err := t.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.InOrganization(p.OrganizationID) {
		return nil, apperrors.NotFound("User not found with id: %d", userID)
	}
	return u, nil
}

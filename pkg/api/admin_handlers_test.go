package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/orgs"
	"github.com/platinummonkey/prodhub/pkg/products"
	"github.com/platinummonkey/prodhub/pkg/users"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTenants is an environment with two organizations, each with a superadmin owning one
// product that carries every catalog module
type twoTenants struct {
	*testEnv
	orgA, orgB         *orgs.Organization
	adminA, adminB     *users.User
	productA, productB *products.Product
}

func newTwoTenants(t *testing.T) *twoTenants {
	env := newTestEnv(t)
	env.addModule(t, "Roadmap", 1)
	env.addModule(t, "Backlog", 2)

	tt := &twoTenants{testEnv: env}
	tt.orgA = env.addOrg(t, "Acme")
	tt.orgB = env.addOrg(t, "Globex")
	tt.adminA = env.addUser(t, "admin@acme.test", tt.orgA, withSuperadmin)
	tt.adminB = env.addUser(t, "admin@globex.test", tt.orgB, withSuperadmin)
	tt.productA = env.addProduct(t, "Acme App", tt.adminA)
	tt.productB = env.addProduct(t, "Globex App", tt.adminB)
	return tt
}

func TestAdminRoutes_RequireSuperadmin(t *testing.T) {
	env := newTwoTenants(t)
	dev := env.addUser(t, "dev@acme.test", env.orgA)
	token := env.token(t, dev)

	for _, path := range []string{"/api/admin/roles", "/api/admin/users", "/api/admin/modules", "/api/admin/product-modules"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, "GET", path, token, nil)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
	assert.Equal(t, float64(4), testutil.ToFloat64(env.metrics.AccessDeniedTotal.WithLabelValues("forbidden")))
}

func TestCreateRole(t *testing.T) {
	env := newTwoTenants(t)
	token := env.token(t, env.adminA)
	moduleIDs := env.productModuleIDs(t, env.productA)

	rec := env.do(t, "POST", "/api/admin/roles", token, RoleRequest{
		Name:             "Editors",
		Description:      "Can edit",
		ProductModuleIDs: moduleIDs,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RoleResponse
	decode(t, rec, &resp)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "Editors", resp.Name)
	require.Len(t, resp.ProductModules, len(moduleIDs))
	assert.Equal(t, "Acme App", resp.ProductModules[0].Product.ProductName)
}

func TestCreateRole_CrossTenantModuleRejected(t *testing.T) {
	env := newTwoTenants(t)
	token := env.token(t, env.adminA)
	foreign := env.productModuleIDs(t, env.productB)

	rec := env.do(t, "POST", "/api/admin/roles", token, RoleRequest{
		Name:             "Spies",
		ProductModuleIDs: append(env.productModuleIDs(t, env.productA), foreign[0]),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.store.roles, "no role may be written when a module belongs to another tenant")
}

func TestCreateRole_UnknownModule(t *testing.T) {
	env := newTwoTenants(t)
	token := env.token(t, env.adminA)

	rec := env.do(t, "POST", "/api/admin/roles", token, RoleRequest{Name: "Ghosts", ProductModuleIDs: []int64{99999}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, env.store.roles)
}

func TestCreateRole_DuplicateName(t *testing.T) {
	env := newTwoTenants(t)
	env.addRole(t, "Editors")
	token := env.token(t, env.adminA)

	rec := env.do(t, "POST", "/api/admin/roles", token, RoleRequest{Name: "Editors"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]interface{}
	decode(t, rec, &resp)
	assert.Equal(t, "Role with name 'Editors' already exists", resp["error"])
}

func TestListRoles_TenantScoped(t *testing.T) {
	env := newTwoTenants(t)
	roleA := env.addRole(t, "Acme Editors", env.productModuleIDs(t, env.productA)...)
	roleB := env.addRole(t, "Globex Editors", env.productModuleIDs(t, env.productB)...)
	env.addUser(t, "dev@acme.test", env.orgA, withRole(roleA))
	env.addUser(t, "dev@globex.test", env.orgB, withRole(roleB))

	rec := env.do(t, "GET", "/api/admin/roles", env.token(t, env.adminA), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []RoleResponse
	decode(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "Acme Editors", resp[0].Name)
}

func TestUpdateRole(t *testing.T) {
	env := newTwoTenants(t)
	modules := env.productModuleIDs(t, env.productA)
	role := env.addRole(t, "Editors", modules[0])
	token := env.token(t, env.adminA)

	rec := env.do(t, "PUT", fmt.Sprintf("/api/admin/roles/%d", role.ID), token, map[string]interface{}{
		"description":      "Updated",
		"productModuleIds": modules,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RoleResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Editors", resp.Name, "omitted fields are kept")
	assert.Equal(t, "Updated", resp.Description)
	assert.Len(t, resp.ProductModules, len(modules))
}

func TestUpdateRole_OtherTenantIsNotFound(t *testing.T) {
	env := newTwoTenants(t)
	role := env.addRole(t, "Globex Editors", env.productModuleIDs(t, env.productB)...)

	rec := env.do(t, "PUT", fmt.Sprintf("/api/admin/roles/%d", role.ID), env.token(t, env.adminA), map[string]interface{}{
		"name": "Hijacked",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Globex Editors", env.store.roles[role.ID].Name)
}

func TestDeleteRole_ClearsAssignments(t *testing.T) {
	env := newTwoTenants(t)
	role := env.addRole(t, "Editors", env.productModuleIDs(t, env.productA)...)
	dev := env.addUser(t, "dev@acme.test", env.orgA, withRole(role))

	rec := env.do(t, "DELETE", fmt.Sprintf("/api/admin/roles/%d", role.ID), env.token(t, env.adminA), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Nil(t, env.store.users[dev.ID].RoleID)
}

func TestRoleWithoutModules_HeldByOtherTenant(t *testing.T) {
	env := newTwoTenants(t)
	role := env.addRole(t, "Reviewers")
	holder := env.addUser(t, "reviewer@acme.test", env.orgA, withRole(role))
	path := fmt.Sprintf("/api/admin/roles/%d", role.ID)
	token := env.token(t, env.adminB)

	t.Run("rename", func(t *testing.T) {
		rec := env.do(t, "PUT", path, token, map[string]interface{}{"name": "Hijacked"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Reviewers", env.store.roles[role.ID].Name)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(t, "DELETE", path, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, env.store.roles, role.ID)
		require.NotNil(t, env.store.users[holder.ID].RoleID)
		assert.Equal(t, role.ID, *env.store.users[holder.ID].RoleID)
	})

	t.Run("assign", func(t *testing.T) {
		dev := env.addUser(t, "dev@globex.test", env.orgB)
		rec := env.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d", dev.ID), token, UserUpdateRequest{RoleID: &role.ID})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Nil(t, env.store.users[dev.ID].RoleID)
	})

	t.Run("owning tenant keeps control", func(t *testing.T) {
		rec := env.do(t, "PUT", path, env.token(t, env.adminA), map[string]interface{}{"name": "Senior Reviewers"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Senior Reviewers", env.store.roles[role.ID].Name)
	})
}

func TestListUsers_TenantScoped(t *testing.T) {
	env := newTwoTenants(t)
	env.addUser(t, "dev@acme.test", env.orgA)
	env.addUser(t, "dev@globex.test", env.orgB)

	rec := env.do(t, "GET", "/api/admin/users", env.token(t, env.adminA), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []UserResponse
	decode(t, rec, &resp)
	require.Len(t, resp, 2)
	for _, u := range resp {
		assert.Contains(t, u.Email, "@acme.test")
	}
}

func TestCreateUser(t *testing.T) {
	env := newTwoTenants(t)
	role := env.addRole(t, "Editors", env.productModuleIDs(t, env.productA)...)

	rec := env.do(t, "POST", "/api/admin/users", env.token(t, env.adminA), UserRequest{
		Email:    "New@Acme.test",
		Password: "hunter22",
		RoleID:   &role.ID,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp UserResponse
	decode(t, rec, &resp)
	assert.Equal(t, "new@acme.test", resp.Email)
	assert.False(t, resp.IsSuperadmin)
	require.NotNil(t, resp.Role)
	assert.Equal(t, "Editors", resp.Role.Name)

	created := env.store.users[resp.ID]
	require.NotNil(t, created)
	assert.Equal(t, env.orgA.ID, *created.OrganizationID)
	assert.NotEqual(t, "hunter22", created.PasswordHash)

	// the new account can log in
	rec = env.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "new@acme.test", Password: "hunter22"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTwoTenants(t)

	rec := env.do(t, "POST", "/api/admin/users", env.token(t, env.adminA), UserRequest{Email: "short@acme.test", Password: "123"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUser_ForeignRole(t *testing.T) {
	env := newTwoTenants(t)
	role := env.addRole(t, "Globex Editors", env.productModuleIDs(t, env.productB)...)

	rec := env.do(t, "POST", "/api/admin/users", env.token(t, env.adminA), UserRequest{
		Email:    "new@acme.test",
		Password: "hunter22",
		RoleID:   &role.ID,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, err := env.store.GetUserByEmail(t.Context(), "new@acme.test")
	assert.Error(t, err, "no user may be written")
}

func TestUpdateUser_OtherTenantIsNotFound(t *testing.T) {
	env := newTwoTenants(t)
	foreign := env.addUser(t, "dev@globex.test", env.orgB)

	rec := env.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d", foreign.ID), env.token(t, env.adminA), UserUpdateRequest{})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUser_AssignsRole(t *testing.T) {
	env := newTwoTenants(t)
	role := env.addRole(t, "Editors", env.productModuleIDs(t, env.productA)...)
	dev := env.addUser(t, "dev@acme.test", env.orgA)

	rec := env.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d", dev.ID), env.token(t, env.adminA), UserUpdateRequest{RoleID: &role.ID})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, env.store.users[dev.ID].RoleID)
	assert.Equal(t, role.ID, *env.store.users[dev.ID].RoleID)
}

func TestListModules(t *testing.T) {
	env := newTwoTenants(t)

	rec := env.do(t, "GET", "/api/admin/modules", env.token(t, env.adminA), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []catalog.Module
	decode(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "Roadmap", resp[0].Name)
	assert.Equal(t, "Backlog", resp[1].Name)
}

func TestListProductModules_TenantScoped(t *testing.T) {
	env := newTwoTenants(t)

	rec := env.do(t, "GET", "/api/admin/product-modules", env.token(t, env.adminA), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []catalog.ProductModule
	decode(t, rec, &resp)
	require.Len(t, resp, 2)
	for _, pm := range resp {
		assert.Equal(t, env.productA.ID, pm.Product.ID)
	}
}

func TestGetUserRoleModules(t *testing.T) {
	env := newTwoTenants(t)
	modules := env.productModuleIDs(t, env.productA)
	role := env.addRole(t, "Editors", modules[0])
	dev := env.addUser(t, "dev@acme.test", env.orgA, withRole(role))
	other := env.addUser(t, "other@acme.test", env.orgA)
	path := fmt.Sprintf("/api/admin/users/%d/role-modules", dev.ID)

	t.Run("self", func(t *testing.T) {
		rec := env.do(t, "GET", path, env.token(t, dev), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []catalog.ProductModule
		decode(t, rec, &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, modules[0], resp[0].ID)
	})

	t.Run("superadmin of the same organization", func(t *testing.T) {
		rec := env.do(t, "GET", path, env.token(t, env.adminA), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("peer", func(t *testing.T) {
		rec := env.do(t, "GET", path, env.token(t, other), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("superadmin of another organization", func(t *testing.T) {
		rec := env.do(t, "GET", path, env.token(t, env.adminB), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("user without role", func(t *testing.T) {
		rec := env.do(t, "GET", fmt.Sprintf("/api/admin/users/%d/role-modules", other.ID), env.token(t, other), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

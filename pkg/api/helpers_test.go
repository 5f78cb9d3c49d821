package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/backlog"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/hypothesis"
	"github.com/platinummonkey/prodhub/pkg/middleware"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/orgs"
	"github.com/platinummonkey/prodhub/pkg/products"
	"github.com/platinummonkey/prodhub/pkg/rbac"
	"github.com/platinummonkey/prodhub/pkg/roadmap"
	"github.com/platinummonkey/prodhub/pkg/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "secret123"

// memStore is an in-memory implementation of the user, organization, role, catalog,
// product, backlog and hypothesis stores
type memStore struct {
	mu sync.Mutex

	nextID         int64
	orgs           map[int64]*orgs.Organization
	users          map[int64]*users.User
	roles          map[int64]*rbac.Role
	modules        map[int64]*catalog.Module
	productModules map[int64]*catalog.ProductModule
	products       map[int64]*products.Product
	backlogs       map[int64]*backlog.Backlog
	hypotheses     map[int64]*hypothesis.Hypothesis
}

func newMemStore() *memStore {
	return &memStore{
		nextID:         100,
		orgs:           map[int64]*orgs.Organization{},
		users:          map[int64]*users.User{},
		roles:          map[int64]*rbac.Role{},
		modules:        map[int64]*catalog.Module{},
		productModules: map[int64]*catalog.ProductModule{},
		products:       map[int64]*products.Product{},
		backlogs:       map[int64]*backlog.Backlog{},
		hypotheses:     map[int64]*hypothesis.Hypothesis{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// organizations

func (m *memStore) CreateOrganization(ctx context.Context, org *orgs.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	org.ID = m.id()
	org.CreatedAt, org.UpdatedAt = time.Now(), time.Now()
	m.orgs[org.ID] = org
	return nil
}

func (m *memStore) GetOrganization(ctx context.Context, id int64) (*orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, apperrors.NotFound("Organization not found with id: %d", id)
	}
	return org, nil
}

func (m *memStore) ListOrganizations(ctx context.Context) ([]*orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*orgs.Organization
	for _, org := range m.orgs {
		list = append(list, org)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memStore) UpdateOrganization(ctx context.Context, org *orgs.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[org.ID]; !ok {
		return apperrors.NotFound("Organization not found with id: %d", org.ID)
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *memStore) DeleteOrganization(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[id]; !ok {
		return 0, apperrors.NotFound("Organization not found with id: %d", id)
	}
	var removed int64
	for uid, u := range m.users {
		if u.OrganizationID != nil && *u.OrganizationID == id {
			delete(m.users, uid)
			removed++
			for _, p := range m.products {
				if p.UserID != nil && *p.UserID == uid {
					p.UserID, p.OrganizationID = nil, nil
				}
			}
		}
	}
	delete(m.orgs, id)
	return removed, nil
}

func (m *memStore) CountOrganizations(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.orgs)), nil
}

// users

func (m *memStore) CreateUser(ctx context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperrors.Duplicate("User with email '%s' already exists", u.Email)
		}
	}
	u.ID = m.id()
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("User not found with id: %d", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("User not found with email: %s", email)
}

func (m *memStore) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) listUsers(keep func(*users.User) bool) []*users.User {
	var list []*users.User
	for _, u := range m.users {
		if keep(u) {
			cp := *u
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })
	return list
}

func (m *memStore) ListByOrganization(ctx context.Context, orgID int64) ([]*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listUsers(func(u *users.User) bool {
		return u.OrganizationID != nil && *u.OrganizationID == orgID
	}), nil
}

func (m *memStore) ListSuperadmins(ctx context.Context, orgID int64) ([]*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listUsers(func(u *users.User) bool {
		return u.IsSuperadmin && u.OrganizationID != nil && *u.OrganizationID == orgID
	}), nil
}

func (m *memStore) UpdateUser(ctx context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return apperrors.NotFound("User not found with id: %d", u.ID)
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperrors.NotFound("User not found with id: %d", id)
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) CountUsers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

// roles

func (m *memStore) ListRolesHeldByOrganization(ctx context.Context, orgID int64) ([]*rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var list []*rbac.Role
	for _, u := range m.users {
		if u.RoleID == nil || u.OrganizationID == nil || *u.OrganizationID != orgID || seen[*u.RoleID] {
			continue
		}
		if role, ok := m.roles[*u.RoleID]; ok {
			seen[role.ID] = true
			list = append(list, role)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *memStore) RoleHeldOutsideOrganization(ctx context.Context, roleID, orgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.RoleID != nil && *u.RoleID == roleID && (u.OrganizationID == nil || *u.OrganizationID != orgID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetRole(ctx context.Context, id int64) (*rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return nil, apperrors.NotFound("Role not found with id: %d", id)
	}
	cp := *role
	return &cp, nil
}

func (m *memStore) RoleNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range m.roles {
		if role.Name == name && role.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateRole(ctx context.Context, role *rbac.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role.ID = m.id()
	role.CreatedAt, role.UpdatedAt = time.Now(), time.Now()
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *memStore) UpdateRole(ctx context.Context, role *rbac.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return apperrors.NotFound("Role not found with id: %d", role.ID)
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *memStore) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return apperrors.NotFound("Role not found with id: %d", id)
	}
	delete(m.roles, id)
	for _, u := range m.users {
		if u.RoleID != nil && *u.RoleID == id {
			u.RoleID = nil
		}
	}
	return nil
}

// catalog

func (m *memStore) ListActiveModules(ctx context.Context) ([]*catalog.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*catalog.Module
	for _, mod := range m.modules {
		if mod.IsActive {
			list = append(list, mod)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DisplayOrder < list[j].DisplayOrder })
	return list, nil
}

func (m *memStore) listProductModules(keep func(*catalog.ProductModule) bool) []*catalog.ProductModule {
	list := []*catalog.ProductModule{}
	for _, pm := range m.productModules {
		if keep(pm) {
			list = append(list, pm)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *memStore) ListProductModules(ctx context.Context, productID int64) ([]*catalog.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listProductModules(func(pm *catalog.ProductModule) bool { return pm.Product.ID == productID }), nil
}

func (m *memStore) ListProductModulesByOrganization(ctx context.Context, orgID int64) ([]*catalog.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listProductModules(func(pm *catalog.ProductModule) bool {
		return pm.OrganizationID != nil && *pm.OrganizationID == orgID
	}), nil
}

func (m *memStore) ListProductModulesForRole(ctx context.Context, roleID int64) ([]*catalog.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return []*catalog.ProductModule{}, nil
	}
	return m.listProductModules(func(pm *catalog.ProductModule) bool { return role.HasProductModule(pm.ID) }), nil
}

func (m *memStore) GetProductModulesByIDs(ctx context.Context, ids []int64) ([]*catalog.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return m.listProductModules(func(pm *catalog.ProductModule) bool { return want[pm.ID] }), nil
}

func (m *memStore) UpdateProductModule(ctx context.Context, productID, moduleID int64, isEnabled bool, completion int) (*catalog.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pm := range m.productModules {
		if pm.Product.ID == productID && pm.Module.ID == moduleID {
			pm.IsEnabled = isEnabled
			pm.CompletionPercentage = completion
			return pm, nil
		}
	}
	return nil, apperrors.NotFound("Module %d is not attached to product %d", moduleID, productID)
}

// products

func (m *memStore) CreateProduct(ctx context.Context, p *products.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	m.products[p.ID] = p
	for _, mod := range m.modules {
		if !mod.IsActive {
			continue
		}
		pm := &catalog.ProductModule{
			ID:             m.id(),
			Product:        catalog.ProductRef{ID: p.ID, ProductName: p.Name},
			OrganizationID: p.OrganizationID,
			Module:         *mod,
		}
		m.productModules[pm.ID] = pm
	}
	return nil
}

func (m *memStore) GetProduct(ctx context.Context, id int64) (*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, apperrors.NotFound("Product not found with id: %d", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListOwnedProducts(ctx context.Context, userID int64) ([]*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*products.Product
	for _, p := range m.products {
		if p.OwnedBy(userID) {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *memStore) ListProductsByRole(ctx context.Context, roleID int64) ([]*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return nil, nil
	}
	seen := map[int64]bool{}
	var list []*products.Product
	for _, pmID := range role.ProductModuleIDs {
		pm, ok := m.productModules[pmID]
		if !ok || seen[pm.Product.ID] {
			continue
		}
		seen[pm.Product.ID] = true
		list = append(list, m.products[pm.Product.ID])
	}
	return list, nil
}

func (m *memStore) RoleGrantsProduct(ctx context.Context, roleID, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return false, nil
	}
	for _, pmID := range role.ProductModuleIDs {
		if pm, ok := m.productModules[pmID]; ok && pm.Product.ID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, p *products.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return apperrors.NotFound("Product not found with id: %d", p.ID)
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return apperrors.NotFound("Product not found with id: %d", id)
	}
	delete(m.products, id)
	return nil
}

// backlog and hypothesis

func (m *memStore) GetBacklog(ctx context.Context, productID int64) (*backlog.Backlog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.backlogs[productID]
	if !ok {
		return nil, apperrors.NotFound("Backlog not found for product: %d", productID)
	}
	return b, nil
}

func (m *memStore) EpicsByID(ctx context.Context, productID int64) (map[string]backlog.Epic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]backlog.Epic{}
	if b, ok := m.backlogs[productID]; ok {
		for _, e := range b.Epics {
			out[e.EpicID] = e
		}
	}
	return out, nil
}

func (m *memStore) SaveBacklog(ctx context.Context, productID int64, epics []backlog.Epic) (*backlog.Backlog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &backlog.Backlog{ID: m.id(), ProductID: productID, Epics: epics}
	m.backlogs[productID] = b
	return b, nil
}

func (m *memStore) GetHypothesis(ctx context.Context, productID int64) (*hypothesis.Hypothesis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hypotheses[productID]
	if !ok {
		return nil, apperrors.NotFound("Hypothesis not found for product: %d", productID)
	}
	return h, nil
}

func (m *memStore) SaveHypothesis(ctx context.Context, h *hypothesis.Hypothesis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.id()
	m.hypotheses[h.ProductID] = h
	return nil
}

// mockRoadmaps is a mock implementation of RoadmapStore
type mockRoadmaps struct {
	listFunc         func(productID int64) ([]*roadmap.Roadmap, error)
	getFunc          func(productID int64, year, quarter int) (*roadmap.Roadmap, error)
	saveFunc         func(productID int64, year, quarter int, items []roadmap.Item) (*roadmap.Roadmap, error)
	deleteFunc       func(productID int64, year, quarter int) error
	assignedFunc     func(productID int64, exclude *roadmap.Period) ([]string, error)
	effortRatingFunc func(productID int64, year, quarter int, epicID string, rating *int) error
	epicsFunc        func(productID int64, year, quarter int) ([]capacity.EpicRef, error)
}

func (m *mockRoadmaps) ListRoadmaps(ctx context.Context, productID int64) ([]*roadmap.Roadmap, error) {
	if m.listFunc != nil {
		return m.listFunc(productID)
	}
	return nil, nil
}

func (m *mockRoadmaps) GetRoadmap(ctx context.Context, productID int64, year, quarter int) (*roadmap.Roadmap, error) {
	if m.getFunc != nil {
		return m.getFunc(productID, year, quarter)
	}
	return nil, apperrors.NotFound("Roadmap not found for Q%d %d", quarter, year)
}

func (m *mockRoadmaps) SaveRoadmap(ctx context.Context, productID int64, year, quarter int, items []roadmap.Item) (*roadmap.Roadmap, error) {
	if m.saveFunc != nil {
		return m.saveFunc(productID, year, quarter, items)
	}
	return &roadmap.Roadmap{ProductID: productID, Year: year, Quarter: quarter, Items: items}, nil
}

func (m *mockRoadmaps) DeleteRoadmap(ctx context.Context, productID int64, year, quarter int) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(productID, year, quarter)
	}
	return nil
}

func (m *mockRoadmaps) ListYears(ctx context.Context, productID int64) ([]int, error) {
	return nil, nil
}

func (m *mockRoadmaps) ListQuarters(ctx context.Context, productID int64, year int) ([]int, error) {
	return []int{1, 3}, nil
}

func (m *mockRoadmaps) AssignedEpicIDs(ctx context.Context, productID int64, exclude *roadmap.Period) ([]string, error) {
	if m.assignedFunc != nil {
		return m.assignedFunc(productID, exclude)
	}
	return nil, nil
}

func (m *mockRoadmaps) UpdateEffortRating(ctx context.Context, productID int64, year, quarter int, epicID string, rating *int) error {
	if m.effortRatingFunc != nil {
		return m.effortRatingFunc(productID, year, quarter, epicID, rating)
	}
	return nil
}

func (m *mockRoadmaps) RoadmapEpics(ctx context.Context, productID int64, year, quarter int) ([]capacity.EpicRef, error) {
	if m.epicsFunc != nil {
		return m.epicsFunc(productID, year, quarter)
	}
	return nil, nil
}

// mockCapacity is a mock implementation of CapacityStore
type mockCapacity struct {
	teams         []*capacity.Team
	plan          *capacity.Plan
	configs       []capacity.RatingConfig
	createTeamErr error
	getOrSeedFunc func(productID int64, year, quarter int, seed capacity.SeedFunc) (*capacity.Plan, error)
	savePlanFunc  func(productID int64, year, quarter int, unit *string, efforts []capacity.EpicEffort) (*capacity.Plan, error)
	deactivated   []int64
}

func (m *mockCapacity) ListTeams(ctx context.Context, productID int64) ([]*capacity.Team, error) {
	if m.teams == nil {
		return []*capacity.Team{}, nil
	}
	return m.teams, nil
}

func (m *mockCapacity) GetTeam(ctx context.Context, productID, teamID int64) (*capacity.Team, error) {
	for _, t := range m.teams {
		if t.ID == teamID && t.ProductID == productID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("Team not found with id: %d", teamID)
}

func (m *mockCapacity) CreateTeam(ctx context.Context, team *capacity.Team) error {
	if m.createTeamErr != nil {
		return m.createTeamErr
	}
	team.ID = int64(len(m.teams) + 1)
	m.teams = append(m.teams, team)
	return nil
}

func (m *mockCapacity) UpdateTeam(ctx context.Context, team *capacity.Team) error {
	return nil
}

func (m *mockCapacity) DeactivateTeam(ctx context.Context, productID, teamID int64) error {
	m.deactivated = append(m.deactivated, teamID)
	return nil
}

func (m *mockCapacity) FindPlan(ctx context.Context, productID int64, year, quarter int) (*capacity.Plan, error) {
	if m.plan == nil {
		return nil, apperrors.NotFound("Capacity plan not found for Q%d %d", quarter, year)
	}
	return m.plan, nil
}

func (m *mockCapacity) GetOrSeedPlan(ctx context.Context, productID int64, year, quarter int, seed capacity.SeedFunc) (*capacity.Plan, error) {
	if m.getOrSeedFunc != nil {
		return m.getOrSeedFunc(productID, year, quarter, seed)
	}
	return &capacity.Plan{ProductID: productID, Year: year, Quarter: quarter, EffortUnit: capacity.DefaultEffortUnit}, nil
}

func (m *mockCapacity) SavePlan(ctx context.Context, productID int64, year, quarter int, unit *string, efforts []capacity.EpicEffort) (*capacity.Plan, error) {
	if m.savePlanFunc != nil {
		return m.savePlanFunc(productID, year, quarter, unit, efforts)
	}
	return &capacity.Plan{ID: 1, ProductID: productID, Year: year, Quarter: quarter, EpicEfforts: efforts}, nil
}

func (m *mockCapacity) ListRatingConfigs(ctx context.Context, productID int64) ([]capacity.RatingConfig, error) {
	return m.configs, nil
}

func (m *mockCapacity) UpsertRatingConfig(ctx context.Context, cfg *capacity.RatingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ID = 1
	m.configs = append(m.configs, *cfg)
	return nil
}

// testEnv wires a Server over in-memory stores, miniredis and a private Prometheus registry
type testEnv struct {
	store    *memStore
	roadmaps *mockRoadmaps
	capacity *mockCapacity
	tokens   *auth.TokenManager
	redis    *miniredis.Miniredis
	metrics  *observability.Metrics
	server   *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	env := &testEnv{
		store:    newMemStore(),
		roadmaps: &mockRoadmaps{},
		capacity: &mockCapacity{},
		tokens:   auth.NewTokenManager("test-secret-with-enough-length", time.Hour, ""),
		redis:    mr,
		metrics:  metrics,
	}
	env.server = NewServer(Stores{
		Orgs:       env.store,
		Users:      env.store,
		Roles:      env.store,
		Catalog:    env.store,
		Products:   env.store,
		Backlogs:   env.store,
		Hypotheses: env.store,
		Roadmaps:   env.roadmaps,
		Capacity:   env.capacity,
	}, Options{
		Tokens:       env.tokens,
		Passwords:    auth.NewPasswordHasher(bcrypt.MinCost),
		Revocations:  auth.NewRevocationList(client),
		LoginLimiter: middleware.NewLoginRateLimiter(client, middleware.LoginRateLimitConfig{MaxAttempts: 3, Window: time.Minute}, metrics),
		Metrics:      metrics,
		Registry:     registry,
	})
	return env
}

func (e *testEnv) addOrg(t *testing.T, name string) *orgs.Organization {
	t.Helper()
	org := &orgs.Organization{Name: name}
	require.NoError(t, e.store.CreateOrganization(context.Background(), org))
	return org
}

func (e *testEnv) addUser(t *testing.T, email string, org *orgs.Organization, configure ...func(*users.User)) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	u := &users.User{Email: email, PasswordHash: string(hash)}
	if org != nil {
		u.OrganizationID = &org.ID
	}
	for _, fn := range configure {
		fn(u)
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) addModule(t *testing.T, name string, order int) *catalog.Module {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	mod := &catalog.Module{ID: e.store.id(), Name: name, IsActive: true, DisplayOrder: order}
	e.store.modules[mod.ID] = mod
	return mod
}

func (e *testEnv) addProduct(t *testing.T, name string, owner *users.User) *products.Product {
	t.Helper()
	p := &products.Product{Name: name, UserID: &owner.ID, OrganizationID: owner.OrganizationID}
	require.NoError(t, e.store.CreateProduct(context.Background(), p))
	return p
}

// productModuleIDs returns the ids of the product modules attached to the product
func (e *testEnv) productModuleIDs(t *testing.T, p *products.Product) []int64 {
	t.Helper()
	list, err := e.store.ListProductModules(context.Background(), p.ID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(list))
	for _, pm := range list {
		ids = append(ids, pm.ID)
	}
	return ids
}

func (e *testEnv) addRole(t *testing.T, name string, productModuleIDs ...int64) *rbac.Role {
	t.Helper()
	role := &rbac.Role{Name: name, ProductModuleIDs: productModuleIDs}
	require.NoError(t, e.store.CreateRole(context.Background(), role))
	return role
}

func (e *testEnv) token(t *testing.T, u *users.User) string {
	t.Helper()
	token, err := e.tokens.Issue(u)
	require.NoError(t, err)
	return token.Value
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.0.2.10:4321"

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func withSuperadmin(u *users.User)       { u.IsSuperadmin = true }
func withGlobalSuperadmin(u *users.User) { u.IsGlobalSuperadmin = true }

func withRole(role *rbac.Role) func(*users.User) {
	return func(u *users.User) { u.RoleID = &role.ID }
}

var _ http.Handler = (*Server)(nil)

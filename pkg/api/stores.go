package api

import (
	"context"

	"github.com/platinummonkey/prodhub/pkg/backlog"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/hypothesis"
	"github.com/platinummonkey/prodhub/pkg/orgs"
	"github.com/platinummonkey/prodhub/pkg/products"
	"github.com/platinummonkey/prodhub/pkg/rbac"
	"github.com/platinummonkey/prodhub/pkg/roadmap"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// RoleStore is the role persistence used by the admin handlers
type RoleStore interface {
	ListRolesHeldByOrganization(ctx context.Context, orgID int64) ([]*rbac.Role, error)
	RoleHeldOutsideOrganization(ctx context.Context, roleID, orgID int64) (bool, error)
	GetRole(ctx context.Context, id int64) (*rbac.Role, error)
	RoleNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	CreateRole(ctx context.Context, role *rbac.Role) error
	UpdateRole(ctx context.Context, role *rbac.Role) error
	DeleteRole(ctx context.Context, id int64) error
}

// CatalogStore is the module catalog and product-module persistence
type CatalogStore interface {
	ListActiveModules(ctx context.Context) ([]*catalog.Module, error)
	ListProductModules(ctx context.Context, productID int64) ([]*catalog.ProductModule, error)
	ListProductModulesByOrganization(ctx context.Context, orgID int64) ([]*catalog.ProductModule, error)
	ListProductModulesForRole(ctx context.Context, roleID int64) ([]*catalog.ProductModule, error)
	GetProductModulesByIDs(ctx context.Context, ids []int64) ([]*catalog.ProductModule, error)
	UpdateProductModule(ctx context.Context, productID, moduleID int64, isEnabled bool, completion int) (*catalog.ProductModule, error)
}

// ProductStore is the product persistence
type ProductStore interface {
	CreateProduct(ctx context.Context, product *products.Product) error
	GetProduct(ctx context.Context, id int64) (*products.Product, error)
	ListOwnedProducts(ctx context.Context, userID int64) ([]*products.Product, error)
	ListProductsByRole(ctx context.Context, roleID int64) ([]*products.Product, error)
	RoleGrantsProduct(ctx context.Context, roleID, productID int64) (bool, error)
	UpdateProduct(ctx context.Context, product *products.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// BacklogStore is the backlog persistence
type BacklogStore interface {
	GetBacklog(ctx context.Context, productID int64) (*backlog.Backlog, error)
	EpicsByID(ctx context.Context, productID int64) (map[string]backlog.Epic, error)
	SaveBacklog(ctx context.Context, productID int64, epics []backlog.Epic) (*backlog.Backlog, error)
}

// HypothesisStore is the hypothesis persistence
type HypothesisStore interface {
	GetHypothesis(ctx context.Context, productID int64) (*hypothesis.Hypothesis, error)
	SaveHypothesis(ctx context.Context, h *hypothesis.Hypothesis) error
}

// RoadmapStore is the quarterly roadmap persistence
type RoadmapStore interface {
	ListRoadmaps(ctx context.Context, productID int64) ([]*roadmap.Roadmap, error)
	GetRoadmap(ctx context.Context, productID int64, year, quarter int) (*roadmap.Roadmap, error)
	SaveRoadmap(ctx context.Context, productID int64, year, quarter int, items []roadmap.Item) (*roadmap.Roadmap, error)
	DeleteRoadmap(ctx context.Context, productID int64, year, quarter int) error
	ListYears(ctx context.Context, productID int64) ([]int, error)
	ListQuarters(ctx context.Context, productID int64, year int) ([]int, error)
	AssignedEpicIDs(ctx context.Context, productID int64, exclude *roadmap.Period) ([]string, error)
	UpdateEffortRating(ctx context.Context, productID int64, year, quarter int, epicID string, rating *int) error
	RoadmapEpics(ctx context.Context, productID int64, year, quarter int) ([]capacity.EpicRef, error)
}

// CapacityStore is the team, capacity plan and rating config persistence
type CapacityStore interface {
	ListTeams(ctx context.Context, productID int64) ([]*capacity.Team, error)
	GetTeam(ctx context.Context, productID, teamID int64) (*capacity.Team, error)
	CreateTeam(ctx context.Context, team *capacity.Team) error
	UpdateTeam(ctx context.Context, team *capacity.Team) error
	DeactivateTeam(ctx context.Context, productID, teamID int64) error

	FindPlan(ctx context.Context, productID int64, year, quarter int) (*capacity.Plan, error)
	GetOrSeedPlan(ctx context.Context, productID int64, year, quarter int, seed capacity.SeedFunc) (*capacity.Plan, error)
	SavePlan(ctx context.Context, productID int64, year, quarter int, effortUnit *string, efforts []capacity.EpicEffort) (*capacity.Plan, error)

	ListRatingConfigs(ctx context.Context, productID int64) ([]capacity.RatingConfig, error)
	UpsertRatingConfig(ctx context.Context, cfg *capacity.RatingConfig) error
}

// Stores bundles the persistence the server delegates to
type Stores struct {
	Orgs       orgs.Service
	Users      users.Service
	Roles      RoleStore
	Catalog    CatalogStore
	Products   ProductStore
	Backlogs   BacklogStore
	Hypotheses HypothesisStore
	Roadmaps   RoadmapStore
	Capacity   CapacityStore
}

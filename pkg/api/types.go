package api

import (
	"time"

	"github.com/platinummonkey/prodhub/pkg/backlog"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/rbac"
	"github.com/platinummonkey/prodhub/pkg/roadmap"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// LoginRequest is the body of both login endpoints
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by POST /api/auth/login and /api/auth/refresh
type LoginResponse struct {
	Token        string `json:"token"`
	Type         string `json:"type"`
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	IsSuperadmin bool   `json:"isSuperadmin"`
}

// CRMLoginResponse is returned by POST /api/crm/login
type CRMLoginResponse struct {
	Token              string `json:"token"`
	UserID             int64  `json:"userId"`
	Email              string `json:"email"`
	IsGlobalSuperAdmin bool   `json:"isGlobalSuperAdmin"`
}

// RoleRequest creates a role
type RoleRequest struct {
	Name             string  `json:"name" validate:"required,max=100"`
	Description      string  `json:"description" validate:"max=1000"`
	ProductModuleIDs []int64 `json:"productModuleIds"`
}

// RoleUpdateRequest updates a role. Absent fields keep their value.
type RoleUpdateRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description      *string  `json:"description" validate:"omitempty,max=1000"`
	ProductModuleIDs *[]int64 `json:"productModuleIds"`
}

// RoleResponse is a role with its product modules expanded
type RoleResponse struct {
	ID             int64                    `json:"id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	ProductModules []*catalog.ProductModule `json:"productModules"`
	CreatedAt      time.Time                `json:"createdAt"`
}

// UserRequest creates a user in the caller's organization
type UserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	RoleID   *int64 `json:"roleId"`
}

// UserUpdateRequest assigns or clears a user's role
type UserUpdateRequest struct {
	RoleID *int64 `json:"roleId"`
}

// UserResponse is a user with its role expanded
type UserResponse struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	IsSuperadmin bool          `json:"isSuperadmin"`
	Role         *RoleResponse `json:"role"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// OrganizationRequest creates or updates an organization
type OrganizationRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

// SuperadminRequest creates a superadmin of an organization
type SuperadminRequest struct {
	Email          string `json:"email" validate:"required,email,max=255"`
	Password       string `json:"password" validate:"required,min=6"`
	OrganizationID int64  `json:"organizationId" validate:"required"`
}

// SuperadminUpdateRequest changes a superadmin's email and optionally the password
type SuperadminUpdateRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// SuperadminFlagRequest grants or revokes the superadmin flag
type SuperadminFlagRequest struct {
	IsSuperadmin *bool `json:"isSuperadmin" validate:"required"`
}

// CRMUserResponse is a user as shown in the CRM
type CRMUserResponse struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	IsSuperadmin       bool   `json:"isSuperadmin"`
	IsGlobalSuperAdmin bool   `json:"isGlobalSuperAdmin"`
	OrganizationID     *int64 `json:"organizationId"`
}

// ProductRequest creates or renames a product
type ProductRequest struct {
	ProductName string `json:"productName" validate:"required,max=255"`
}

// ProductModuleRequest toggles a product module
type ProductModuleRequest struct {
	IsEnabled            bool `json:"isEnabled"`
	CompletionPercentage int  `json:"completionPercentage" validate:"min=0,max=100"`
}

// BacklogRequest replaces a product's backlog
type BacklogRequest struct {
	Epics []backlog.Epic `json:"epics" validate:"dive"`
}

// HypothesisRequest replaces a product's hypothesis
type HypothesisRequest struct {
	HypothesisStatement string `json:"hypothesisStatement"`
	SuccessMetrics      string `json:"successMetrics"`
	Assumptions         string `json:"assumptions"`
	Initiatives         string `json:"initiatives"`
	Themes              string `json:"themes"`
}

// RoadmapRequest saves a quarter's roadmap. Year and quarter come from the path when the
// route carries them.
type RoadmapRequest struct {
	Year         int            `json:"year"`
	Quarter      int            `json:"quarter"`
	RoadmapItems []roadmap.Item `json:"roadmapItems" validate:"dive"`
}

// EffortRatingRequest sets or clears an item's stored effort rating
type EffortRatingRequest struct {
	EffortRating *int `json:"effortRating" validate:"omitempty,min=1,max=5"`
}

// TeamRequest creates or updates a team
type TeamRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

// CapacityPlanRequest saves a quarter's capacity plan
type CapacityPlanRequest struct {
	EffortUnit  *string               `json:"effortUnit" validate:"omitempty,max=50"`
	EpicEfforts []capacity.EpicEffort `json:"epicEfforts" validate:"dive"`
}

func newRoleResponse(role *rbac.Role, modules []*catalog.ProductModule) *RoleResponse {
	if modules == nil {
		modules = []*catalog.ProductModule{}
	}
	return &RoleResponse{
		ID:             role.ID,
		Name:           role.Name,
		Description:    role.Description,
		ProductModules: modules,
		CreatedAt:      role.CreatedAt,
	}
}

func newUserResponse(u *users.User, role *RoleResponse) *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		IsSuperadmin: u.IsSuperadmin,
		Role:         role,
		CreatedAt:    u.CreatedAt,
	}
}

func newCRMUserResponse(u *users.User) *CRMUserResponse {
	return &CRMUserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		IsSuperadmin:       u.IsSuperadmin,
		IsGlobalSuperAdmin: u.IsGlobalSuperadmin,
		OrganizationID:     u.OrganizationID,
	}
}

package users

import (
	"context"
	"time"
)

// User is an account. OrganizationID is nil only for bootstrap accounts.
type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	OrganizationID     *int64    `json:"organizationId"`
	IsSuperadmin       bool      `json:"isSuperadmin"`
	IsGlobalSuperadmin bool      `json:"isGlobalSuperAdmin"`
	RoleID             *int64    `json:"roleId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// InOrganization reports whether the user belongs to the given organization
func (u *User) InOrganization(orgID *int64) bool {
	return u.OrganizationID != nil && orgID != nil && *u.OrganizationID == *orgID
}

// Service defines the user store
type Service interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)

	ListByOrganization(ctx context.Context, orgID int64) ([]*User, error)
	ListSuperadmins(ctx context.Context, orgID int64) ([]*User, error)

	// UpdateUser persists email, password hash, role and superadmin flag
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id int64) error

	CountUsers(ctx context.Context) (int64, error)
}

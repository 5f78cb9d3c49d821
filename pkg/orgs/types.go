package orgs

import (
	"context"
	"time"
)

// Organization is a tenant: the isolation boundary for users and products
type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Service defines the organization store
type Service interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, org *Organization) error

	// DeleteOrganization removes the organization together with its users.
	// Products owned by those users are kept with their owner and
	// organization cleared. It returns the number of users removed.
	DeleteOrganization(ctx context.Context, id int64) (int64, error)

	CountOrganizations(ctx context.Context) (int64, error)
}

package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/platinummonkey/prodhub/pkg/contextkeys"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID             int64
	Email              string
	OrganizationID     *int64
	IsSuperadmin       bool
	IsGlobalSuperadmin bool
	RoleID             *int64

	// TokenID and ExpiresAt identify the credential for revocation
	TokenID   string
	ExpiresAt time.Time
}

// NewPrincipal builds a principal from a user record
func NewPrincipal(u *users.User) *Principal {
	return &Principal{
		UserID:             u.ID,
		Email:              u.Email,
		OrganizationID:     u.OrganizationID,
		IsSuperadmin:       u.IsSuperadmin,
		IsGlobalSuperadmin: u.IsGlobalSuperadmin,
		RoleID:             u.RoleID,
	}
}

// SameOrganization reports whether the principal belongs to orgID
func (p *Principal) SameOrganization(orgID *int64) bool {
	return p.OrganizationID != nil && orgID != nil && *p.OrganizationID == *orgID
}

// UserIDString is the user id as carried in logs and the token subject
func (p *Principal) UserIDString() string {
	return strconv.FormatInt(p.UserID, 10)
}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}

// PrincipalFromContext returns the principal stored by the auth middleware
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return p, ok && p != nil
}

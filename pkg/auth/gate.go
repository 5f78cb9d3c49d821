package auth

import "github.com/platinummonkey/prodhub/pkg/apperrors"

// RequireOrgAdmin allows organization superadmins
func RequireOrgAdmin(p *Principal) error {
	if p == nil || !p.IsSuperadmin {
		return apperrors.Forbidden("Superadmin access required")
	}
	return nil
}

// RequireGlobalAdmin allows global superadmins
func RequireGlobalAdmin(p *Principal) error {
	if p == nil || !p.IsGlobalSuperadmin {
		return apperrors.Forbidden("Global superadmin access required")
	}
	return nil
}

// RequireSelfOrAbove allows the user themself, or a superadmin of the user's organization
func RequireSelfOrAbove(p *Principal, userID int64, userOrgID *int64) error {
	if p == nil {
		return apperrors.Forbidden("Access denied")
	}
	if p.UserID == userID {
		return nil
	}
	if p.IsSuperadmin && p.SameOrganization(userOrgID) {
		return nil
	}
	return apperrors.Forbidden("Access denied")
}

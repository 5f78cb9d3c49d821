// Package auth authenticates requests and exposes the authorization gate.
//
// A bearer token is a HS256 JWT issued by TokenManager. Resolver verifies it, rejects tokens
// revoked at logout, and reloads the user so role and flag changes apply to the next request:
//
//	resolver := auth.NewResolver(tokens, revocations, userStore)
//	principal, err := resolver.Resolve(ctx, bearer)
//
// The gate functions (RequireOrgAdmin, RequireGlobalAdmin, RequireSelfOrAbove) return
// apperrors.Forbidden when the principal lacks the privilege.
package auth

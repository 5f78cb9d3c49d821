// Package api provides the HTTP REST API server for prodhub.
//
// # Overview
//
// The API exposes organizations, users, roles, products and the product planning
// documents (backlog, hypothesis, quarterly roadmaps and capacity plans) as JSON
// endpoints. Each handler resolves the caller, applies the authorization gate for
// its route group, scopes the lookup through the tenant or product accessor and then
// delegates to the persistence store.
//
// # Route groups
//
//   - /api/auth: login, refresh and logout
//   - /api/admin: organization administration, gated to superadmins and scoped
//     to the caller's organization
//   - /api/crm: cross-organization administration for global superadmins
//   - /api/products: products and their planning documents, visible to the owner
//     and to users whose role grants one of the product's modules
//   - /api/v2/products: roadmap reads with computed effort ratings and the
//     effort-rating update endpoint
//
// Unreachable and nonexistent products both answer 404 so callers cannot probe for
// products of other tenants.
//
// # Usage
//
//	server := api.NewServer(stores, api.Options{
//		Tokens:    tokens,
//		Passwords: hasher,
//		Logger:    logger,
//		Metrics:   metrics,
//	})
//	http.ListenAndServe(":8080", server.Handler())
//
// Errors are rendered by httputil.WriteAppError, which maps apperrors kinds to
// status codes.
package api

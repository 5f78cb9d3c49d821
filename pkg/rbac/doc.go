// Package rbac stores roles and the product modules they grant.
//
// A role is a named, globally unique bundle of product-module ids. Users hold at most one
// role; the products reachable through that role's product modules are added to the products
// the user owns. Roles are not owned by an organization: an organization sees the roles its
// users currently hold (see pkg/access).
//
// # Usage
//
//	store := rbac.NewStore(db)
//	role := &rbac.Role{Name: "Designers", ProductModuleIDs: []int64{4, 9}}
//	if err := store.CreateRole(ctx, role); err != nil {
//		return err
//	}
//
// Role writes replace the whole product-module set inside one transaction, so a failed write
// never leaves a partially populated role behind.
package rbac

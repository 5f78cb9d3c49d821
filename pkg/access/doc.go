// Package access applies the tenant and product visibility rules on top of the stores.
//
// Tenant scopes admin reads and writes to the caller's organization, including for global
// superadmins. Products decides whether a user can reach a product, either as its owner or
// through the product modules granted to their role. A product the caller cannot reach is
// reported as not found, the same as one that does not exist.
package access

// Package products stores products and their ownership.
//
// A product is owned by one user and one organization. Creating a product attaches every active
// catalog module to it in the same transaction. Deleting an organization leaves its products in
// place with the owner and organization cleared.
package products

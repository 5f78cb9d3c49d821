package access

import (
	"context"
	"sort"
	"strings"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/products"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// ProductStore is the subset of the product store the product accessor needs
type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (*products.Product, error)
	ListOwnedProducts(ctx context.Context, userID int64) ([]*products.Product, error)
	ListProductsByRole(ctx context.Context, roleID int64) ([]*products.Product, error)
	RoleGrantsProduct(ctx context.Context, roleID, productID int64) (bool, error)
}

// UserLookup loads the user whose access is being checked
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*users.User, error)
}

// Products decides product visibility by ownership and role grants
type Products struct {
	products ProductStore
	users    UserLookup
}

// NewProducts creates a new Products accessor
func NewProducts(products ProductStore, users UserLookup) *Products {
	return &Products{products: products, users: users}
}

func productNotFound(id int64) error {
	return apperrors.NotFound("Product not found with id: %d", id)
}

// HasProductAccess reports whether the user owns the product or holds a role granting one of
// its modules
func (a *Products) HasProductAccess(ctx context.Context, userID, productID int64) (bool, error) {
	product, err := a.products.GetProduct(ctx, productID)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.canReach(ctx, userID, product)
}

func (a *Products) canReach(ctx context.Context, userID int64, product *products.Product) (bool, error) {
	if product.OwnedBy(userID) {
		return true, nil
	}

	u, err := a.users.GetUser(ctx, userID)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if u.RoleID == nil {
		return false, nil
	}
	return a.products.RoleGrantsProduct(ctx, *u.RoleID, product.ID)
}

// RequireProductAccess returns the product when the user can reach it
func (a *Products) RequireProductAccess(ctx context.Context, userID, productID int64) (*products.Product, error) {
	product, err := a.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	ok, err := a.canReach(ctx, userID, product)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, productNotFound(productID)
	}
	return product, nil
}

// RequireProductOwner returns the product when the user owns it
func (a *Products) RequireProductOwner(ctx context.Context, userID, productID int64) (*products.Product, error) {
	product, err := a.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.OwnedBy(userID) {
		return nil, productNotFound(productID)
	}
	return product, nil
}

// ListAccessibleProducts returns the products the user owns plus those reachable through their
// role, without duplicates, ordered by name ignoring case
func (a *Products) ListAccessibleProducts(ctx context.Context, userID int64) ([]*products.Product, error) {
	owned, err := a.products.ListOwnedProducts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var granted []*products.Product
	u, err := a.users.GetUser(ctx, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if u != nil && u.RoleID != nil {
		if granted, err = a.products.ListProductsByRole(ctx, *u.RoleID); err != nil {
			return nil, err
		}
	}

	return MergeProducts(owned, granted), nil
}

// MergeProducts unions the lists by product id and sorts the result by lower-cased name, then id
func MergeProducts(lists ...[]*products.Product) []*products.Product {
	seen := make(map[int64]bool)
	merged := []*products.Product{}
	for _, list := range lists {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ni, nj := strings.ToLower(merged[i].Name), strings.ToLower(merged[j].Name)
		if ni != nj {
			return ni < nj
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

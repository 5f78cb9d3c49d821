package products

import "time"

// Product is a product managed in the hub
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"productName"`
	UserID         *int64    `json:"-"`
	OrganizationID *int64    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the product
func (p *Product) OwnedBy(userID int64) bool {
	return p.UserID != nil && *p.UserID == userID
}

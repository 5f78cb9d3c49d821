package rbac

import "time"

// Role is a named set of product modules
type Role struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ProductModuleIDs []int64   `json:"productModuleIds"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasProductModule reports whether the role grants the product module
func (r *Role) HasProductModule(id int64) bool {
	for _, pmID := range r.ProductModuleIDs {
		if pmID == id {
			return true
		}
	}
	return false
}

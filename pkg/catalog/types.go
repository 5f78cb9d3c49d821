package catalog

import "time"

// Module is a catalog capability type
type Module struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	IsActive     bool      `json:"isActive"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductRef is the product summary embedded in a ProductModule
type ProductRef struct {
	ID          int64     `json:"id"`
	ProductName string    `json:"productName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductModule is a module turned on for a product
type ProductModule struct {
	ID                   int64      `json:"id"`
	Product              ProductRef `json:"product"`
	OrganizationID       *int64     `json:"-"`
	Module               Module     `json:"module"`
	IsEnabled            bool       `json:"isEnabled"`
	CompletionPercentage int        `json:"completionPercentage"`
	CreatedAt            time.Time  `json:"createdAt"`
}

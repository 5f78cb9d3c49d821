package capacity

import (
	"context"
	"time"
)

// DefaultEffortUnit is the effort unit of a new plan
const DefaultEffortUnit = "days"

// Team is a delivery team of a product
type Team struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"productId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EpicEffort is the effort one team puts into one epic during the plan's quarter
type EpicEffort struct {
	ID         int64  `json:"id"`
	EpicID     string `json:"epicId" validate:"required,max=255"`
	EpicName   string `json:"epicName" validate:"max=255"`
	TeamID     int64  `json:"teamId" validate:"required"`
	EffortDays int    `json:"effortDays" validate:"min=0"`
	Notes      string `json:"notes"`
}

// Plan is a product's capacity plan for one quarter
type Plan struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"productId"`
	Year        int          `json:"year"`
	Quarter     int          `json:"quarter"`
	EffortUnit  string       `json:"effortUnit"`
	EpicEfforts []EpicEffort `json:"epicEfforts"`
	Teams       []*Team      `json:"teams,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// EpicRef identifies an epic to seed into a new plan
type EpicRef struct {
	EpicID   string
	EpicName string
}

// SeedFunc returns the epics a newly created plan starts with
type SeedFunc func(ctx context.Context) ([]EpicRef, error)

package capacity

import (
	"time"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
)

// RatingConfig holds the inclusive upper bounds of the first four star ratings
type RatingConfig struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	UnitType  string    `json:"unitType" validate:"required,max=50"`
	Star1Max  int       `json:"star1Max" validate:"min=0"`
	Star2Max  int       `json:"star2Max" validate:"min=0"`
	Star3Max  int       `json:"star3Max" validate:"min=0"`
	Star4Max  int       `json:"star4Max" validate:"min=0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks that the thresholds never decrease
func (c RatingConfig) Validate() error {
	if c.UnitType == "" {
		return apperrors.Validation("unitType is required")
	}
	if c.Star1Max < 0 {
		return apperrors.Validation("thresholds must not be negative")
	}
	if c.Star1Max > c.Star2Max || c.Star2Max > c.Star3Max || c.Star3Max > c.Star4Max {
		return apperrors.Validation("thresholds must be non-decreasing: star1Max <= star2Max <= star3Max <= star4Max")
	}
	return nil
}

// Rate maps a total effort to a star rating between 1 and 5
func Rate(total int, cfg RatingConfig) int {
	switch {
	case total <= cfg.Star1Max:
		return 1
	case total <= cfg.Star2Max:
		return 2
	case total <= cfg.Star3Max:
		return 3
	case total <= cfg.Star4Max:
		return 4
	default:
		return 5
	}
}

// SelectConfig picks the config for unit, falling back to the first config
func SelectConfig(configs []RatingConfig, unit string) (RatingConfig, bool) {
	if len(configs) == 0 {
		return RatingConfig{}, false
	}
	for _, c := range configs {
		if c.UnitType == unit {
			return c, true
		}
	}
	return configs[0], true
}

// Totals sums effort per epic across teams
func Totals(efforts []EpicEffort) map[string]int {
	totals := make(map[string]int)
	for _, e := range efforts {
		totals[e.EpicID] += e.EffortDays
	}
	return totals
}

// Ratings returns the computed star rating of every epic in the plan with a positive total
func Ratings(plan *Plan, configs []RatingConfig) map[string]int {
	ratings := make(map[string]int)
	if plan == nil {
		return ratings
	}
	cfg, ok := SelectConfig(configs, plan.EffortUnit)
	if !ok {
		return ratings
	}

	for epicID, total := range Totals(plan.EpicEfforts) {
		if total > 0 {
			ratings[epicID] = Rate(total, cfg)
		}
	}
	return ratings
}

package roadmap

import (
	"time"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
)

const (
	minYear = 2000
	maxYear = 2100
)

// ValidatePeriod checks a (year, quarter) pair
func ValidatePeriod(year, quarter int) error {
	if year < minYear || year > maxYear {
		return apperrors.Validation("year must be between %d and %d", minYear, maxYear)
	}
	if quarter < 1 || quarter > 4 {
		return apperrors.Validation("quarter must be between 1 and 4")
	}
	return nil
}

// ValidateRating checks an optional star rating
func ValidateRating(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return apperrors.Validation("effortRating must be between 1 and 5")
	}
	return nil
}

func validateItems(items []Item) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.EpicID == "" {
			return apperrors.Validation("every roadmap item needs an epicId")
		}
		if seen[item.EpicID] {
			return apperrors.Validation("epic %s is listed more than once", item.EpicID)
		}
		seen[item.EpicID] = true

		if err := ValidateRating(item.EffortRating); err != nil {
			return err
		}

		start, err := parseDate(item.StartDate)
		if err != nil {
			return apperrors.Validation("invalid startDate %q for epic %s", item.StartDate, item.EpicID)
		}
		end, err := parseDate(item.EndDate)
		if err != nil {
			return apperrors.Validation("invalid endDate %q for epic %s", item.EndDate, item.EpicID)
		}
		if start != nil && end != nil && end.Before(*start) {
			return apperrors.Validation("endDate is before startDate for epic %s", item.EpicID)
		}
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

package roadmap

import (
	"strings"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
)

// FindConflicts returns the scheduled placements whose epic is among the incoming items, in
// the order the placements are given
func FindConflicts(incoming []Item, scheduled []Placement) []Conflict {
	if len(incoming) == 0 || len(scheduled) == 0 {
		return nil
	}

	ids := make(map[string]bool, len(incoming))
	for _, item := range incoming {
		ids[item.EpicID] = true
	}

	var conflicts []Conflict
	for _, p := range scheduled {
		if ids[p.EpicID] {
			conflicts = append(conflicts, Conflict{EpicName: p.EpicName, Year: p.Year, Quarter: p.Quarter})
		}
	}
	return conflicts
}

// ConflictError builds the error returned for a rejected save
func ConflictError(conflicts []Conflict) error {
	entries := make([]string, len(conflicts))
	for i, c := range conflicts {
		entries[i] = c.String()
	}
	return apperrors.Conflict(entries,
		"The following epics are already assigned to other quarters: %s", strings.Join(entries, ", "))
}

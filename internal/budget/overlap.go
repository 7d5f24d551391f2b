package budget

import "fintrack/internal/core"

// Overlaps reports whether two budgets cover the same category with
// intersecting inclusive windows.
func Overlaps(a, b core.Budget) bool {
	if a.Category != b.Category {
		return false
	}
	return !a.StartDate.After(b.EndDate) && !b.StartDate.After(a.EndDate)
}

// ValidateNoOverlap rejects candidate when it collides with any of existing.
// Entries sharing the candidate's id are skipped so updates can be checked
// against the rest of the category.
func ValidateNoOverlap(candidate core.Budget, existing []core.Budget) error {
	for _, b := range existing {
		if candidate.ID != "" && b.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate, b) {
			return &core.OverlapError{Existing: b}
		}
	}
	return nil
}

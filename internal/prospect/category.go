package prospect

import "prospect-tracker-api/internal/model"

// ResolveCategory derives the stored (category, categoryOther) pair.
// Selecting "other" stores the override in both fields; any other
// selection is stored as-is and clears categoryOther.
func ResolveCategory(selection, override string) (category, categoryOther string) {
	if selection == model.CategoryOther {
		return override, override
	}
	return selection, ""
}

// ResolveCategoryUpdate keeps the current pair when no new selection was submitted.
func ResolveCategoryUpdate(selection, override, currentCategory, currentOther string) (category, categoryOther string) {
	if selection == "" {
		return currentCategory, currentOther
	}
	return ResolveCategory(selection, override)
}

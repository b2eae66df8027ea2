package vectorstore

import "errors"

// scopeFilterKeys are keys reserved for the store's own scope predicate.
// User-supplied filters cannot set them.
var scopeFilterKeys = []string{"project_id", "deleted"}

// ErrScopeKeyInUserFilters indicates a caller tried to inject scope fields.
var ErrScopeKeyInUserFilters = errors.New("user filters cannot contain scope fields")

// ScopeFilter builds the predicate applied on every search and lookup:
// project_id equals the caller's project and deleted is false.
//
// Omitting this predicate on any call site is a correctness bug: it either
// leaks memories across projects or resurrects soft-deleted records. The
// store injects it itself so call sites cannot forget it.
func ScopeFilter(projectID string) map[string]interface{} {
	return map[string]interface{}{
		"project_id": projectID,
		"deleted":    false,
	}
}

// ApplyScopeFilter merges user filters with the project scope predicate,
// enforcing that scope fields always come from the store, never the caller.
func ApplyScopeFilter(userFilters map[string]interface{}, projectID string) (map[string]interface{}, error) {
	scope := ScopeFilter(projectID)

	if userFilters == nil {
		return scope, nil
	}

	for _, key := range scopeFilterKeys {
		if _, exists := userFilters[key]; exists {
			return nil, ErrScopeKeyInUserFilters
		}
	}

	result := make(map[string]interface{}, len(userFilters)+len(scope))
	for k, v := range userFilters {
		result[k] = v
	}
	for k, v := range scope {
		result[k] = v
	}
	return result, nil
}

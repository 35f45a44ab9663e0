// Package validation holds request-level input checks shared by the API
// handlers.
package validation

import (
	"regexp"
	"strings"

	"unifit/internal/models"
)

// emailPattern is a pragmatic check, not a full RFC parser. The engine keys
// everything on the address string, so shape matters more than deliverability.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail checks the user email used as the account key.
func ValidateEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	return emailPattern.MatchString(email)
}

// NormalizeEmail lowercases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCategory checks an optional category filter value.
func ValidateCategory(category string) bool {
	if category == "" {
		return true
	}
	return models.ValidCategory(category)
}

// ValidateSortBy checks the sort parameter, defaulting empty to rank order.
func ValidateSortBy(sortBy string) bool {
	switch sortBy {
	case "", "rank", "match_score":
		return true
	default:
		return false
	}
}

// ClampLimit bounds a caller-supplied page size.
func ClampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

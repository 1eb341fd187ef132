package model

import "strings"

// ErrorCategory classifies a download failure for retry and display purposes.
type ErrorCategory string

const (
	CategoryNetwork       ErrorCategory = "network"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryRateLimited   ErrorCategory = "rate_limited"
	CategoryPrivate       ErrorCategory = "private"
	CategoryAgeRestricted ErrorCategory = "age_restricted"
	CategoryRegionLocked  ErrorCategory = "region_locked"
	CategoryAuth          ErrorCategory = "authentication"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryGeneric       ErrorCategory = "generic"
)

// IsRetryable reports whether failures of this category are transient and
// worth retrying without user intervention.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryRateLimited:
		return true
	}
	return false
}

// SuggestedAction returns a remediation hint for the user, or "" when
// there is nothing actionable.
func (c ErrorCategory) SuggestedAction() string {
	switch c {
	case CategoryPrivate:
		return "Ensure you have access to this video"
	case CategoryAgeRestricted, CategoryAuth:
		return "Enable cookie import in settings"
	case CategoryRateLimited:
		return "Wait a few minutes before retrying"
	case CategoryNetwork, CategoryTimeout:
		return "Check your internet connection"
	}
	return ""
}

// CategorizeError maps a raw executor error message onto an ErrorCategory.
// Matching follows the stderr patterns the external downloader emits.
func CategorizeError(message string) ErrorCategory {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "private video"), strings.Contains(lower, "video is private"):
		return CategoryPrivate
	case strings.Contains(lower, "age") && (strings.Contains(lower, "restricted") ||
		strings.Contains(lower, "verify") || strings.Contains(lower, "confirm")):
		return CategoryAgeRestricted
	case strings.Contains(lower, "not available") && strings.Contains(lower, "country"):
		return CategoryRegionLocked
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "not found"):
		return CategoryNotFound
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "429"),
		strings.Contains(lower, "too many requests"):
		return CategoryRateLimited
	case strings.Contains(lower, "sign in"), strings.Contains(lower, "login"),
		strings.Contains(lower, "authentication"):
		return CategoryAuth
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "timeout"):
		return CategoryTimeout
	case strings.Contains(lower, "unable to download"), strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"):
		return CategoryNetwork
	}
	return CategoryGeneric
}

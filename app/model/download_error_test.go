package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeError(t *testing.T) {
	cases := []struct {
		message string
		want    ErrorCategory
	}{
		{"ERROR: Private video. Sign in if you've been granted access", CategoryPrivate},
		{"ERROR: This video is private", CategoryPrivate},
		{"Sign in to confirm your age", CategoryAgeRestricted},
		{"This video is age restricted", CategoryAgeRestricted},
		{"The video is not available in your country", CategoryRegionLocked},
		{"ERROR: Video unavailable", CategoryNotFound},
		{"This channel does not exist", CategoryNotFound},
		{"HTTP Error 429: Too Many Requests", CategoryRateLimited},
		{"Sign in to confirm you're not a bot", CategoryAuth},
		{"ERROR: Connection timed out", CategoryTimeout},
		{"read timeout after 30s", CategoryTimeout},
		{"Unable to download webpage", CategoryNetwork},
		{"Connection reset by peer", CategoryNetwork},
		{"[Network] temporary failure in name resolution", CategoryNetwork},
		{"something completely unexpected", CategoryGeneric},
		{"", CategoryGeneric},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategorizeError(tc.message), tc.message)
	}
}

func TestRetryableCategories(t *testing.T) {
	assert.True(t, CategoryNetwork.IsRetryable())
	assert.True(t, CategoryTimeout.IsRetryable())
	assert.True(t, CategoryRateLimited.IsRetryable())

	assert.False(t, CategoryPrivate.IsRetryable())
	assert.False(t, CategoryAgeRestricted.IsRetryable())
	assert.False(t, CategoryRegionLocked.IsRetryable())
	assert.False(t, CategoryAuth.IsRetryable())
	assert.False(t, CategoryNotFound.IsRetryable())
	assert.False(t, CategoryGeneric.IsRetryable())
}

func TestSuggestedActions(t *testing.T) {
	assert.Equal(t, "Ensure you have access to this video", CategoryPrivate.SuggestedAction())
	assert.Equal(t, "Enable cookie import in settings", CategoryAgeRestricted.SuggestedAction())
	assert.Equal(t, "Enable cookie import in settings", CategoryAuth.SuggestedAction())
	assert.Empty(t, CategoryGeneric.SuggestedAction())
	assert.Empty(t, CategoryNotFound.SuggestedAction())
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"downpour/app/config"
	"downpour/app/model"
)

func testRetryConfig() config.DownloadConfig {
	return config.DownloadConfig{
		MaxRetries:       3,
		RetryBaseDelayMs: 1000,
		RetryMaxDelayMs:  30000,
	}
}

func TestRetryCoordinatorRetriesTransientErrors(t *testing.T) {
	rc := NewRetryCoordinator(testRetryConfig(), &fakeConnectivity{online: true, connected: true})

	d := rc.Decide("Connection timed out", 0)
	assert.True(t, d.ShouldRetry)
	assert.Equal(t, 1, d.NextAttempt)
	assert.Equal(t, model.CategoryTimeout, d.Category)
	assert.Equal(t, int64(1000), d.DelayMs)
}

func TestRetryCoordinatorNeverRetriesPermanentErrors(t *testing.T) {
	rc := NewRetryCoordinator(testRetryConfig(), &fakeConnectivity{online: true, connected: true})

	cases := map[string]model.ErrorCategory{
		"ERROR: This video is private":                 model.CategoryPrivate,
		"Sign in to confirm your age":                  model.CategoryAgeRestricted,
		"This video is not available in your country":  model.CategoryRegionLocked,
		"ERROR: Video unavailable":                     model.CategoryNotFound,
		"something completely unexpected":              model.CategoryGeneric,
	}
	for message, category := range cases {
		d := rc.Decide(message, 0)
		assert.False(t, d.ShouldRetry, message)
		assert.Equal(t, category, d.Category, message)
	}
}

func TestRetryCoordinatorStopsAtCeiling(t *testing.T) {
	rc := NewRetryCoordinator(testRetryConfig(), &fakeConnectivity{online: true, connected: true})

	assert.True(t, rc.Decide("network error", 2).ShouldRetry)
	assert.False(t, rc.Decide("network error", 3).ShouldRetry)
	assert.False(t, rc.Decide("network error", 10).ShouldRetry)
}

func TestRetryCoordinatorSuppressedWhileUnreachable(t *testing.T) {
	offline := NewRetryCoordinator(testRetryConfig(), &fakeConnectivity{online: false, connected: true})
	assert.False(t, offline.Decide("Connection timed out", 0).ShouldRetry)

	disconnected := NewRetryCoordinator(testRetryConfig(), &fakeConnectivity{online: true, connected: false})
	assert.False(t, disconnected.Decide("Connection timed out", 0).ShouldRetry)
}

func TestRetryCoordinatorBackoffDoublesAndCaps(t *testing.T) {
	rc := NewRetryCoordinator(testRetryConfig(), &fakeConnectivity{online: true, connected: true})

	assert.Equal(t, time.Second, rc.DelayForAttempt(0))
	assert.Equal(t, 2*time.Second, rc.DelayForAttempt(1))
	assert.Equal(t, 4*time.Second, rc.DelayForAttempt(2))
	assert.Equal(t, 16*time.Second, rc.DelayForAttempt(4))
	assert.Equal(t, 30*time.Second, rc.DelayForAttempt(5))
	assert.Equal(t, 30*time.Second, rc.DelayForAttempt(20))
}

package service

import (
	"time"

	"downpour/app/config"
	"downpour/app/model"
)

// EventPublisher pushes named events to connected UI clients. Services
// treat it as optional; a nil publisher means no UI is listening.
type EventPublisher interface {
	Publish(event string, payload any)
}

// Connectivity is the slice of the network monitor the retry coordinator
// consults. Degraded link quality deliberately has no place here.
type Connectivity interface {
	IsOnline() bool
	IsConnected() bool
}

// RetryDecision is the coordinator's answer for one failure.
type RetryDecision struct {
	ShouldRetry bool                `json:"should_retry"`
	Delay       time.Duration       `json:"-"`
	DelayMs     int64               `json:"delay_ms"`
	NextAttempt int                 `json:"next_attempt"`
	MaxRetries  int                 `json:"max_retries"`
	Category    model.ErrorCategory `json:"category"`
	Error       string              `json:"error"`
}

// RetryCoordinator decides whether and when a failed download is retried.
// Only transient error categories are retried, never while unreachable,
// and never past the attempt ceiling.
type RetryCoordinator struct {
	monitor    Connectivity
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryCoordinator creates a coordinator from the download config.
func NewRetryCoordinator(cfg config.DownloadConfig, monitor Connectivity) *RetryCoordinator {
	return &RetryCoordinator{
		monitor:    monitor,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		maxDelay:   time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
	}
}

// Decide evaluates a failure at the given zero-based attempt count.
func (r *RetryCoordinator) Decide(errMessage string, attempt int) RetryDecision {
	category := model.CategorizeError(errMessage)

	decision := RetryDecision{
		NextAttempt: attempt + 1,
		MaxRetries:  r.maxRetries,
		Category:    category,
		Error:       errMessage,
	}

	if !category.IsRetryable() {
		return decision
	}
	if attempt >= r.maxRetries {
		return decision
	}
	if !r.monitor.IsOnline() || !r.monitor.IsConnected() {
		return decision
	}

	decision.ShouldRetry = true
	decision.Delay = r.DelayForAttempt(attempt)
	decision.DelayMs = decision.Delay.Milliseconds()
	return decision
}

// DelayForAttempt computes the backoff for a zero-based attempt:
// baseDelay doubled per attempt, capped at maxDelay.
func (r *RetryCoordinator) DelayForAttempt(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			return r.maxDelay
		}
	}
	if delay > r.maxDelay {
		return r.maxDelay
	}
	return delay
}

// MaxRetries returns the attempt ceiling.
func (r *RetryCoordinator) MaxRetries() int {
	return r.maxRetries
}

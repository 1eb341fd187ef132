package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"downpour/app/cache"
	"downpour/app/executor"
	"downpour/app/logger"
	"downpour/app/model"
)

var (
	// ErrAlreadyDownloading means a foreground job is active
	ErrAlreadyDownloading = errors.New("download already in progress")
	// ErrInvalidURL means the submitted URL failed the syntactic check
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidTransition means a lifecycle rule was violated
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Event names pushed to the UI.
const (
	EventStateChange = "download-state-change"
	EventProgress    = "download-progress"
	EventRetry       = "download-retry"
	EventError       = "download-error"
	EventComplete    = "download-complete"
)

// DownloadService drives the single foreground download job through its
// lifecycle. All mutations run under one mutex; executor events arrive on
// their own goroutines and funnel through it, so no transition is ever
// observed half-applied.
type DownloadService struct {
	logger  *logger.Logger
	exec    executor.Executor
	cache   *cache.MediaInfoCache
	retry   *RetryCoordinator
	history *HistoryService
	events  EventPublisher
	// cancelAck bounds how long a cancel waits for the executor before
	// the local state is forced to cancelled
	cancelAck time.Duration

	mu         sync.Mutex
	state      model.JobState
	cfg        *model.DownloadConfig
	progress   *model.Progress
	retryState *model.RetryState
	filePath   string
	lastError  string
	suggested  string
	handle     executor.Handle
	attempt    int
	retryTimer *time.Timer
	// generation invalidates events from superseded executor jobs
	generation uint64
}

// NewDownloadService creates the foreground job state machine.
func NewDownloadService(log *logger.Logger, exec executor.Executor, mediaCache *cache.MediaInfoCache,
	retry *RetryCoordinator, history *HistoryService, events EventPublisher,
	cancelAck time.Duration) *DownloadService {
	if cancelAck <= 0 {
		cancelAck = 3 * time.Second
	}
	return &DownloadService{
		logger:    log,
		exec:      exec,
		cache:     mediaCache,
		retry:     retry,
		history:   history,
		events:    events,
		cancelAck: cancelAck,
		state:     model.StateIdle,
	}
}

// Snapshot returns a read-only copy of the job.
func (s *DownloadService) Snapshot() model.JobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.JobSnapshot{
		State:           s.state,
		FilePath:        s.filePath,
		Error:           s.lastError,
		SuggestedAction: s.suggested,
	}
	if s.cfg != nil {
		cfg := *s.cfg
		snap.Config = &cfg
	}
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	if s.retryState != nil {
		r := *s.retryState
		snap.Retry = &r
	}
	return snap
}

// Start submits a new download. The folder is validated before anything
// else; a hard failure aborts submission without entering the pipeline.
// Metadata is fetched when not cached, but a fetch failure does not stop
// the download.
func (s *DownloadService) Start(ctx context.Context, cfg model.DownloadConfig) error {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, cfg.URL)
	}

	s.mu.Lock()
	if s.state.IsActive() {
		s.mu.Unlock()
		return ErrAlreadyDownloading
	}

	check, err := s.exec.ValidateOutputFolder(cfg.OutputFolder, 0)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("output folder not accessible: %w", err)
	}
	if !check.Accessible {
		s.mu.Unlock()
		return fmt.Errorf("output folder not accessible: %s", check.Warning)
	}

	s.resetJobLocked()
	c := cfg
	s.cfg = &c
	gen := s.generation
	needAnalyze := !s.cache.Contains(cfg.URL)

	if needAnalyze {
		if err := s.transitionLocked(model.StateAnalyzing); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	if needAnalyze {
		// metadata is optional: a fetch failure still proceeds to starting
		if info, err := s.exec.FetchMetadata(ctx, cfg.URL); err != nil {
			s.logger.Warnf("metadata fetch failed for %s: %v", cfg.URL, err)
		} else {
			s.cache.Set(cfg.URL, info)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a cancel during analysis supersedes this submission
	if gen != s.generation {
		return ErrInvalidTransition
	}
	if err := s.transitionLocked(model.StateStarting); err != nil {
		return err
	}
	s.attempt = 0
	return s.launchLocked()
}

// Cancel requests cancellation of the active job. Cancelling a job that is
// idle or already terminal is a no-op. The local state settles to cancelled
// whether or not the executor acknowledges; the UI must never hang in
// cancelling.
func (s *DownloadService) Cancel() error {
	s.mu.Lock()

	// a retry waiting out its delay is simply abandoned; bumping the
	// generation also stops a timer callback already past Stop
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
		s.retryState = nil
		s.generation++
	}

	if !s.state.IsActive() || s.state == model.StateCancelling {
		s.mu.Unlock()
		return nil
	}

	handle := s.handle
	s.generation++

	if s.state == model.StateAnalyzing {
		// nothing is running yet, fall straight back to idle
		err := s.transitionLocked(model.StateIdle)
		s.mu.Unlock()
		return err
	}

	if err := s.transitionLocked(model.StateCancelling); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	// wait for the executor's acknowledgement, but only so long; the UI
	// must never hang in cancelling
	if handle != "" {
		done := make(chan error, 1)
		go func() { done <- s.exec.CancelJob(handle) }()
		select {
		case err := <-done:
			if err != nil {
				s.logger.Warnf("executor cancel failed, forcing local cancel: %v", err)
			}
		case <-time.After(s.cancelAck):
			s.logger.Warnf("executor cancel not acknowledged within %s, forcing local cancel", s.cancelAck)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = ""
	if s.state == model.StateCancelling {
		return s.transitionLocked(model.StateCancelled)
	}
	return nil
}

// Reset returns a resting job to idle so a new submission can begin.
func (s *DownloadService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsActive() {
		return ErrAlreadyDownloading
	}
	if s.state == model.StateIdle {
		return nil
	}
	if err := s.transitionLocked(model.StateIdle); err != nil {
		return err
	}
	s.resetJobLocked()
	return nil
}

// State returns the current lifecycle state.
func (s *DownloadService) State() model.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// launchLocked hands the job to the executor. Call with the lock held and
// the state at starting.
func (s *DownloadService) launchLocked() error {
	gen := s.generation
	handle, err := s.exec.StartJob(*s.cfg, func(ev executor.Event) {
		s.onEvent(gen, ev)
	})
	if err != nil {
		// the request API itself failing is an immediate failure
		s.failLocked(err.Error())
		return nil
	}
	s.handle = handle
	return nil
}

// onEvent applies one executor event. Events from superseded jobs (after
// cancel, reset or retry) are dropped by the generation check.
func (s *DownloadService) onEvent(gen uint64, ev executor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	switch ev.Type {
	case executor.EventProgress:
		if s.state == model.StateStarting {
			if err := s.transitionLocked(model.StateDownloading); err != nil {
				return
			}
		}
		if s.state != model.StateDownloading && s.state != model.StateMerging {
			return
		}
		p := *ev.Progress
		s.progress = &p
		s.publish(EventProgress, p)

	case executor.EventMerging:
		if s.state == model.StateDownloading {
			_ = s.transitionLocked(model.StateMerging)
		}

	case executor.EventError:
		s.handleFailureLocked(ev.Message)

	case executor.EventCompleted:
		if ev.Result == nil {
			return
		}
		if !ev.Result.Success {
			msg := ev.Result.Error
			if msg == "" {
				msg = "download failed"
			}
			s.handleFailureLocked(msg)
			return
		}
		if s.state == model.StateStarting {
			if err := s.transitionLocked(model.StateDownloading); err != nil {
				return
			}
		}
		if err := s.transitionLocked(model.StateCompleted); err != nil {
			return
		}
		s.filePath = ev.Result.FilePath
		s.retryState = nil
		s.handle = ""
		if s.history != nil && s.cfg != nil {
			s.history.Record(*s.cfg, s.filePath, s.progress)
		}
		s.publish(EventComplete, model.DownloadResult{Success: true, FilePath: s.filePath})
	}
}

// handleFailureLocked routes an error through the retry coordinator: a
// transient failure under the ceiling re-enters starting after the backoff
// delay, anything else settles into failed with the original message.
func (s *DownloadService) handleFailureLocked(message string) {
	if !s.state.IsActive() {
		return
	}

	decision := s.retry.Decide(message, s.attempt)
	if !decision.ShouldRetry {
		s.failLocked(message)
		return
	}

	s.attempt = decision.NextAttempt
	s.retryState = &model.RetryState{
		Attempt:    decision.NextAttempt,
		MaxRetries: decision.MaxRetries,
		DelayMs:    decision.DelayMs,
		LastError:  message,
	}
	s.publish(EventRetry, *s.retryState)
	s.logger.Warnf("retrying download (attempt %d/%d) in %s: %s",
		decision.NextAttempt, decision.MaxRetries, decision.Delay, message)

	// the job stays active through the backoff: it falls back internally
	// and re-enters starting the way a fresh launch does, never surfacing
	// failed while a retry is pending
	s.handle = ""
	s.progress = nil
	s.generation++
	gen := s.generation
	if s.state != model.StateStarting {
		s.state = model.StateIdle
		_ = s.transitionLocked(model.StateStarting)
	}

	s.retryTimer = time.AfterFunc(decision.Delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation || s.state != model.StateStarting {
			return
		}
		s.retryTimer = nil
		_ = s.launchLocked()
	})
}

// failLocked settles the job into failed with a categorized message.
func (s *DownloadService) failLocked(message string) {
	category := model.CategorizeError(message)
	s.lastError = message
	s.suggested = category.SuggestedAction()
	s.retryState = nil
	s.handle = ""
	_ = s.transitionLocked(model.StateFailed)
	s.publish(EventError, map[string]any{
		"message":          message,
		"category":         category,
		"suggested_action": s.suggested,
	})
}

// transitionLocked applies a state change, rejecting anything outside the
// lifecycle table, and announces it to the UI.
func (s *DownloadService) transitionLocked(target model.JobState) error {
	if !s.state.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, target)
	}
	s.state = target
	s.publish(EventStateChange, map[string]any{
		"state":     target,
		"file_path": s.filePath,
	})
	return nil
}

func (s *DownloadService) resetJobLocked() {
	s.generation++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.cfg = nil
	s.progress = nil
	s.retryState = nil
	s.filePath = ""
	s.lastError = ""
	s.suggested = ""
	s.handle = ""
	s.attempt = 0
}

func (s *DownloadService) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

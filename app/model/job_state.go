package model

// JobState is the lifecycle state of the single foreground download job.
type JobState string

const (
	// StateIdle means no active download
	StateIdle JobState = "idle"
	// StateAnalyzing means media info is being fetched
	StateAnalyzing JobState = "analyzing"
	// StateStarting means the executor has been asked to start
	StateStarting JobState = "starting"
	// StateDownloading means the download is running
	StateDownloading JobState = "downloading"
	// StateMerging means audio/video streams are being merged
	StateMerging JobState = "merging"
	// StateCompleted means the download finished successfully
	StateCompleted JobState = "completed"
	// StateCancelling means a cancel request is in flight
	StateCancelling JobState = "cancelling"
	// StateCancelled means the download was cancelled by the user
	StateCancelled JobState = "cancelled"
	// StateFailed means the download failed with an error
	StateFailed JobState = "failed"
)

// validTransitions holds every allowed state change. Anything not listed
// here is rejected.
var validTransitions = map[JobState][]JobState{
	StateIdle:        {StateAnalyzing, StateStarting},
	StateAnalyzing:   {StateIdle, StateStarting, StateFailed},
	StateStarting:    {StateDownloading, StateCancelling, StateFailed},
	StateDownloading: {StateMerging, StateCompleted, StateCancelling, StateFailed},
	StateMerging:     {StateCompleted, StateCancelling, StateFailed},
	StateCancelling:  {StateCancelled},
	StateCompleted:   {StateIdle, StateAnalyzing, StateStarting},
	StateCancelled:   {StateIdle, StateAnalyzing, StateStarting},
	StateFailed:      {StateIdle, StateAnalyzing, StateStarting},
}

// CanTransitionTo reports whether a change from s to target is allowed.
func (s JobState) CanTransitionTo(target JobState) bool {
	for _, next := range validTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the state belongs to a running download,
// i.e. neither idle nor terminal.
func (s JobState) IsActive() bool {
	switch s {
	case StateAnalyzing, StateStarting, StateDownloading, StateMerging, StateCancelling:
		return true
	}
	return false
}

// IsTerminal reports whether the state is a resting end state.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Package executor defines the port to the external download process. The
// core only ever talks to this interface; the real binary lives behind an
// adapter and reports back through an asynchronous event stream.
package executor

import (
	"context"

	"downpour/app/model"
)

// Handle identifies one running executor job.
type Handle string

// EventType discriminates executor events.
type EventType string

const (
	// EventProgress carries a progress report
	EventProgress EventType = "progress"
	// EventMerging signals the merge phase has begun
	EventMerging EventType = "merging"
	// EventError carries a failure message
	EventError EventType = "error"
	// EventCompleted carries the terminal result
	EventCompleted EventType = "completed"
)

// Event is one asynchronous notification from the executor. Handlers must
// be idempotent; the executor fires on its own schedule.
type Event struct {
	Type     EventType
	Progress *model.Progress
	Message  string
	Result   *model.DownloadResult
}

// EventSink receives a job's event stream.
type EventSink func(Event)

// FolderCheck is the result of validating an output folder.
type FolderCheck struct {
	Accessible bool   `json:"accessible"`
	Warning    string `json:"warning,omitempty"`
}

// Executor is the narrow interface to the external media fetcher. StartJob
// is fire-and-forget: results arrive only through the sink.
type Executor interface {
	FetchMetadata(ctx context.Context, url string) (*model.MediaInfo, error)
	ValidateOutputFolder(path string, estimatedSizeBytes int64) (FolderCheck, error)
	StartJob(cfg model.DownloadConfig, sink EventSink) (Handle, error)
	CancelJob(handle Handle) error
	FetchPlaylist(ctx context.Context, url string) (*model.PlaylistInfo, error)
	IsPlaylist(url string) bool
}

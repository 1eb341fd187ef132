package service

import (
	"context"
	"fmt"
	"sync"

	"downpour/app/executor"
	"downpour/app/model"
)

// fakeConnectivity is a stand-in network monitor.
type fakeConnectivity struct {
	online    bool
	connected bool
}

func (f *fakeConnectivity) IsOnline() bool    { return f.online }
func (f *fakeConnectivity) IsConnected() bool { return f.connected }

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	name    string
	payload any
}

func (p *capturePublisher) Publish(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{name: event, payload: payload})
}

func (p *capturePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.name
	}
	return out
}

// fakeExecutor is a scriptable executor double. Tests drive job outcomes by
// emitting events into the sink registered for each handle.
type fakeExecutor struct {
	mu        sync.Mutex
	sinks     map[executor.Handle]executor.EventSink
	started   []model.DownloadConfig
	cancelled []executor.Handle
	metadata  map[string]*model.MediaInfo
	metaErr   error
	startErr  error
	cancelErr error
	// blockCancel, when set, makes CancelJob hang until it is closed
	blockCancel chan struct{}
	folderBad   bool
	playlist    *model.PlaylistInfo
	seq         int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		sinks:    make(map[executor.Handle]executor.EventSink),
		metadata: make(map[string]*model.MediaInfo),
	}
}

func (f *fakeExecutor) FetchMetadata(_ context.Context, url string) (*model.MediaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	if info, ok := f.metadata[url]; ok {
		return info, nil
	}
	return &model.MediaInfo{Title: "video"}, nil
}

func (f *fakeExecutor) ValidateOutputFolder(string, int64) (executor.FolderCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.folderBad {
		return executor.FolderCheck{Accessible: false, Warning: "folder missing"}, nil
	}
	return executor.FolderCheck{Accessible: true}, nil
}

func (f *fakeExecutor) StartJob(cfg model.DownloadConfig, sink executor.EventSink) (executor.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.seq++
	handle := executor.Handle(fmt.Sprintf("job-%d", f.seq))
	f.sinks[handle] = sink
	f.started = append(f.started, cfg)
	return handle, nil
}

func (f *fakeExecutor) CancelJob(handle executor.Handle) error {
	f.mu.Lock()
	f.cancelled = append(f.cancelled, handle)
	delete(f.sinks, handle)
	block := f.blockCancel
	err := f.cancelErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (f *fakeExecutor) FetchPlaylist(_ context.Context, url string) (*model.PlaylistInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playlist != nil {
		return f.playlist, nil
	}
	return &model.PlaylistInfo{URL: url}, nil
}

func (f *fakeExecutor) IsPlaylist(url string) bool {
	return f.playlist != nil
}

// lastHandle returns the most recently started job's handle.
func (f *fakeExecutor) lastHandle() executor.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return executor.Handle(fmt.Sprintf("job-%d", f.seq))
}

func (f *fakeExecutor) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func (f *fakeExecutor) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancelled)
}

// emit delivers an event to the sink registered for handle. Emitting to an
// unknown handle is a no-op, mirroring a process that already exited.
func (f *fakeExecutor) emit(handle executor.Handle, ev executor.Event) {
	f.mu.Lock()
	sink := f.sinks[handle]
	f.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func progressEvent(pct float64) executor.Event {
	return executor.Event{
		Type: executor.EventProgress,
		Progress: &model.Progress{
			Percentage: pct,
			Speed:      "1.0MiB/s",
			Status:     "downloading",
		},
	}
}

func completedEvent(filePath string) executor.Event {
	return executor.Event{
		Type:   executor.EventCompleted,
		Result: &model.DownloadResult{Success: true, FilePath: filePath},
	}
}

func errorEvent(message string) executor.Event {
	return executor.Event{Type: executor.EventError, Message: message}
}

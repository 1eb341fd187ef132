package executor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"downpour/app/model"

	"github.com/google/uuid"
)

// Simulator is a built-in Executor that produces synthetic downloads. It
// keeps the server fully operational without the external binary and doubles
// as the development backend. Folder validation is real; everything else is
// fabricated.
type Simulator struct {
	// Tick is the interval between synthetic progress events
	Tick time.Duration
	// Steps is how many progress events a job emits before completing
	Steps int

	mu   sync.Mutex
	jobs map[Handle]context.CancelFunc
}

// NewSimulator creates a simulator with fast synthetic downloads.
func NewSimulator() *Simulator {
	return &Simulator{
		Tick:  200 * time.Millisecond,
		Steps: 20,
		jobs:  make(map[Handle]context.CancelFunc),
	}
}

// FetchMetadata fabricates metadata for the URL.
func (s *Simulator) FetchMetadata(ctx context.Context, rawURL string) (*model.MediaInfo, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %s", rawURL)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.Tick):
	}
	return &model.MediaInfo{
		Title:          "Simulated: " + rawURL,
		DurationSec:    212,
		Uploader:       "simulator",
		FilesizeApprox: 48 << 20,
	}, nil
}

// ValidateOutputFolder checks that the folder exists, is a directory and is
// writable. The write check creates and removes a probe file.
func (s *Simulator) ValidateOutputFolder(path string, estimatedSizeBytes int64) (FolderCheck, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FolderCheck{Accessible: false, Warning: "folder does not exist: " + path}, nil
		}
		return FolderCheck{}, err
	}
	if !info.IsDir() {
		return FolderCheck{Accessible: false, Warning: "path is not a directory: " + path}, nil
	}

	probe := filepath.Join(path, ".downpour-write-check")
	f, err := os.Create(probe)
	if err != nil {
		return FolderCheck{Accessible: false, Warning: "cannot write to folder: " + path}, nil
	}
	f.Close()
	os.Remove(probe)

	return FolderCheck{Accessible: true}, nil
}

// StartJob launches a goroutine that walks through a synthetic download:
// progress ticks, a merge phase, then completion.
func (s *Simulator) StartJob(cfg model.DownloadConfig, sink EventSink) (Handle, error) {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return "", fmt.Errorf("invalid URL: %s", cfg.URL)
	}

	handle := Handle(uuid.NewString())
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.jobs[handle] = cancel
	s.mu.Unlock()

	go s.run(ctx, handle, cfg, sink)
	return handle, nil
}

// CancelJob stops a running simulated job. Unknown handles are a no-op so
// cancellation stays idempotent.
func (s *Simulator) CancelJob(handle Handle) error {
	s.mu.Lock()
	cancel, ok := s.jobs[handle]
	delete(s.jobs, handle)
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return nil
}

// FetchPlaylist fabricates a small playlist for playlist URLs.
func (s *Simulator) FetchPlaylist(ctx context.Context, rawURL string) (*model.PlaylistInfo, error) {
	if !s.IsPlaylist(rawURL) {
		return nil, fmt.Errorf("not a playlist URL: %s", rawURL)
	}
	entries := make([]model.PlaylistEntry, 0, 5)
	for i := 1; i <= 5; i++ {
		entries = append(entries, model.PlaylistEntry{
			URL:   fmt.Sprintf("https://youtu.be/sim%04d", i),
			Title: fmt.Sprintf("Simulated entry %d", i),
			Index: i,
		})
	}
	return &model.PlaylistInfo{Title: "Simulated playlist", URL: rawURL, Entries: entries}, nil
}

// IsPlaylist detects playlist URLs by their usual markers.
func (s *Simulator) IsPlaylist(rawURL string) bool {
	return strings.Contains(rawURL, "list=") || strings.Contains(rawURL, "/playlist")
}

func (s *Simulator) run(ctx context.Context, handle Handle, cfg model.DownloadConfig, sink EventSink) {
	defer func() {
		s.mu.Lock()
		delete(s.jobs, handle)
		s.mu.Unlock()
	}()

	total := int64(48 << 20)
	for i := 1; i <= s.Steps; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Tick):
		}
		pct := float64(i) / float64(s.Steps) * 100
		sink(Event{
			Type: EventProgress,
			Progress: &model.Progress{
				Percentage:      pct,
				DownloadedBytes: total * int64(i) / int64(s.Steps),
				TotalBytes:      total,
				Speed:           "2.5MiB/s",
				ETASeconds:      int64(s.Steps - i),
				Status:          "downloading",
			},
		})
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.Tick):
	}
	sink(Event{Type: EventMerging})

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.Tick):
	}
	filePath := filepath.Join(cfg.OutputFolder, "simulated-"+string(handle)[:8]+".mp4")
	sink(Event{
		Type:   EventCompleted,
		Result: &model.DownloadResult{Success: true, FilePath: filePath},
	})
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"downpour/app/logger"
	"downpour/app/model"
)

// recordingEnqueuer collects promoted configs instead of downloading.
type recordingEnqueuer struct {
	configs []model.DownloadConfig
}

func (r *recordingEnqueuer) Enqueue(cfg model.DownloadConfig, _, _ string) (model.QueueItem, error) {
	r.configs = append(r.configs, cfg)
	return model.QueueItem{Config: cfg}, nil
}

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = prev })
}

func TestSchedulePromotesDueEntriesOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	sink := &recordingEnqueuer{}
	svc := NewScheduleService(logger.NewNop(), nil, sink, nil, time.Minute)

	due, err := svc.Add("https://e.com/due", "video-mp4", "best", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = svc.Add("https://e.com/future", "video-mp4", "best", now.Add(time.Hour))
	require.NoError(t, err)

	svc.Scan()

	require.Len(t, sink.configs, 1)
	assert.Equal(t, "https://e.com/due", sink.configs[0].URL)
	assert.Equal(t, "video-mp4", sink.configs[0].Format)

	// the promoted entry is gone; the future one remains
	entries := svc.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://e.com/future", entries[0].URL)

	// a second scan must not fire it again
	svc.Scan()
	assert.Len(t, sink.configs, 1)
	_ = due
}

func TestScheduleSkipsDisabledEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	sink := &recordingEnqueuer{}
	svc := NewScheduleService(logger.NewNop(), nil, sink, nil, time.Minute)

	entry, err := svc.Add("https://e.com/held", "audio-mp3", "best", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = svc.SetEnabled(entry.ID, false)
	require.NoError(t, err)

	svc.Scan()
	assert.Empty(t, sink.configs)

	// re-enabling a past-due entry fires it on the next scan
	_, err = svc.SetEnabled(entry.ID, true)
	require.NoError(t, err)
	svc.Scan()
	require.Len(t, sink.configs, 1)
	assert.Equal(t, "https://e.com/held", sink.configs[0].URL)
}

func TestScheduleRemoveNeverTouchesQueue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	sink := &recordingEnqueuer{}
	svc := NewScheduleService(logger.NewNop(), nil, sink, nil, time.Minute)

	entry, err := svc.Add("https://e.com/gone", "video-mp4", "best", now.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, svc.Remove(entry.ID))

	svc.Scan()
	assert.Empty(t, sink.configs)
	assert.Empty(t, svc.List())

	assert.ErrorIs(t, svc.Remove(entry.ID), ErrScheduleNotFound)
	_, err = svc.SetEnabled(entry.ID, true)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestScheduleListSortsBySoonest(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	svc := NewScheduleService(logger.NewNop(), nil, &recordingEnqueuer{}, nil, time.Minute)

	_, err := svc.Add("https://e.com/later", "video-mp4", "best", now.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = svc.Add("https://e.com/sooner", "video-mp4", "best", now.Add(time.Hour))
	require.NoError(t, err)

	entries := svc.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "https://e.com/sooner", entries[0].URL)
	assert.Equal(t, "https://e.com/later", entries[1].URL)
}

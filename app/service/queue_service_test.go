package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"downpour/app/logger"
	"downpour/app/model"
)

func newQueueFixture(maxConcurrent int) (*QueueService, *fakeExecutor, *capturePublisher) {
	fx := newFakeExecutor()
	pub := &capturePublisher{}
	svc := NewQueueService(logger.NewNop(), fx, pub, nil, nil, maxConcurrent, 50*time.Millisecond)
	return svc, fx, pub
}

func queueCfg(url string) model.DownloadConfig {
	return model.DownloadConfig{URL: url, Format: "video-mp4", Quality: "best"}
}

func pendingURLs(svc *QueueService) []string {
	var out []string
	for _, item := range svc.Snapshot() {
		if item.Status == model.QueueStatusPending {
			out = append(out, item.Config.URL)
		}
	}
	return out
}

func TestQueuePromotesUpToConcurrencyLimit(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	a, err := svc.Enqueue(queueCfg("https://example.com/a"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://example.com/b"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://example.com/c"), "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, fx.startCount())
	counts := svc.Counts()
	assert.Equal(t, 1, counts.Downloading)
	assert.Equal(t, 2, counts.Pending)

	// finishing the running item promotes the next in order
	fx.emit(fx.lastHandle(), completedEvent("/a.mp4"))
	assert.Equal(t, 2, fx.startCount())

	got, err := svc.Item(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCompleted, got.Status)
	assert.Equal(t, "/a.mp4", got.FilePath)
}

func TestQueueUnboundedRunsEverything(t *testing.T) {
	svc, fx, _ := newQueueFixture(0)

	for _, u := range []string{"https://e.com/1", "https://e.com/2", "https://e.com/3"} {
		_, err := svc.Enqueue(queueCfg(u), "", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fx.startCount())
	assert.Equal(t, 3, svc.Counts().Downloading)
}

func TestQueueCancelIsIdempotentOnTerminal(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	item, err := svc.Enqueue(queueCfg("https://example.com/a"), "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(item.ID))
	assert.Equal(t, 1, fx.cancelCount())

	got, err := svc.Item(item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCancelled, got.Status)

	// second cancel is a silent no-op
	require.NoError(t, svc.Cancel(item.ID))
	assert.Equal(t, 1, fx.cancelCount())

	assert.ErrorIs(t, svc.Cancel(999), ErrItemNotFound)
}

func TestQueueCancelPendingSkipsExecutor(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	_, err := svc.Enqueue(queueCfg("https://example.com/a"), "", "")
	require.NoError(t, err)
	b, err := svc.Enqueue(queueCfg("https://example.com/b"), "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(b.ID))
	assert.Zero(t, fx.cancelCount(), "pending items never reached the executor")

	got, err := svc.Item(b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCancelled, got.Status)
}

func TestQueueCancelSettlesWhenExecutorHangs(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)
	fx.blockCancel = make(chan struct{})
	defer close(fx.blockCancel)

	a, err := svc.Enqueue(queueCfg("https://e.com/a"), "", "")
	require.NoError(t, err)
	b, err := svc.Enqueue(queueCfg("https://e.com/b"), "", "")
	require.NoError(t, err)

	// the executor never answers; cancel must return within its bound
	start := time.Now()
	require.NoError(t, svc.Cancel(a.ID))
	assert.Less(t, time.Since(start), time.Second)

	got, err := svc.Item(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCancelled, got.Status)

	// the queue keeps working: the freed slot promotes the next item
	got, err = svc.Item(b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusDownloading, got.Status)
	assert.Equal(t, 2, svc.Counts().Total)

	// pausing with the cancel still unacked must not wedge either
	start = time.Now()
	svc.PauseAll()
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, svc.Paused())
}

func TestQueueRemoveRequiresTerminal(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	item, err := svc.Enqueue(queueCfg("https://example.com/a"), "", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(item.ID), ErrItemNotTerminal)

	fx.emit(fx.lastHandle(), completedEvent("/a.mp4"))
	require.NoError(t, svc.Remove(item.ID))

	_, err = svc.Item(item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, svc.Remove(item.ID), ErrItemNotFound)
}

func TestQueueMoveUpAndDown(t *testing.T) {
	svc, _, _ := newQueueFixture(1)

	_, err := svc.Enqueue(queueCfg("https://e.com/running"), "", "")
	require.NoError(t, err)
	b, err := svc.Enqueue(queueCfg("https://e.com/b"), "", "")
	require.NoError(t, err)
	c, err := svc.Enqueue(queueCfg("https://e.com/c"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://e.com/d"), "", "")
	require.NoError(t, err)

	require.NoError(t, svc.MoveUp(c.ID))
	assert.Equal(t, []string{"https://e.com/c", "https://e.com/b", "https://e.com/d"}, pendingURLs(svc))

	// head cannot move further up
	require.NoError(t, svc.MoveUp(c.ID))
	assert.Equal(t, []string{"https://e.com/c", "https://e.com/b", "https://e.com/d"}, pendingURLs(svc))

	require.NoError(t, svc.MoveDown(b.ID))
	assert.Equal(t, []string{"https://e.com/c", "https://e.com/d", "https://e.com/b"}, pendingURLs(svc))

	// tail cannot move further down
	require.NoError(t, svc.MoveDown(b.ID))
	assert.Equal(t, []string{"https://e.com/c", "https://e.com/d", "https://e.com/b"}, pendingURLs(svc))
}

func TestQueueReorderIgnoresUnknownAndKeepsUnnamed(t *testing.T) {
	svc, _, _ := newQueueFixture(1)

	_, err := svc.Enqueue(queueCfg("https://e.com/running"), "", "")
	require.NoError(t, err)
	b, err := svc.Enqueue(queueCfg("https://e.com/b"), "", "")
	require.NoError(t, err)
	c, err := svc.Enqueue(queueCfg("https://e.com/c"), "", "")
	require.NoError(t, err)
	d, err := svc.Enqueue(queueCfg("https://e.com/d"), "", "")
	require.NoError(t, err)

	// name d and b; c is unnamed and keeps its place after them; 999 is junk
	svc.Reorder([]uint64{d.ID, 999, b.ID})
	assert.Equal(t, []string{"https://e.com/d", "https://e.com/b", "https://e.com/c"}, pendingURLs(svc))
	_ = c
}

func TestQueuePauseRetainsRunningItems(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	a, err := svc.Enqueue(queueCfg("https://e.com/a"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://e.com/b"), "", "")
	require.NoError(t, err)

	fx.emit(fx.lastHandle(), progressEvent(30))

	svc.PauseAll()
	assert.True(t, svc.Paused())
	assert.Equal(t, 1, fx.cancelCount())

	got, err := svc.Item(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusPending, got.Status)
	assert.Zero(t, got.Progress)

	// the interrupted item resumes ahead of the untouched one
	assert.Equal(t, []string{"https://e.com/a", "https://e.com/b"}, pendingURLs(svc))

	// nothing is promoted while paused
	_, err = svc.Enqueue(queueCfg("https://e.com/c"), "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.startCount())

	svc.ResumeAll()
	assert.False(t, svc.Paused())
	assert.Equal(t, 2, fx.startCount())

	got, err = svc.Item(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusDownloading, got.Status)
}

func TestQueueClearCompletedDropsAllTerminal(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	_, err := svc.Enqueue(queueCfg("https://e.com/a"), "", "")
	require.NoError(t, err)
	b, err := svc.Enqueue(queueCfg("https://e.com/b"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://e.com/c"), "", "")
	require.NoError(t, err)

	fx.emit(fx.lastHandle(), completedEvent("/a.mp4"))
	require.NoError(t, svc.Cancel(b.ID))

	// a completed, b cancelled, c downloading
	assert.Equal(t, 2, svc.ClearCompleted())

	counts := svc.Counts()
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.Downloading)
}

func TestQueueRetryFailedRependsItem(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	a, err := svc.Enqueue(queueCfg("https://e.com/a"), "", "")
	require.NoError(t, err)

	fx.emit(fx.lastHandle(), errorEvent("Connection timed out"))

	got, err := svc.Item(a.ID)
	require.NoError(t, err)
	require.Equal(t, model.QueueStatusFailed, got.Status)

	assert.ErrorIs(t, svc.RetryFailed(999), ErrItemNotFound)

	require.NoError(t, svc.RetryFailed(a.ID))
	assert.Equal(t, 2, fx.startCount())

	got, err = svc.Item(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusDownloading, got.Status)
	assert.Empty(t, got.Error)

	assert.ErrorIs(t, svc.RetryFailed(a.ID), ErrItemNotFailed)
}

func TestQueueCountsTrackEveryStatus(t *testing.T) {
	svc, fx, _ := newQueueFixture(2)

	_, err := svc.Enqueue(queueCfg("https://e.com/a"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://e.com/b"), "", "")
	require.NoError(t, err)
	c, err := svc.Enqueue(queueCfg("https://e.com/c"), "", "")
	require.NoError(t, err)
	d, err := svc.Enqueue(queueCfg("https://e.com/d"), "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(d.ID))
	fx.emit("job-1", completedEvent("/a.mp4"))
	fx.emit("job-2", errorEvent("ERROR: Video unavailable"))

	counts := svc.Counts()
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, 1, counts.Failed)
	assert.Equal(t, 1, counts.Cancelled)
	// c was promoted as slots freed up
	assert.Equal(t, 1, counts.Downloading)
	assert.Zero(t, counts.Pending)

	got, err := svc.Item(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusDownloading, got.Status)
}

func TestQueueSnapshotOrdering(t *testing.T) {
	svc, fx, _ := newQueueFixture(1)

	_, err := svc.Enqueue(queueCfg("https://e.com/first"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://e.com/second"), "", "")
	require.NoError(t, err)
	_, err = svc.Enqueue(queueCfg("https://e.com/third"), "", "")
	require.NoError(t, err)

	fx.emit(fx.lastHandle(), completedEvent("/first.mp4"))

	snap := svc.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, model.QueueStatusDownloading, snap[0].Status)
	assert.Equal(t, "https://e.com/second", snap[0].Config.URL)
	assert.Equal(t, model.QueueStatusPending, snap[1].Status)
	assert.Equal(t, "https://e.com/third", snap[1].Config.URL)
	assert.Equal(t, model.QueueStatusCompleted, snap[2].Status)
}

func TestQueueBatchEnqueue(t *testing.T) {
	svc, fx, _ := newQueueFixture(2)

	items := svc.EnqueueBatch([]model.DownloadConfig{
		queueCfg("https://e.com/p1"),
		queueCfg("https://e.com/p2"),
		queueCfg("https://e.com/p3"),
	})
	require.Len(t, items, 3)
	assert.Equal(t, 2, fx.startCount())
	assert.Equal(t, 1, svc.Counts().Pending)
}

func TestQueuePublishesUpdates(t *testing.T) {
	svc, _, pub := newQueueFixture(1)

	_, err := svc.Enqueue(queueCfg("https://e.com/a"), "", "")
	require.NoError(t, err)

	assert.Contains(t, pub.names(), EventQueueUpdate)
}

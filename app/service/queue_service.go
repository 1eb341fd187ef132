package service

import (
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"downpour/app/executor"
	"downpour/app/logger"
	"downpour/app/model"
)

var (
	// ErrItemNotFound means no queue item carries the given id
	ErrItemNotFound = errors.New("queue item not found")
	// ErrItemNotTerminal means the operation needs a finished item
	ErrItemNotTerminal = errors.New("queue item is not finished")
	// ErrItemNotFailed means retry was requested for a non-failed item
	ErrItemNotFailed = errors.New("queue item is not failed")
)

// EventQueueUpdate carries the full queue snapshot after every mutation.
const EventQueueUpdate = "queue-update"

// QueueCounts are the live per-status totals, recomputed on demand so they
// can never drift from the items themselves.
type QueueCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Downloading int `json:"downloading"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Cancelled   int `json:"cancelled"`
}

// queueRun tracks one item handed to the executor. The generation stamps
// the event sink so callbacks from a superseded run are dropped.
type queueRun struct {
	handle executor.Handle
	gen    uint64
}

// QueueService schedules the multi-item download queue: items wait in an
// explicit pending order and are promoted whenever a slot is free. All
// state lives in memory under one mutex; sqlite only mirrors it so the
// queue survives restarts.
type QueueService struct {
	logger  *logger.Logger
	exec    executor.Executor
	events  EventPublisher
	history *HistoryService
	db      *gorm.DB

	maxConcurrent int
	cancelAck     time.Duration

	mu      sync.Mutex
	items   map[uint64]*model.QueueItem
	pending []uint64
	active  map[uint64]*queueRun
	nextID  uint64
	gen     uint64
	paused  bool
}

// NewQueueService creates the scheduler. db may be nil, in which case the
// queue is memory-only. maxConcurrent 0 means unbounded. cancelAck bounds
// how long a cancel waits for the executor to acknowledge.
func NewQueueService(log *logger.Logger, exec executor.Executor, events EventPublisher,
	history *HistoryService, db *gorm.DB, maxConcurrent int, cancelAck time.Duration) *QueueService {
	if cancelAck <= 0 {
		cancelAck = 3 * time.Second
	}
	return &QueueService{
		logger:        log,
		exec:          exec,
		events:        events,
		history:       history,
		db:            db,
		maxConcurrent: maxConcurrent,
		cancelAck:     cancelAck,
		items:         make(map[uint64]*model.QueueItem),
		active:        make(map[uint64]*queueRun),
		nextID:        1,
	}
}

// Load restores the persisted queue. Items that were mid-download when the
// process died come back as pending so they get picked up again.
func (s *QueueService) Load() error {
	if s.db == nil {
		return nil
	}

	var rows []model.QueueItem
	if err := s.db.Find(&rows).Error; err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range rows {
		item := rows[i]
		if item.IsActive() {
			item.Status = model.QueueStatusPending
			item.Progress = 0
			item.Speed = ""
			item.ETASeconds = 0
		}
		s.items[item.ID] = &item
		if item.ID >= s.nextID {
			s.nextID = item.ID + 1
		}
		if item.Status == model.QueueStatusPending {
			s.pending = append(s.pending, item.ID)
		}
	}
	sort.Slice(s.pending, func(i, j int) bool {
		return s.items[s.pending[i]].Position < s.items[s.pending[j]].Position
	})

	s.logger.Infof("queue restored: %d items, %d pending", len(s.items), len(s.pending))
	return nil
}

// Resume kicks the scheduler after Load, promoting whatever fits.
func (s *QueueService) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
	s.afterMutationLocked()
}

// Enqueue appends a new pending item and promotes it if a slot is free.
func (s *QueueService) Enqueue(cfg model.DownloadConfig, title, thumbnail string) (model.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &model.QueueItem{
		ID:        s.nextID,
		Config:    cfg,
		Status:    model.QueueStatusPending,
		Title:     title,
		Thumbnail: thumbnail,
		CreatedAt: nowFunc(),
	}
	s.nextID++
	s.items[item.ID] = item
	s.pending = append(s.pending, item.ID)

	s.scheduleLocked()
	s.afterMutationLocked()
	return *item, nil
}

// EnqueueBatch adds several items at once, e.g. an expanded playlist.
func (s *QueueService) EnqueueBatch(cfgs []model.DownloadConfig) []model.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.QueueItem, 0, len(cfgs))
	for _, cfg := range cfgs {
		item := &model.QueueItem{
			ID:        s.nextID,
			Config:    cfg,
			Status:    model.QueueStatusPending,
			CreatedAt: nowFunc(),
		}
		s.nextID++
		s.items[item.ID] = item
		s.pending = append(s.pending, item.ID)
		out = append(out, *item)
	}

	s.scheduleLocked()
	s.afterMutationLocked()
	return out
}

// Cancel stops a pending or running item. Cancelling an item that already
// reached an end status is a no-op. The item is settled immediately; the
// executor cancel happens outside the lock with a bounded wait, so a hung
// executor cannot stall the queue.
func (s *QueueService) Cancel(id uint64) error {
	s.mu.Lock()

	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if item.IsTerminal() {
		s.mu.Unlock()
		return nil
	}

	var handle executor.Handle
	if run, running := s.active[id]; running {
		delete(s.active, id)
		handle = run.handle
	} else {
		s.removePendingLocked(id)
	}

	item.SetCancelled()
	s.scheduleLocked()
	s.afterMutationLocked()
	s.mu.Unlock()

	if handle != "" {
		s.dispatchCancel(id, handle)
	}
	return nil
}

// dispatchCancel sends the executor cancel for an item whose local state is
// already settled. Must not be called with s.mu held.
func (s *QueueService) dispatchCancel(id uint64, handle executor.Handle) {
	done := make(chan error, 1)
	go func() {
		done <- s.exec.CancelJob(handle)
	}()
	select {
	case err := <-done:
		if err != nil {
			s.logger.Warnf("executor cancel failed for queue item %d: %v", id, err)
		}
	case <-time.After(s.cancelAck):
		s.logger.Warnf("executor did not acknowledge cancel for queue item %d within %s", id, s.cancelAck)
	}
}

// Remove deletes a finished item. Pending or running items must be
// cancelled first.
func (s *QueueService) Remove(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if !item.IsTerminal() {
		return ErrItemNotTerminal
	}

	delete(s.items, id)
	s.afterMutationLocked()
	return nil
}

// MoveUp swaps a pending item with its predecessor. The head is left alone.
func (s *QueueService) MoveUp(id uint64) error {
	return s.swapPending(id, -1)
}

// MoveDown swaps a pending item with its successor. The tail is left alone.
func (s *QueueService) MoveDown(id uint64) error {
	return s.swapPending(id, +1)
}

func (s *QueueService) swapPending(id uint64, dir int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrItemNotFound
	}
	for i, pid := range s.pending {
		if pid != id {
			continue
		}
		j := i + dir
		if j < 0 || j >= len(s.pending) {
			return nil
		}
		s.pending[i], s.pending[j] = s.pending[j], s.pending[i]
		s.afterMutationLocked()
		return nil
	}
	return nil
}

// Reorder rewrites the pending order. Ids that are unknown or not pending
// are ignored; pending items missing from ids keep their relative order
// after the named ones.
func (s *QueueService) Reorder(ids []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inPending := make(map[uint64]bool, len(s.pending))
	for _, id := range s.pending {
		inPending[id] = true
	}

	next := make([]uint64, 0, len(s.pending))
	named := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if inPending[id] && !named[id] {
			next = append(next, id)
			named[id] = true
		}
	}
	for _, id := range s.pending {
		if !named[id] {
			next = append(next, id)
		}
	}

	s.pending = next
	s.afterMutationLocked()
}

// PauseAll halts the queue: running items are cancelled but kept, returning
// to the head of the pending order, and no item is promoted until resume.
// Executor cancels run outside the lock, in parallel, under one bounded wait.
func (s *QueueService) PauseAll() {
	s.mu.Lock()

	s.paused = true

	retained := make([]uint64, 0, len(s.active))
	handles := make(map[uint64]executor.Handle, len(s.active))
	for id, run := range s.active {
		handles[id] = run.handle
		item := s.items[id]
		item.Status = model.QueueStatusPending
		item.Progress = 0
		item.Speed = ""
		item.ETASeconds = 0
		retained = append(retained, id)
	}
	s.active = make(map[uint64]*queueRun)
	s.gen++

	sort.Slice(retained, func(i, j int) bool {
		return s.items[retained[i]].Position < s.items[retained[j]].Position
	})
	s.pending = append(retained, s.pending...)

	s.afterMutationLocked()
	s.mu.Unlock()

	if len(handles) == 0 {
		return
	}
	var wg sync.WaitGroup
	for id, handle := range handles {
		wg.Add(1)
		go func(id uint64, handle executor.Handle) {
			defer wg.Done()
			if err := s.exec.CancelJob(handle); err != nil {
				s.logger.Warnf("executor cancel failed for queue item %d: %v", id, err)
			}
		}(id, handle)
	}
	acked := make(chan struct{})
	go func() {
		wg.Wait()
		close(acked)
	}()
	select {
	case <-acked:
	case <-time.After(s.cancelAck):
		s.logger.Warnf("executor did not acknowledge pause cancels within %s", s.cancelAck)
	}
}

// ResumeAll lifts the pause and promotes whatever fits.
func (s *QueueService) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = false
	s.scheduleLocked()
	s.afterMutationLocked()
}

// Paused reports whether admission is currently blocked.
func (s *QueueService) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// ClearCompleted drops every finished item, whatever its outcome.
func (s *QueueService) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, item := range s.items {
		if item.IsTerminal() {
			delete(s.items, id)
			removed++
		}
	}
	if removed > 0 {
		s.afterMutationLocked()
	}
	return removed
}

// RetryFailed puts a failed item back at the end of the pending order.
func (s *QueueService) RetryFailed(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if item.Status != model.QueueStatusFailed {
		return ErrItemNotFailed
	}

	item.Status = model.QueueStatusPending
	item.Progress = 0
	item.Speed = ""
	item.ETASeconds = 0
	item.Error = ""
	item.FinishedAt = nil
	s.pending = append(s.pending, id)

	s.scheduleLocked()
	s.afterMutationLocked()
	return nil
}

// Snapshot lists the queue: running items first, then pending in their
// explicit order, then finished items newest first.
func (s *QueueService) Snapshot() []model.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Counts returns the live totals.
func (s *QueueService) Counts() QueueCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

// Item returns a copy of one queue item.
func (s *QueueService) Item(id uint64) (model.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return model.QueueItem{}, ErrItemNotFound
	}
	return *item, nil
}

func (s *QueueService) snapshotLocked() []model.QueueItem {
	out := make([]model.QueueItem, 0, len(s.items))

	var running []uint64
	for id := range s.active {
		running = append(running, id)
	}
	sort.Slice(running, func(i, j int) bool {
		return s.items[running[i]].Position < s.items[running[j]].Position
	})
	for _, id := range running {
		out = append(out, *s.items[id])
	}
	for _, id := range s.pending {
		out = append(out, *s.items[id])
	}

	var done []*model.QueueItem
	for _, item := range s.items {
		if item.IsTerminal() {
			done = append(done, item)
		}
	}
	sort.Slice(done, func(i, j int) bool {
		a, b := done[i].FinishedAt, done[j].FinishedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	for _, item := range done {
		out = append(out, *item)
	}
	return out
}

func (s *QueueService) countsLocked() QueueCounts {
	c := QueueCounts{Total: len(s.items)}
	for _, item := range s.items {
		switch item.Status {
		case model.QueueStatusPending:
			c.Pending++
		case model.QueueStatusDownloading, model.QueueStatusMerging:
			c.Downloading++
		case model.QueueStatusCompleted:
			c.Completed++
		case model.QueueStatusFailed:
			c.Failed++
		case model.QueueStatusCancelled:
			c.Cancelled++
		}
	}
	return c
}

// scheduleLocked promotes pending items into free slots.
func (s *QueueService) scheduleLocked() {
	if s.paused {
		return
	}
	for len(s.pending) > 0 {
		if s.maxConcurrent > 0 && len(s.active) >= s.maxConcurrent {
			return
		}
		id := s.pending[0]
		s.pending = s.pending[1:]
		s.startLocked(id)
	}
}

func (s *QueueService) startLocked(id uint64) {
	item := s.items[id]
	s.gen++
	run := &queueRun{gen: s.gen}
	s.active[id] = run
	item.SetDownloading()

	gen := run.gen
	handle, err := s.exec.StartJob(item.Config, func(ev executor.Event) {
		s.onEvent(id, gen, ev)
	})
	if err != nil {
		delete(s.active, id)
		item.SetFailed(err.Error())
		s.logger.Errorf("queue item %d failed to start: %v", id, err)
		return
	}
	run.handle = handle
	s.logger.Infof("queue item %d started: %s", id, item.Config.URL)
}

// onEvent applies one executor event to a queue item. Stale callbacks from
// cancelled or paused runs fail the generation check and are dropped.
func (s *QueueService) onEvent(id uint64, gen uint64, ev executor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.active[id]
	if !ok || run.gen != gen {
		return
	}
	item := s.items[id]

	switch ev.Type {
	case executor.EventProgress:
		item.ApplyProgress(*ev.Progress)
		s.publishLocked()
		return

	case executor.EventMerging:
		item.Status = model.QueueStatusMerging
		s.publishLocked()
		return

	case executor.EventError:
		delete(s.active, id)
		item.SetFailed(ev.Message)
		s.logger.Warnf("queue item %d failed: %s", id, ev.Message)

	case executor.EventCompleted:
		delete(s.active, id)
		if ev.Result != nil && ev.Result.Success {
			item.SetCompleted(ev.Result.FilePath)
			if s.history != nil {
				s.history.Record(item.Config, item.FilePath, &model.Progress{Percentage: 100})
			}
		} else {
			msg := "download failed"
			if ev.Result != nil && ev.Result.Error != "" {
				msg = ev.Result.Error
			}
			item.SetFailed(msg)
		}
	}

	s.scheduleLocked()
	s.afterMutationLocked()
}

// afterMutationLocked renumbers positions, mirrors the queue to sqlite and
// pushes the fresh snapshot to clients.
func (s *QueueService) afterMutationLocked() {
	pos := 0
	for _, id := range s.pending {
		s.items[id].Position = pos
		pos++
	}
	s.persistLocked()
	s.publishLocked()
}

func (s *QueueService) publishLocked() {
	if s.events != nil {
		s.events.Publish(EventQueueUpdate, map[string]any{
			"items":  s.snapshotLocked(),
			"counts": s.countsLocked(),
			"paused": s.paused,
		})
	}
}

// persistLocked rewrites the queue table wholesale. The table is a mirror
// of memory, never the source of truth while the process runs.
func (s *QueueService) persistLocked() {
	if s.db == nil {
		return
	}

	rows := make([]model.QueueItem, 0, len(s.items))
	for _, item := range s.items {
		rows = append(rows, *item)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.QueueItem{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		s.logger.Errorf("queue persist failed: %v", err)
	}
}

func (s *QueueService) removePendingLocked(id uint64) {
	for i, pid := range s.pending {
		if pid == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

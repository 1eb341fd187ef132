package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"downpour/app/model"
	"downpour/app/service"
)

// QueueHandler serves the multi-item download queue.
type QueueHandler struct {
	queue *service.QueueService
}

// NewQueueHandler creates the queue endpoints.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

func (h *QueueHandler) itemID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid queue item id")
		return 0, false
	}
	return id, true
}

func (h *QueueHandler) respondItemErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrItemNotTerminal), errors.Is(err, service.ErrItemNotFailed):
		fail(c, http.StatusConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

// List returns the full queue with counts.
func (h *QueueHandler) List(c *gin.Context) {
	success(c, gin.H{
		"items":  h.queue.Snapshot(),
		"counts": h.queue.Counts(),
		"paused": h.queue.Paused(),
	}, "")
}

// AddRequest is the enqueue payload.
type AddRequest struct {
	Config    model.DownloadConfig `json:"config" binding:"required"`
	Title     string               `json:"title"`
	Thumbnail string               `json:"thumbnail"`
}

// Add appends one item to the queue.
func (h *QueueHandler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Config.URL == "" {
		fail(c, http.StatusBadRequest, "url is required")
		return
	}

	item, err := h.queue.Enqueue(req.Config, req.Title, req.Thumbnail)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, item, "queued")
}

// AddBatchRequest enqueues several configs at once.
type AddBatchRequest struct {
	Configs []model.DownloadConfig `json:"configs" binding:"required,min=1"`
}

// AddBatch appends several items, e.g. an expanded playlist.
func (h *QueueHandler) AddBatch(c *gin.Context) {
	var req AddBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	success(c, h.queue.EnqueueBatch(req.Configs), "queued")
}

// Cancel stops one item.
func (h *QueueHandler) Cancel(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	if err := h.queue.Cancel(id); err != nil {
		h.respondItemErr(c, err)
		return
	}
	success(c, nil, "cancelled")
}

// Remove deletes a finished item.
func (h *QueueHandler) Remove(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	if err := h.queue.Remove(id); err != nil {
		h.respondItemErr(c, err)
		return
	}
	success(c, nil, "removed")
}

// MoveUp shifts a pending item one place earlier.
func (h *QueueHandler) MoveUp(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	if err := h.queue.MoveUp(id); err != nil {
		h.respondItemErr(c, err)
		return
	}
	success(c, nil, "")
}

// MoveDown shifts a pending item one place later.
func (h *QueueHandler) MoveDown(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	if err := h.queue.MoveDown(id); err != nil {
		h.respondItemErr(c, err)
		return
	}
	success(c, nil, "")
}

// ReorderRequest is the full intended pending order.
type ReorderRequest struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

// Reorder rewrites the pending order wholesale.
func (h *QueueHandler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	h.queue.Reorder(req.IDs)
	success(c, nil, "")
}

// PauseAll halts the queue, retaining running items.
func (h *QueueHandler) PauseAll(c *gin.Context) {
	h.queue.PauseAll()
	success(c, nil, "queue paused")
}

// ResumeAll lifts the pause.
func (h *QueueHandler) ResumeAll(c *gin.Context) {
	h.queue.ResumeAll()
	success(c, nil, "queue resumed")
}

// ClearCompleted drops all finished items.
func (h *QueueHandler) ClearCompleted(c *gin.Context) {
	removed := h.queue.ClearCompleted()
	success(c, gin.H{"removed": removed}, "")
}

// Retry re-pends a failed item.
func (h *QueueHandler) Retry(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	if err := h.queue.RetryFailed(id); err != nil {
		h.respondItemErr(c, err)
		return
	}
	success(c, nil, "retrying")
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"downpour/app/service"
)

// HistoryHandler serves the finished-downloads history.
type HistoryHandler struct {
	history *service.HistoryService
}

// NewHistoryHandler creates the history endpoints.
func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List returns history entries newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.history.List(limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, entries, "")
}

// Delete removes one history entry.
func (h *HistoryHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid history id")
		return
	}
	if err := h.history.Delete(uint(id)); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, nil, "deleted")
}

// Clear wipes the history.
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.history.Clear(); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, nil, "history cleared")
}

// Stats returns aggregate download totals.
func (h *HistoryHandler) Stats(c *gin.Context) {
	stats, err := h.history.Stats()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, stats, "")
}

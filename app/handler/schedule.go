package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"downpour/app/service"
)

// ScheduleHandler serves time-scheduled downloads.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler creates the schedule endpoints.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// List returns all scheduled entries, soonest first.
func (h *ScheduleHandler) List(c *gin.Context) {
	success(c, h.schedule.List(), "")
}

// AddScheduleRequest registers a future download.
type AddScheduleRequest struct {
	URL           string    `json:"url" binding:"required,url"`
	Format        string    `json:"format"`
	Quality       string    `json:"quality"`
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
}

// Add registers a download for a future time.
func (h *ScheduleHandler) Add(c *gin.Context) {
	var req AddScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	entry, err := h.schedule.Add(req.URL, req.Format, req.Quality, req.ScheduledTime)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, entry, "scheduled")
}

// Remove deletes a scheduled entry.
func (h *ScheduleHandler) Remove(c *gin.Context) {
	if err := h.schedule.Remove(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			fail(c, http.StatusNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, nil, "removed")
}

// SetEnabledRequest toggles a scheduled entry.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetEnabled enables or disables an entry without removing it.
func (h *ScheduleHandler) SetEnabled(c *gin.Context) {
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	entry, err := h.schedule.SetEnabled(c.Param("id"), *req.Enabled)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			fail(c, http.StatusNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, entry, "")
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"downpour/app/executor"
	"downpour/app/model"
	"downpour/app/service"
)

// DownloadHandler serves the single foreground download job.
type DownloadHandler struct {
	download *service.DownloadService
	exec     executor.Executor
}

// NewDownloadHandler creates the download endpoints.
func NewDownloadHandler(download *service.DownloadService, exec executor.Executor) *DownloadHandler {
	return &DownloadHandler{download: download, exec: exec}
}

// Start submits a new download.
func (h *DownloadHandler) Start(c *gin.Context) {
	var cfg model.DownloadConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.download.Start(c.Request.Context(), cfg); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAlreadyDownloading):
			fail(c, http.StatusConflict, err.Error())
		default:
			fail(c, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	success(c, h.download.Snapshot(), "download started")
}

// Cancel stops the active download.
func (h *DownloadHandler) Cancel(c *gin.Context) {
	if err := h.download.Cancel(); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, h.download.Snapshot(), "download cancelled")
}

// Reset returns a finished job to idle.
func (h *DownloadHandler) Reset(c *gin.Context) {
	if err := h.download.Reset(); err != nil {
		fail(c, http.StatusConflict, err.Error())
		return
	}
	success(c, h.download.Snapshot(), "")
}

// Status returns the current job snapshot.
func (h *DownloadHandler) Status(c *gin.Context) {
	success(c, h.download.Snapshot(), "")
}

// ValidateFolderRequest names the folder to check.
type ValidateFolderRequest struct {
	Path              string `json:"path" binding:"required"`
	EstimatedSizeByte int64  `json:"estimated_size_bytes"`
}

// ValidateFolder checks an output folder before submission.
func (h *DownloadHandler) ValidateFolder(c *gin.Context) {
	var req ValidateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	check, err := h.exec.ValidateOutputFolder(req.Path, req.EstimatedSizeByte)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	success(c, check, "")
}

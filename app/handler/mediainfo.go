package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"downpour/app/model"
	"downpour/app/service"
)

// MediaInfoHandler serves metadata lookups and playlist expansion.
type MediaInfoHandler struct {
	media *service.MediaInfoService
	queue *service.QueueService
}

// NewMediaInfoHandler creates the media info endpoints.
func NewMediaInfoHandler(media *service.MediaInfoService, queue *service.QueueService) *MediaInfoHandler {
	return &MediaInfoHandler{media: media, queue: queue}
}

// Fetch resolves metadata for a URL, serving from cache when fresh.
func (h *MediaInfoHandler) Fetch(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		fail(c, http.StatusBadRequest, "url query parameter is required")
		return
	}

	info, err := h.media.Fetch(c.Request.Context(), url)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	success(c, gin.H{
		"info":        info,
		"is_playlist": h.media.IsPlaylist(url),
	}, "")
}

// PrefetchRequest warms the cache for a URL still being typed.
type PrefetchRequest struct {
	URL string `json:"url" binding:"required"`
}

// Prefetch schedules a debounced background metadata fetch.
func (h *MediaInfoHandler) Prefetch(c *gin.Context) {
	var req PrefetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	h.media.Prefetch(req.URL)
	success(c, nil, "")
}

// Playlist expands a playlist URL into its entries.
func (h *MediaInfoHandler) Playlist(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		fail(c, http.StatusBadRequest, "url query parameter is required")
		return
	}

	info, err := h.media.FetchPlaylist(c.Request.Context(), url)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	success(c, info, "")
}

// EnqueuePlaylistRequest queues every entry of a playlist.
type EnqueuePlaylistRequest struct {
	URL  string               `json:"url" binding:"required,url"`
	Base model.DownloadConfig `json:"base"`
}

// EnqueuePlaylist expands a playlist and queues all entries with the shared
// base config.
func (h *MediaInfoHandler) EnqueuePlaylist(c *gin.Context) {
	var req EnqueuePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	info, err := h.media.FetchPlaylist(c.Request.Context(), req.URL)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	items := h.queue.EnqueueBatch(h.media.PlaylistConfigs(info, req.Base))
	success(c, gin.H{
		"playlist": info.Title,
		"queued":   len(items),
		"items":    items,
	}, "playlist queued")
}

// ClearCache wipes the metadata and playlist caches.
func (h *MediaInfoHandler) ClearCache(c *gin.Context) {
	h.media.ClearCache()
	success(c, nil, "cache cleared")
}

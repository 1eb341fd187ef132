package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"downpour/app/network"
)

// NetworkHandler exposes connectivity state to the UI.
type NetworkHandler struct {
	monitor *network.Monitor
}

// NewNetworkHandler creates the network endpoints.
func NewNetworkHandler(monitor *network.Monitor) *NetworkHandler {
	return &NetworkHandler{monitor: monitor}
}

// Status returns the last known connectivity snapshot.
func (h *NetworkHandler) Status(c *gin.Context) {
	success(c, h.monitor.Status(), "")
}

// OnlineRequest is the browser's navigator.onLine report.
type OnlineRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// ReportOnline receives the frontend's online/offline signal. Coming back
// online triggers an asynchronous probe.
func (h *NetworkHandler) ReportOnline(c *gin.Context) {
	var req OnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	h.monitor.SetOnline(*req.Online)
	success(c, h.monitor.Status(), "")
}

// Verify runs an immediate connectivity probe and returns the result.
func (h *NetworkHandler) Verify(c *gin.Context) {
	h.monitor.Verify(c.Request.Context())
	success(c, h.monitor.Status(), "")
}

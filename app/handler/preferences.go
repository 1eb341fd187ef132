package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"downpour/app/model"
	"downpour/app/service"
)

// PreferencesHandler serves the user's default download settings.
type PreferencesHandler struct {
	prefs *service.PreferencesService
}

// NewPreferencesHandler creates the preferences endpoints.
func NewPreferencesHandler(prefs *service.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// Get returns the saved preferences or the defaults.
func (h *PreferencesHandler) Get(c *gin.Context) {
	prefs, err := h.prefs.Get()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, prefs, "")
}

// Save replaces the preferences.
func (h *PreferencesHandler) Save(c *gin.Context) {
	var prefs model.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	saved, err := h.prefs.Save(prefs)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, saved, "preferences saved")
}

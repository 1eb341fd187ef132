package model

import (
	"time"
)

// Preferences holds the user's default download settings. A single row is
// kept and rewritten on every save.
type Preferences struct {
	ID                 uint      `json:"-" gorm:"primarykey"`
	OutputFolder       string    `json:"output_folder"`
	Format             string    `json:"format" gorm:"size:20;default:video-mp4"`
	Quality            string    `json:"quality" gorm:"size:20;default:best"`
	EmbedSubtitles     bool      `json:"embed_subtitles"`
	CookiesFromBrowser string    `json:"cookies_from_browser,omitempty"`
	ProxyEnabled       bool      `json:"proxy_enabled"`
	ProxyURL           string    `json:"proxy_url,omitempty"`
	UpdatedAt          time.Time `json:"-"`
}

// TableName sets the preferences table.
func (Preferences) TableName() string {
	return "preferences"
}

// DefaultPreferences returns the out-of-the-box settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Format:  "video-mp4",
		Quality: "best",
	}
}

package model

// MediaInfo is metadata fetched for a URL before downloading.
type MediaInfo struct {
	Title          string  `json:"title"`
	Thumbnail      string  `json:"thumbnail,omitempty"`
	DurationSec    float64 `json:"duration_sec,omitempty"`
	Uploader       string  `json:"uploader,omitempty"`
	FilesizeApprox int64   `json:"filesize_approx,omitempty"`
}

// PlaylistEntry is one video inside a playlist.
type PlaylistEntry struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Duration int64  `json:"duration,omitempty"`
	Index    int    `json:"index"`
}

// PlaylistInfo describes a playlist URL and its entries.
type PlaylistInfo struct {
	Title   string          `json:"title"`
	URL     string          `json:"url"`
	Entries []PlaylistEntry `json:"entries"`
}

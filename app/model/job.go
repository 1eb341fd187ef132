package model

// DownloadConfig describes one requested download, as submitted by the UI.
type DownloadConfig struct {
	URL string `json:"url"`
	// Output format: video-mp4, audio-mp3, audio-best
	Format string `json:"format"`
	// Quality: best, 1080p, 720p
	Quality string `json:"quality"`
	// Destination folder for the finished file
	OutputFolder string `json:"output_folder"`
	// Whether to embed subtitles into the output
	EmbedSubtitles bool `json:"embed_subtitles"`
	// Browser to import cookies from (chrome, firefox, edge, ...)
	CookiesFromBrowser string `json:"cookies_from_browser,omitempty"`
	// Path to a cookies.txt file in Netscape format
	CookiesFilePath string `json:"cookies_file_path,omitempty"`
	// Proxy URL, e.g. http://127.0.0.1:8080 or socks5://127.0.0.1:1080
	ProxyURL string `json:"proxy_url,omitempty"`
	// Custom filename template, e.g. "{title} - {uploader}"
	FilenameTemplate string `json:"filename_template,omitempty"`
}

// Progress is a point-in-time progress report for a running download.
type Progress struct {
	Percentage      float64 `json:"percentage"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes,omitempty"`
	Speed           string  `json:"speed"`
	ETASeconds      int64   `json:"eta_seconds,omitempty"`
	// Status is "downloading" or "merging"
	Status string `json:"status"`
}

// RetryState is surfaced to the UI while the coordinator walks through
// the retry sequence of a failed job.
type RetryState struct {
	Attempt    int    `json:"attempt"`
	MaxRetries int    `json:"max_retries"`
	DelayMs    int64  `json:"delay_ms"`
	LastError  string `json:"last_error"`
}

// DownloadResult is the terminal outcome of a job.
type DownloadResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// JobSnapshot is a read-only view of the single foreground job.
type JobSnapshot struct {
	State    JobState        `json:"state"`
	Config   *DownloadConfig `json:"config,omitempty"`
	Progress *Progress       `json:"progress,omitempty"`
	Retry    *RetryState     `json:"retry,omitempty"`
	FilePath string          `json:"file_path,omitempty"`
	Error    string          `json:"error,omitempty"`
	// SuggestedAction is a remediation hint for permanent failures
	SuggestedAction string `json:"suggested_action,omitempty"`
}

package models

import "time"

const (
	DefaultTitle = "Unknown Title"
)

// VideoInfo represents video metadata resolved by the extractor
type VideoInfo struct {
	ID          string `json:"-"`
	Ext         string `json:"-"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
}

// ApplyDefaults fills in fallback values for missing metadata
func (v *VideoInfo) ApplyDefaults() {
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if v.Duration < 0 {
		v.Duration = 0
	}
}

// DownloadResult is returned after a file has been written to the output directory
type DownloadResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// LibraryEntry represents a downloaded file in the output directory
type LibraryEntry struct {
	ID         string    `json:"id"`
	FileName   string    `json:"filename"`
	Size       int64     `json:"size"`
	LastAccess time.Time `json:"lastAccess"`
	Created    time.Time `json:"created"`
}

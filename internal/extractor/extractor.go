// Package extractor wraps the external video-extraction tool behind a small
// interface with typed failures.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"videofetch/pkg/models"
)

// Extractor resolves video metadata and downloads video files
type Extractor interface {
	// ExtractInfo resolves metadata without downloading anything
	ExtractInfo(ctx context.Context, url string) (*models.VideoInfo, error)

	// Download writes the video to disk and returns the written file path
	// when the tool reports it, or an empty string when it does not
	Download(ctx context.Context, url string, opts DownloadOptions) (string, error)
}

// DownloadOptions are the per-call download settings
type DownloadOptions struct {
	// OutputTemplate is a yt-dlp output template, e.g. /dir/title.%(ext)s
	OutputTemplate string

	// Progress, when set, receives progress updates for server-side logging
	Progress func(Progress)
}

// Progress is a single download progress report
type Progress struct {
	DownloadedBytes int
	TotalBytes      int
	Filename        string
}

// Percent returns the completed fraction in [0, 100], or -1 when unknown
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return -1
	}
	return float64(p.DownloadedBytes) / float64(p.TotalBytes) * 100
}

// Kind classifies extractor failures
type Kind int

const (
	// KindFailed is any failure not covered by a more specific kind
	KindFailed Kind = iota
	// KindBotCheck means the site demands human verification
	KindBotCheck
	// KindUnavailable means the video is private, removed, or blocked
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindFailed:
		return "failed"
	case KindBotCheck:
		return "bot_check"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by Extractor implementations for tool failures
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates an Error, classifying message when kind is KindFailed
func NewError(kind Kind, message string) *Error {
	if kind == KindFailed {
		kind = Classify(message)
	}
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the Kind of err, or KindFailed when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailed
}

var (
	botCheckMarkers = []string{
		"confirm you're not a bot",
		"confirm you’re not a bot",
		"sign in to confirm",
	}
	unavailableMarkers = []string{
		"video unavailable",
		"private video",
		"this video has been removed",
		"this video is not available",
		"members-only",
	}
)

// Classify maps raw tool output onto a Kind. This depends on yt-dlp's
// error wording and is the only place that does.
func Classify(message string) Kind {
	lower := strings.ToLower(message)

	for _, marker := range botCheckMarkers {
		if strings.Contains(lower, marker) {
			return KindBotCheck
		}
	}

	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return KindUnavailable
		}
	}

	return KindFailed
}

// wrapContext converts context failures into a plain error so callers do
// not mistake a cancelled request for a tool failure
func wrapContext(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("extractor interrupted: %w", ctxErr)
	}
	return err
}

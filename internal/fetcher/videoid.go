package fetcher

import (
	"errors"
	"strings"
)

const (
	shortHostMarker = "youtu.be/"
	longHostMarker  = "youtube.com"

	canonicalWatchURL = "https://www.youtube.com/watch?v="
)

var (
	ErrEmptyLink  = errors.New("link is required")
	ErrInvalidURL = errors.New("invalid YouTube URL")
)

// pathForms are youtube.com path prefixes that carry the id as a segment
var pathForms = []string{"/embed/", "/shorts/", "/live/", "/v/"}

// ParseVideoID extracts the video identifier from a YouTube link
func ParseVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrEmptyLink
	}

	var id string
	switch {
	case strings.Contains(link, shortHostMarker):
		path := link[strings.Index(link, shortHostMarker)+len(shortHostMarker):]
		path, _, _ = strings.Cut(path, "?")
		id = path[strings.LastIndex(path, "/")+1:]
	case strings.Contains(link, longHostMarker):
		id = longHostID(link)
	default:
		return "", ErrInvalidURL
	}

	id, _, _ = strings.Cut(id, "#")
	if id == "" {
		return "", ErrInvalidURL
	}

	return id, nil
}

// longHostID reads the v query parameter, falling back to the path forms
func longHostID(link string) string {
	if _, query, ok := strings.Cut(link, "?"); ok {
		for _, param := range strings.Split(query, "&") {
			if value, found := strings.CutPrefix(param, "v="); found {
				return value
			}
		}
	}

	for _, form := range pathForms {
		idx := strings.Index(link, form)
		if idx < 0 {
			continue
		}
		rest := link[idx+len(form):]
		rest, _, _ = strings.Cut(rest, "?")
		rest, _, _ = strings.Cut(rest, "/")
		return rest
	}

	return ""
}

// CanonicalURL returns the watch URL for a video id
func CanonicalURL(id string) string {
	return canonicalWatchURL + id
}

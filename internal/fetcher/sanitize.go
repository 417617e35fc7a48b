package fetcher

import "strings"

const unsafeFilenameChars = `<>:"/\|?*`

// SanitizeTitle strips filesystem-unsafe characters from a video title
func SanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			return -1
		}
		return r
	}, title)
}

// baseName returns the sanitized title without leading dots, or the video
// id when nothing usable is left. Dot files are never served.
func baseName(title, id string) string {
	name := strings.TrimLeft(SanitizeTitle(title), ".")
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}

// escapeTemplate escapes yt-dlp output template syntax in a literal name
func escapeTemplate(name string) string {
	return strings.ReplaceAll(name, "%", "%%")
}

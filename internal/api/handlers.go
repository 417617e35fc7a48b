package api

import (
	"errors"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"videofetch/internal/extractor"
	"videofetch/internal/fetcher"
	"videofetch/internal/storage"
)

const (
	msgLinkRequired   = "Link is required"
	msgInvalidURL     = "Invalid YouTube URL"
	msgBotCheck       = "YouTube requires sign-in verification for this video. Please upgrade yt-dlp to the latest version and try again."
	msgFetchFailed    = "Failed to fetch video info: "
	msgDownloadFailed = "Download failed: "
	msgFileNotFound   = "Download failed: output file not found"
	msgInternal       = "Internal server error: "
	msgIndexNotFound  = "index.html not found"
	formFieldLink     = "link"
	indexContentType  = "text/html; charset=utf-8"
)

// handleIndex serves the configured HTML page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.config.Storage.IndexFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, msgIndexNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, msgInternal+err.Error())
		return
	}

	w.Header().Set("Content-Type", indexContentType)
	w.Write(data)
}

// handleVideoInfo handles POST /video-info
func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.fetcher.Info(r.Context(), r.FormValue(formFieldLink))
	if err != nil {
		s.writeFetchError(w, r, err, msgFetchFailed)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleDownload handles POST /download
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	result, err := s.fetcher.Download(r.Context(), r.FormValue(formFieldLink))
	if err != nil {
		s.writeFetchError(w, r, err, msgDownloadFailed)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeFetchError maps fetch pipeline errors onto HTTP responses
func (s *Server) writeFetchError(w http.ResponseWriter, r *http.Request, err error, failurePrefix string) {
	var exErr *extractor.Error

	switch {
	case errors.Is(err, fetcher.ErrEmptyLink):
		writeError(w, http.StatusBadRequest, msgLinkRequired)
	case errors.Is(err, fetcher.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, msgInvalidURL)
	case errors.Is(err, fetcher.ErrFileNotFound):
		s.logger.Warn("downloaded file missing", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, msgFileNotFound)
	case extractor.KindOf(err) == extractor.KindBotCheck:
		s.logger.Warn("extractor blocked by bot check", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, msgBotCheck)
	case errors.As(err, &exErr):
		s.logger.Warn("extractor failed", "path", r.URL.Path, "kind", exErr.Kind.String(), "error", exErr.Message)
		writeError(w, http.StatusBadRequest, failurePrefix+exErr.Message)
	default:
		s.logger.Error("unexpected error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal+err.Error())
	}
}

// handleListFiles lists downloaded files, most recently accessed first
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.library.ListEntries())
}

// handleGetFile returns a single library entry
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	entry, err := s.library.GetEntry(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// staticFiles serves files from the output directory read-only. Directory
// listings and dot files such as in-progress staging directories are hidden.
func (s *Server) staticFiles() http.Handler {
	fileServer := http.FileServer(http.Dir(s.library.Dir()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		clean := path.Clean("/" + r.URL.Path)
		for _, segment := range strings.Split(clean, "/") {
			if strings.HasPrefix(segment, ".") {
				writeError(w, http.StatusNotFound, "Not Found")
				return
			}
		}

		name := strings.TrimPrefix(clean, "/")
		if name == "" || strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		if !strings.Contains(name, "/") {
			if err := s.library.UpdateLastAccess(name); errors.Is(err, storage.ErrEntryNotFound) {
				// written to the directory after the last scan
				s.library.AddEntry(name)
			}
		}

		fileServer.ServeHTTP(w, r)
	})
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videofetch/internal/extractor"
	"videofetch/pkg/models"
)

const sampleLink = "https://youtu.be/dQw4w9WgXcQ"

func postForm(t *testing.T, h http.Handler, target, link string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"link": {link}}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["detail"]
}

func TestHandleIndex(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, testIndexHTML, w.Body.String())
}

func TestHandleIndex_Missing(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(env.config.Storage.IndexFile))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "index.html not found", detailOf(t, w))
}

func TestHandleVideoInfo(t *testing.T) {
	env := newTestEnv(t)

	w := postForm(t, env.server.Handler(), "/video-info", sampleLink)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"title": "Sample Video",
		"duration": 212,
		"thumbnail": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		"description": "A sample description"
	}`, w.Body.String())
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, env.extractor.requestedURLs())

	entries, err := os.ReadDir(env.library.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "info must not write files")
}

func TestHandleVideoInfo_Multipart(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("link", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/video-info", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Sample Video"`)
}

func TestHandleVideoInfo_Defaults(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.info = &models.VideoInfo{}

	w := postForm(t, env.server.Handler(), "/video-info", sampleLink)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"title":"Unknown Title","duration":0,"thumbnail":"","description":""}`, w.Body.String())
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		link       string
		setup      func(ex *stubExtractor)
		wantStatus int
		wantDetail string
	}{
		{
			name:       "info missing link",
			target:     "/video-info",
			link:       "",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Link is required",
		},
		{
			name:       "download missing link",
			target:     "/download",
			link:       "",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Link is required",
		},
		{
			name:       "info invalid link",
			target:     "/video-info",
			link:       "https://example.com/watch?v=abc",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid YouTube URL",
		},
		{
			name:       "download invalid link",
			target:     "/download",
			link:       "not a url",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid YouTube URL",
		},
		{
			name:   "info bot check",
			target: "/video-info",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.infoErr = extractor.NewError(extractor.KindFailed, "ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you're not a bot")
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: msgBotCheck,
		},
		{
			name:   "download bot check",
			target: "/download",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.downloadErr = extractor.NewError(extractor.KindFailed, "Sign in to confirm you’re not a bot")
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: msgBotCheck,
		},
		{
			name:   "info extractor failure",
			target: "/video-info",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.infoErr = extractor.NewError(extractor.KindFailed, "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable")
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Failed to fetch video info: ERROR: [youtube] dQw4w9WgXcQ: Video unavailable",
		},
		{
			name:   "download metadata failure",
			target: "/download",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.infoErr = extractor.NewError(extractor.KindFailed, "ERROR: Private video")
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Download failed: ERROR: Private video",
		},
		{
			name:   "download extractor failure",
			target: "/download",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.downloadErr = extractor.NewError(extractor.KindFailed, "HTTP Error 403: Forbidden")
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Download failed: HTTP Error 403: Forbidden",
		},
		{
			name:   "download output missing",
			target: "/download",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.skipWrite = true
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Download failed: output file not found",
		},
		{
			name:   "info unexpected failure",
			target: "/video-info",
			link:   sampleLink,
			setup: func(ex *stubExtractor) {
				ex.infoErr = errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Internal server error: resolve metadata: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env.extractor)
			}

			w := postForm(t, env.server.Handler(), tt.target, tt.link)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantDetail, detailOf(t, w))
		})
	}
}

func TestHandleDownload(t *testing.T) {
	env := newTestEnv(t)

	w := postForm(t, env.server.Handler(), "/download", sampleLink)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"status": "success",
		"message": "Video downloaded successfully",
		"title": "Sample Video",
		"filename": "Sample Video.mp4",
		"path": "/downloads/Sample Video.mp4"
	}`, w.Body.String())

	data, err := os.ReadFile(filepath.Join(env.library.Dir(), "Sample Video.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	// the reported path is immediately fetchable
	req := httptest.NewRequest(http.MethodGet, "/downloads/Sample%20Video.mp4", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(body))
}

func TestHandleDownload_SanitizedFilename(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.info = &models.VideoInfo{Title: `Live: "Best" of 2024?`}
	env.extractor.ext = "webm"

	w := postForm(t, env.server.Handler(), "/download", sampleLink)

	require.Equal(t, http.StatusOK, w.Code)

	var result models.DownloadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, `Live: "Best" of 2024?`, result.Title)
	assert.Equal(t, "Live Best of 2024.webm", result.Filename)
	assert.Equal(t, "/downloads/Live Best of 2024.webm", result.Path)
	assert.FileExists(t, filepath.Join(env.library.Dir(), result.Filename))
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t)
	dir := env.library.Dir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Clip.mp4"), []byte("clip"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".staging-abc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".staging-abc", "Clip.mp4"), []byte("partial"), 0644))
	require.NoError(t, env.library.Scan())

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "existing file", method: http.MethodGet, target: "/downloads/Clip.mp4", wantStatus: http.StatusOK, wantBody: "clip"},
		{name: "head", method: http.MethodHead, target: "/downloads/Clip.mp4", wantStatus: http.StatusOK},
		{name: "missing file", method: http.MethodGet, target: "/downloads/Missing.mp4", wantStatus: http.StatusNotFound},
		{name: "staging directory", method: http.MethodGet, target: "/downloads/.staging-abc/Clip.mp4", wantStatus: http.StatusNotFound},
		{name: "directory listing", method: http.MethodGet, target: "/downloads/", wantStatus: http.StatusNotFound},
		{name: "write method", method: http.MethodPut, target: "/downloads/Clip.mp4", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestStaticFiles_UpdatesLastAccess(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.library.Dir(), "Clip.mp4"), []byte("clip"), 0644))
	entry, err := env.library.AddEntry("Clip.mp4")
	require.NoError(t, err)
	before := entry.LastAccess

	req := httptest.NewRequest(http.MethodGet, "/downloads/Clip.mp4", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entry, err = env.library.GetEntry("Clip.mp4")
	require.NoError(t, err)
	assert.False(t, entry.LastAccess.Before(before))
}

func TestHandleDownload_LeadingDotTitleIsFetchable(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.info = &models.VideoInfo{Title: ".hack//SIGN Opening"}

	w := postForm(t, env.server.Handler(), "/download", sampleLink)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.DownloadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "hackSIGN Opening.mp4", result.Filename)
	assert.Equal(t, "/downloads/hackSIGN Opening.mp4", result.Path)

	req := httptest.NewRequest(http.MethodGet, (&url.URL{Path: result.Path}).EscapedPath(), nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video bytes", rec.Body.String())

	_, err := env.library.GetEntry(result.Filename)
	assert.NoError(t, err)
}

func TestStaticFiles_IndexesUnknownFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.library.Dir(), "Late.mp4"), []byte("late"), 0644))

	req := httptest.NewRequest(http.MethodGet, "/downloads/Late.mp4", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entry, err := env.library.GetEntry("Late.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Size)
}

func TestFilesEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := postForm(t, env.server.Handler(), "/download", sampleLink)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var entries []models.LibraryEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "Sample Video.mp4", entries[0].FileName)
		assert.Equal(t, int64(len("video bytes")), entries[0].Size)
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/Sample%20Video.mp4", nil)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var entry models.LibraryEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		assert.Equal(t, "Sample Video.mp4", entry.FileName)
	})

	t.Run("get missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/Missing.mp4", nil)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "File not found", detailOf(t, rec))
	})
}

func TestHandleIndex_BundledPage(t *testing.T) {
	env := newTestEnv(t)
	env.config.Storage.IndexFile = filepath.Join("..", "..", "web", "index.html")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="link"`)
	// each path segment is encoded so '#' and '?' in titles survive
	assert.Contains(t, body, "encodeURIComponent")
	assert.NotContains(t, body, "encodeURI(")
}

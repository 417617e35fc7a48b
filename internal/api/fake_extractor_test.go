package api

import (
	"context"
	"os"
	"strings"
	"sync"

	"videofetch/internal/extractor"
	"videofetch/pkg/models"
)

// stubExtractor returns canned metadata and writes a small file per download
type stubExtractor struct {
	mu          sync.Mutex
	info        *models.VideoInfo
	infoErr     error
	downloadErr error
	ext         string
	content     string
	skipWrite   bool
	requested   []string
}

func newStubExtractor() *stubExtractor {
	return &stubExtractor{
		info: &models.VideoInfo{
			Title:       "Sample Video",
			Duration:    212,
			Thumbnail:   "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
			Description: "A sample description",
		},
		ext:     "mp4",
		content: "video bytes",
	}
}

func (s *stubExtractor) ExtractInfo(ctx context.Context, url string) (*models.VideoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = append(s.requested, url)

	if s.infoErr != nil {
		return nil, s.infoErr
	}
	info := *s.info
	return &info, nil
}

func (s *stubExtractor) Download(ctx context.Context, url string, opts extractor.DownloadOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloadErr != nil {
		return "", s.downloadErr
	}
	if s.skipWrite {
		return "", nil
	}

	path := strings.ReplaceAll(opts.OutputTemplate, "%(ext)s", s.ext)
	path = strings.ReplaceAll(path, "%%", "%")
	if err := os.WriteFile(path, []byte(s.content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *stubExtractor) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

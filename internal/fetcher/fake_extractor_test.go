package fetcher

import (
	"context"
	"os"
	"strings"
	"sync"

	"videofetch/internal/extractor"
	"videofetch/pkg/models"
)

// fakeExtractor is a scriptable extractor.Extractor for tests
type fakeExtractor struct {
	mu            sync.Mutex
	InfoFunc      func(ctx context.Context, url string) (*models.VideoInfo, error)
	DownloadFunc  func(ctx context.Context, url string, opts extractor.DownloadOptions) (string, error)
	InfoCalls     []string
	DownloadCalls []extractor.DownloadOptions
}

func (f *fakeExtractor) ExtractInfo(ctx context.Context, url string) (*models.VideoInfo, error) {
	f.mu.Lock()
	f.InfoCalls = append(f.InfoCalls, url)
	f.mu.Unlock()

	if f.InfoFunc != nil {
		return f.InfoFunc(ctx, url)
	}
	return &models.VideoInfo{Title: "Sample Video", Duration: 212}, nil
}

func (f *fakeExtractor) Download(ctx context.Context, url string, opts extractor.DownloadOptions) (string, error) {
	f.mu.Lock()
	f.DownloadCalls = append(f.DownloadCalls, opts)
	f.mu.Unlock()

	if f.DownloadFunc != nil {
		return f.DownloadFunc(ctx, url, opts)
	}
	return writeTemplate(opts.OutputTemplate, "mp4", []byte("video"))
}

func (f *fakeExtractor) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.InfoCalls), len(f.DownloadCalls)
}

// writeTemplate expands a yt-dlp output template the way yt-dlp would for ext
func writeTemplate(template, ext string, data []byte) (string, error) {
	path := strings.ReplaceAll(template, "%(ext)s", ext)
	path = strings.ReplaceAll(path, "%%", "%")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

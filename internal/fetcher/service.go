// Package fetcher resolves YouTube links to metadata and downloaded files.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"videofetch/internal/extractor"
	"videofetch/internal/storage"
	"videofetch/pkg/models"
)

const (
	// DefaultMountPath is the URL prefix the output directory is served under
	DefaultMountPath = "/downloads"

	stagingPrefix = ".staging-"
)

var ErrFileNotFound = errors.New("output file not found")

// State is a step of the download pipeline
type State string

const (
	StateReceived          State = "received"
	StateResolvingMetadata State = "resolving-metadata"
	StateDownloading       State = "downloading"
	StateScanningOutput    State = "scanning-output"
	StateSuccess           State = "success"
	StateFailed            State = "failed"
)

// Service runs the info and download pipelines against an Extractor
type Service struct {
	extractor extractor.Extractor
	library   *storage.Library
	logger    *slog.Logger
	mountPath string
}

// NewService creates a fetch service writing into the library's directory
func NewService(ex extractor.Extractor, library *storage.Library, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: ex,
		library:   library,
		logger:    logger,
		mountPath: DefaultMountPath,
	}
}

// MountPath returns the URL prefix used in download results
func (s *Service) MountPath() string {
	return s.mountPath
}

// Info resolves metadata for link without downloading
func (s *Service) Info(ctx context.Context, link string) (*models.VideoInfo, error) {
	id, err := ParseVideoID(link)
	if err != nil {
		return nil, err
	}

	info, err := s.extractor.ExtractInfo(ctx, CanonicalURL(id))
	if err != nil {
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}

	if info.ID == "" {
		info.ID = id
	}
	info.ApplyDefaults()

	return info, nil
}

// Download resolves link, downloads the video and moves the result into
// the output directory
func (s *Service) Download(ctx context.Context, link string) (*models.DownloadResult, error) {
	logger := s.logger.With("link", link)
	logger.Debug("download state", "state", StateReceived)

	result, err := s.download(ctx, link, logger)
	if err != nil {
		logger.Debug("download state", "state", StateFailed, "error", err)
		return nil, err
	}

	logger.Info("download complete", "state", StateSuccess, "filename", result.Filename)
	return result, nil
}

func (s *Service) download(ctx context.Context, link string, logger *slog.Logger) (*models.DownloadResult, error) {
	id, err := ParseVideoID(link)
	if err != nil {
		return nil, err
	}
	videoURL := CanonicalURL(id)

	logger.Debug("download state", "state", StateResolvingMetadata, "url", videoURL)
	info, err := s.extractor.ExtractInfo(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}
	info.ApplyDefaults()

	base := baseName(info.Title, id)

	staging := filepath.Join(s.library.Dir(), stagingPrefix+uuid.NewString())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	logger.Debug("download state", "state", StateDownloading, "staging", staging)
	reported, err := s.extractor.Download(ctx, videoURL, extractor.DownloadOptions{
		OutputTemplate: filepath.Join(staging, escapeTemplate(base)+".%(ext)s"),
		Progress: func(p extractor.Progress) {
			logger.Debug("download progress",
				"downloaded", p.DownloadedBytes,
				"total", p.TotalBytes,
				"percent", p.Percent(),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	logger.Debug("download state", "state", StateScanningOutput, "reported", reported)
	filename, err := outputName(staging, base, reported)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(filepath.Join(staging, filename), filepath.Join(s.library.Dir(), filename)); err != nil {
		return nil, fmt.Errorf("failed to move downloaded file: %w", err)
	}

	if _, err := s.library.AddEntry(filename); err != nil {
		logger.Warn("failed to index downloaded file", "filename", filename, "error", err)
	}

	return &models.DownloadResult{
		Status:   "success",
		Message:  "Video downloaded successfully",
		Title:    info.Title,
		Filename: filename,
		Path:     path.Join(s.mountPath, filename),
	}, nil
}

// outputName prefers the file the extractor reported when it is a finished
// file inside dir, and falls back to scanning dir otherwise
func outputName(dir, prefix, reported string) (string, error) {
	if reported != "" && filepath.Clean(filepath.Dir(reported)) == filepath.Clean(dir) {
		name := filepath.Base(reported)
		if strings.HasPrefix(name, prefix) && !isPartial(name) {
			if info, err := os.Stat(reported); err == nil && info.Mode().IsRegular() {
				return name, nil
			}
		}
	}

	return findOutput(dir, prefix)
}

// findOutput returns the first finished file in dir whose name starts with prefix
func findOutput(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan output directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if isPartial(name) {
			continue
		}
		return name, nil
	}

	return "", ErrFileNotFound
}

func isPartial(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".part" || ext == ".ytdl"
}

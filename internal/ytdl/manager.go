package ytdl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	ytdlpReleaseAPI = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"
	versionFileName = "yt-dlp.version"
	systemBinary    = "yt-dlp"
)

var ErrNoAsset = errors.New("no asset found for platform")

// HTTPClient is the subset of *http.Client used to talk to GitHub
type HTTPClient interface {
	Get(url string) (*http.Response, error)
}

// Manager handles yt-dlp installation and updates
type Manager struct {
	toolsDir       string
	client         HTTPClient
	logger         *slog.Logger
	currentVersion string
}

// GitHubRelease represents a GitHub release
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewManager creates a new yt-dlp manager
func NewManager(toolsDir string, logger *slog.Logger) *Manager {
	return NewManagerWithClient(toolsDir, &http.Client{Timeout: 5 * time.Minute}, logger)
}

// NewManagerWithClient creates a manager that uses the given HTTP client
func NewManagerWithClient(toolsDir string, client HTTPClient, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	os.MkdirAll(toolsDir, 0755)

	m := &Manager{
		toolsDir: toolsDir,
		client:   client,
		logger:   logger,
	}

	if data, err := os.ReadFile(m.versionPath()); err == nil {
		m.currentVersion = strings.TrimSpace(string(data))
	}

	return m
}

// GetYtdlpPath returns the path to the managed yt-dlp executable
func (m *Manager) GetYtdlpPath() string {
	return filepath.Join(m.toolsDir, detectPlatform())
}

// ResolvePath picks the executable to run: configured when set, then the
// managed binary when installed, then yt-dlp from PATH. With none found it
// returns the managed path so failures name it.
func (m *Manager) ResolvePath(configured string) string {
	if configured != "" {
		return configured
	}
	if m.IsInstalled() {
		return m.GetYtdlpPath()
	}
	if path, err := exec.LookPath(systemBinary); err == nil {
		return path
	}
	return m.GetYtdlpPath()
}

// IsInstalled checks if yt-dlp is installed
func (m *Manager) IsInstalled() bool {
	_, err := os.Stat(m.GetYtdlpPath())
	return err == nil
}

// GetCurrentVersion returns the currently installed version
func (m *Manager) GetCurrentVersion() string {
	return m.currentVersion
}

// CheckForUpdate checks if a newer version is available
func (m *Manager) CheckForUpdate() (string, bool, error) {
	release, err := m.fetchRelease()
	if err != nil {
		return "", false, fmt.Errorf("failed to check for updates: %w", err)
	}

	if !m.IsInstalled() {
		return release.TagName, true, nil
	}

	if m.currentVersion == "" || m.currentVersion != release.TagName {
		return release.TagName, true, nil
	}

	return release.TagName, false, nil
}

// Download downloads and installs the latest yt-dlp release
func (m *Manager) Download() error {
	release, err := m.fetchRelease()
	if err != nil {
		return fmt.Errorf("failed to fetch release info: %w", err)
	}

	platform := detectPlatform()
	var downloadURL string
	for _, asset := range release.Assets {
		if asset.Name == platform {
			downloadURL = asset.BrowserDownloadURL
			break
		}
	}

	if downloadURL == "" {
		return fmt.Errorf("%w: %s", ErrNoAsset, platform)
	}

	m.logger.Info("downloading yt-dlp", "version", release.TagName, "asset", platform)

	resp, err := m.client.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download yt-dlp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	ytdlpPath := m.GetYtdlpPath()
	tmpPath := ytdlpPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to make executable: %w", err)
	}

	// Windows cannot rename over an existing file
	if m.IsInstalled() {
		if err := os.Remove(ytdlpPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to remove old file: %w", err)
		}
	}

	if err := os.Rename(tmpPath, ytdlpPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	m.currentVersion = release.TagName
	if err := os.WriteFile(m.versionPath(), []byte(release.TagName+"\n"), 0644); err != nil {
		m.logger.Warn("failed to record yt-dlp version", "error", err)
	}

	m.logger.Info("yt-dlp installed", "version", release.TagName, "path", ytdlpPath)
	return nil
}

// EnsureInstalled ensures yt-dlp is installed, downloading if necessary
func (m *Manager) EnsureInstalled() error {
	if m.IsInstalled() {
		return nil
	}

	m.logger.Info("yt-dlp not found, downloading", "dir", m.toolsDir)
	return m.Download()
}

// AutoUpdate checks for and applies updates if available
func (m *Manager) AutoUpdate() error {
	latestVersion, hasUpdate, err := m.CheckForUpdate()
	if err != nil {
		return err
	}

	if !hasUpdate {
		m.logger.Info("yt-dlp is up to date", "version", latestVersion)
		return nil
	}

	m.logger.Info("updating yt-dlp", "from", m.currentVersion, "to", latestVersion)
	return m.Download()
}

func (m *Manager) fetchRelease() (*GitHubRelease, error) {
	resp, err := m.client.Get(ytdlpReleaseAPI)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}

	return &release, nil
}

func (m *Manager) versionPath() string {
	return filepath.Join(m.toolsDir, versionFileName)
}

// detectPlatform returns the yt-dlp release asset name for the current platform
func detectPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "yt-dlp_linux_aarch64"
		}
		return "yt-dlp_linux"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}

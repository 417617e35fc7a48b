package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"videofetch/pkg/models"
)

// EnvPrefix is prepended to every environment override, e.g. VIDEOFETCH_SERVER_PORT
const EnvPrefix = "VIDEOFETCH"

var (
	ErrInvalidPort          = errors.New("invalid port: must be between 1 and 65535")
	ErrInvalidResolution    = errors.New("invalid resolution: must be between 144 and 4320")
	ErrInvalidLibrarySize   = errors.New("invalid library size: must be non-negative")
	ErrMissingOutputDir     = errors.New("output directory is required")
	ErrInvalidSocketTimeout = errors.New("invalid socket timeout: must be positive")
	ErrInvalidLogFormat     = errors.New("invalid log format: must be text or json")
)

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence
func Load(configPath string) (*models.Config, error) {
	cfg := models.DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	mergeWithDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// mergeWithDefaults restores defaults for values a config file blanked out
func mergeWithDefaults(cfg *models.Config) {
	defaults := models.DefaultConfig()

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Storage.IndexFile == "" {
		cfg.Storage.IndexFile = defaults.Storage.IndexFile
	}
	if cfg.Ytdlp.ToolsDir == "" {
		cfg.Ytdlp.ToolsDir = defaults.Ytdlp.ToolsDir
	}
	if cfg.Ytdlp.UserAgent == "" {
		cfg.Ytdlp.UserAgent = defaults.Ytdlp.UserAgent
	}
	if cfg.Ytdlp.PlayerClient == "" {
		cfg.Ytdlp.PlayerClient = defaults.Ytdlp.PlayerClient
	}
	if cfg.Ytdlp.Headers == nil {
		cfg.Ytdlp.Headers = map[string]string{}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// Validate checks if the configuration is valid
func Validate(cfg *models.Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ErrInvalidPort
	}

	if cfg.Ytdlp.MaxResolution < 144 || cfg.Ytdlp.MaxResolution > 4320 {
		return ErrInvalidResolution
	}

	if cfg.Library.MaxSizeGB < 0 {
		return ErrInvalidLibrarySize
	}

	if strings.TrimSpace(cfg.Storage.OutputDir) == "" {
		return ErrMissingOutputDir
	}

	if cfg.Ytdlp.SocketTimeout <= 0 {
		return ErrInvalidSocketTimeout
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	return nil
}

// Address returns the listen address in host:port form
func Address(cfg *models.Config) string {
	return fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
}

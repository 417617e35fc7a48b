package models

import "time"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Library LibraryConfig `yaml:"library"`
	Ytdlp   YtdlpConfig   `yaml:"ytdlp"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"` // 0 disables, downloads block the request
}

// StorageConfig holds filesystem locations
type StorageConfig struct {
	OutputDir string `yaml:"output_dir" split_words:"true"`
	IndexFile string `yaml:"index_file" split_words:"true"`
}

// LibraryConfig controls the downloaded file index
type LibraryConfig struct {
	MaxSizeGB float64 `yaml:"max_size_gb" split_words:"true"` // 0 = unlimited
}

// YtdlpConfig holds the options handed to yt-dlp
type YtdlpConfig struct {
	Path          string            `yaml:"path"`
	ToolsDir      string            `yaml:"tools_dir" split_words:"true"`
	AutoInstall   bool              `yaml:"auto_install" split_words:"true"`
	MaxResolution int               `yaml:"max_resolution" split_words:"true"`
	SocketTimeout time.Duration     `yaml:"socket_timeout" split_words:"true"`
	UserAgent     string            `yaml:"user_agent" split_words:"true"`
	Headers       map[string]string `yaml:"headers" split_words:"true"`
	PlayerClient  string            `yaml:"player_client" split_words:"true"`
	SkipManifests []string          `yaml:"skip_manifests" split_words:"true"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			ReadTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			OutputDir: "downloads",
			IndexFile: "web/index.html",
		},
		Ytdlp: YtdlpConfig{
			ToolsDir:      "tools",
			AutoInstall:   true,
			MaxResolution: 720,
			SocketTimeout: 30 * time.Second,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			Headers: map[string]string{
				"Accept-Language": "en-US,en;q=0.9",
			},
			PlayerClient:  "android",
			SkipManifests: []string{"dash", "hls"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

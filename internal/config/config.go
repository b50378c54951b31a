package config

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	MetadataBackendJSON   = "json"
	MetadataBackendSQLite = "sqlite"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"MD_ENV" default:"development"`

	HTTPPort         int           `envconfig:"MD_HTTP_PORT" default:"8080"`
	HTTPTimeout      time.Duration `envconfig:"MD_HTTP_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"MD_HTTP_WRITE_TIMEOUT" default:"10m"`

	WorkerPoolSize  int           `envconfig:"MD_WORKER_POOL_SIZE" default:"4"`
	QueueSize       int           `envconfig:"MD_QUEUE_SIZE" default:"100"`
	DownloadTimeout time.Duration `envconfig:"MD_DOWNLOAD_TIMEOUT" default:"30m"`
	ProbeTimeout    time.Duration `envconfig:"MD_PROBE_TIMEOUT" default:"60s"`

	DownloadDir     string `envconfig:"MD_DOWNLOAD_DIR" default:"./static/downloads"`
	MetadataBackend string `envconfig:"MD_METADATA_BACKEND" default:"json"`
	MetadataFile    string `envconfig:"MD_METADATA_FILE"`
	SQLitePath      string `envconfig:"MD_SQLITE_PATH" default:"./data/downloads.db"`
	ProfilesFile    string `envconfig:"MD_PROFILES_FILE"`
	YtDlpPath       string `envconfig:"MD_YTDLP_PATH" default:"yt-dlp"`
	SelfTestURL     string `envconfig:"MD_SELFTEST_URL" default:"https://www.youtube.com/watch?v=jNQXAC9IVRw"`

	CleanupInterval time.Duration `envconfig:"MD_CLEANUP_INTERVAL" default:"6h"`
	FileRetention   time.Duration `envconfig:"MD_FILE_RETENTION" default:"24h"`
	TaskRetention   time.Duration `envconfig:"MD_TASK_RETENTION" default:"24h"`

	ShutdownTimeout time.Duration `envconfig:"MD_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"MD_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"MD_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive: %d", c.WorkerPoolSize)
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive: %d", c.QueueSize)
	}

	if c.DownloadTimeout <= 0 || c.ProbeTimeout <= 0 {
		return fmt.Errorf("download and probe timeouts must be positive")
	}

	if c.CleanupInterval < time.Second {
		return fmt.Errorf("cleanup interval must be at least 1s: %s", c.CleanupInterval)
	}

	if c.FileRetention <= 0 || c.TaskRetention <= 0 {
		return fmt.Errorf("retention windows must be positive")
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}

	switch c.MetadataBackend {
	case MetadataBackendJSON:
	case MetadataBackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("unknown metadata backend: %q", c.MetadataBackend)
	}

	return nil
}

// MetadataPath returns the JSON metadata document location.
func (c *Config) MetadataPath() string {
	if c.MetadataFile != "" {
		return c.MetadataFile
	}
	return filepath.Join(c.DownloadDir, ".downloads_meta.json")
}

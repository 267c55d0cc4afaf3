package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/rdhtml/internal/render"
)

type Config struct {
	Port string

	// Label store connection
	LabelstoreURL    string
	LabelstoreAPIKey string

	// Local label files (.rbl and rendered pages) consulted before the store
	LabelDir string

	// Auth
	RdhtmlAPIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Render latency window
	StatsWindow time.Duration

	// Render defaults
	RenderCharset       string
	RenderLang          string
	RenderCSS           string
	RenderLegacyAnchors bool

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		LabelstoreURL:    os.Getenv("LABELSTORE_URL"),
		LabelstoreAPIKey: os.Getenv("LABELSTORE_API_KEY"),
		LabelDir:         os.Getenv("LABEL_DIR"),

		RdhtmlAPIKey: os.Getenv("RDHTML_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		JobTTL:      envDuration("JOB_TTL", 1*time.Hour),
		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		RenderCharset:       envOr("RENDER_CHARSET", "UTF-8"),
		RenderLang:          os.Getenv("RENDER_LANG"),
		RenderCSS:           os.Getenv("RENDER_CSS"),
		RenderLegacyAnchors: envBool("RENDER_LEGACY_ANCHORS", false),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.RdhtmlAPIKey == "" {
		return fmt.Errorf("RDHTML_API_KEY is required")
	}
	if c.LabelstoreURL != "" && c.LabelstoreAPIKey == "" {
		return fmt.Errorf("LABELSTORE_API_KEY is required when LABELSTORE_URL is set")
	}
	return nil
}

// RenderOptions returns the render options every request starts from.
func (c Config) RenderOptions() render.Options {
	return render.Options{
		Charset:       c.RenderCharset,
		Lang:          c.RenderLang,
		CSS:           c.RenderCSS,
		LegacyAnchors: c.RenderLegacyAnchors,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

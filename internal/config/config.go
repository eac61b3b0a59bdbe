// Package config loads the environment-driven configuration of both services.
//
// Values come from the process environment, optionally seeded from a .env
// file in the working directory. Every field has a default so both services
// start with no configuration at all.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Card configures the card service.
type Card struct {
	Port               int           `envconfig:"CARD_PORT" default:"2025"`
	StoragePath        string        `envconfig:"STORAGE_PATH" default:"storage"`
	PDFServiceURL      string        `envconfig:"PDF_SERVICE_URL" default:"http://localhost:1984"`
	PDFFetchTimeout    time.Duration `envconfig:"PDF_FETCH_TIMEOUT" default:"2m"`
	AvatarProbeTimeout time.Duration `envconfig:"AVATAR_PROBE_TIMEOUT" default:"5s"`
	AvatarMaxRedirects int           `envconfig:"AVATAR_MAX_REDIRECTS" default:"2"`
	// AvatarPlaceholderURL serves the fallback avatar, keyed by ?u=<email>.
	AvatarPlaceholderURL string `envconfig:"AVATAR_PLACEHOLDER_URL" default:"https://i.pravatar.cc/400"`
	// ConfigSecret enables JWT protection of /set-config when non-empty.
	ConfigSecret string `envconfig:"CONFIG_JWT_SECRET"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

// PDF configures the PDF render service.
type PDF struct {
	Port           int           `envconfig:"PDF_PORT" default:"1984"`
	StoragePath    string        `envconfig:"STORAGE_PATH" default:"storage"`
	Converter      string        `envconfig:"PDF_CONVERTER" default:"exec"`
	Binary         string        `envconfig:"WKHTMLTOPDF_BIN" default:"wkhtmltopdf"`
	TempDir        string        `envconfig:"PDF_TEMP_DIR"`
	ConvertTimeout time.Duration `envconfig:"PDF_CONVERT_TIMEOUT" default:"60s"`
	DockerImage    string        `envconfig:"PDF_DOCKER_IMAGE" default:"surnet/alpine-wkhtmltopdf:3.20.2-0.12.6-full"`
	DockerPoolSize int           `envconfig:"PDF_DOCKER_POOL_SIZE" default:"2"`
	DockerMemoryMB int64         `envconfig:"PDF_DOCKER_MEMORY_MB" default:"256"`
	DockerCPUs     float64       `envconfig:"PDF_DOCKER_CPUS" default:"1"`
	AuditDBPath    string        `envconfig:"PDF_AUDIT_DB" default:"data/pdf-audit.db"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

const (
	ConverterExec   = "exec"
	ConverterDocker = "docker"
)

// LoadCard reads the card service configuration.
func LoadCard() (Card, error) {
	loadDotEnv()
	var cfg Card
	if err := envconfig.Process("", &cfg); err != nil {
		return Card{}, fmt.Errorf("config: loading card service config: %w", err)
	}
	if cfg.AvatarMaxRedirects < 0 {
		return Card{}, fmt.Errorf("config: AVATAR_MAX_REDIRECTS must not be negative")
	}
	return cfg, nil
}

// LoadPDF reads the PDF render service configuration.
func LoadPDF() (PDF, error) {
	loadDotEnv()
	var cfg PDF
	if err := envconfig.Process("", &cfg); err != nil {
		return PDF{}, fmt.Errorf("config: loading pdf service config: %w", err)
	}
	switch cfg.Converter {
	case ConverterExec, ConverterDocker:
	default:
		return PDF{}, fmt.Errorf("config: unknown PDF_CONVERTER %q", cfg.Converter)
	}
	return cfg, nil
}

// ParseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// A missing .env is the normal case outside development.
func loadDotEnv() {
	_ = godotenv.Load()
}

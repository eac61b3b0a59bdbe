// Package wkhtml runs the wkhtmltopdf binary as a local subprocess.
package wkhtml

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/business-cards/internal/converter"
)

// Config holds the settings of the local converter.
type Config struct {
	// Binary is the converter executable, looked up in PATH when not absolute.
	Binary string
	// TempDir receives intermediate PDFs. Empty means os.TempDir().
	TempDir string
	// Timeout bounds a single conversion.
	Timeout time.Duration
}

// DefaultConfig runs wkhtmltopdf from PATH with a one minute limit.
func DefaultConfig() Config {
	return Config{
		Binary:  "wkhtmltopdf",
		Timeout: 60 * time.Second,
	}
}

// Converter implements converter.Converter with os/exec.
type Converter struct {
	config Config
	logger *slog.Logger
}

var _ converter.Converter = (*Converter)(nil)

// New creates a local subprocess converter.
func New(cfg Config, logger *slog.Logger) *Converter {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Converter{config: cfg, logger: logger}
}

// Name implements converter.Converter.
func (c *Converter) Name() string {
	return "wkhtmltopdf"
}

// Convert runs the converter and returns the produced PDF. Each call writes to
// its own temporary file, so concurrent conversions of one card never collide.
func (c *Converter) Convert(ctx context.Context, req converter.Request) (*converter.Result, error) {
	start := time.Now()

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	out := filepath.Join(c.config.TempDir, fmt.Sprintf("%s-%s.pdf", req.CardID, xid.New().String()))
	defer os.Remove(out)

	cmd := exec.CommandContext(ctx, c.config.Binary,
		"--quiet",
		"--title", req.Title,
		req.HTMLPath,
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Children that outlive a killed converter must not pin the stderr pipe.
	cmd.WaitDelay = 2 * time.Second

	c.logger.Debug("running converter",
		slog.String("cardId", req.CardID),
		slog.String("binary", c.config.Binary),
	)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s timed out: %v", converter.ErrConversion, c.config.Binary, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", converter.ErrConversion, c.config.Binary, err, strings.TrimSpace(stderr.String()))
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: reading output: %v", converter.ErrConversion, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: %s produced an empty file", converter.ErrConversion, c.config.Binary)
	}

	return &converter.Result{PDF: pdf, Duration: time.Since(start)}, nil
}

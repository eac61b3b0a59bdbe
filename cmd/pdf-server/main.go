// Command pdf-server converts stored cards to PDF for the card service.
//
// PDF_CONVERTER selects how wkhtmltopdf runs: "exec" starts it on the host,
// "docker" runs it in a sandboxed container pool with the storage directory
// mounted read-only.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/business-cards/internal/config"
	"github.com/sakif/business-cards/internal/converter"
	"github.com/sakif/business-cards/internal/converter/docker"
	"github.com/sakif/business-cards/internal/converter/wkhtml"
	"github.com/sakif/business-cards/internal/server"
)

func main() {
	cfg, err := config.LoadPDF()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLevel(cfg.LogLevel),
	}))

	if cfg.AuditDBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.AuditDBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	conv, closeConv, err := newConverter(cfg, logger)
	if err != nil {
		logger.Error("failed to create converter", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeConv()

	srv, err := server.NewPDFServer(cfg, conv, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		closeConv()
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		closeConv()
		os.Exit(1)
	}
}

func newConverter(cfg config.PDF, logger *slog.Logger) (converter.Converter, func(), error) {
	switch cfg.Converter {
	case config.ConverterDocker:
		dc := docker.DefaultConfig()
		dc.Image = cfg.DockerImage
		dc.Binary = cfg.Binary
		dc.StorageDir = cfg.StoragePath
		dc.MemoryLimit = cfg.DockerMemoryMB * 1024 * 1024
		dc.CPULimit = cfg.DockerCPUs
		dc.Timeout = cfg.ConvertTimeout
		dc.PoolSize = cfg.DockerPoolSize

		conv, err := docker.New(dc, logger)
		if err != nil {
			return nil, nil, err
		}
		return conv, func() {
			if err := conv.Close(); err != nil {
				logger.Warn("failed to stop converter pool", slog.String("error", err.Error()))
			}
		}, nil

	default:
		wc := wkhtml.DefaultConfig()
		wc.Binary = cfg.Binary
		wc.TempDir = cfg.TempDir
		wc.Timeout = cfg.ConvertTimeout
		return wkhtml.New(wc, logger), func() {}, nil
	}
}

// Package server wires routers, middleware and graceful shutdown for both
// services. New* functions are the composition roots: they build every
// dependency from configuration and hand it to the handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/business-cards/internal/auth"
	"github.com/sakif/business-cards/internal/avatar"
	"github.com/sakif/business-cards/internal/config"
	"github.com/sakif/business-cards/internal/converter"
	"github.com/sakif/business-cards/internal/handler"
	"github.com/sakif/business-cards/internal/middleware"
	"github.com/sakif/business-cards/internal/pdfclient"
	"github.com/sakif/business-cards/internal/render"
	sqliteRepo "github.com/sakif/business-cards/internal/repository/sqlite"
	"github.com/sakif/business-cards/internal/service"
	"github.com/sakif/business-cards/internal/settings"
	"github.com/sakif/business-cards/internal/storage"
)

// Server is one HTTP service and the resources it owns.
type Server struct {
	name    string
	port    int
	router  chi.Router
	logger  *slog.Logger
	closers []io.Closer
}

// NewCardServer builds the card service.
func NewCardServer(cfg config.Card, logger *slog.Logger) (*Server, error) {
	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	var tokens *auth.TokenService
	if cfg.ConfigSecret != "" {
		tokens, err = auth.NewTokenService(cfg.ConfigSecret)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("CONFIG_JWT_SECRET not set, /set-config is unauthenticated")
	}

	var avatarOpts []avatar.Option
	if cfg.AvatarPlaceholderURL != "" {
		avatarOpts = append(avatarOpts, avatar.WithPlaceholderBase(cfg.AvatarPlaceholderURL))
	}
	avatars := avatar.New(logger, cfg.AvatarProbeTimeout, cfg.AvatarMaxRedirects, avatarOpts...)
	pdfs := pdfclient.New(cfg.PDFServiceURL, cfg.PDFFetchTimeout)

	cards, err := service.NewCardService(store, avatars, renderer, pdfs, logger)
	if err != nil {
		return nil, err
	}
	h := handler.NewCardHandler(cards, service.NewSettingsService(settings.New()), renderer, logger)

	logger.Info("card storage ready", slog.String("dir", store.Dir()))
	return &Server{
		name:   "card-server",
		port:   cfg.Port,
		router: CardRouter(h, tokens, render.Static(), logger),
		logger: logger,
	}, nil
}

// CardRouter routes the card service. A nil tokens leaves /set-config open.
func CardRouter(h *handler.CardHandler, tokens *auth.TokenService, static fs.FS, logger *slog.Logger) chi.Router {
	r := newRouter(logger)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", h.HandleIndex)
	r.Get("/create-card", h.HandleForm)
	r.Post("/create-card", h.HandleCreate)
	r.Get("/view-card", h.HandleView)
	r.Get("/preview-card", h.HandlePreview)
	r.Get("/download-card", h.HandleDownload)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(tokens, handler.WriteJSONError))
		r.Post("/set-config", h.HandleSetConfig)
	})

	return r
}

// NewPDFServer builds the render service around conv. The audit database is
// opened here and closed when the server stops.
func NewPDFServer(cfg config.PDF, conv converter.Converter, logger *slog.Logger) (*Server, error) {
	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	db, err := sqliteRepo.New(cfg.AuditDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	pdfs, err := service.NewPDFService(store, conv, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("pdf service ready",
		slog.String("converter", conv.Name()),
		slog.String("storage", store.Dir()),
		slog.String("audit", cfg.AuditDBPath),
	)
	return &Server{
		name:    "pdf-server",
		port:    cfg.Port,
		router:  PDFRouter(handler.NewPDFHandler(pdfs, logger), logger),
		logger:  logger,
		closers: []io.Closer{db},
	}, nil
}

// PDFRouter routes the render service.
func PDFRouter(h *handler.PDFHandler, logger *slog.Logger) chi.Router {
	r := newRouter(logger)
	r.Get("/", h.HandleLiveness)
	r.Get("/make-card-pdf", h.HandleMakeCardPDF)
	r.Get("/conversions", h.HandleConversions)
	return r
}

func newRouter(logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes owned resources.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Downloads may wait on a full PDF conversion.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("service", s.name),
			slog.Int("port", s.port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully", slog.String("service", s.name))
	}

	return nil
}

func (s *Server) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Error("failed to close resource", slog.String("error", err.Error()))
		}
	}
}

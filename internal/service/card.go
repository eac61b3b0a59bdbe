// Package service contains the workflows of both services.
//
// WHY A SERVICE LAYER?
// Handlers parse HTTP and map errors; services validate, orchestrate and
// return apperror values; stores and clients do the I/O. Services never see
// an http.Request, so every workflow is testable with plain function calls
// and in-memory fakes of the interfaces declared below.
//
// CARD LIFECYCLE OVERVIEW:
//  1. Create   validate the form, resolve the avatar, render, store the HTML
//  2. View     validate cardId and email against the stored cards
//  3. Preview  read the stored HTML back unchanged
//  4. Download serve the cached PDF, or ask the render service for one first
//
// The render side (PDFService) is the reverse trip: it receives the email and
// card id, checks both, converts the stored HTML and records the attempt.
//
// ERRORS:
// Every failure leaves a service as an *apperror.AppError. The category of
// the outermost error is what the caller reacts to, so a storage read that
// reports "not found" for a card that passed validation is still a
// persistence failure. Causes are kept for logs only.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/card"
)

// ArtifactStore persists rendered cards and their cached PDFs.
type ArtifactStore interface {
	Exists(cardID string) bool
	WriteHTML(cardID string, html []byte) error
	ReadHTML(cardID string) ([]byte, error)
	HasPDF(cardID string) bool
	ReadPDF(cardID string) ([]byte, error)
	WritePDF(cardID string, pdf []byte) error
}

// AvatarResolver picks the image of a card. It never fails; unreachable
// profiles resolve to a placeholder.
type AvatarResolver interface {
	Resolve(ctx context.Context, handle, email string) string
}

// CardRenderer renders the card document.
type CardRenderer interface {
	Card(d card.Data) ([]byte, error)
}

// PDFFetcher asks the render service for a card's PDF.
type PDFFetcher interface {
	MakeCardPDF(ctx context.Context, email, cardID string) ([]byte, error)
}

// CreatedCard is the outcome of a successful creation.
type CreatedCard struct {
	ID    string
	Email string
}

// CardService implements create, view, preview and download.
type CardService struct {
	validator *card.Validator
	store     ArtifactStore
	avatars   AvatarResolver
	renderer  CardRenderer
	pdfs      PDFFetcher
	logger    *slog.Logger

	// downloads collapses concurrent conversions of the same card.
	downloads singleflight.Group
}

// NewCardService wires a CardService. Card lookups are validated against store.
func NewCardService(store ArtifactStore, avatars AvatarResolver, renderer CardRenderer, pdfs PDFFetcher, logger *slog.Logger) (*CardService, error) {
	v, err := card.NewValidator(store)
	if err != nil {
		return nil, fmt.Errorf("service: building validator: %w", err)
	}
	return &CardService{
		validator: v,
		store:     store,
		avatars:   avatars,
		renderer:  renderer,
		pdfs:      pdfs,
		logger:    logger,
	}, nil
}

// Create validates the submission, resolves the avatar once, renders the card
// and stores it under its content-derived identifier. Resubmitting identical
// data yields the same identifier and rewrites the same file.
//
// Failures are distinguishable: validation (nothing resolved or written),
// render (nothing written) and persistence.
func (s *CardService) Create(ctx context.Context, form card.Form) (*CreatedCard, error) {
	form, err := s.validator.ValidateForm(form)
	if err != nil {
		return nil, err
	}

	data := form.WithAvatar(s.avatars.Resolve(ctx, form.GitHub, form.Email))
	id := data.ID()

	html, err := s.renderer.Card(data)
	if err != nil {
		s.logger.Error("failed to render card", slog.String("cardId", id), slog.String("error", err.Error()))
		if errors.Is(err, apperror.ErrRender) {
			return nil, err
		}
		return nil, apperror.RenderFailed("Error rendering card", err)
	}

	if err := s.store.WriteHTML(id, html); err != nil {
		s.logger.Error("failed to save card", slog.String("cardId", id), slog.String("error", err.Error()))
		return nil, apperror.PersistenceFailed("Error saving card", err)
	}

	s.logger.Info("card created",
		slog.String("cardId", id),
		slog.String("avatar", data.AvatarURL),
	)
	return &CreatedCard{ID: id, Email: form.Email}, nil
}

// View validates the parameters of the viewer page.
func (s *CardService) View(q card.ViewQuery) (card.ViewQuery, error) {
	return s.validator.ValidateView(q)
}

// Preview returns the stored card document byte for byte.
func (s *CardService) Preview(q card.PreviewQuery) ([]byte, error) {
	q, err := s.validator.ValidatePreview(q)
	if err != nil {
		return nil, err
	}

	html, err := s.store.ReadHTML(q.CardID)
	if err != nil {
		s.logger.Error("failed to read card", slog.String("cardId", q.CardID), slog.String("error", err.Error()))
		return nil, apperror.PersistenceFailed("Internal Server Error", err)
	}
	return html, nil
}

// Download returns the PDF of a card. The first download converts the card
// through the render service and caches the result; later downloads are served
// from the cache without a conversion. The cache is never invalidated.
func (s *CardService) Download(ctx context.Context, q card.ViewQuery) (string, []byte, error) {
	q, err := s.validator.ValidateView(q)
	if err != nil {
		return "", nil, err
	}

	// The conversion outlives a caller that disconnects while others wait on
	// it; the fetcher's own timeout still bounds it.
	detached := context.WithoutCancel(ctx)
	v, err, shared := s.downloads.Do(q.CardID, func() (any, error) {
		return s.cachedPDF(detached, q.Email, q.CardID)
	})
	if err != nil {
		return "", nil, err
	}
	if shared {
		s.logger.Debug("joined in-flight pdf conversion", slog.String("cardId", q.CardID))
	}
	return q.CardID, v.([]byte), nil
}

func (s *CardService) cachedPDF(ctx context.Context, email, cardID string) ([]byte, error) {
	if s.store.HasPDF(cardID) {
		pdf, err := s.store.ReadPDF(cardID)
		if err != nil {
			s.logger.Error("failed to read cached pdf", slog.String("cardId", cardID), slog.String("error", err.Error()))
			return nil, apperror.PersistenceFailed("Internal Server Error", err)
		}
		return pdf, nil
	}

	pdf, err := s.pdfs.MakeCardPDF(ctx, email, cardID)
	if err != nil {
		s.logger.Error("pdf generation failed", slog.String("cardId", cardID), slog.String("error", err.Error()))
		return nil, apperror.UpstreamFailed("Error generating PDF", err)
	}

	if err := s.store.WritePDF(cardID, pdf); err != nil {
		s.logger.Error("failed to cache pdf", slog.String("cardId", cardID), slog.String("error", err.Error()))
		return nil, apperror.PersistenceFailed("Error generating PDF", err)
	}

	s.logger.Info("pdf cached", slog.String("cardId", cardID), slog.Int("bytes", len(pdf)))
	return pdf, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/card"
	"github.com/sakif/business-cards/internal/converter"
	"github.com/sakif/business-cards/internal/model"
	"github.com/sakif/business-cards/internal/repository"
	"github.com/sakif/business-cards/internal/storage"
)

// CardLocator resolves stored card documents for the render service.
type CardLocator interface {
	Exists(cardID string) bool
	Path(cardID, ext string) (string, error)
}

// PDFRequest is a parsed make-card-pdf request.
type PDFRequest struct {
	Email  string
	CardID string
}

// ParsePDFData splits the packed "<email> <cardId>" parameter. It only checks
// the shape; nothing is looked up.
func ParsePDFData(data string) (PDFRequest, error) {
	if data == "" {
		return PDFRequest{}, apperror.ValidationFailed("data", "Wrong arguments")
	}
	parts := strings.Split(data, " ")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PDFRequest{}, apperror.ValidationFailed("data", "Malformed data")
	}
	return PDFRequest{Email: parts[0], CardID: parts[1]}, nil
}

// PDFService converts stored cards to PDF. It trusts nothing from the card
// service: the identifier and email are validated again here.
type PDFService struct {
	validator *card.Validator
	store     CardLocator
	conv      converter.Converter
	audit     repository.ConversionRepository
	logger    *slog.Logger
}

// NewPDFService wires a PDFService. audit may be nil, which disables the
// conversion trail.
func NewPDFService(store CardLocator, conv converter.Converter, audit repository.ConversionRepository, logger *slog.Logger) (*PDFService, error) {
	v, err := card.NewValidator(store)
	if err != nil {
		return nil, fmt.Errorf("service: building validator: %w", err)
	}
	return &PDFService{
		validator: v,
		store:     store,
		conv:      conv,
		audit:     audit,
		logger:    logger,
	}, nil
}

// MakeCardPDF validates req and converts the stored card with the email as
// document title.
func (s *PDFService) MakeCardPDF(ctx context.Context, req PDFRequest) ([]byte, error) {
	if !card.IsWellFormedID(req.CardID) || !s.store.Exists(req.CardID) || !s.validator.ValidateEmail(req.Email) {
		return nil, apperror.ValidationFailed("data", "Invalid data")
	}

	htmlPath, err := s.store.Path(req.CardID, storage.ExtHTML)
	if err != nil {
		return nil, apperror.ValidationFailed("data", "Invalid data")
	}

	start := time.Now()
	result, err := s.conv.Convert(ctx, converter.Request{
		CardID:   req.CardID,
		Title:    req.Email,
		HTMLPath: htmlPath,
	})
	if err != nil {
		s.record(ctx, &model.Conversion{
			CardID:    req.CardID,
			Converter: s.conv.Name(),
			Status:    model.ConversionFailed,
			Duration:  time.Since(start),
			Error:     err.Error(),
		})
		s.logger.Error("pdf conversion failed",
			slog.String("cardId", req.CardID),
			slog.String("converter", s.conv.Name()),
			slog.String("error", err.Error()),
		)
		return nil, apperror.UpstreamFailed("Error generating PDF", err)
	}

	s.record(ctx, &model.Conversion{
		CardID:    req.CardID,
		Converter: s.conv.Name(),
		Status:    model.ConversionSucceeded,
		Bytes:     len(result.PDF),
		Duration:  result.Duration,
	})
	s.logger.Info("pdf converted",
		slog.String("cardId", req.CardID),
		slog.Int("bytes", len(result.PDF)),
		slog.Duration("duration", result.Duration),
	)
	return result.PDF, nil
}

// Conversions lists the audit trail, newest first.
func (s *PDFService) Conversions(ctx context.Context, opts repository.ListOptions) ([]model.Conversion, error) {
	if s.audit == nil {
		return []model.Conversion{}, nil
	}
	list, err := s.audit.List(ctx, opts)
	if err != nil {
		return nil, apperror.PersistenceFailed("Error listing conversions", err)
	}
	return list, nil
}

// record never fails the conversion; audit problems are only logged.
func (s *PDFService) record(ctx context.Context, c *model.Conversion) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), c); err != nil {
		s.logger.Warn("failed to record conversion",
			slog.String("cardId", c.CardID),
			slog.String("error", err.Error()),
		)
	}
}

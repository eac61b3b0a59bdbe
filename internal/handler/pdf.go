package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/repository"
	"github.com/sakif/business-cards/internal/service"
)

// PDFHandler serves the render service.
type PDFHandler struct {
	pdfs   *service.PDFService
	logger *slog.Logger
}

func NewPDFHandler(pdfs *service.PDFService, logger *slog.Logger) *PDFHandler {
	return &PDFHandler{pdfs: pdfs, logger: logger}
}

// HandleLiveness answers health checks.
//
// HTTP: GET /
func (h *PDFHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeBytes(w, http.StatusOK, "text/plain; charset=utf-8", []byte("PDF service is up\n"))
}

// HandleMakeCardPDF converts a stored card. Bad input is answered with 401
// and a failed conversion with 501, which is what the card service expects.
//
// HTTP: GET /make-card-pdf?data=<email>%20<cardId>
func (h *PDFHandler) HandleMakeCardPDF(w http.ResponseWriter, r *http.Request) {
	req, err := service.ParsePDFData(r.URL.Query().Get("data"))
	if err != nil {
		h.reject(w, err)
		return
	}

	pdf, err := h.pdfs.MakeCardPDF(r.Context(), req)
	if err != nil {
		h.reject(w, err)
		return
	}
	writeBytes(w, http.StatusOK, "application/pdf", pdf)
}

// HandleConversions lists recent conversions, optionally those of one card.
//
// HTTP: GET /conversions?limit=&offset=&cardId=
func (h *PDFHandler) HandleConversions(w http.ResponseWriter, r *http.Request) {
	opts := repository.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
		CardID: r.URL.Query().Get("cardId"),
	}
	list, err := h.pdfs.Conversions(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list conversions", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Errors: []string{publicMessage(err)}})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PDFHandler) reject(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperror.Kind(err) {
	case apperror.ErrValidation:
		status = http.StatusUnauthorized
	case apperror.ErrUpstream:
		status = http.StatusNotImplemented
	}
	h.logger.Warn("make-card-pdf rejected", slog.Int("status", status), slog.String("error", err.Error()))
	http.Error(w, publicMessage(err), status)
}

// queryInt reads a non-negative integer parameter; anything else is 0.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

package handler

// Handlers never pick status codes for domain failures themselves: services
// return apperror values and the helpers below translate them, either into a
// rendered error page (browser routes) or a JSON body (set-config).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/render"
)

// ErrorResponse is the JSON error format of the card service.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// MessageResponse acknowledges a successful JSON request.
type MessageResponse struct {
	Message string `json:"message"`
}

// PageRenderer renders service pages.
type PageRenderer interface {
	Page(name string, p render.Page) ([]byte, error)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; only logging is left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeBytes(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps a domain error to the card service's HTTP status. Only the
// outermost category counts; causes never change the status.
func statusFor(err error) int {
	switch apperror.Kind(err) {
	case apperror.ErrValidation:
		return http.StatusBadRequest
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrForbidden:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the message a client may see for err. Causes stay in logs.
func publicMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, apperror.ErrValidation) {
		return "Invalid request"
	}
	return "Internal Server Error"
}

// WriteJSONError sends {"errors": [...]} with every field message of err and
// the status of its category. It also answers failed bearer authentication.
func WriteJSONError(w http.ResponseWriter, err error) {
	var msgs []string
	for _, f := range apperror.Fields(err) {
		msgs = append(msgs, f.Message)
	}
	if len(msgs) == 0 {
		msgs = []string{publicMessage(err)}
	}
	writeJSON(w, statusFor(err), ErrorResponse{Errors: msgs})
}

// writeErrorPage renders the error page for err. If even that fails the
// client gets a plain-text message with the same status.
func writeErrorPage(w http.ResponseWriter, pages PageRenderer, mode string, err error, logger *slog.Logger) {
	status := statusFor(err)
	page := render.Page{
		Title:  "Something went wrong",
		Mode:   mode,
		Errors: apperror.Fields(err),
	}
	if len(page.Errors) > 0 {
		page.Message = "Please fix the following errors"
	} else {
		page.Message = publicMessage(err)
	}

	body, rerr := pages.Page(render.PageError, page)
	if rerr != nil {
		logger.Error("failed to render error page", slog.String("error", rerr.Error()))
		http.Error(w, page.Message, status)
		return
	}
	writeBytes(w, status, "text/html; charset=utf-8", body)
}

// Package handler contains the HTTP handlers of both services.
//
// Handlers parse the request, call one service method and write the response.
// Status codes for domain failures come from the apperror taxonomy.
package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/sakif/business-cards/internal/auth"
	"github.com/sakif/business-cards/internal/card"
	"github.com/sakif/business-cards/internal/render"
	"github.com/sakif/business-cards/internal/service"
)

// CardHandler serves the browser-facing routes of the card service.
type CardHandler struct {
	cards    *service.CardService
	settings *service.SettingsService
	pages    PageRenderer
	logger   *slog.Logger
}

func NewCardHandler(cards *service.CardService, settings *service.SettingsService, pages PageRenderer, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		cards:    cards,
		settings: settings,
		pages:    pages,
		logger:   logger,
	}
}

// HandleIndex redirects to the form.
//
// HTTP: GET /
func (h *CardHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/create-card", http.StatusFound)
}

// HandleForm serves the creation form.
//
// HTTP: GET /create-card
func (h *CardHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, render.PageCreateCard, render.Page{Title: "Create your card"})
}

// HandleCreate validates the posted form, stores the card and redirects to
// its viewer.
//
// HTTP: POST /create-card
func (h *CardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("invalid card form", slog.String("error", err.Error()))
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	form := card.Form{
		FirstName: r.PostForm.Get("firstName"),
		LastName:  r.PostForm.Get("lastName"),
		Email:     r.PostForm.Get("email"),
		GitHub:    r.PostForm.Get("github"),
		Company:   r.PostForm.Get("company"),
	}

	created, err := h.cards.Create(r.Context(), form)
	if err != nil {
		h.writeError(w, err)
		return
	}

	q := url.Values{"cardId": {created.ID}, "email": {created.Email}}
	http.Redirect(w, r, "/view-card?"+q.Encode(), http.StatusFound)
}

// HandleView serves the viewer page of a stored card.
//
// HTTP: GET /view-card?cardId=&email=
func (h *CardHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	q, err := h.cards.View(viewQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.renderPage(w, render.PageCardViewer, render.Page{
		Title:  "Your card",
		CardID: q.CardID,
		Email:  q.Email,
	})
}

// HandlePreview returns the stored card document unchanged.
//
// HTTP: GET /preview-card?cardId=
func (h *CardHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	html, err := h.cards.Preview(card.PreviewQuery{CardID: r.URL.Query().Get("cardId")})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeBytes(w, http.StatusOK, "text/html; charset=utf-8", html)
}

// HandleDownload returns the PDF rendition of a card as an attachment.
//
// HTTP: GET /download-card?cardId=&email=
func (h *CardHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id, pdf, err := h.cards.Download(r.Context(), viewQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id + ".pdf"}))
	writeBytes(w, http.StatusOK, "application/pdf", pdf)
}

// HandleSetConfig updates a runtime setting. The body may be a form (as sent
// by the mode toggle) or JSON.
//
// HTTP: POST /set-config
func (h *CardHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	var u service.ConfigUpdate

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: []string{"Invalid JSON body"}})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: []string{"Invalid form body"}})
			return
		}
		u = service.ConfigUpdate{
			Config: r.PostForm.Get("config"),
			Key:    r.PostForm.Get("key"),
			Value:  r.PostForm.Get("val"),
		}
	}

	msg, err := h.settings.Update(u)
	if err != nil {
		WriteJSONError(w, err)
		return
	}

	attrs := []any{slog.String("message", msg)}
	if subject, ok := auth.SubjectFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("subject", subject))
	}
	h.logger.Info("config updated", attrs...)
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func viewQuery(r *http.Request) card.ViewQuery {
	q := r.URL.Query()
	return card.ViewQuery{CardID: q.Get("cardId"), Email: q.Get("email")}
}

func (h *CardHandler) renderPage(w http.ResponseWriter, name string, p render.Page) {
	p.Mode = h.settings.Current().Mode()
	body, err := h.pages.Page(name, p)
	if err != nil {
		h.logger.Error("failed to render page", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeBytes(w, http.StatusOK, "text/html; charset=utf-8", body)
}

func (h *CardHandler) writeError(w http.ResponseWriter, err error) {
	writeErrorPage(w, h.pages, h.settings.Current().Mode(), err, h.logger)
}

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/business-cards/internal/auth"
	"github.com/sakif/business-cards/internal/config"
	"github.com/sakif/business-cards/internal/converter"
	"github.com/sakif/business-cards/internal/handler"
	"github.com/sakif/business-cards/internal/pdfclient"
	"github.com/sakif/business-cards/internal/render"
	sqliteRepo "github.com/sakif/business-cards/internal/repository/sqlite"
	"github.com/sakif/business-cards/internal/service"
	"github.com/sakif/business-cards/internal/settings"
	"github.com/sakif/business-cards/internal/storage"
)

type avatarFunc func(handle, email string) string

func (f avatarFunc) Resolve(_ context.Context, handle, email string) string { return f(handle, email) }

// recordingConverter stands in for wkhtmltopdf.
type recordingConverter struct {
	mu    sync.Mutex
	calls []converter.Request
}

func (c *recordingConverter) Name() string { return "recording" }

func (c *recordingConverter) Convert(_ context.Context, req converter.Request) (*converter.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return &converter.Result{PDF: []byte("%PDF-1.4 card " + req.CardID), Duration: time.Millisecond}, nil
}

func (c *recordingConverter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type stack struct {
	card *httptest.Server
	pdf  *httptest.Server
	conv *recordingConverter
}

// newStack runs both services over real HTTP, sharing one storage directory.
func newStack(t *testing.T, tokens *auth.TokenService) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conv := &recordingConverter{}
	pdfs, err := service.NewPDFService(store, conv, db, logger)
	require.NoError(t, err)
	pdfSrv := httptest.NewServer(PDFRouter(handler.NewPDFHandler(pdfs, logger), logger))
	t.Cleanup(pdfSrv.Close)

	renderer, err := render.New()
	require.NoError(t, err)
	avatars := avatarFunc(func(handle, _ string) string { return "https://github.com/" + handle + ".png" })
	cards, err := service.NewCardService(store, avatars, renderer, pdfclient.New(pdfSrv.URL, 5*time.Second), logger)
	require.NoError(t, err)
	h := handler.NewCardHandler(cards, service.NewSettingsService(settings.New()), renderer, logger)
	cardSrv := httptest.NewServer(CardRouter(h, tokens, render.Static(), logger))
	t.Cleanup(cardSrv.Close)

	return &stack{card: cardSrv, pdf: pdfSrv, conv: conv}
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func TestCardLifecycle(t *testing.T) {
	s := newStack(t, nil)
	client := noRedirectClient()

	resp, err := client.PostForm(s.card.URL+"/create-card", url.Values{
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"email":     {"ada@example.com"},
		"github":    {"adalovelace"},
		"company":   {"Analytical Engines"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/view-card", loc.Path)
	id := loc.Query().Get("cardId")
	assert.Regexp(t, `^[0-9a-f]{32}$`, id)
	assert.Equal(t, "ada@example.com", loc.Query().Get("email"))

	resp, err = client.Get(s.card.URL + "/preview-card?cardId=" + id)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, string(body), "Ada")
	assert.Contains(t, string(body), "Lovelace")

	download := s.card.URL + "/download-card?cardId=" + id + "&email=ada%40example.com"
	var pdfs [][]byte
	for n := 0; n < 2; n++ {
		resp, err = client.Get(download)
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		pdfs = append(pdfs, b)
	}
	assert.Equal(t, pdfs[0], pdfs[1])
	assert.Equal(t, 1, s.conv.count())
	assert.Equal(t, "ada@example.com", s.conv.calls[0].Title)

	resp, err = client.Get(s.pdf.URL + "/conversions")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), id)
}

func TestMakeCardPDF_RejectsMalformedData(t *testing.T) {
	s := newStack(t, nil)

	for _, data := range []string{"", "ada@example.com", "a b c", "ada@example.com ffffffffffffffffffffffffffffffff"} {
		resp, err := http.Get(s.pdf.URL + "/make-card-pdf?data=" + url.QueryEscape(data))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "data=%q", data)
	}
	assert.Zero(t, s.conv.count())
}

func TestPDFLiveness(t *testing.T) {
	s := newStack(t, nil)

	resp, err := http.Get(s.pdf.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaticAssets(t *testing.T) {
	s := newStack(t, nil)

	resp, err := http.Get(s.card.URL + "/static/script.js")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "toggleMode")
}

func TestIndexRedirect(t *testing.T) {
	s := newStack(t, nil)

	resp, err := noRedirectClient().Get(s.card.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/create-card", resp.Header.Get("Location"))
}

func TestSetConfig_RequiresTokenWhenConfigured(t *testing.T) {
	tokens, err := auth.NewTokenService("a-test-secret-that-is-long-enough")
	require.NoError(t, err)
	s := newStack(t, tokens)

	post := func(token string) int {
		req, err := http.NewRequest(http.MethodPost, s.card.URL+"/set-config", strings.NewReader("config=prefs&key=mode&val=light"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, post(""))

	token, err := tokens.Generate("operator")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post(token))
}

func TestNewPDFServer(t *testing.T) {
	dir := t.TempDir()
	cfg := config.PDF{
		Port:        0,
		StoragePath: filepath.Join(dir, "storage"),
		AuditDBPath: filepath.Join(dir, "audit.db"),
	}

	srv, err := NewPDFServer(cfg, &recordingConverter{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(srv.close)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/conversions", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestNewCardServer(t *testing.T) {
	cfg := config.Card{
		StoragePath:  filepath.Join(t.TempDir(), "storage"),
		ConfigSecret: "a-test-secret-that-is-long-enough",
	}

	srv, err := NewCardServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/create-card", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/set-config", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func createCard(t *testing.T, s *stack, email string) *http.Response {
	t.Helper()
	resp, err := noRedirectClient().PostForm(s.card.URL+"/create-card", url.Values{
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"email":     {email},
		"github":    {"adalovelace"},
		"company":   {"Analytical Engines"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestConversions_FilterByCard(t *testing.T) {
	s := newStack(t, nil)

	var ids []string
	for _, email := range []string{"ada@example.com", "charles@example.com"} {
		resp := createCard(t, s, email)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		id := loc.Query().Get("cardId")
		ids = append(ids, id)

		dl, err := http.Get(s.card.URL + "/download-card?cardId=" + id + "&email=" + url.QueryEscape(email))
		require.NoError(t, err)
		dl.Body.Close()
		require.Equal(t, http.StatusOK, dl.StatusCode)
	}

	resp, err := http.Get(s.pdf.URL + "/conversions?cardId=" + ids[0])
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), ids[0])
	assert.NotContains(t, string(b), ids[1])

	resp, err = http.Get(s.pdf.URL + "/conversions?cardId=ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, "[]", string(b))
}

// A quoted local part with a blank would be split apart on the way to the
// render service, so such a card must never be stored.
func TestCreateCard_RejectsEmailWithSpace(t *testing.T) {
	s := newStack(t, nil)

	resp := createCard(t, s, `"ada lovelace"@example.com`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))

	list, err := http.Get(s.pdf.URL + "/conversions")
	require.NoError(t, err)
	b, _ := io.ReadAll(list.Body)
	list.Body.Close()
	assert.JSONEq(t, "[]", string(b))
	assert.Zero(t, s.conv.count())
}

package render

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/card"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestCard(t *testing.T) {
	r := newTestRenderer(t)

	html, err := r.Card(card.Data{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		GitHub:    "adalovelace",
		Company:   "Analytical Engines",
		AvatarURL: "https://github.com/adalovelace.png",
	})
	require.NoError(t, err)

	body := string(html)
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "Analytical Engines")
	assert.Contains(t, body, `src="https://github.com/adalovelace.png"`)
}

func TestCard_EscapesContent(t *testing.T) {
	r := newTestRenderer(t)

	html, err := r.Card(card.Data{
		FirstName: "<script>alert(1)</script>",
		AvatarURL: "javascript:alert(1)",
	})
	require.NoError(t, err)

	body := string(html)
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.NotContains(t, body, `src="javascript:`)
}

func TestPage(t *testing.T) {
	r := newTestRenderer(t)

	t.Run("viewer", func(t *testing.T) {
		html, err := r.Page(PageCardViewer, Page{
			Title:  "Card",
			Mode:   "light",
			CardID: "0123456789abcdef0123456789abcdef",
			Email:  "ada@example.com",
		})
		require.NoError(t, err)
		body := string(html)
		assert.Contains(t, body, `<meta name="config-prefs-mode" content="light">`)
		assert.Contains(t, body, "/preview-card?cardId=0123456789abcdef0123456789abcdef")
		assert.Contains(t, body, "ada%40example.com")
	})

	t.Run("error lists fields", func(t *testing.T) {
		html, err := r.Page(PageError, Page{
			Mode:    "dark",
			Message: "Validation failed",
			Errors:  []apperror.FieldError{{Field: "firstName", Message: "First name is invalid"}},
		})
		require.NoError(t, err)
		assert.Contains(t, string(html), "First name is invalid")
	})

	t.Run("unknown page", func(t *testing.T) {
		_, err := r.Page("missing", Page{})
		assert.ErrorIs(t, err, apperror.ErrRender)
	})
}

func TestStatic(t *testing.T) {
	b, err := fs.ReadFile(Static(), "script.js")
	require.NoError(t, err)
	assert.Contains(t, string(b), "/set-config")
}

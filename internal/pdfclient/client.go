// Package pdfclient calls the PDF render service.
package pdfclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxPDFSize bounds the response body accepted from the render service.
const MaxPDFSize = 32 << 20

// Client fetches card PDFs over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// MakeCardPDF asks the render service to convert a stored card. The email and
// the card id travel together in the single data parameter, space separated.
func (c *Client) MakeCardPDF(ctx context.Context, email, cardID string) ([]byte, error) {
	q := url.Values{"data": {email + " " + cardID}}
	target := c.baseURL + "/make-card-pdf?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("pdfclient: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdfclient: calling render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pdfclient: render service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPDFSize+1))
	if err != nil {
		return nil, fmt.Errorf("pdfclient: reading pdf: %w", err)
	}
	if len(body) > MaxPDFSize {
		return nil, fmt.Errorf("pdfclient: pdf exceeds %d bytes", MaxPDFSize)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("pdfclient: render service returned an empty pdf")
	}
	return body, nil
}

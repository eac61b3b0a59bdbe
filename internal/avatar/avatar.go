// Package avatar resolves the image shown on a card.
//
// The GitHub profile picture is used when it can be fetched; otherwise a
// placeholder seeded by the email address is used, so the same person always
// gets the same placeholder. Probing is best effort: every network failure
// degrades to the placeholder and is never returned to the caller.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultProfileBase     = "https://github.com"
	DefaultPlaceholderBase = "https://i.pravatar.cc/400"
)

var errTooManyRedirects = errors.New("avatar: too many redirects")

// Resolver probes profile images and builds placeholder URLs.
type Resolver struct {
	client          *http.Client
	profileBase     string
	placeholderBase string
	logger          *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithProfileBase points the probe at another host. Used by tests.
func WithProfileBase(base string) Option {
	return func(r *Resolver) { r.profileBase = strings.TrimRight(base, "/") }
}

// WithPlaceholderBase changes the placeholder image service.
func WithPlaceholderBase(base string) Option {
	return func(r *Resolver) { r.placeholderBase = base }
}

// New creates a Resolver whose probe gives up after timeout and follows at
// most maxRedirects redirects.
func New(logger *slog.Logger, timeout time.Duration, maxRedirects int, opts ...Option) *Resolver {
	r := &Resolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		profileBase:     DefaultProfileBase,
		placeholderBase: DefaultPlaceholderBase,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the avatar URL for a card. It issues at most one network
// request; callers resolve once and pass the result along.
func (r *Resolver) Resolve(ctx context.Context, handle, email string) string {
	profile := r.ProfileImageURL(handle)
	if err := r.probe(ctx, profile); err != nil {
		r.logger.Warn("github avatar unavailable, using placeholder",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		return r.Placeholder(email)
	}
	return profile
}

// ProfileImageURL is where GitHub serves the profile picture of handle.
func (r *Resolver) ProfileImageURL(handle string) string {
	return r.profileBase + "/" + url.PathEscape(handle) + ".png"
}

// Placeholder builds the deterministic fallback avatar for email.
func (r *Resolver) Placeholder(email string) string {
	return r.placeholderBase + "?u=" + url.QueryEscape(strings.ToLower(email))
}

func (r *Resolver) probe(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain a bounded amount so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

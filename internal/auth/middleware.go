package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/business-cards/internal/apperror"
)

type contextKey string

const subjectKey contextKey = "subject"

var errNoBearer = errors.New("auth: missing bearer token")

// DenyFunc answers a request that failed authentication. err is always an
// apperror.Forbidden.
type DenyFunc func(w http.ResponseWriter, err error)

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// token. A nil TokenService disables the check. Rejections go to deny; a nil
// deny answers 401 with a JSON error body.
//
// MIDDLEWARE CONTRACT:
// The validated token subject is stored in the request context, so handlers
// behind the guard can attribute changes with SubjectFromContext.
func RequireBearer(tokens *TokenService, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = defaultDeny
	}
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := extractSubject(r, tokens)
			if err != nil {
				deny(w, apperror.Forbidden("valid authentication required", err))
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

func defaultDeny(w http.ResponseWriter, _ error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"errors":["valid authentication required"]}` + "\n"))
}

func extractSubject(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return tokens.Validate(strings.TrimSpace(token))
}

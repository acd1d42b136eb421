package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"checkin-service/internal/model"
	"checkin-service/internal/service"
)

const sessionHeader = "X-Session-Id"

type contextKey string

const sessionContextKey contextKey = "checkin.session"

// Paths that never require a session: health probes, the provider webhook
// (authenticated by signature instead), and session creation itself.
var sessionExemptPrefixes = []string{
	"/health",
	"/ping",
	"/api/v1/webhook",
	"/api/v1/session",
}

// SessionMiddleware resolves the X-Session-Id header on every request.
// A missing, unknown, or expired session id is a 401; a live session is
// touched and attached to the request context.
func SessionMiddleware(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range sessionExemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			sessionID := r.Header.Get(sessionHeader)
			if sessionID == "" {
				respondWithError(w, r, http.StatusUnauthorized, "session required", "Missing "+sessionHeader+" header")
				return
			}

			session, err := sessions.GetOrReject(r.Context(), sessionID)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
					respondWithError(w, r, http.StatusUnauthorized, "invalid session", "Session is invalid or expired")
				default:
					respondWithError(w, r, http.StatusInternalServerError, "session lookup failed", "Unable to resolve session")
				}
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session attached by SessionMiddleware, or
// nil on exempt paths.
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

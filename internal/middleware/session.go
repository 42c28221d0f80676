// Package middleware provides HTTP middlewares for session checks and logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/rccdash/internal/session"
)

type ctxKey string

const sessionKey ctxKey = "session"

// SessionHeader carries the id returned by login.
const SessionHeader = "X-Session-ID"

// SessionSource is the holder of the active session.
type SessionSource interface {
	Current() (session.Session, bool)
	Touch()
}

// WithSession records user interaction for requests that present the active
// session id and stores the session in the request context. Requests without
// a matching id pass through untouched.
func WithSession(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, ok := src.Current()
			if !ok || s.ID != id {
				next.ServeHTTP(w, r)
				return
			}
			src.Touch()
			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that WithSession did not attach a session to.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			http.Error(w, "no active session", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext returns the session stored by WithSession.
func GetSessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(session.Session)
	return s, ok
}

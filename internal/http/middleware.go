package http

import (
	"context"
	"log/slog"
	"net/http"

	"budgetwatch/internal/core"
	applog "budgetwatch/internal/log"
)

type contextKey string

const userContextKey contextKey = "user"

// currentUser returns the authenticated user stored by requireAuth.
func currentUser(ctx context.Context) *core.User {
	u, _ := ctx.Value(userContextKey).(*core.User)
	return u
}

// sessionUser resolves the session cookie to a user, nil if unauthenticated.
func (s *Server) sessionUser(r *http.Request) *core.User {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	user, err := s.auth.UserFromSession(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return user
}

// requireAuth redirects anonymous visitors to the login page and stores
// the resolved user in the request context for the wrapped handler.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.sessionUser(r)
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// redirectIfAuthed sends logged-in users home; the login, register and
// password-reset pages are for anonymous visitors only.
func (s *Server) redirectIfAuthed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessionUser(r) != nil {
			http.Redirect(w, r, "/home", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// withSecurityHeaders adds security headers and rate-limits POST requests.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := applog.ClientIP(r)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// Package http is the web layer: routing, session-cookie authentication,
// form handling and template rendering.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetwatch/internal/auth"
	"budgetwatch/internal/cache"
	"budgetwatch/internal/core"
	"budgetwatch/internal/entry"
	applog "budgetwatch/internal/log"
	"budgetwatch/internal/summary"
	appweb "budgetwatch/web"
)

type Server struct {
	http.Server
	templates     *template.Template
	auth          *auth.Service
	entries       *entry.Service
	summaries     *summary.Service
	rateLimiter   *rateLimiter
	secureCookies bool

	// Month summaries are cached per user and invalidated on writes.
	summaryCache     *cache.LRUCache[*core.MonthlySummary]
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, entrySvc *entry.Service, summarySvc *summary.Service, secureCookies bool) *Server {
	mux := http.NewServeMux()

	s := &Server{
		auth:             authSvc,
		entries:          entrySvc,
		summaries:        summarySvc,
		rateLimiter:      newRateLimiter(),
		secureCookies:    secureCookies,
		summaryCache:     cache.NewLRUCache[*core.MonthlySummary](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}
	go s.startCacheCleanup()
	logger := applog.New(slog.LevelInfo, "http")
	s.Server = http.Server{
		Addr:    addr,
		Handler: applog.Requests(logger)(s.withSecurityHeaders(mux)),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /login", s.redirectIfAuthed(s.handleLoginForm))
	mux.HandleFunc("POST /login", s.redirectIfAuthed(s.handleLogin))
	mux.HandleFunc("GET /register", s.redirectIfAuthed(s.handleRegisterForm))
	mux.HandleFunc("POST /register", s.redirectIfAuthed(s.handleRegister))
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /reset_password", s.redirectIfAuthed(s.handleResetRequestForm))
	mux.HandleFunc("POST /reset_password", s.redirectIfAuthed(s.handleResetRequest))
	mux.HandleFunc("GET /reset_password/{token}", s.redirectIfAuthed(s.handleResetTokenForm))
	mux.HandleFunc("POST /reset_password/{token}", s.redirectIfAuthed(s.handleResetToken))

	mux.HandleFunc("GET /{$}", s.requireAuth(s.handleHome))
	mux.HandleFunc("POST /{$}", s.requireAuth(s.handleCreateEntry))
	mux.HandleFunc("GET /home", s.requireAuth(s.handleHome))
	mux.HandleFunc("POST /home", s.requireAuth(s.handleCreateEntry))
	mux.HandleFunc("GET /summary", s.requireAuth(s.handleSummary))
	mux.HandleFunc("GET /entries/{id}/update", s.requireAuth(s.handleUpdateEntryForm))
	mux.HandleFunc("POST /entries/{id}/update", s.requireAuth(s.handleUpdateEntry))
	mux.HandleFunc("POST /entries/{id}/delete", s.requireAuth(s.handleDeleteEntry))
	mux.HandleFunc("GET /settings", s.requireAuth(s.handleSettingsForm))
	mux.HandleFunc("POST /settings", s.requireAuth(s.handleSettings))

	return s
}

// startCacheCleanup periodically drops expired summary cache entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.summaryCache.CleanExpired(); n > 0 {
				slog.Debug("Summary cache cleanup", "entries_removed", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the background cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

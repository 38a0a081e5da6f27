// Package httpserver serves the blog's HTML pages, its JSON API and the
// websocket endpoints.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/blackmichael/blogdemo/internal/config"
	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/realtime"
	"github.com/blackmichael/blogdemo/internal/views"
)

// Deps are the services the server routes to.
type Deps struct {
	Blog  *domain.BlogService
	Auth  *domain.AuthService
	Hub   *realtime.Hub
	Badge http.Handler

	// Ping reports whether storage is reachable. Optional.
	Ping func(ctx context.Context) error
}

// Server is the HTTP server for pages, API and websockets.
type Server struct {
	cfg        *config.Config
	blog       *domain.BlogService
	auth       *domain.AuthService
	hub        *realtime.Hub
	ping       func(ctx context.Context) error
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	switch {
	case deps.Blog == nil:
		return nil, errors.New("blog service is required")
	case deps.Auth == nil:
		return nil, errors.New("auth service is required")
	case deps.Hub == nil:
		return nil, errors.New("realtime hub is required")
	case deps.Badge == nil:
		return nil, errors.New("badge handler is required")
	}

	s := &Server{
		cfg:    cfg,
		blog:   deps.Blog,
		auth:   deps.Auth,
		hub:    deps.Hub,
		ping:   deps.Ping,
		logger: logger,
	}

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /blog", s.handleBlogList)
	mux.HandleFunc("GET /blog/{postID}", s.handlePostPage)
	mux.HandleFunc("POST /blog/{postID}/comments", s.handleCommentForm)
	mux.HandleFunc("GET /create", s.handleCreatePage)
	mux.HandleFunc("POST /create", s.handleCreateForm)
	mux.HandleFunc("GET /auth/login", s.handleLoginPage)
	mux.HandleFunc("POST /auth/login", s.handleLoginForm)
	mux.HandleFunc("GET /auth/register", s.handleRegisterPage)
	mux.HandleFunc("POST /auth/register", s.handleRegisterForm)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /search", s.handleSearchFragment)
	mux.HandleFunc("GET /images/{imageID}", s.handleImage)
	mux.Handle("GET /static/", http.StripPrefix("/static/", views.StaticHandler()))
	mux.Handle("GET /badge/live", deps.Badge)

	// JSON API
	mux.HandleFunc("POST /api/auth/sign-up", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/sign-in", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/sign-out", s.handleSignOut)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("POST /api/posts", s.handleCreatePost)
	mux.HandleFunc("GET /api/posts/search", s.handleSearch)
	mux.HandleFunc("GET /api/posts/{postID}", s.handleGetPost)
	mux.HandleFunc("GET /api/posts/{postID}/comments", s.handleListComments)
	mux.HandleFunc("POST /api/posts/{postID}/comments", s.handleCreateComment)
	mux.HandleFunc("GET /api/posts/{postID}/presence", s.handlePresence)
	mux.HandleFunc("GET /api/posts/{postID}/live", s.handleLive)
	mux.HandleFunc("POST /api/uploads/url", s.handleUploadURL)
	mux.HandleFunc("POST /api/uploads", s.handleUpload)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      withLogging(logger, withRecover(logger, s.withUser(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server and disconnects live
// viewers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "Unavailable", "storage is unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

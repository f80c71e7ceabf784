// Package server provides the HTTP API of the portal.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"edusphere/internal/app"
	"edusphere/internal/portal"
)

// DefaultMaxUploadBytes bounds a multipart upload when the config sets no limit.
const DefaultMaxUploadBytes int64 = 32 << 20

// Server serves the portal over HTTP.
type Server struct {
	app            *app.PortalApp
	logger         portal.Logger
	router         chi.Router
	maxUploadBytes int64
}

// New creates a server for a.
func New(a *app.PortalApp) *Server {
	s := &Server{
		app:            a,
		logger:         a.Logger(),
		maxUploadBytes: a.Config().Server.MaxUploadBytes,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/session/login", s.handleLogin)
		r.Post("/session/logout", s.handleLogout)

		r.Get("/subjects", s.handleSubjects)
		r.Get("/subjects/{subjectID}", s.handleSubject)
		r.Get("/subjects/{subjectID}/search", s.handleSearch)

		r.Get("/folders/{folderID}", s.handleFolder)
		r.Get("/materials/{materialID}", s.handleMaterial)
		r.Get("/materials/{materialID}/content", s.handleMaterialContent)

		r.Get("/export", s.handleExport)
		r.Post("/study", s.handleStudy)

		// Admin mode only.
		r.Group(func(r chi.Router) {
			r.Use(s.requirePrivilege)
			r.Post("/folders", s.handleCreateFolder)
			r.Delete("/folders/{folderID}", s.handleDeleteFolder)
			r.Post("/materials", s.handleCreateMaterial)
			r.Post("/materials/upload", s.handleUploadMaterial)
			r.Delete("/materials/{materialID}", s.handleDeleteMaterial)
			r.Post("/reset", s.handleReset)
			r.Post("/publish", s.handlePublish)
			r.Get("/publications", s.handlePublications)
		})
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("http server listening", "address", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) requirePrivilege(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.app.Gate().Require(); err != nil {
			s.writeError(w, http.StatusForbidden, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-codecollab/internal/config"
	"github.com/npezzotti/go-codecollab/internal/database"
	"github.com/npezzotti/go-codecollab/internal/server"
)

type CollabApp struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	hub            *server.Hub
	signingKey     []byte
	allowedOrigins []string
	allowAnonymous bool
}

func NewCollabApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, db database.Repository, cfg *config.Config) *CollabApp {
	s := &CollabApp{
		log:            logger,
		db:             db,
		hub:            hub,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		allowAnonymous: cfg.AllowAnonymous,
	}

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /api/stats", s.stats)
	mux.Handle("GET /ws", s.identityMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *CollabApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CollabApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

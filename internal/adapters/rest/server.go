package rest

import (
	"context"
	"fmt"
	"net/http"
	core_port "rental-system/internal/core/port"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// Server is the REST API of the listing service.
type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewRouter builds the routes. Split from NewServer so tests can drive it with httptest.
func NewRouter(cfg ServerConfig, listings *ListingHandler, conversations *ConversationHandler, auth *AuthMiddleware, baseLogger core_port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads; a valid token still identifies the caller.
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)

			r.Get("/listings", listings.ListListings)
			r.Get("/listings/status", listings.ListingStatus)
			r.Get("/listings/{id}", listings.GetListing)
			r.Get("/filters/options", listings.FilterOptions)
			r.Get("/conversations", conversations.ListConversations)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/listings", listings.CreateListing)
			r.Patch("/listings/{id}", listings.UpdateListing)
			r.Delete("/listings/{id}", listings.DeleteListing)

			r.Post("/messages", conversations.SendMessage)
			r.Post("/conversations/{id}/read", conversations.MarkAsRead)
		})
	})

	return r
}

func NewServer(cfg ServerConfig, listings *ListingHandler, conversations *ConversationHandler, auth *AuthMiddleware, baseLogger core_port.LoggerPort) *Server {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, listings, conversations, auth, baseLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", core_port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}

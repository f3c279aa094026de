package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wavetotxt/wavetotxt/internal/api/handlers"
	appMiddleware "github.com/wavetotxt/wavetotxt/internal/api/middlewares"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes. The SSE stream route sits outside
// the timeout group so long-lived streams are not cut off at 60 seconds.
func NewServer(core *Core) *Server {
	cfg := core.Cfg

	transcription := handlers.NewTranscriptionHandler(cfg, core.Store, core.Objects, core.Queue, core.Summarizer, core.Status)
	callback := handlers.NewCallbackHandler(cfg, core.Receiver)
	chat := handlers.NewChatHandler(core.Store, core.Chunks, core.Indexer, core.Engine)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/transcribe/stream-status/{taskID}", transcription.StreamStatus)

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(60 * time.Second))

			timed.Get("/healthcheck", handlers.Healthcheck)

			timed.Post("/transcribe", transcription.Create)
			timed.Get("/transcribe/status/{taskID}", transcription.GetStatus)
			timed.Post("/transcribe/{taskID}/summarize", transcription.Summarize)
			timed.Post("/transcribe/callback/{taskID}", callback.Handle)

			timed.Post("/chat/{taskID}/initialize", chat.Initialize)
			timed.Post("/chat/{taskID}/ask", chat.Ask)
			timed.Post("/chat/{taskID}/upload-document", chat.UploadDocument)
			timed.Get("/chat/{taskID}/stats", chat.Stats)
			timed.Get("/chat/{taskID}/suggestions", chat.Suggestions)
			timed.Delete("/chat/{taskID}", chat.Delete)

			if core.History != nil && cfg.JWTSecret != "" {
				historyHandler := handlers.NewHistoryHandler(core.History)
				timed.Group(func(protected chi.Router) {
					protected.Use(appMiddleware.JWT(cfg.JWTSecret))
					protected.Post("/history", historyHandler.Save)
					protected.Get("/history", historyHandler.List)
					protected.Get("/history/{id}", historyHandler.Get)
					protected.Delete("/history/{id}", historyHandler.Delete)
					protected.Post("/history/{id}/summary", historyHandler.SaveSummary)
					protected.Get("/history/{id}/summaries", historyHandler.GetSummaries)
					protected.Post("/history/{id}/chat-messages", historyHandler.SaveChatMessage)
					protected.Get("/history/{id}/chat-messages", historyHandler.GetChatMessages)
				})
			}
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

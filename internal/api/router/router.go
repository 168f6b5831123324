package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/summoners-reunion/ai-chat-agent/internal/http/handlers"
	httpmiddleware "github.com/summoners-reunion/ai-chat-agent/internal/http/middleware"
	"github.com/summoners-reunion/ai-chat-agent/internal/webchat"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	WebChatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", cfg.ChatHandler.Root)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", cfg.ChatHandler.Health)
		api.Post("/chat", cfg.ChatHandler.Chat)
		api.Post("/chat/stream", cfg.ChatHandler.ChatStream)
		api.Post("/knowledge/retrieve", cfg.ChatHandler.Retrieve)
	})

	if cfg.WebChatHandler != nil {
		r.Get("/ws/chat", cfg.WebChatHandler.HandleWebSocket)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

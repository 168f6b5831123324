package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/summoners-reunion/ai-chat-agent/cmd/mainconfig"
	"github.com/summoners-reunion/ai-chat-agent/internal/agent"
	"github.com/summoners-reunion/ai-chat-agent/internal/api/router"
	appconfig "github.com/summoners-reunion/ai-chat-agent/internal/config"
	"github.com/summoners-reunion/ai-chat-agent/internal/http/handlers"
	"github.com/summoners-reunion/ai-chat-agent/internal/observability/metrics"
	"github.com/summoners-reunion/ai-chat-agent/internal/webchat"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting ai-chat-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"model_id", cfg.BedrockModelID,
		"knowledge_base_enabled", cfg.KnowledgeBaseEnabled,
	)

	// Metrics registry
	metricsHandler, chatMetrics := setupChatMetrics()

	// The server stays up without Bedrock; chat endpoints answer 503 until
	// credentials are fixed.
	var chatAgent *agent.Agent
	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config, chat endpoints disabled", "error", err)
	} else {
		chatAgent = agent.New(
			bedrockruntime.NewFromConfig(awsCfg),
			bedrockagentruntime.NewFromConfig(awsCfg),
			bedrock.NewFromConfig(awsCfg),
			agentSettings(cfg),
			logger,
			agent.WithMetrics(chatMetrics),
		)
	}

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(chatAgent, cfg.AppName, cfg.MaxConversationHistory, logger)
	webChatHandler := webchat.NewHandler(chatAgent, cfg.MaxConversationHistory, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		WebChatHandler:     webChatHandler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server. WriteTimeout stays at zero so long-lived SSE and
	// WebSocket responses are not cut off mid-stream.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), metrics.NewChatMetrics(registry)
}

func agentSettings(cfg *appconfig.Config) agent.Settings {
	settings := agent.Settings{
		Region:          cfg.AWSRegion,
		ModelID:         cfg.BedrockModelID,
		KBMaxResults:    cfg.KBMaxResults,
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		StreamChunkSize: cfg.StreamChunkSize,
	}
	if cfg.KnowledgeBaseEnabled {
		settings.KnowledgeBaseID = cfg.KnowledgeBaseID
	}
	return settings
}

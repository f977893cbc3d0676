// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/agent"
	"github.com/taskmate-ai/task-assistant/internal/config"
	"github.com/taskmate-ai/task-assistant/internal/events"
	"github.com/taskmate-ai/task-assistant/internal/handler"
	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/internal/middleware"
	"github.com/taskmate-ai/task-assistant/internal/service"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
	"github.com/taskmate-ai/task-assistant/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "task-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// The audit stream is optional: without NATS the service still runs,
	// it just does not emit audit events.
	var eventClient *events.Client
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		eventClient, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer eventClient.Close()

		publisher = events.NewPublisher(eventClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure audit stream", zap.Error(err))
			os.Exit(1)
		}
	}

	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderAnthropic) && cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	default:
		log.Error("no LLM API key configured")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	model := cfg.DefaultModel
	if model == "" {
		model = llmClient.Models()[0]
	}

	// Services
	taskSvc := service.NewTaskService(st, log)
	conversationSvc := service.NewConversationService(st, log)

	dispatcher := agent.NewDispatcher(taskSvc, log)
	assembler := agent.NewContextAssembler(conversationSvc, agent.AssemblerConfig{
		Window:             cfg.HistoryWindow,
		Summarize:          cfg.SummarizeEnabled,
		SummarizeThreshold: cfg.SummarizeThreshold,
	})
	ag := agent.New(llmClient, dispatcher, agent.Config{
		Model:         model,
		MaxIterations: cfg.AgentMaxIterations,
		ModelTimeout:  cfg.ModelTimeout,
		ToolTimeout:   cfg.ToolTimeout,
	}, log)

	chatSvc := service.NewChatService(conversationSvc, assembler, ag, publisher, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(st, eventClient)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	taskHandler := handler.NewTaskHandler(taskSvc, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat/message", chatHandler.Message)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Get("/messages", conversationHandler.Messages)
				r.Delete("/", conversationHandler.Archive)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Patch("/", taskHandler.Update)
				r.Post("/complete", taskHandler.Complete)
				r.Delete("/", taskHandler.Delete)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

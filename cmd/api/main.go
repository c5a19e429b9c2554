// Package main is the entry point for the dispatch server.
package main

import (
	"context"
	"errors"
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

	"github.com/capitalize-ai/dispatch-core/internal/config"
	"github.com/capitalize-ai/dispatch-core/internal/gateway"
	"github.com/capitalize-ai/dispatch-core/internal/handler"
	"github.com/capitalize-ai/dispatch-core/internal/knowledge"
	"github.com/capitalize-ai/dispatch-core/internal/llm"
	"github.com/capitalize-ai/dispatch-core/internal/middleware"
	natsclient "github.com/capitalize-ai/dispatch-core/internal/nats"
	"github.com/capitalize-ai/dispatch-core/internal/quickreply"
	"github.com/capitalize-ai/dispatch-core/internal/ratelimit"
	"github.com/capitalize-ai/dispatch-core/internal/service"
	"github.com/capitalize-ai/dispatch-core/internal/specialty"
	"github.com/capitalize-ai/dispatch-core/internal/task"
	"github.com/capitalize-ai/dispatch-core/pkg/logger"
	"github.com/capitalize-ai/dispatch-core/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting dispatch server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "dispatch-core", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Delivery log: JetStream when enabled, structured log otherwise
	var (
		deliveryLog gateway.DeliveryLog = gateway.NewLogRecorder(log)
		deliveries  handler.DeliveryReader
		readiness   handler.ConnChecker
	)
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		deliveryLog = natsclient.NewDeliveryLog(natsClient.JetStream())
		deliveries = streamManager
		readiness = natsClient
	}

	// Outbound gateway
	limiter := ratelimit.New(map[ratelimit.Class]ratelimit.Budget{
		ratelimit.ClassText:        {Limit: cfg.RateTextLimit, Window: cfg.RateWindow},
		ratelimit.ClassInteractive: {Limit: cfg.RateInteractiveLimit, Window: cfg.RateWindow},
		ratelimit.ClassTemplate:    {Limit: cfg.RateTemplateLimit, Window: cfg.RateWindow},
	}, ratelimit.WithLogger(log))

	client := gateway.NewClient(cfg.GatewayPhoneNumberID, cfg.GatewayAccessToken,
		gateway.WithBaseURL(cfg.GatewayBaseURL),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.GatewayTimeout}),
	)
	dispatcher := gateway.NewDispatcher(client, limiter,
		gateway.WithDeliveryLog(deliveryLog),
		gateway.WithLogger(log),
		gateway.WithMaxLength(cfg.MessageMaxLength),
		gateway.WithPartDelay(cfg.MessagePartDelay),
	)

	// Initialize LLM client
	llmClient, err := llm.NewClientFromKeys(cfg.AnthropicAPIKey, cfg.OpenAIAPIKey)
	switch {
	case errors.Is(err, llm.ErrNoProvider):
		log.Warn("no LLM provider configured, using keyword fallbacks")
	case err != nil:
		log.Warn("failed to create LLM client, using keyword fallbacks", zap.Error(err))
		llmClient = nil
	default:
		log.Info("LLM provider ready", zap.String("provider", llmClient.Name()))
	}
	collaborator := llm.NewCollaborator(llmClient, cfg.LLMModel, log)

	var (
		classifier service.Classifier
		symptoms   specialty.Classifier
		generator  knowledge.Generator
	)
	if collaborator.Available() {
		classifier, symptoms, generator = collaborator, collaborator, collaborator
	}

	// Reference data
	corpus, err := knowledge.LoadCorpus(cfg.KnowledgeCorpusPath)
	corpusState := "loaded"
	if err != nil {
		log.Warn("knowledge corpus unavailable", zap.String("path", cfg.KnowledgeCorpusPath), zap.Error(err))
		corpus = knowledge.NewCorpus("")
		corpusState = "empty"
	}
	candidates, err := specialty.LoadCandidates(cfg.SpecialtiesPath)
	if err != nil {
		log.Warn("specialist list unavailable", zap.String("path", cfg.SpecialtiesPath), zap.Error(err))
	}

	kb := knowledge.NewEngine(corpus, generator, log)
	triage := specialty.NewTriage(symptoms, candidates, nil, log)
	decider := quickreply.NewEngine(nil)
	builder := quickreply.NewBuilder(nil, nil)
	executor := task.NewExecutor(log)
	history := service.NewHistoryStore(service.DefaultHistoryCapacity,
		service.WithMaxRecipients(cfg.HistoryMaxRecipients))

	// Initialize services
	messageSvc := service.NewMessageService(service.Deps{
		Dispatcher: dispatcher,
		Classifier: classifier,
		Knowledge:  kb,
		Triage:     triage,
		Decider:    decider,
		Builder:    builder,
		History:    history,
		Scheduler:  executor,
	}, log,
		service.WithQuickReplyDelay(cfg.QuickReplyDelay),
		service.WithHistoryLimit(cfg.HistoryLimit),
	)

	// Initialize handlers
	retryAfter := int(cfg.RateWindow / time.Second)
	healthHandler := handler.NewHealthHandler(readiness, corpusState, len(candidates))
	webhookHandler := handler.NewWebhookHandler(messageSvc, log)
	messageHandler := handler.NewMessageHandler(dispatcher, deliveries, retryAfter, log)
	lookupHandler := handler.NewLookupHandler(kb, triage, decider, builder)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Gateway events
	r.With(middleware.WebhookRateLimit(cfg.WebhookRateLimit, cfg.WebhookRateWindow)).
		Post("/webhook", webhookHandler.Receive)

	// Admin API with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.AdminRateLimit, cfg.AdminRateWindow))

		r.With(middleware.RequireScope(middleware.ScopeSend)).Post("/messages", messageHandler.Send)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeRead))
			r.Get("/deliveries", messageHandler.ListDeliveries)
			r.Post("/knowledge/lookup", lookupHandler.Knowledge)
			r.Post("/triage", lookupHandler.Triage)
			r.Post("/quick-replies/decide", lookupHandler.Decide)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// Give scheduled quick replies a chance to go out.
	if err := executor.Wait(shutdownCtx); err != nil {
		log.Warn("deferred tasks still running at shutdown", zap.Error(err))
	}
	executor.Close()

	log.Info("server stopped")
}

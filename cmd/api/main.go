package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bizlink-ai/concierge-platform/cmd/mainconfig"
	"github.com/bizlink-ai/concierge-platform/internal/api/router"
	"github.com/bizlink-ai/concierge-platform/internal/appointments"
	"github.com/bizlink-ai/concierge-platform/internal/classifier"
	appconfig "github.com/bizlink-ai/concierge-platform/internal/config"
	"github.com/bizlink-ai/concierge-platform/internal/conversation"
	"github.com/bizlink-ai/concierge-platform/internal/corpus"
	"github.com/bizlink-ai/concierge-platform/internal/http/handlers"
	"github.com/bizlink-ai/concierge-platform/internal/notify"
	"github.com/bizlink-ai/concierge-platform/internal/observability/metrics"
	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
	"github.com/bizlink-ai/concierge-platform/internal/templates"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting concierge-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	schedule, err := scheduling.ParseSchedule(cfg.BusinessHours)
	if err != nil {
		logger.Error("invalid BUSINESS_HOURS", "error", err)
		os.Exit(1)
	}

	c, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		logger.Error("failed to load corpus", "error", err, "path", cfg.CorpusPath)
		os.Exit(1)
	}
	matcher := corpus.NewMatcher(c, corpus.MatcherOptions{
		Threshold:     cfg.SimilarityThreshold,
		MaxVocabulary: cfg.MaxVocabulary,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	convMetrics := metrics.NewConversationMetrics(registry)
	apptMetrics := metrics.NewAppointmentMetrics(registry)

	sessions, redisHealth := newSessionStore(ctx, cfg, logger)

	profile := templates.TenantProfile{
		BusinessName: cfg.BusinessName,
		Services:     cfg.Services,
		BookingURL:   cfg.BookingURL,
		HoursSummary: schedule.Describe(),
	}

	generative := newGenerativeAdapter(ctx, cfg, profile, logger)

	convRouter, err := conversation.NewRouter(conversation.RouterConfig{
		Classifier: classifier.New(),
		Matcher:    matcher,
		Generative: generative,
		Sessions:   sessions,
		Profile:    profile,
		Logger:     logger,
		Metrics:    convMetrics,
	})
	if err != nil {
		logger.Error("failed to build response router", "error", err)
		os.Exit(1)
	}

	chatHandler := handlers.NewChatHandler(handlers.ChatConfig{
		Router:       convRouter,
		DefaultOrgID: cfg.DefaultOrgID,
		Logger:       logger,
	})

	var pool *pgxpool.Pool
	var apptHandler *handlers.AppointmentsHandler
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		svc, err := appointments.NewService(appointments.ServiceConfig{
			Schedule:                schedule,
			Resolver:                scheduling.NewResolver(schedule, cfg.SlotStepMinutes, cfg.SlotSearchHorizonDays),
			Store:                   appointments.NewRepository(pool),
			Email:                   newEmailSender(ctx, cfg, logger),
			Profile:                 profile,
			Logger:                  logger,
			Metrics:                 apptMetrics,
			ConflictCheckingEnabled: cfg.ConflictCheckingEnabled,
			HorizonDays:             cfg.SlotSearchHorizonDays,
		})
		if err != nil {
			logger.Error("failed to build appointment service", "error", err)
			os.Exit(1)
		}
		apptHandler = handlers.NewAppointmentsHandler(handlers.AppointmentsConfig{
			Service:      svc,
			Router:       convRouter,
			DefaultOrgID: cfg.DefaultOrgID,
			Logger:       logger,
		})
	} else {
		logger.Warn("DATABASE_URL not set, appointment booking disabled")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               chatHandler,
		Appointments:       apptHandler,
		Health:             handlers.NewHealthHandler(poolPinger(pool), redisHealth),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newSessionStore connects to Redis, falling back to the in-memory store so
// the chat endpoint stays up when Redis is unreachable. The second return is
// the health-check pinger, nil for the in-memory fallback.
func newSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.SessionStore, handlers.Pinger) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory sessions", "error", err, "addr", cfg.RedisAddr)
		return conversation.NewMemorySessionStore(), nil
	}
	return conversation.NewRedisSessionStore(client, cfg.SessionTTL), redisPinger{client: client}
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func poolPinger(pool *pgxpool.Pool) handlers.Pinger {
	if pool == nil {
		return nil
	}
	return pool
}

// newGenerativeAdapter wires the Gemini fallback when an API key is present.
// Without a key the adapter reports unavailable and the router skips it.
func newGenerativeAdapter(ctx context.Context, cfg *appconfig.Config, profile templates.TenantProfile, logger *logging.Logger) *conversation.GenerativeAdapter {
	if cfg.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY not set, generative fallback disabled")
		return conversation.NewGenerativeAdapter(nil, "", 0)
	}
	client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Warn("gemini client init failed, generative fallback disabled", "error", err)
		return conversation.NewGenerativeAdapter(nil, "", 0)
	}
	system := fmt.Sprintf(
		"You are the assistant for %s, a conversational front desk for small businesses. Services: %s. Be concise, friendly, and factual. If a customer wants to book, tell them to say \"book an appointment\".",
		profile.BusinessName, profile.ServiceList(),
	)
	return conversation.NewGenerativeAdapter(client, system, cfg.GenerativeTimeout)
}

// newEmailSender picks the confirmation email provider from config.
func newEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but not configured, using stub sender")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("AWS config load failed, using stub sender", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("ses selected but not configured, using stub sender")
	}
	return notify.NewStubEmailSender(logger)
}

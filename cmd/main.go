package main

import (
	"context"
	"fmt"
	"os"

	"github.com/uxlens/uxlens-backend/internal/clients/gcp"
	"github.com/uxlens/uxlens-backend/internal/clients/gemini"
	"github.com/uxlens/uxlens-backend/internal/clients/openai"
	redisclient "github.com/uxlens/uxlens-backend/internal/clients/redis"
	"github.com/uxlens/uxlens-backend/internal/data/db"
	"github.com/uxlens/uxlens-backend/internal/data/repos"
	httpserver "github.com/uxlens/uxlens-backend/internal/http"
	httpH "github.com/uxlens/uxlens-backend/internal/http/handlers"
	"github.com/uxlens/uxlens-backend/internal/modules/analysis"
	"github.com/uxlens/uxlens-backend/internal/modules/analysis/steps"
	"github.com/uxlens/uxlens-backend/internal/observability"
	"github.com/uxlens/uxlens-backend/internal/platform/envutil"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
	"github.com/uxlens/uxlens-backend/internal/services"
	"github.com/uxlens/uxlens-backend/internal/sse"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	if err = db.AutoMigrateAll(thePG); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}

	// Repos
	log.Info("Setting up repos...")
	sessionRepo := repos.NewSessionRepo(thePG, log)
	sessionImageRepo := repos.NewSessionImageRepo(thePG, log)
	resultRepo := repos.NewAnalysisResultRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub...")
	sseHub := sse.NewSSEHub(log)

	var sseBus redisclient.SSEBus
	if os.Getenv("REDIS_ADDR") != "" {
		sseBus, err = redisclient.NewSSEBus(log)
		if err != nil {
			log.Warn("Could not init Redis SSE bus; running single-instance", "error", err)
			sseBus = nil
		} else {
			defer sseBus.Close()
			if err := sseBus.StartForwarder(ctx, sseHub.Broadcast); err != nil {
				log.Warn("Could not start SSE forwarder", "error", err)
			}
		}
	}

	// Clients
	log.Info("Setting up clients...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	visionClient, err := gcp.NewVision(log)
	if err != nil {
		log.Error("Could not init Vision client", "error", err)
		os.Exit(1)
	}
	defer visionClient.Close()
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	analyzers := []steps.Analyzer{steps.NewOpenAIAnalyzer(openaiClient)}
	if os.Getenv("GEMINI_API_KEY") != "" {
		geminiClient, err := gemini.NewClient(log)
		if err != nil {
			log.Warn("Could not init Gemini client; multi-model sessions run on one backend", "error", err)
		} else {
			analyzers = append(analyzers, steps.NewGeminiAnalyzer(geminiClient))
		}
	}

	// Services
	log.Info("Setting up services...")
	notifier := services.NewSessionNotifier(log, sseHub, sseBus)
	sessionService := services.NewSessionService(thePG, log, bucketService, sessionRepo, sessionImageRepo, resultRepo)

	controller, err := analysis.NewController(analysis.ControllerDeps{
		DB:        thePG,
		Log:       log,
		Sessions:  sessionRepo,
		Images:    sessionImageRepo,
		Results:   resultRepo,
		Vision:    visionClient,
		Analyzers: analyzers,
		Notifier:  notifier,
	})
	if err != nil {
		log.Error("Could not init analysis controller", "error", err)
		os.Exit(1)
	}

	// Observability
	if m := observability.Init(log); m != nil {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			m.StartServer(ctx, log, addr)
		}
		m.StartPostgresCollector(ctx, log, thePG)
		m.StartSessionCollector(ctx, log, thePG)
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			m.StartRedisCollector(ctx, log, addr)
		}
	}
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "uxlens",
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
	})
	defer func() {
		if otelShutdown != nil {
			_ = otelShutdown(context.Background())
		}
	}()

	// Handlers
	log.Info("Setting up handlers...")
	sessionHandler := httpH.NewSessionHandler(log, sessionService, controller)
	realtimeHandler := httpH.NewRealtimeHandler(log, sseHub)
	healthHandler := httpH.NewHealthHandler()

	srv := httpserver.NewServer(httpserver.RouterConfig{
		Log:             log,
		SessionHandler:  sessionHandler,
		RealtimeHandler: realtimeHandler,
		HealthHandler:   healthHandler,
	})

	port := envutil.Str("PORT", "8080")
	log.Info("Starting HTTP server", "port", port)
	if err := srv.Run(":" + port); err != nil {
		log.Error("HTTP server exited", "error", err)
		os.Exit(1)
	}
}

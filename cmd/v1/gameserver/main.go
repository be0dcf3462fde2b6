package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/quizdome/quizdome/backend/go/internal/v1/auth"
	"github.com/quizdome/quizdome/backend/go/internal/v1/config"
	"github.com/quizdome/quizdome/backend/go/internal/v1/health"
	"github.com/quizdome/quizdome/backend/go/internal/v1/joinlock"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/middleware"
	"github.com/quizdome/quizdome/backend/go/internal/v1/quiz"
	"github.com/quizdome/quizdome/backend/go/internal/v1/ratelimit"
	"github.com/quizdome/quizdome/backend/go/internal/v1/reaper"
	"github.com/quizdome/quizdome/backend/go/internal/v1/service"
	"github.com/quizdome/quizdome/backend/go/internal/v1/store"
	"github.com/quizdome/quizdome/backend/go/internal/v1/timer"
	"github.com/quizdome/quizdome/backend/go/internal/v1/tracing"
	"github.com/quizdome/quizdome/backend/go/internal/v1/transport"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const serviceName = "quizgame-backend"

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	ctx := context.Background()

	if cfg.DevelopmentMode {
		logging.Info(ctx, "Running in DEVELOPMENT MODE")
	}

	// --- Tracing (Optional) ---
	if collectorAddr := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); collectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, serviceName, collectorAddr)
		if err != nil {
			logging.Error(ctx, "Failed to initialize tracing, continuing without it", zap.Error(err))
		} else {
			logging.Info(ctx, "✅ Tracing initialized", zap.String("collector", collectorAddr))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logging.Error(shutdownCtx, "Tracer shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	// --- Host Authentication ---
	skipAuth := cfg.SkipAuth
	if !skipAuth {
		// FALLBACK: If in dev mode and credentials missing, auto-skip
		if cfg.DevelopmentMode && (cfg.Auth0Domain == "" || cfg.Auth0Audience == "") {
			logging.Warn(ctx, "⚠️  Development Mode: Auth0 credentials missing. Auto-enabling SKIP_AUTH.")
			skipAuth = true
		} else if cfg.Auth0Domain == "" || cfg.Auth0Audience == "" {
			logging.Fatal(ctx, "AUTH0_DOMAIN and AUTH0_AUDIENCE must be set in environment when SKIP_AUTH=false")
		}
	}

	var validator types.TokenValidator
	if !skipAuth {
		authValidator, err := auth.NewValidator(ctx, cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			logging.Fatal(ctx, "Failed to create auth validator", zap.Error(err))
		}
		logging.Info(ctx, "✅ Auth0 validator initialized",
			zap.String("domain", cfg.Auth0Domain), zap.String("audience", cfg.Auth0Audience))
		validator = authValidator
	} else {
		logging.Warn(ctx, "⚠️ Authentication DISABLED for development - DO NOT USE IN PRODUCTION")
		validator = &auth.MockValidator{}
	}

	// --- Redis (Optional) ---
	// Shared join locks and rate-limit counters when running more than one
	// instance behind a PIN-sticky router.
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logging.Error(ctx, "Failed to connect to Redis, running in single-instance mode", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			logging.Info(ctx, "✅ Redis initialized", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logging.Info(ctx, "Running in single-instance mode (Redis disabled)")
	}

	rl, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		logging.Fatal(ctx, "Failed to create rate limiter", zap.Error(err))
	}

	// --- Quiz Repository ---
	var quizzes quiz.Repository
	switch {
	case cfg.QuizServiceURL != "":
		quizzes = quiz.NewHTTPRepository(cfg.QuizServiceURL)
		logging.Info(ctx, "Quiz repository: HTTP", zap.String("url", cfg.QuizServiceURL))
	case cfg.QuizFixturesPath != "":
		repo, err := quiz.NewMemoryRepositoryFromFile(cfg.QuizFixturesPath)
		if err != nil {
			logging.Fatal(ctx, "Failed to load quiz fixtures", zap.Error(err))
		}
		quizzes = repo
		logging.Info(ctx, "Quiz repository: fixtures file", zap.String("path", cfg.QuizFixturesPath))
	default:
		repo, err := quiz.NewMemoryRepository(quiz.Demo()...)
		if err != nil {
			logging.Fatal(ctx, "Failed to seed demo quizzes", zap.Error(err))
		}
		quizzes = repo
		logging.Info(ctx, "Quiz repository: built-in demo quizzes")
	}

	// --- Join Locks ---
	var locks joinlock.Locker
	if redisClient != nil {
		locks = joinlock.NewRedisLocker(redisClient, cfg.JoinLockTTL)
	} else {
		locks = joinlock.NewMemoryLocker(cfg.JoinLockTTL)
	}

	// --- Game Core ---
	clk := clock.RealClock{}
	roomStore := store.New()
	hub := transport.NewHub(validator, rl)
	timers := timer.New(hub, cfg.TimerTick, clk)

	svc := service.New(service.Deps{
		Store:       roomStore,
		Quizzes:     quizzes,
		Locks:       locks,
		Timers:      timers,
		Broadcaster: hub,
		Clock:       clk,
	}, service.Config{
		PlayerGrace:      cfg.PlayerGracePeriod,
		HostGrace:        cfg.HostGracePeriod,
		HostGraceWarning: cfg.HostGraceWarning,
		PinMaxAttempts:   cfg.PinMaxAttempts,
	})
	hub.SetRouter(transport.NewDispatcher(svc))

	sweeper := reaper.New(svc, cfg.ReaperInterval, clk)
	sweeper.Start()

	// --- Set up Server ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(otelgin.Middleware(serviceName))

	corsConfig := cors.DefaultConfig()
	allowedOrigins := auth.GetAllowedOriginsFromEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	corsConfig.AllowOrigins = allowedOrigins
	router.Use(cors.New(corsConfig))

	// Routing
	router.GET("/ws", hub.ServeWs)

	public := router.Group("/api/v1")
	public.Use(rl.PublicMiddleware())
	{
		public.GET("/rooms/:pin/qr.png", transport.JoinQRHandler(roomStore, cfg.PublicJoinURL))
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	checks := map[string]health.Pinger{}
	if httpRepo, ok := quizzes.(*quiz.HTTPRepository); ok {
		checks["quiz_service"] = httpRepo
	}
	if redisClient != nil {
		rc := redisClient
		checks["redis"] = health.PingFunc(func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		})
	}
	healthHandler := health.NewHandler(checks)
	router.GET("/healthz/live", healthHandler.Liveness)
	router.GET("/healthz/ready", healthHandler.Readiness)

	// Start the server.
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		logging.Info(ctx, "Game server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "Failed to run server", zap.Error(err))
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop sweeping first so nothing mutates rooms mid-teardown, then close
	// rooms (room_closed reaches clients), then drop the sockets.
	sweeper.Stop()
	svc.Shutdown(shutdownCtx)
	hub.Shutdown(shutdownCtx)
	timers.StopAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logging.Error(shutdownCtx, "Failed to close Redis connection", zap.Error(err))
		} else {
			logging.Info(shutdownCtx, "Redis connection closed")
		}
	}

	logging.Info(shutdownCtx, "Server exiting")
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/config"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/connection"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/database"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/engine"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/handler"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/jobs"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/middleware"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/oracle"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/redis"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/repository"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/transport"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	tenantRepo := repository.NewTenantRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	productRepo := repository.NewProductRepository(db.DB)
	orderRepo := repository.NewOrderRepository(db.DB)

	var primary oracle.Oracle
	if cfg.GeminiAPIKey != "" {
		gemini, err := oracle.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gemini client")
		}
		primary = gemini
		log.Info().Str("model", cfg.GeminiModel).Msg("gemini oracle enabled")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, using keyword fallback only")
	}
	orc := oracle.NewResilient(primary)

	eng := engine.New(sessionRepo, productRepo, orderRepo, tenantRepo, orc)

	dialer, err := transport.DefaultDialer()
	if err != nil {
		log.Fatal().Err(err).Msg("no transport driver linked into this binary")
	}

	state := connection.NewRedisStateStore(redisClient)
	manager := connection.NewManager(
		dialer, eng, tenantRepo, orderRepo, state,
		cfg.EncryptionKey, cfg.HistoryWindow(),
	)
	defer manager.Shutdown()

	go resumeConnections(manager, tenantRepo)

	reminderJob := jobs.NewReminderJob(
		sessionRepo, orderRepo, manager,
		cfg.ReminderDelay(), config.ReminderJobInterval, config.ReminderJobStartupDelay,
	)
	reminderJob.Start()
	defer reminderJob.Stop()

	authMiddleware := middleware.NewAuthMiddleware(tenantRepo)
	connectionHandler := handler.NewConnectionHandler(manager, state)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/", connectionHandler.Routes())
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// resumeConnections re-opens every active tenant that has stored
// credentials, so a restart does not require re-pairing.
func resumeConnections(manager *connection.Manager, tenants repository.TenantRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	active, err := tenants.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active tenants")
		return
	}

	resumed := 0
	for _, tenant := range active {
		if tenant.Credentials == nil || *tenant.Credentials == "" {
			continue
		}
		if _, err := manager.EnsureConnection(ctx, tenant.ID); err != nil {
			log.Error().Err(err).Str("tenantId", tenant.ID).Msg("failed to resume connection")
			continue
		}
		resumed++
	}

	log.Info().Int("count", resumed).Msg("tenant connections resumed")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

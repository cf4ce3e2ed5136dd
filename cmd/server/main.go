package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallan_chat/internal/assistant"
	"gallan_chat/internal/config"
	"gallan_chat/internal/handler"
	"gallan_chat/internal/middleware"
	"gallan_chat/internal/relay"
	"gallan_chat/internal/repository"
	"gallan_chat/internal/repository/memory"
	"gallan_chat/internal/repository/postgres"
	"gallan_chat/internal/service"
	"gallan_chat/internal/ws"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level, cfg.Environment)

	repos, closeStorage := openStorage(cfg, appLogger)
	defer closeStorage()

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
		repos.RateLimit = repository.NewRateLimitRepository(rdb, appLogger)
	}

	hub := ws.NewHub(repos.Chat, appLogger.With("component", "hub"))

	if cfg.NATS.URL != "" {
		node := uuid.NewString()
		natsRelay, err := relay.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, node, appLogger.With("component", "relay"))
		if err != nil {
			appLogger.Fatal("Failed to connect to NATS", "error", err)
		}
		defer natsRelay.Close()

		hub.SetPublisher(natsRelay)
		if err := natsRelay.Subscribe(hub.DeliverRemote); err != nil {
			appLogger.Fatal("Failed to subscribe to NATS", "error", err)
		}
		appLogger.Info("NATS relay established", "node", node, "prefix", cfg.NATS.SubjectPrefix)
	}

	var generator service.StarterGenerator
	if cfg.Starters.OpenAIAPIKey != "" {
		generator = assistant.NewOpenAIGenerator(cfg.Starters, appLogger.With("component", "assistant"))
	} else {
		appLogger.Warn("OPENAI_API_KEY is not set, serving fallback conversation starters")
	}

	services := service.NewServices(repos, hub, generator, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit.PerMinute, appLogger)

	handlers := handler.NewHandlers(services, hub, cfg, appLogger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage.Backend, "delivery_policy", cfg.Delivery.Policy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

// openStorage picks the backend once; nothing switches it at runtime.
func openStorage(cfg *config.Config, log logger.Logger) (*repository.Repositories, func()) {
	if cfg.Storage.Backend == config.StorageMemory {
		return memory.New(log), func() {}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database", "error", err)
	}
	if err := postgres.Migrate(ctx, dbPool); err != nil {
		log.Fatal("Failed to apply schema", "error", err)
	}
	log.Info("Database connection established")

	return postgres.New(dbPool, log), dbPool.Close
}

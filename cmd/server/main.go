package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"callmaker/internal/api"
	"callmaker/internal/auth"
	"callmaker/internal/handler"
	"callmaker/internal/middleware"
	"callmaker/internal/repository/postgres"
	"callmaker/pkg/cache"
	"callmaker/pkg/config"
	"callmaker/pkg/logger"
	"callmaker/pkg/validator"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("callmaker-api")

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Rate-limit counters live in Redis so limits hold across instances.
	// Without Redis the limiter falls back to per-process counters.
	var limiter api.Limiter
	if redisCache, err := cache.NewRedis(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn("Redis unavailable, rate limits are per-process only", map[string]interface{}{
			"error": err.Error(),
		})
		limiter = api.NewMemoryLimiter()
	} else {
		defer redisCache.Close()
		limiter = api.NewRedisLimiter(redisCache)
	}

	userRepo := postgres.NewUserRepository(db)
	orgRepo := postgres.NewOrganizationRepository(db)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)

	pipeline := api.NewPipeline(
		authService,
		limiter,
		validator.New(),
		log,
		api.RateLimit{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
	)

	r := mux.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20))

	handler.NewSystemHandler(version).Register(r, pipeline)
	handler.NewAuthHandler(authService, log).Register(r, pipeline)
	handler.NewUserHandler(userRepo, orgRepo, log).Register(r, pipeline)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("API server started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down API server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("API server stopped gracefully", nil)
}

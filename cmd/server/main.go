package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/contact-keeper/internal/api"
	"github.com/hugh/contact-keeper/internal/api/middleware"
	"github.com/hugh/contact-keeper/internal/auth"
	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/database"
	"github.com/hugh/contact-keeper/internal/transfer"
	"github.com/hugh/contact-keeper/pkg/config"
	"github.com/hugh/contact-keeper/pkg/crypto"
	"github.com/hugh/contact-keeper/pkg/secrets"
	"github.com/hugh/contact-keeper/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting contact-keeper server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Resolve the signing secret before touching the database
	jwtSecret, err := resolveJWTSecret(startCtx, cfg, logger)
	if err != nil {
		logger.Error("failed to resolve JWT secret", "error", err)
		os.Exit(1)
	}
	if jwtSecret == config.PlaceholderSecret {
		logger.Warn("JWT_SECRET not set, using development placeholder")
	}

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Connect to Redis when configured
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
		})
		if err := redisClient.Ping(startCtx).Err(); err != nil {
			logger.Warn("failed to connect to Redis, using in-memory rate limiter", "error", err)
			redisClient.Close()
			redisClient = nil
		}
	}

	// Initialize services
	jwtService := auth.NewJWTService(jwtSecret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, cfg.JWT.BcryptCost)
	contactService := contacts.NewService(db)

	limiter, closeLimiter := newRateLimiter(cfg.RateLimit, redisClient)
	defer closeLimiter()

	if cfg.Server.AllowSchemaReset && !cfg.Server.SchemaResetEnabled() {
		logger.Warn("ALLOW_SCHEMA_RESET ignored in production")
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Redis:             redisClient,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		Contacts:          contactService,
		Importer:          transfer.NewImporter(contactService, logger),
		Exporter:          transfer.NewExporter(contactService),
		RateLimiter:       limiter,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		UploadMaxBytes:    cfg.Upload.MaxBytes,
		AllowSchemaReset:  cfg.Server.SchemaResetEnabled(),
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}

func resolveJWTSecret(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	var opts []secrets.Option

	if cfg.Encryption.Key != "" {
		encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
		if err != nil {
			return "", err
		}
		opts = append(opts, secrets.WithEncryptor(encryptor))
	}

	if cfg.JWT.SecretS3URI != "" {
		client, err := secrets.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			return "", err
		}
		opts = append(opts, secrets.WithS3(client))
		logger.Info("loading JWT secret from S3", "uri", cfg.JWT.SecretS3URI)
	}

	return secrets.NewResolver(opts...).JWTSecret(ctx, cfg.JWT)
}

// newRateLimiter returns the Redis limiter when a client is available.
func newRateLimiter(cfg config.RateLimitConfig, client *redis.Client) (middleware.Limiter, func()) {
	if cfg.Requests <= 0 {
		return nil, func() {}
	}

	window := time.Duration(cfg.WindowSeconds) * time.Second
	if client != nil {
		return middleware.NewRedisLimiter(client, cfg.Requests, window), func() {}
	}

	limiter := middleware.NewMemoryLimiter(cfg.Requests, window)
	return limiter, limiter.Close
}

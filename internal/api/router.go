package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/contact-keeper/internal/api/handlers"
	"github.com/hugh/contact-keeper/internal/api/middleware"
	"github.com/hugh/contact-keeper/internal/auth"
	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/transfer"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB               *gorm.DB
	Redis            *redis.Client // optional, health check only
	Logger           *slog.Logger
	JWTService       auth.TokenService
	AuthService      auth.Authenticator
	Contacts         *contacts.Service
	Importer         *transfer.Importer
	Exporter         *transfer.Exporter
	RateLimiter      middleware.Limiter // nil disables rate limiting
	AllowedOrigins   []string           // empty allows any origin
	UploadMaxBytes   int64
	AllowSchemaReset bool
	// TrustProxyHeaders keys rate limits on X-Forwarded-For; set only behind
	// a proxy that overwrites it.
	TrustProxyHeaders bool
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger, cfg.TrustProxyHeaders))
	}

	// CORS - restrict to configured origins, or allow all when none are set
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger)
	contactHandler := handlers.NewContactHandler(cfg.Contacts, cfg.Logger)
	transferHandler := handlers.NewTransferHandler(cfg.Importer, cfg.Exporter, cfg.UploadMaxBytes, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/get", healthHandler.Ping)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Public auth endpoints
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTService))

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", contactHandler.List)
			r.Post("/", contactHandler.Create)
			r.Post("/upload", transferHandler.Upload)
			r.Get("/download", transferHandler.Download)
			r.Get("/{id}", contactHandler.Get)
			r.Put("/{id}", contactHandler.Update)
			r.Delete("/{id}", contactHandler.Delete)
		})
	})

	if cfg.AllowSchemaReset {
		adminHandler := handlers.NewAdminHandler(cfg.DB, cfg.Logger)
		r.Delete("/delete-tables", adminHandler.ResetTables)
		cfg.Logger.Warn("schema reset endpoint enabled", "path", "/delete-tables")
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	return &Router{r}
}

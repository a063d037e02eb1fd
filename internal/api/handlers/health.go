package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hugh/contact-keeper/internal/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthHandler reports whether the contact store can serve requests: the
// database answers, the users and contacts tables exist, and the rate limit
// backend is reachable when one is configured.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler accepts a nil redis client when Redis is not configured.
func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Services      map[string]string `json:"services"`
	MissingTables []string          `json:"missing_tables,omitempty"`
}

func (h *HealthHandler) check(ctx context.Context) HealthResponse {
	resp := HealthResponse{Status: statusHealthy, Services: map[string]string{}}
	mark := func(service string, ok bool) {
		if ok {
			resp.Services[service] = statusHealthy
			return
		}
		resp.Services[service] = statusUnhealthy
		resp.Status = statusUnhealthy
	}

	sqlDB, err := h.db.DB()
	dbUp := err == nil && sqlDB.PingContext(ctx) == nil
	mark("database", dbUp)

	// Without a connection the schema cannot be inspected.
	if dbUp {
		resp.MissingTables = database.MissingTables(ctx, h.db)
		mark("schema", len(resp.MissingTables) == 0)
	} else {
		mark("schema", false)
	}

	if h.redis != nil {
		mark("redis", h.redis.Ping(ctx).Err() == nil)
	}
	return resp
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.check(r.Context())

	statusCode := http.StatusOK
	if resp.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// Ready succeeds once contacts can be stored, so traffic is held back until
// the schema has been migrated.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := h.check(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if resp.Services["schema"] != statusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("schema not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping answers the legacy liveness check.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("APIs accessing"))
}

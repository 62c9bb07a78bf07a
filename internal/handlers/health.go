package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sbilibin2017/gw-users/internal/logger"
)

//go:generate mockgen -source=health.go -destination=mock_health.go -package=handlers

// Pinger checks that a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse represents the health check reply
// swagger:model HealthResponse
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
}

const healthTimeout = 2 * time.Second

// NewHealthHandler returns an HTTP handler reporting service health.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} handlers.HealthResponse "healthy"
// @Failure 503 {object} handlers.HealthResponse "unhealthy"
// @Router /health [get]
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Log.Errorw("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zelkovascum/Photudio/internal/transport/http/dto"
	httperrors "github.com/zelkovascum/Photudio/internal/transport/http/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	postgres Pinger
	redis    Pinger
}

func NewHealthHandler(postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Get answers 200 even when a dependency is down; the body tells which one.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:   "ok",
		Postgres: pingStatus(ctx, h.postgres),
		Redis:    pingStatus(ctx, h.redis),
	}
	if resp.Postgres != "up" || resp.Redis != "up" {
		resp.Status = "degraded"
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}

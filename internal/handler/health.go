package handler

import (
	"net/http"

	"github.com/nandakv/regio/internal/db"
)

type HealthHandler struct {
	pool *db.Pool
}

func NewHealthHandler(pool *db.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Health answers 200 while the store is reachable, 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.pool.Get().Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

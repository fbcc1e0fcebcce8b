package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger checks the database. *mongo.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// CacheStats reports cached entries per cache. session.Service satisfies it.
type CacheStats interface {
	Entries() map[string]int
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB     Pinger
	Caches CacheStats
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. caches may be nil.
func NewHandler(db Pinger, caches CacheStats, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Caches: caches,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Caches   map[string]int `json:"caches,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "caches":{"session":12,"sites":3,"invitations":1} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Caches != nil {
		resp.Caches = h.Caches.Entries()
	}

	_ = json.NewEncoder(w).Encode(resp)
}

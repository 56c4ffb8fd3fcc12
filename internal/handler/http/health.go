package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider отдает состояние фоновой очереди
type StatsProvider interface {
	Stats() map[string]interface{}
}

// HealthHandler обработчик health checks
type HealthHandler struct {
	storage  Pinger
	recorder StatsProvider
	log      *zap.Logger
}

// NewHealthHandler создает новый health handler
func NewHealthHandler(storage Pinger, recorder StatsProvider, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage:  storage,
		recorder: recorder,
		log:      log,
	}
}

// HealthResponse структура ответа health check
type HealthResponse struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Version        string                 `json:"version"`
	DatabaseStatus string                 `json:"databaseStatus"`
	Uptime         string                 `json:"uptime,omitempty"`
	Tracking       map[string]interface{} `json:"tracking,omitempty"`
}

const version = "1.0.0"

var startTime = time.Now()

// Health основной health check endpoint
//
//	@Summary	Health check
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := h.storage.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
		h.log.Error("database health check failed", zap.Error(err))
	}

	status := "healthy"
	statusCode := http.StatusOK
	if dbStatus == "unhealthy" {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		Version:        version,
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(startTime).String(),
	}
	if h.recorder != nil {
		response.Tracking = h.recorder.Stats()
	}

	writeJSON(w, response, statusCode)
}

// Ready readiness probe endpoint
//
//	@Summary	Readiness probe
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Failure	503	{object}	map[string]interface{}
//	@Router		/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Warn("not ready", zap.Error(err))
		writeJSON(w, map[string]interface{}{"status": "not_ready", "timestamp": time.Now()}, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{"status": "ready", "timestamp": time.Now()}, http.StatusOK)
}

package http

import (
	"UTM-Backend/internal/auth"
	"UTM-Backend/internal/metrics"
	"UTM-Backend/internal/repository"
	"UTM-Backend/internal/service"
	"UTM-Backend/internal/tracking"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// ClickRecorder принимает клики для фоновой записи
type ClickRecorder interface {
	Submit(click tracking.Click) error
	Stats() map[string]interface{}
}

// Options параметры HTTP слоя
type Options struct {
	BaseURL string
	QRSize  int
}

// Server HTTP сервер с обработчиками
type Server struct {
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	qrHandler       *QRHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	log             *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	storage repository.Storage,
	links *service.LinkService,
	recorder ClickRecorder,
	authMiddleware *auth.Middleware,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	opts Options,
	log *zap.Logger,
) *Server {
	log = log.With(zap.String("component", "http"))
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	return &Server{
		linksHandler:    NewLinksHandler(links, log, baseURL),
		redirectHandler: NewRedirectHandler(links, recorder, m, log),
		qrHandler:       NewQRHandler(storage, baseURL, opts.QRSize, log),
		healthHandler:   NewHealthHandler(storage, recorder, log),
		authMiddleware:  authMiddleware,
		metrics:         m,
		gatherer:        gatherer,
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.log, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware.CORS)

	// Health checks (без аутентификации)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/ready", s.healthHandler.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Swagger документация
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1/utm-links", func(api chi.Router) {
		api.Get("/", s.linksHandler.ListLinks)
		api.Get("/redirect/{code}", s.redirectHandler.HandleRedirect)
		api.Get("/{code}/qr", s.qrHandler.QRCode)

		api.Group(func(private chi.Router) {
			private.Use(s.authMiddleware.RequireAuth)
			private.Post("/", s.linksHandler.CreateLink)
			private.Put("/{id}", s.linksHandler.UpdateLink)
			private.Delete("/{id}", s.linksHandler.DeleteLink)
			private.Get("/{code}/analytics", s.linksHandler.GetAnalytics)
		})
	})

	// Короткий редирект, статические маршруты выше имеют приоритет
	r.Get("/{code}", s.redirectHandler.HandleRedirect)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestIDFromContext возвращает идентификатор запроса, если он есть
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Package main provides the entry point for the UTM link service.
//
//	@title			UTM Links API
//	@version		1.0.0
//	@description	Short links with UTM parameters, click tracking and analytics.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"UTM-Backend/internal/analytics"
	"UTM-Backend/internal/auth"
	"UTM-Backend/internal/cache"
	"UTM-Backend/internal/config"
	"UTM-Backend/internal/database"
	"UTM-Backend/internal/geo"
	httpHandler "UTM-Backend/internal/handler/http"
	"UTM-Backend/internal/metrics"
	"UTM-Backend/internal/repository"
	"UTM-Backend/internal/repository/gormstore"
	"UTM-Backend/internal/repository/memory"
	"UTM-Backend/internal/service"
	"UTM-Backend/internal/tracking"
	"UTM-Backend/pkg/clientip"
	"UTM-Backend/pkg/logger"
	"UTM-Backend/pkg/useragent"
	"context"
	"errors"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "UTM-Backend/docs" // Import swagger docs
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting UTM links service", zap.String("env", cfg.Env), zap.String("db_driver", cfg.Database.Driver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	storage, closeStorage := mustStorage(cfg, log)
	defer closeStorage()

	// Geolocation cache (опционально)
	var geoCache geo.Cache
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewGeoCache(context.Background(), cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Geolocation.CacheTTL)
		if err != nil {
			log.Warn("geolocation cache disabled", zap.Error(err))
		} else {
			geoCache = redisCache
			defer redisCache.Close()
			log.Info("geolocation cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	resolver := geo.NewResolver(geo.Config{
		ProviderURL:    cfg.Geolocation.ProviderURL,
		UserAgent:      cfg.Geolocation.UserAgent,
		RequestTimeout: cfg.Geolocation.RequestTimeout,
	}, geoCache, m, log)

	uaParser, err := useragent.NewParser(cfg.UserAgent.RegexesPath, log)
	if err != nil {
		log.Warn("failed to initialize User-Agent parser, using keyword classifier", zap.Error(err))
	}

	recorder := tracking.NewRecorder(tracking.Config{
		Workers:         cfg.Tracking.Workers,
		BufferSize:      cfg.Tracking.BufferSize,
		GeoTimeout:      cfg.Tracking.GeoTimeout,
		PublicIPTimeout: cfg.Tracking.PublicIPTimeout,
		PersistTimeout:  cfg.Tracking.PersistTimeout,
		ShutdownTimeout: cfg.Tracking.ShutdownTimeout,
		Production:      cfg.IsProduction(),
	}, tracking.Deps{
		Store:     storage,
		Extractor: clientip.NewExtractor(cfg.ClientIP.Headers),
		Geo:       resolver,
		PublicIP:  geo.NewPublicIP(cfg.Geolocation.PublicIPURL, cfg.Tracking.PublicIPTimeout),
		UserAgent: uaParser,
		Metrics:   m,
	}, log)
	if err := recorder.Start(); err != nil {
		log.Fatal("failed to start tracking recorder", zap.Error(err))
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		log.Fatal("invalid analytics configuration", zap.Error(err))
	}
	links := service.NewLinkService(storage, &cfg.Links, analytics.NewAggregator(loc), log)

	var jwtService *auth.JWTService
	if cfg.Auth.JWTSecret != "" {
		jwtService = auth.NewJWTService(&auth.JWTConfig{
			SecretKey:           []byte(cfg.Auth.JWTSecret),
			AccessTokenDuration: cfg.Auth.TokenTTL,
			Issuer:              cfg.Auth.Issuer,
		})
	}
	authMiddleware := auth.NewMiddleware(jwtService, cfg.HTTPServer.AllowedOrigins, log)

	apiServer := httpHandler.NewServer(storage, links, recorder, authMiddleware, m, reg, httpHandler.Options{
		BaseURL: cfg.Links.BaseURL,
		QRSize:  cfg.Links.QRSize,
	}, log)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down UTM links service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer shutdownCancel()

	// сначала перестаем принимать запросы, потом дописываем очередь кликов
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := recorder.Stop(); err != nil {
		log.Error("failed to stop tracking recorder", zap.Error(err))
	}
}

// mustStorage opens the configured storage backend and returns its close function.
func mustStorage(cfg *config.Config, log *zap.Logger) (repository.Storage, func()) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}
	}

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	closeDB := func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	return gormstore.New(db, log), closeDB
}

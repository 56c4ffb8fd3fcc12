// Package tracking records redirect clicks in the background.
package tracking

import (
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/geo"
	"UTM-Backend/internal/metrics"
	"UTM-Backend/pkg/clientip"
	"UTM-Backend/pkg/useragent"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Column bounds of utm_tracking.
const (
	maxIPLength      = 45
	maxRefererLength = 500
)

var (
	ErrNotStarted   = errors.New("recorder not started")
	ErrQueueFull    = errors.New("tracking queue is full")
	ErrShuttingDown = errors.New("recorder is shutting down")
)

// Click is everything captured from a redirect request. It must not reference the request itself.
type Click struct {
	LinkID    int64
	Code      string
	Signals   clientip.Signals
	UserAgent string
	Referer   string
	ClickedAt time.Time
}

// EventStore persists tracking events.
type EventStore interface {
	CreateTrackingEvent(ctx context.Context, event *domain.TrackingEvent) (int64, error)
}

// Locator resolves geolocation; it must never block longer than its own timeout.
type Locator interface {
	Lookup(ctx context.Context, ip string) geo.Result
}

// PublicIPLookup finds the host's own public address.
type PublicIPLookup interface {
	Lookup(ctx context.Context) (string, error)
}

// UserAgentParser classifies user agents.
type UserAgentParser interface {
	ParseUserAgent(userAgent string) (useragent.DeviceInfo, bool)
}

// Config holds configuration for the recorder
type Config struct {
	Workers         int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	GeoTimeout      time.Duration // Outer race around geolocation
	PublicIPTimeout time.Duration // Outer race around the public IP lookup
	PersistTimeout  time.Duration // Deadline for the event insert
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
	Production      bool          // Disables public IP substitution for private clients
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		BufferSize:      1000,
		GeoTimeout:      1500 * time.Millisecond,
		PublicIPTimeout: time.Second,
		PersistTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Production:      true,
	}
}

// Deps are the collaborators of the recorder. Only Store is required.
type Deps struct {
	Store     EventStore
	Extractor *clientip.Extractor
	Geo       Locator
	PublicIP  PublicIPLookup
	UserAgent UserAgentParser
	Metrics   *metrics.Metrics
}

// Recorder persists clicks off the request path with a bounded worker queue.
type Recorder struct {
	config  Config
	deps    Deps
	log     *zap.Logger
	queue   chan Click
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	mu      sync.RWMutex
}

// NewRecorder creates a new recorder
func NewRecorder(cfg Config, deps Deps, log *zap.Logger) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())
	if deps.Extractor == nil {
		deps.Extractor = clientip.NewExtractor(nil)
	}

	return &Recorder{
		config: cfg,
		deps:   deps,
		log:    log.With(zap.String("component", "tracking")),
		queue:  make(chan Click, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing clicks
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}
	if r.stopped {
		return fmt.Errorf("recorder was stopped")
	}

	r.log.Info("starting tracking recorder",
		zap.Int("workers", r.config.Workers),
		zap.Int("buffer_size", r.config.BufferSize),
		zap.Bool("production", r.config.Production),
	)

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	return nil
}

// Stop drains queued clicks until ShutdownTimeout, then abandons the rest.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return ErrNotStarted
	}
	r.started = false
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	r.log.Info("stopping tracking recorder", zap.Int("pending", len(r.queue)))

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.log.Info("tracking recorder stopped gracefully")
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		r.cancel()
		r.log.Warn("tracking recorder shutdown timeout reached", zap.Int("abandoned", len(r.queue)))
		return fmt.Errorf("shutdown timeout reached")
	}
}

// Submit enqueues a click without blocking. A full queue drops the click.
func (r *Recorder) Submit(click Click) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.started {
		if r.stopped {
			return ErrShuttingDown
		}
		return ErrNotStarted
	}

	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}

	select {
	case r.queue <- click:
		return nil
	default:
		r.deps.Metrics.Tracking(metrics.OutcomeDropped)
		r.log.Error("tracking queue is full, dropping click",
			zap.String("code", click.Code),
			zap.Int("queue_size", len(r.queue)),
		)
		return ErrQueueFull
	}
}

// Stats returns recorder statistics
func (r *Recorder) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]interface{}{
		"started":        r.started,
		"queue_length":   len(r.queue),
		"queue_capacity": cap(r.queue),
		"worker_count":   r.config.Workers,
	}
}

func (r *Recorder) worker(workerID int) {
	defer r.wg.Done()

	log := r.log.With(zap.Int("worker_id", workerID))
	log.Debug("tracking worker started")

	for click := range r.queue {
		r.process(log, click)
	}

	log.Debug("tracking worker stopped")
}

// process never lets a panic escape into the worker loop
func (r *Recorder) process(log *zap.Logger, click Click) {
	defer func() {
		if p := recover(); p != nil {
			r.deps.Metrics.Tracking(metrics.OutcomeFailed)
			log.Error("panic while recording click", zap.String("code", click.Code), zap.Any("panic", p))
		}
	}()

	if _, err := r.Record(r.ctx, click); err != nil {
		log.Warn("failed to record click", zap.String("code", click.Code), zap.Error(err))
	}
}

// Record assembles and persists one tracking event synchronously.
// Only the final insert can fail; every enrichment step degrades to null on its own.
func (r *Recorder) Record(ctx context.Context, click Click) (*domain.TrackingEvent, error) {
	log := r.log.With(zap.String("code", click.Code))

	event := &domain.TrackingEvent{
		LinkID:    click.LinkID,
		Code:      click.Code,
		UserAgent: optional(click.UserAgent),
		Referer:   optional(truncate(click.Referer, maxRefererLength)),
		ClickedAt: click.ClickedAt,
	}
	if event.ClickedAt.IsZero() {
		event.ClickedAt = time.Now()
	}

	// 1. адрес клиента сохраняется как есть, независимо от того, что уйдет в геолокацию
	var clientIP string
	if res, ok := r.deps.Extractor.Extract(click.Signals); ok {
		clientIP = res.IP
		event.IPAddress = optional(truncate(res.IP, maxIPLength))
		log.Debug("client ip extracted", zap.String("ip", res.IP), zap.String("source", res.Source))
	}

	// 2-3. геолокация
	if lookupIP := r.geolocationIP(ctx, log, clientIP); lookupIP != "" && r.deps.Geo != nil {
		res, settled := raceTimeout(ctx, r.config.GeoTimeout, geo.Result{}, func(ctx context.Context) geo.Result {
			return r.deps.Geo.Lookup(ctx, lookupIP)
		})
		if !settled {
			r.deps.Metrics.GeoLookup(metrics.OutcomeTimeout, 0)
			log.Warn("geolocation timed out", zap.String("ip", lookupIP), zap.Duration("timeout", r.config.GeoTimeout))
		}
		event.Country = res.Country
		event.City = res.City
		event.GeoData = res.Full
	}

	// 4. устройство, браузер, ОС
	r.classify(log, click.UserAgent, event)

	// 5. запись; единственный шаг, ошибка которого возвращается
	persistCtx, cancel := context.WithTimeout(ctx, r.config.PersistTimeout)
	defer cancel()

	id, err := r.deps.Store.CreateTrackingEvent(persistCtx, event)
	if err != nil {
		r.deps.Metrics.Tracking(metrics.OutcomeFailed)
		return nil, fmt.Errorf("failed to persist tracking event: %w", err)
	}
	event.ID = id

	r.deps.Metrics.Tracking(metrics.OutcomePersisted)
	log.Debug("click recorded",
		zap.Int64("event_id", id),
		zap.Stringp("country", event.Country),
		zap.Stringp("device_type", event.DeviceType),
	)

	return event, nil
}

// geolocationIP picks the address to geolocate. Outside production a private
// client address is swapped for the host's public one so local runs resolve.
func (r *Recorder) geolocationIP(ctx context.Context, log *zap.Logger, clientIP string) string {
	if clientIP == "" || r.config.Production || r.deps.PublicIP == nil {
		return clientIP
	}
	if !clientip.IsPrivate(clientIP) {
		return clientIP
	}

	type lookup struct {
		ip  string
		err error
	}
	res, settled := raceTimeout(ctx, r.config.PublicIPTimeout, lookup{}, func(ctx context.Context) lookup {
		ip, err := r.deps.PublicIP.Lookup(ctx)
		return lookup{ip: ip, err: err}
	})

	switch {
	case !settled:
		log.Warn("public ip lookup timed out", zap.Duration("timeout", r.config.PublicIPTimeout))
	case res.err != nil:
		log.Warn("could not get public ip for geolocation", zap.Error(res.err))
	case res.ip != "":
		return res.ip
	}

	return clientIP
}

func (r *Recorder) classify(log *zap.Logger, userAgent string, event *domain.TrackingEvent) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while classifying user agent", zap.Any("panic", p))
		}
	}()

	parse := useragent.Classify
	if r.deps.UserAgent != nil {
		parse = r.deps.UserAgent.ParseUserAgent
	}

	info, ok := parse(userAgent)
	if !ok {
		log.Debug("no user-agent header received")
		return
	}
	event.DeviceType = optional(info.DeviceType)
	event.Browser = optional(info.Browser)
	event.OS = optional(info.OS)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// truncate cuts s to at most n bytes on a rune boundary
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

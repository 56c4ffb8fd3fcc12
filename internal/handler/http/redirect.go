package http

import (
	"UTM-Backend/internal/metrics"
	"UTM-Backend/internal/repository"
	"UTM-Backend/internal/service"
	"UTM-Backend/internal/tracking"
	"UTM-Backend/pkg/clientip"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректов
type RedirectHandler struct {
	links    *service.LinkService
	recorder ClickRecorder
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(links *service.LinkService, recorder ClickRecorder, m *metrics.Metrics, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		links:    links,
		recorder: recorder,
		metrics:  m,
		log:      log,
	}
}

// HandleRedirect обрабатывает редирект по коду
//
//	@Summary		Redirect by code
//	@Description	Temporary redirect to the destination URL with UTM parameters; the click is recorded in the background
//	@Tags			Redirect
//	@Param			code	path	string	true	"Short code"
//	@Success		302
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/api/v1/utm-links/redirect/{code} [get]
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, target, err := h.links.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeRequired):
			writeError(w, "Code parameter is required", http.StatusBadRequest)
		case errors.Is(err, repository.ErrLinkNotFound):
			h.metrics.Redirect(metrics.OutcomeNotFound)
			h.log.Debug("code not found", zap.String("code", code))
			writeError(w, "UTM link not found or inactive", http.StatusNotFound)
		default:
			h.metrics.Redirect(metrics.OutcomeError)
			h.log.Error("failed to resolve redirect", zap.String("code", code), zap.Error(err))
			writeError(w, "Error processing redirect", http.StatusInternalServerError)
		}
		return
	}

	// всё нужное для записи копируется до ответа; запрос дальше не используется
	click := tracking.Click{
		LinkID:    link.ID,
		Code:      link.Code,
		Signals:   clientip.FromRequest(r),
		UserAgent: r.UserAgent(),
		Referer:   referer(r),
		ClickedAt: time.Now(),
	}

	http.Redirect(w, r, target, http.StatusFound)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	h.metrics.Redirect(metrics.OutcomeFound)

	if err := h.recorder.Submit(click); err != nil {
		h.log.Warn("click not recorded", zap.String("code", link.Code), zap.Error(err))
	}
}

// referer учитывает оба написания заголовка
func referer(r *http.Request) string {
	if v := r.Header.Get("Referer"); v != "" {
		return v
	}
	return r.Header.Get("Referrer")
}

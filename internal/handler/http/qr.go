package http

import (
	"UTM-Backend/internal/repository"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	minQRSize = 64
	maxQRSize = 1024
)

// QRHandler отдает PNG с QR-кодом короткой ссылки
type QRHandler struct {
	storage repository.Storage
	baseURL string
	size    int
	log     *zap.Logger
}

func NewQRHandler(storage repository.Storage, baseURL string, size int, log *zap.Logger) *QRHandler {
	if size <= 0 {
		size = 256
	}
	return &QRHandler{storage: storage, baseURL: baseURL, size: size, log: log}
}

// QRCode генерирует QR-код
//
//	@Summary		QR code for a short link
//	@Tags			Links
//	@Produce		png
//	@Param			code	path	string	true	"Short code"
//	@Param			size	query	int		false	"Image size in pixels (64-1024)"
//	@Success		200
//	@Failure		404	{object}	map[string]string
//	@Router			/api/v1/utm-links/{code}/qr [get]
func (h *QRHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.storage.FindLinkByCode(r.Context(), code, false)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "UTM link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to load link for qr", zap.String("code", code), zap.Error(err))
		writeError(w, "Error generating qr code", http.StatusInternalServerError)
		return
	}

	size := h.size
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		size = min(max(v, minQRSize), maxQRSize)
	}

	png, err := qrcode.Encode(h.baseURL+"/"+link.Code, qrcode.Medium, size)
	if err != nil {
		h.log.Error("failed to encode qr", zap.String("code", code), zap.Error(err))
		writeError(w, "Error generating qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

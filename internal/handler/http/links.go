package http

import (
	"UTM-Backend/internal/auth"
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/repository"
	"UTM-Backend/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

const (
	msgMissingFields = "Missing required fields: destinationUrl, utmSource, and utmMedium are required"
	msgInvalidURL    = "Invalid destination URL format"
)

// LinksHandler обработчик для работы со ссылками
type LinksHandler struct {
	links   *service.LinkService
	log     *zap.Logger
	baseURL string
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(links *service.LinkService, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		links:   links,
		log:     log,
		baseURL: baseURL,
	}
}

// LinkRequest тело запроса создания и обновления ссылки
type LinkRequest struct {
	DestinationURL string  `json:"destinationUrl" validate:"required,url"`
	UTMSource      string  `json:"utmSource" validate:"required,max=255"`
	UTMMedium      string  `json:"utmMedium" validate:"required,max=255"`
	UTMCampaign    *string `json:"utmCampaign,omitempty" validate:"omitempty,max=255"`
	UTMContent     *string `json:"utmContent,omitempty" validate:"omitempty,max=255"`
	// IsActive учитывается только при обновлении
	IsActive *bool `json:"isActive,omitempty"`
}

// LinkResponse ссылка вместе с короткой ссылкой для шаринга
type LinkResponse struct {
	*domain.Link
	ShortURL string `json:"shortUrl"`
}

// ListLinksResponse структура ответа списка ссылок
type ListLinksResponse struct {
	Data     []LinkResponse `json:"data"`
	Metadata struct {
		Pagination service.PageMeta `json:"pagination"`
	} `json:"metadata"`
}

// ListLinks возвращает страницу ссылок
//
//	@Summary		List UTM links
//	@Description	Paginated list of UTM links, newest first
//	@Tags			Links
//	@Produce		json
//	@Param			page	query		int	false	"Page number (default 1)"
//	@Param			limit	query		int	false	"Items per page (default 10, max 100)"
//	@Success		200		{object}	ListLinksResponse
//	@Failure		500		{object}	map[string]string
//	@Router			/api/v1/utm-links [get]
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	// нечисловые значения превращаются в 0 и заменяются значениями по умолчанию
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.links.List(r.Context(), page, limit)
	if err != nil {
		h.log.Error("failed to list links", zap.Error(err))
		writeError(w, "Error fetching utm links", http.StatusInternalServerError)
		return
	}

	var resp ListLinksResponse
	resp.Data = make([]LinkResponse, 0, len(result.Links))
	for _, link := range result.Links {
		resp.Data = append(resp.Data, h.toResponse(link))
	}
	resp.Metadata.Pagination = result.Meta

	writeJSON(w, resp, http.StatusOK)
}

// CreateLink создает новую UTM ссылку
//
//	@Summary		Create a UTM link
//	@Description	Create a short code for a destination URL with UTM parameters
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		LinkRequest			true	"Link creation request"
//	@Success		201		{object}	LinkResponse		"Link created successfully"
//	@Failure		400		{object}	map[string]string	"Invalid request data"
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Router			/api/v1/utm-links [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	in := toInput(req)
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		in.CreatedBy = &userID
	}

	link, err := h.links.Create(r.Context(), in)
	if err != nil {
		h.handleError(w, err, "create")
		return
	}

	fields := []zap.Field{zap.Int64("id", link.ID), zap.String("code", link.Code)}
	if email, ok := auth.GetUserEmailFromContext(r.Context()); ok {
		fields = append(fields, zap.String("created_by_email", email))
	}
	h.log.Info("created utm link", fields...)
	writeJSON(w, h.toResponse(link), http.StatusCreated)
}

// UpdateLink перезаписывает ссылку
//
//	@Summary		Update a UTM link
//	@Description	Overwrite destination and UTM fields; optional isActive toggles the link
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"Link ID"
//	@Param			request	body		LinkRequest			true	"Link fields"
//	@Success		200		{object}	LinkResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/api/v1/utm-links/{id} [put]
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	link, err := h.links.Update(r.Context(), id, toInput(req))
	if err != nil {
		h.handleError(w, err, "update")
		return
	}

	h.log.Info("updated utm link", zap.Int64("id", id))
	writeJSON(w, h.toResponse(link), http.StatusOK)
}

// DeleteLink удаляет ссылку вместе с ее кликами
//
//	@Summary		Delete a UTM link
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Link ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/api/v1/utm-links/{id} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.links.Delete(r.Context(), id); err != nil {
		h.handleError(w, err, "delete")
		return
	}

	h.log.Info("deleted utm link", zap.Int64("id", id))
	writeJSON(w, map[string]string{"message": "UTM link deleted successfully"}, http.StatusOK)
}

// GetAnalytics отдает отчет по кликам
//
//	@Summary		Link analytics
//	@Description	Aggregated click analytics for a code; inactive links are included
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Param			code	path		string	true	"Short code"
//	@Success		200		{object}	analytics.Report
//	@Failure		404		{object}	map[string]string
//	@Router			/api/v1/utm-links/{code}/analytics [get]
func (h *LinksHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	report, err := h.links.Analytics(r.Context(), code)
	if err != nil {
		h.handleError(w, err, "analytics")
		return
	}

	writeJSON(w, report, http.StatusOK)
}

func (h *LinksHandler) decode(w http.ResponseWriter, r *http.Request) (LinkRequest, bool) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return req, false
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, validationMessage(err), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request data"
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return msgMissingFields
		}
	}
	for _, fe := range verrs {
		if fe.Field() == "DestinationURL" {
			return msgInvalidURL
		}
	}
	return verrs[0].Field() + " is invalid"
}

func (h *LinksHandler) handleError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrCodeRequired):
		writeError(w, "Code parameter is required", http.StatusBadRequest)
	case errors.Is(err, repository.ErrLinkNotFound):
		writeError(w, "UTM link not found", http.StatusNotFound)
	default:
		h.log.Error("link operation failed", zap.String("action", action), zap.Error(err))
		writeError(w, "Error processing utm link", http.StatusInternalServerError)
	}
}

func (h *LinksHandler) toResponse(link *domain.Link) LinkResponse {
	return LinkResponse{Link: link, ShortURL: h.baseURL + "/" + link.Code}
}

func toInput(req LinkRequest) service.LinkInput {
	return service.LinkInput{
		DestinationURL: req.DestinationURL,
		UTMSource:      req.UTMSource,
		UTMMedium:      req.UTMMedium,
		UTMCampaign:    req.UTMCampaign,
		UTMContent:     req.UTMContent,
		IsActive:       req.IsActive,
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "Invalid link id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

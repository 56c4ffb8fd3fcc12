package service

import (
	"UTM-Backend/internal/analytics"
	"UTM-Backend/internal/config"
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/repository"
	"UTM-Backend/pkg/random"
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// сколько раз повторяем вставку при гонке на уникальном индексе
const maxInsertAttempts = 3

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrCodeRequired         = errors.New("code parameter is required")
	ErrMalformedDestination = errors.New("malformed destination url")
)

// LinkInput описывает поля ссылки, приходящие от клиента.
type LinkInput struct {
	DestinationURL string
	UTMSource      string
	UTMMedium      string
	UTMCampaign    *string
	UTMContent     *string
	// IsActive учитывается только при обновлении
	IsActive  *bool
	CreatedBy *string
}

// PageMeta описывает страницу списка.
type PageMeta struct {
	Count     int64 `json:"count"`
	Page      int   `json:"page"`
	PageCount int64 `json:"pageCount"`
	Limit     int   `json:"limit"`
	From      int64 `json:"from"`
	To        int64 `json:"to"`
}

type LinkPage struct {
	Links []*domain.Link
	Meta  PageMeta
}

type LinkService struct {
	storage    repository.Storage
	config     *config.Links
	aggregator *analytics.Aggregator
	log        *zap.Logger
}

func NewLinkService(storage repository.Storage, cfg *config.Links, aggregator *analytics.Aggregator, log *zap.Logger) *LinkService {
	if aggregator == nil {
		aggregator = analytics.NewAggregator(nil)
	}
	return &LinkService{
		storage:    storage,
		config:     cfg,
		aggregator: aggregator,
		log:        log.With(zap.String("component", "link_service")),
	}
}

// Create проверяет ввод, генерирует уникальный код и сохраняет активную ссылку.
func (s *LinkService) Create(ctx context.Context, in LinkInput) (*domain.Link, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	link := &domain.Link{
		DestinationURL: in.DestinationURL,
		UTMSource:      in.UTMSource,
		UTMMedium:      in.UTMMedium,
		UTMCampaign:    nonEmpty(in.UTMCampaign),
		UTMContent:     nonEmpty(in.UTMContent),
		IsActive:       true,
		CreatedBy:      nonEmpty(in.CreatedBy),
	}

	for attempt := 1; ; attempt++ {
		code, err := s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
		link.Code = code

		err = s.storage.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}
		// LinkExists лишь предварительная проверка, уникальность держит индекс
		if errors.Is(err, repository.ErrCodeExists) && attempt < maxInsertAttempts {
			s.log.Warn("code collision on insert, regenerating", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		return nil, fmt.Errorf("failed to save link: %w", err)
	}
}

// generateCode подбирает свободный код; после исчерпания попыток возвращает код длиннее на 2 символа.
func (s *LinkService) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < s.config.MaxRetries; i++ {
		code, err := random.NewRandomString(s.config.CodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		exists, err := s.storage.LinkExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	s.log.Warn("code retries exhausted, using longer code", zap.Int("retries", s.config.MaxRetries))
	code, err := random.NewRandomString(s.config.CodeLength + 2)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// Update перезаписывает целевой URL и UTM-поля целиком.
func (s *LinkService) Update(ctx context.Context, id int64, in LinkInput) (*domain.Link, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	link, err := s.storage.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}

	link.DestinationURL = in.DestinationURL
	link.UTMSource = in.UTMSource
	link.UTMMedium = in.UTMMedium
	link.UTMCampaign = nonEmpty(in.UTMCampaign)
	link.UTMContent = nonEmpty(in.UTMContent)
	if in.IsActive != nil {
		link.IsActive = *in.IsActive
	}

	if err := s.storage.UpdateLink(ctx, link); err != nil {
		return nil, err
	}
	return s.storage.GetLinkByID(ctx, id)
}

func (s *LinkService) Delete(ctx context.Context, id int64) error {
	return s.storage.DeleteLink(ctx, id)
}

// List возвращает страницу ссылок, новые первыми. Неверные page/limit заменяются значениями по умолчанию.
func (s *LinkService) List(ctx context.Context, page, limit int) (*LinkPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}
	offset := (page - 1) * limit

	links, count, err := s.storage.ListLinks(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return &LinkPage{Links: links, Meta: paginate(count, page, limit)}, nil
}

func paginate(count int64, page, limit int) PageMeta {
	lim := int64(limit)
	offset := int64(page-1) * lim

	meta := PageMeta{
		Count:     count,
		Page:      page,
		PageCount: (count + lim - 1) / lim,
		Limit:     limit,
	}
	if meta.PageCount == 0 {
		meta.PageCount = 1
	}
	if count > 0 {
		meta.From = offset + 1
		meta.To = min(offset+lim, count)
	}
	return meta
}

// Resolve находит активную ссылку по коду и собирает итоговый URL.
func (s *LinkService) Resolve(ctx context.Context, code string) (*domain.Link, string, error) {
	if code == "" {
		return nil, "", ErrCodeRequired
	}

	link, err := s.storage.FindLinkByCode(ctx, code, true)
	if err != nil {
		return nil, "", err
	}

	target, err := BuildDestination(link)
	if err != nil {
		return nil, "", err
	}
	return link, target, nil
}

// BuildDestination дописывает utm_source, utm_medium и, если заданы, utm_campaign и utm_content
// к существующей строке запроса. Существующие параметры не меняются.
func BuildDestination(link *domain.Link) (string, error) {
	u, err := url.Parse(link.DestinationURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDestination, err)
	}

	query := u.RawQuery
	appendParam := func(key, value string) {
		if query != "" {
			query += "&"
		}
		query += url.QueryEscape(key) + "=" + url.QueryEscape(value)
	}

	appendParam("utm_source", link.UTMSource)
	appendParam("utm_medium", link.UTMMedium)
	if link.UTMCampaign != nil && *link.UTMCampaign != "" {
		appendParam("utm_campaign", *link.UTMCampaign)
	}
	if link.UTMContent != nil && *link.UTMContent != "" {
		appendParam("utm_content", *link.UTMContent)
	}

	u.RawQuery = query
	// url.Parse("...?") оставляет ForceQuery, дописанные параметры его заменяют
	u.ForceQuery = false
	return u.String(), nil
}

// Analytics строит отчет по коду. Неактивные ссылки тоже учитываются.
func (s *LinkService) Analytics(ctx context.Context, code string) (*analytics.Report, error) {
	if code == "" {
		return nil, ErrCodeRequired
	}

	link, err := s.storage.FindLinkByCode(ctx, code, false)
	if err != nil {
		return nil, err
	}

	events, err := s.storage.ListTrackingEventsForLink(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracking events: %w", err)
	}

	return s.aggregator.Aggregate(link, events), nil
}

func validate(in LinkInput) error {
	if in.DestinationURL == "" || in.UTMSource == "" || in.UTMMedium == "" {
		return fmt.Errorf("%w: destinationUrl, utmSource and utmMedium are required", ErrInvalidInput)
	}
	u, err := url.Parse(in.DestinationURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid destination URL format", ErrInvalidInput)
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

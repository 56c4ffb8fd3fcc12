package repository

import (
	"UTM-Backend/internal/domain"
	"context"
	"errors"
)

var (
	ErrLinkNotFound = errors.New("utm link not found")
	ErrCodeExists   = errors.New("code already exists")
)

type Storage interface {
	// Link methods
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLinkByID(ctx context.Context, id int64) (*domain.Link, error)
	// FindLinkByCode ищет ссылку по коду; activeOnly отбрасывает неактивные
	FindLinkByCode(ctx context.Context, code string, activeOnly bool) (*domain.Link, error)
	LinkExists(ctx context.Context, code string) (bool, error)
	UpdateLink(ctx context.Context, link *domain.Link) error
	// DeleteLink удаляет ссылку вместе с её событиями
	DeleteLink(ctx context.Context, id int64) error
	// ListLinks возвращает страницу ссылок (новые первыми) и общее количество
	ListLinks(ctx context.Context, offset, limit int) ([]*domain.Link, int64, error)

	// Tracking methods
	CreateTrackingEvent(ctx context.Context, event *domain.TrackingEvent) (int64, error)
	// ListTrackingEventsForLink возвращает события по возрастанию clicked_at
	ListTrackingEventsForLink(ctx context.Context, linkID int64) ([]*domain.TrackingEvent, error)

	Ping(ctx context.Context) error
}

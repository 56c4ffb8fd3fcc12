package gormstore

import (
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage реализует repository.Storage поверх GORM (postgres, mysql, sqlite)
type Storage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр GORM storage
func New(db *gorm.DB, log *zap.Logger) *Storage {
	return &Storage{
		db:  db,
		log: log.With(zap.String("component", "gormstore")),
	}
}

// --- Link Methods ---

// CreateLink сохраняет новую ссылку; уникальность кода обеспечивает индекс
func (s *Storage) CreateLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Omit("TrackingEvents").Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to create link", zap.String("code", link.Code), zap.Error(err))
		return fmt.Errorf("failed to create link: %w", err)
	}

	s.log.Info("created link", zap.Int64("id", link.ID), zap.String("code", link.Code))
	return nil
}

// GetLinkByID получает ссылку по идентификатору
func (s *Storage) GetLinkByID(ctx context.Context, id int64) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).First(&link, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// FindLinkByCode получает ссылку по коду
func (s *Storage) FindLinkByCode(ctx context.Context, code string, activeOnly bool) (*domain.Link, error) {
	var link domain.Link

	q := s.db.WithContext(ctx).Where("code = ?", code)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	err := q.First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to find link by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	return &link, nil
}

// LinkExists проверяет занятость кода
func (s *Storage) LinkExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return count > 0, nil
}

// UpdateLink перезаписывает изменяемые поля ссылки целиком
func (s *Storage) UpdateLink(ctx context.Context, link *domain.Link) error {
	result := s.db.WithContext(ctx).Model(link).
		Select("destination_url", "utm_source", "utm_medium", "utm_campaign", "utm_content", "is_active", "updated_at").
		Updates(link)
	if result.Error != nil {
		s.log.Error("failed to update link", zap.Int64("id", link.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("updated link", zap.Int64("id", link.ID))
	return nil
}

// DeleteLink удаляет ссылку, события удаляет ON DELETE CASCADE
func (s *Storage) DeleteLink(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&domain.Link{}, id)
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.Int64("id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("deleted link", zap.Int64("id", id))
	return nil
}

// ListLinks возвращает страницу ссылок
func (s *Storage) ListLinks(ctx context.Context, offset, limit int) ([]*domain.Link, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Link{}).Count(&total).Error; err != nil {
		s.log.Error("failed to count links", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count links: %w", err)
	}

	var links []*domain.Link
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to list links", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list links: %w", err)
	}

	return links, total, nil
}

// --- Tracking Methods ---

// CreateTrackingEvent сохраняет событие перехода
func (s *Storage) CreateTrackingEvent(ctx context.Context, event *domain.TrackingEvent) (int64, error) {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return 0, fmt.Errorf("failed to create tracking event: %w", err)
	}
	return event.ID, nil
}

// ListTrackingEventsForLink возвращает события ссылки в хронологическом порядке
func (s *Storage) ListTrackingEventsForLink(ctx context.Context, linkID int64) ([]*domain.TrackingEvent, error) {
	var events []*domain.TrackingEvent
	err := s.db.WithContext(ctx).
		Where("utm_link_id = ?", linkID).
		Order("clicked_at ASC").Order("id ASC").
		Find(&events).Error
	if err != nil {
		s.log.Error("failed to list tracking events", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to list tracking events: %w", err)
	}
	return events, nil
}

// Ping проверяет соединение с базой данных
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

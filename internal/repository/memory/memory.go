package memory

import (
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

type MemStorage struct {
	mu          sync.RWMutex
	links       map[int64]*domain.Link
	linksByCode map[string]int64
	events      map[int64][]*domain.TrackingEvent // по utm_link_id
	linkSeq     int64
	eventSeq    int64
}

func New() *MemStorage {
	return &MemStorage{
		links:       make(map[int64]*domain.Link),
		linksByCode: make(map[string]int64),
		events:      make(map[int64][]*domain.TrackingEvent),
	}
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Проверяем, существует ли уже такой код
	if _, exists := s.linksByCode[link.Code]; exists {
		return repository.ErrCodeExists
	}

	s.linkSeq++
	now := time.Now()
	link.ID = s.linkSeq
	link.CreatedAt = now
	link.UpdatedAt = now

	s.links[link.ID] = link.Clone()
	s.linksByCode[link.Code] = link.ID
	return nil
}

func (s *MemStorage) GetLinkByID(_ context.Context, id int64) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return link.Clone(), nil
}

func (s *MemStorage) FindLinkByCode(_ context.Context, code string, activeOnly bool) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.linksByCode[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	link := s.links[id]
	if activeOnly && !link.IsActive {
		return nil, repository.ErrLinkNotFound
	}
	return link.Clone(), nil
}

func (s *MemStorage) LinkExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.linksByCode[code]
	return ok, nil
}

func (s *MemStorage) UpdateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.links[link.ID]
	if !ok {
		return repository.ErrLinkNotFound
	}

	updated := link.Clone()
	// код и служебные поля не меняются при обновлении
	updated.Code = stored.Code
	updated.CreatedBy = stored.CreatedBy
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now()
	s.links[link.ID] = updated
	return nil
}

func (s *MemStorage) DeleteLink(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return repository.ErrLinkNotFound
	}
	delete(s.links, id)
	delete(s.linksByCode, link.Code)
	delete(s.events, id)
	return nil
}

func (s *MemStorage) ListLinks(_ context.Context, offset, limit int) ([]*domain.Link, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Link, 0, len(s.links))
	for _, link := range s.links {
		all = append(all, link)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*domain.Link{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]*domain.Link, 0, end-offset)
	for _, link := range all[offset:end] {
		page = append(page, link.Clone())
	}
	return page, total, nil
}

// --- Tracking Methods ---

func (s *MemStorage) CreateTrackingEvent(_ context.Context, event *domain.TrackingEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[event.LinkID]; !ok {
		return 0, repository.ErrLinkNotFound
	}

	s.eventSeq++
	event.ID = s.eventSeq
	event.CreatedAt = time.Now()

	stored := *event
	s.events[event.LinkID] = append(s.events[event.LinkID], &stored)
	return event.ID, nil
}

func (s *MemStorage) ListTrackingEventsForLink(_ context.Context, linkID int64) ([]*domain.TrackingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.TrackingEvent, 0, len(s.events[linkID]))
	for _, e := range s.events[linkID] {
		c := *e
		events = append(events, &c)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ClickedAt.Before(events[j].ClickedAt)
	})
	return events, nil
}

func (s *MemStorage) Ping(_ context.Context) error {
	return nil
}

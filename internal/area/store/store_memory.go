package store

import (
	"context"
	"sort"
	"sync"

	"kehila/internal/area/models"
	"kehila/pkg/platform/sentinel"
)

// MemoryStore keeps the area taxonomy in memory for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	areas map[string]*models.Area
}

// NewMemoryStore creates an empty in-memory area store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{areas: make(map[string]*models.Area)}
}

func (s *MemoryStore) Upsert(ctx context.Context, area *models.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *area
	s.areas[area.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	area, ok := s.areas[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *area
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Area, 0, len(s.areas))
	for _, area := range s.areas {
		cp := *area
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.areas[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.areas, id)
	return nil
}

// Package service manages the volunteer-area taxonomy: plain CRUD, admin
// facing, with validation at the model boundary.
package service

import (
	"context"
	"errors"
	"log/slog"

	"kehila/internal/area/models"
	"kehila/internal/area/store"
	dErrors "kehila/pkg/domain-errors"
	"kehila/pkg/platform/sentinel"
)

// Service wraps the taxonomy store with validation and error translation.
type Service struct {
	areas  store.Store
	logger *slog.Logger
}

// New constructs the area service.
func New(areas store.Store, logger *slog.Logger) *Service {
	return &Service{areas: areas, logger: logger}
}

// Save validates and upserts a taxonomy entry.
func (s *Service) Save(ctx context.Context, id string, withKids bool, whatsAppLink string) (*models.Area, error) {
	area, err := models.NewArea(id, withKids, whatsAppLink)
	if err != nil {
		return nil, err
	}
	if err := s.areas.Upsert(ctx, area); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save area")
	}
	s.logger.Info("volunteer area saved", "area", area.ID)
	return area, nil
}

// Get returns one taxonomy entry.
func (s *Service) Get(ctx context.Context, id string) (*models.Area, error) {
	area, err := s.areas.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "area not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load area")
	}
	return area, nil
}

// List returns the whole taxonomy.
func (s *Service) List(ctx context.Context) ([]*models.Area, error) {
	areas, err := s.areas.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list areas")
	}
	return areas, nil
}

// Delete removes a taxonomy entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.areas.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "area not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete area")
	}
	s.logger.Info("volunteer area deleted", "area", id)
	return nil
}

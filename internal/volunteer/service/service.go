// Package service implements the registration flow: creating pending
// applicants, merging re-submissions, and the admin read views. It never
// writes Status or the insurance document; those belong to the approval
// pipeline alone.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	areamodels "kehila/internal/area/models"
	"kehila/internal/storage"
	"kehila/internal/volunteer/models"
	dErrors "kehila/pkg/domain-errors"
	"kehila/pkg/platform/sentinel"
)

// VolunteerStore is the registration-side slice of the record store.
type VolunteerStore interface {
	Create(ctx context.Context, rec *models.VolunteerRecord) error
	Update(ctx context.Context, rec *models.VolunteerRecord) error
	FindByNationalID(ctx context.Context, nationalID string) (*models.VolunteerRecord, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.VolunteerRecord, error)
	CountConfirmedByArea(ctx context.Context) (map[string]int, error)
}

// AreaStore resolves the selected volunteer area.
type AreaStore interface {
	Get(ctx context.Context, id string) (*areamodels.Area, error)
}

// RegisterRequest is one submission of the public registration form.
type RegisterRequest struct {
	NationalID string
	FirstName  string
	LastName   string
	Phone      string
	Email      string
	Gender     string
	Area       string
	// PoliceForm holds the uploaded background-check PDF, when provided.
	PoliceForm []byte
}

// Stats is the admin statistics view: confirmed volunteers per area.
type Stats struct {
	Total  int            `json:"total"`
	ByArea map[string]int `json:"byArea"`
}

// Service orchestrates the registration flow.
type Service struct {
	volunteers VolunteerStore
	areas      AreaStore
	objects    storage.ObjectStore
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for testability.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs the registration service.
func New(volunteers VolunteerStore, areas AreaStore, objects storage.ObjectStore, opts ...Option) *Service {
	s := &Service{
		volunteers: volunteers,
		areas:      areas,
		objects:    objects,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending applicant, or merges the submission into the
// existing record for the same national id: contact fields are refreshed,
// the new area is unioned in, and a previously uploaded police form is kept
// when none is re-supplied.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.VolunteerRecord, error) {
	gender, err := models.ParseGender(req.Gender)
	if err != nil {
		return nil, err
	}

	area, err := s.areas.Get(ctx, req.Area)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown volunteer area")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve volunteer area")
	}

	rec, err := models.NewVolunteerRecord(req.NationalID, req.FirstName, req.LastName, req.Phone, req.Email, gender, []string{area.ID}, s.now())
	if err != nil {
		return nil, err
	}

	existing, err := s.volunteers.FindByNationalID(ctx, req.NationalID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}

	if area.RequiresPoliceForm(gender) && len(req.PoliceForm) == 0 {
		hasExistingForm := existing != nil && existing.PoliceFormURL != nil
		if !hasExistingForm {
			return nil, dErrors.New(dErrors.CodeBadRequest, "police form is required for this volunteer area")
		}
	}

	if len(req.PoliceForm) > 0 {
		url, err := s.objects.Upload(ctx, storage.ComplianceKey(req.NationalID), req.PoliceForm, "application/pdf")
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "police form upload failed")
		}
		rec.PoliceFormURL = &url
	}

	if existing == nil {
		if err := s.volunteers.Create(ctx, rec); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Lost a create race with a concurrent submission for the
				// same national id; merge into the winner instead.
				return s.merge(ctx, req.NationalID, rec)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create applicant")
		}
		s.logger.Info("applicant registered", "national_id", rec.NationalID, "area", area.ID)
		return rec, nil
	}

	return s.merge(ctx, req.NationalID, rec)
}

// merge folds a re-submission into the stored record.
func (s *Service) merge(ctx context.Context, nationalID string, submitted *models.VolunteerRecord) (*models.VolunteerRecord, error) {
	existing, err := s.volunteers.FindByNationalID(ctx, nationalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}

	existing.FirstName = submitted.FirstName
	existing.LastName = submitted.LastName
	existing.Phone = submitted.Phone
	existing.Email = submitted.Email
	existing.Gender = submitted.Gender
	existing.MergeAreas(submitted.VolunteerAreas)
	if submitted.PoliceFormURL != nil {
		existing.PoliceFormURL = submitted.PoliceFormURL
	}

	if err := s.volunteers.Update(ctx, existing); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update applicant")
	}
	s.logger.Info("applicant updated", "national_id", nationalID)
	return existing, nil
}

// List returns applicants in the given lifecycle state.
func (s *Service) List(ctx context.Context, status models.Status) ([]*models.VolunteerRecord, error) {
	records, err := s.volunteers.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applicants")
	}
	return records, nil
}

// Get returns one applicant by national id.
func (s *Service) Get(ctx context.Context, nationalID string) (*models.VolunteerRecord, error) {
	rec, err := s.volunteers.FindByNationalID(ctx, nationalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}
	return rec, nil
}

// AreaStatistics aggregates confirmed volunteers per area for the admin
// dashboard.
func (s *Service) AreaStatistics(ctx context.Context) (*Stats, error) {
	byArea, err := s.volunteers.CountConfirmedByArea(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate statistics")
	}
	confirmed, err := s.volunteers.ListByStatus(ctx, models.StatusConfirmed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate statistics")
	}
	return &Stats{Total: len(confirmed), ByArea: byArea}, nil
}

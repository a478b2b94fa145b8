package volunteer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kehila/internal/volunteer/models"
	"kehila/pkg/platform/sentinel"
)

// MemoryStore keeps volunteer records in memory. It backs unit tests and
// local development; production uses PostgresStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.VolunteerRecord
}

// NewMemoryStore creates an empty in-memory volunteer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*models.VolunteerRecord)}
}

// Create inserts a new record. Returns sentinel.ErrConflict when a record
// with the same national id already exists.
func (s *MemoryStore) Create(ctx context.Context, rec *models.VolunteerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.NationalID == rec.NationalID {
			return sentinel.ErrConflict
		}
	}
	s.records[rec.RecordID] = clone(rec)
	return nil
}

// Update replaces the mutable registration fields of an existing record.
// Status and InsuranceFormURL are intentionally not written here; the
// approval pipeline owns those through ConfirmIfPending.
func (s *MemoryStore) Update(ctx context.Context, rec *models.VolunteerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.RecordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.FirstName = rec.FirstName
	existing.LastName = rec.LastName
	existing.Phone = rec.Phone
	existing.Email = rec.Email
	existing.Gender = rec.Gender
	existing.VolunteerAreas = append([]string(nil), rec.VolunteerAreas...)
	existing.PoliceFormURL = copyString(rec.PoliceFormURL)
	return nil
}

// FindByNationalID returns the record with the given national id.
func (s *MemoryStore) FindByNationalID(ctx context.Context, nationalID string) (*models.VolunteerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.NationalID == nationalID {
			return clone(rec), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByStatus returns all records in the given lifecycle state.
func (s *MemoryStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.VolunteerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VolunteerRecord
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// ConfirmIfPending is the conditional commit of the approval pipeline: it
// sets status to confirmed and records the insurance document URL only when
// the record is still pending. Returns false without error when the guard
// fails (another approval won the race).
func (s *MemoryStore) ConfirmIfPending(ctx context.Context, recordID uuid.UUID, insuranceURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if rec.Status != models.StatusPending {
		return false, nil
	}
	rec.Status = models.StatusConfirmed
	rec.InsuranceFormURL = &insuranceURL
	return true, nil
}

// DeleteIfPending removes the record only while it is still pending, so a
// rejection cannot race a concurrent approval into deleting a confirmed
// volunteer. Returns false when the guard fails.
func (s *MemoryStore) DeleteIfPending(ctx context.Context, recordID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if rec.Status != models.StatusPending {
		return false, nil
	}
	delete(s.records, recordID)
	return true, nil
}

// CountConfirmedByArea aggregates confirmed volunteers per area for the
// statistics view. A volunteer active in several areas counts once per area.
func (s *MemoryStore) CountConfirmedByArea(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range s.records {
		if rec.Status != models.StatusConfirmed {
			continue
		}
		for _, area := range rec.VolunteerAreas {
			counts[area]++
		}
	}
	return counts, nil
}

func clone(rec *models.VolunteerRecord) *models.VolunteerRecord {
	cp := *rec
	cp.VolunteerAreas = append([]string(nil), rec.VolunteerAreas...)
	cp.PoliceFormURL = copyString(rec.PoliceFormURL)
	cp.InsuranceFormURL = copyString(rec.InsuranceFormURL)
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

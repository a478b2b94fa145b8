package volunteer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kehila/internal/volunteer/models"
	"kehila/pkg/platform/sentinel"
)

// Schema is the DDL for the volunteer store. Applied by deploy tooling and by
// the integration test harness.
const Schema = `
CREATE TABLE IF NOT EXISTS volunteers (
	record_id          UUID PRIMARY KEY,
	national_id        TEXT NOT NULL UNIQUE,
	first_name         TEXT NOT NULL,
	last_name          TEXT NOT NULL,
	phone              TEXT NOT NULL,
	email              TEXT NOT NULL,
	gender             TEXT NOT NULL,
	areas              TEXT[] NOT NULL DEFAULT '{}',
	status             TEXT NOT NULL DEFAULT 'pending',
	police_form_url    TEXT,
	insurance_form_url TEXT,
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS volunteers_status_idx ON volunteers (status);
`

// PostgresStore persists volunteer records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed volunteer store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.VolunteerRecord) error {
	query := `
		INSERT INTO volunteers (record_id, national_id, first_name, last_name, phone, email, gender, areas, status, police_form_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (national_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.RecordID, rec.NationalID, rec.FirstName, rec.LastName, rec.Phone,
		rec.Email, string(rec.Gender), pq.Array(rec.VolunteerAreas),
		string(rec.Status), rec.PoliceFormURL, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.VolunteerRecord) error {
	query := `
		UPDATE volunteers
		SET first_name = $2, last_name = $3, phone = $4, email = $5,
		    gender = $6, areas = $7, police_form_url = $8
		WHERE record_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.RecordID, rec.FirstName, rec.LastName, rec.Phone, rec.Email,
		string(rec.Gender), pq.Array(rec.VolunteerAreas), rec.PoliceFormURL,
	)
	if err != nil {
		return fmt.Errorf("update volunteer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update volunteer: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByNationalID(ctx context.Context, nationalID string) (*models.VolunteerRecord, error) {
	query := selectColumns + ` WHERE national_id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, nationalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find volunteer by national id: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.VolunteerRecord, error) {
	query := selectColumns + ` WHERE status = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	defer rows.Close()

	var out []*models.VolunteerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list volunteers: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	return out, nil
}

// ConfirmIfPending performs the single conditional commit of the approval
// pipeline. The status guard lives in the WHERE clause so concurrent
// approvals are resolved by the database, not by a read-modify-write.
func (s *PostgresStore) ConfirmIfPending(ctx context.Context, recordID uuid.UUID, insuranceURL string) (bool, error) {
	query := `
		UPDATE volunteers
		SET status = 'confirmed', insurance_form_url = $2
		WHERE record_id = $1 AND status = 'pending'
	`
	res, err := s.db.ExecContext(ctx, query, recordID, insuranceURL)
	if err != nil {
		return false, fmt.Errorf("confirm volunteer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm volunteer: %w", err)
	}
	return n == 1, nil
}

// DeleteIfPending removes a record only while it is still pending, in one
// conditional statement to avoid a lookup/delete race with approval.
func (s *PostgresStore) DeleteIfPending(ctx context.Context, recordID uuid.UUID) (bool, error) {
	query := `DELETE FROM volunteers WHERE record_id = $1 AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, query, recordID)
	if err != nil {
		return false, fmt.Errorf("delete volunteer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete volunteer: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) CountConfirmedByArea(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT area, COUNT(*)
		FROM volunteers, unnest(areas) AS area
		WHERE status = 'confirmed'
		GROUP BY area
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count confirmed by area: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var area string
		var n int
		if err := rows.Scan(&area, &n); err != nil {
			return nil, fmt.Errorf("count confirmed by area: %w", err)
		}
		counts[area] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count confirmed by area: %w", err)
	}
	return counts, nil
}

const selectColumns = `
	SELECT record_id, national_id, first_name, last_name, phone, email,
	       gender, areas, status, police_form_url, insurance_form_url, created_at
	FROM volunteers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.VolunteerRecord, error) {
	var rec models.VolunteerRecord
	var gender, status string
	if err := row.Scan(
		&rec.RecordID, &rec.NationalID, &rec.FirstName, &rec.LastName,
		&rec.Phone, &rec.Email, &gender, pq.Array(&rec.VolunteerAreas),
		&status, &rec.PoliceFormURL, &rec.InsuranceFormURL, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Gender = models.Gender(gender)
	rec.Status = models.Status(status)
	return &rec, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kehila/internal/area/models"
	"kehila/pkg/platform/sentinel"
)

// Schema is the DDL for the area taxonomy.
const Schema = `
CREATE TABLE IF NOT EXISTS volunteer_areas (
	id            TEXT PRIMARY KEY,
	with_kids     BOOLEAN NOT NULL DEFAULT FALSE,
	whatsapp_link TEXT NOT NULL
);
`

// PostgresStore persists the area taxonomy in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed area store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, area *models.Area) error {
	query := `
		INSERT INTO volunteer_areas (id, with_kids, whatsapp_link)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			with_kids = EXCLUDED.with_kids,
			whatsapp_link = EXCLUDED.whatsapp_link
	`
	if _, err := s.db.ExecContext(ctx, query, area.ID, area.WithKids, area.WhatsAppLink); err != nil {
		return fmt.Errorf("upsert area: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Area, error) {
	var area models.Area
	err := s.db.QueryRowContext(ctx,
		`SELECT id, with_kids, whatsapp_link FROM volunteer_areas WHERE id = $1`, id,
	).Scan(&area.ID, &area.WithKids, &area.WhatsAppLink)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get area: %w", err)
	}
	return &area, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Area, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, with_kids, whatsapp_link FROM volunteer_areas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var out []*models.Area
	for rows.Next() {
		var area models.Area
		if err := rows.Scan(&area.ID, &area.WithKids, &area.WhatsAppLink); err != nil {
			return nil, fmt.Errorf("list areas: %w", err)
		}
		out = append(out, &area)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM volunteer_areas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

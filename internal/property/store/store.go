package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/property"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectPropertyColumns = `
	id, host_id, name, location, image_url, nightly_rate, cleaning_fee,
	max_guests, status, booking_count, total_revenue, rating, created_at, updated_at
`

func scanProperty(s scanner) (*property.Property, error) {
	var p property.Property

	var statusStr string

	var rating sql.NullFloat64

	if err := s.Scan(
		&p.ID, &p.HostID, &p.Name, &p.Location, &p.ImageURL, &p.NightlyRate, &p.CleaningFee,
		&p.MaxGuests, &statusStr, &p.Stats.BookingCount, &p.Stats.TotalRevenue, &rating,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = property.Status(statusStr)

	if rating.Valid {
		p.Stats.Rating = &rating.Float64
	}

	return &p, nil
}

func (s *Store) CreateProperty(ctx context.Context, p *property.Property) error {
	query := `
		INSERT INTO properties (host_id, name, location, image_url, nightly_rate, cleaning_fee, max_guests, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		p.HostID,
		p.Name,
		p.Location,
		p.ImageURL,
		p.NightlyRate,
		p.CleaningFee,
		p.MaxGuests,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating property: %w", err)
	}

	return nil
}

func (s *Store) GetProperty(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	query := `SELECT ` + selectPropertyColumns + ` FROM properties WHERE id = $1`

	p, err := scanProperty(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, property.ErrNotFound
		}

		return nil, fmt.Errorf("getting property: %w", err)
	}

	return p, nil
}

func (s *Store) ListProperties(ctx context.Context, filter property.ListFilter) ([]*property.Property, error) {
	query := `SELECT ` + selectPropertyColumns + ` FROM properties WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.HostID != nil {
		query += fmt.Sprintf(" AND host_id = $%d", argIdx)

		args = append(args, *filter.HostID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	var props []*property.Property

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}

		props = append(props, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating property rows: %w", err)
	}

	return props, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p *property.Property) error {
	query := `
		UPDATE properties
		SET name = $1, location = $2, image_url = $3, nightly_rate = $4,
			cleaning_fee = $5, max_guests = $6, status = $7, updated_at = NOW()
		WHERE id = $8
	`

	_, err := s.db.ExecContext(ctx, query,
		p.Name,
		p.Location,
		p.ImageURL,
		p.NightlyRate,
		p.CleaningFee,
		p.MaxGuests,
		p.Status,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectEntryColumns = `
	id, booking_id, property_id, host_id, type,
	gross_amount, platform_fee, processing_fee, net_amount,
	status, payment_date, processed_date, created_at
`

func scanEntry(s scanner) (*ledger.Entry, error) {
	var e ledger.Entry

	var typeStr, statusStr string

	if err := s.Scan(
		&e.ID, &e.BookingID, &e.PropertyID, &e.HostID, &typeStr,
		&e.GrossAmount, &e.PlatformFee, &e.ProcessingFee, &e.NetAmount,
		&statusStr, &e.PaymentDate, &e.ProcessedDate, &e.CreatedAt,
	); err != nil {
		return nil, err
	}

	e.Type = ledger.Type(typeStr)
	e.Status = ledger.Status(statusStr)

	return &e, nil
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + ` FROM financial_transactions WHERE id = $1`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + ` FROM financial_transactions WHERE host_id = $1`

	args := []any{filter.HostID}

	argIdx := 2

	if filter.BookingID != nil {
		query += fmt.Sprintf(" AND booking_id = $%d", argIdx)

		args = append(args, *filter.BookingID)
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
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return entries, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
	"github.com/mahmoudomarus/krib-server/internal/payout"
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

const selectPayoutColumns = `
	id, host_id, bank_account_id, amount, status, failure_reason, created_at, completed_at
`

func scanPayout(s scanner) (*payout.Payout, error) {
	var p payout.Payout

	var statusStr string

	if err := s.Scan(
		&p.ID, &p.HostID, &p.BankAccountID, &p.Amount, &statusStr,
		&p.FailureReason, &p.CreatedAt, &p.CompletedAt,
	); err != nil {
		return nil, err
	}

	p.Status = payout.Status(statusStr)

	return &p, nil
}

func (s *Store) GetPayout(ctx context.Context, id uuid.UUID) (*payout.Payout, error) {
	query := `SELECT ` + selectPayoutColumns + ` FROM payouts WHERE id = $1`

	p, err := scanPayout(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payout.ErrNotFound
		}

		return nil, fmt.Errorf("getting payout: %w", err)
	}

	return p, nil
}

func (s *Store) ListPayouts(ctx context.Context, hostID uuid.UUID) ([]*payout.Payout, error) {
	query := `SELECT ` + selectPayoutColumns + `
		FROM payouts
		WHERE host_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("listing payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*payout.Payout

	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payout: %w", err)
		}

		payouts = append(payouts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payout rows: %w", err)
	}

	return payouts, nil
}

func (s *Store) GetSettings(ctx context.Context, hostID uuid.UUID) (*payout.Settings, error) {
	query := `
		SELECT host_id, bank_account_id, hold_period_days, minimum_payout_amount, payout_frequency, created_at, updated_at
		FROM payout_settings
		WHERE host_id = $1
	`

	var settings payout.Settings

	var freqStr string

	err := s.db.QueryRowContext(ctx, query, hostID).Scan(
		&settings.HostID, &settings.BankAccountID, &settings.HoldPeriodDays,
		&settings.MinimumAmount, &freqStr, &settings.CreatedAt, &settings.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payout.ErrNoSettings
		}

		return nil, fmt.Errorf("getting payout settings: %w", err)
	}

	settings.Frequency = payout.Frequency(freqStr)

	return &settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings *payout.Settings) error {
	query := `
		INSERT INTO payout_settings (host_id, bank_account_id, hold_period_days, minimum_payout_amount, payout_frequency, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (host_id) DO UPDATE SET
			bank_account_id = EXCLUDED.bank_account_id,
			hold_period_days = EXCLUDED.hold_period_days,
			minimum_payout_amount = EXCLUDED.minimum_payout_amount,
			payout_frequency = EXCLUDED.payout_frequency,
			updated_at = NOW()
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		settings.HostID,
		settings.BankAccountID,
		settings.HoldPeriodDays,
		settings.MinimumAmount,
		settings.Frequency,
	).Scan(&settings.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving payout settings: %w", err)
	}

	return nil
}

// unclaimedPredicate matches completed transactions not claimed by any live
// payout. Rows released by a failed or canceled payout match again.
const unclaimedPredicate = `
	ft.status = 'completed'
	AND NOT EXISTS (
		SELECT 1 FROM payout_transactions pt
		WHERE pt.transaction_id = ft.id AND NOT pt.released
	)
`

func (s *Store) HostsWithEligibleEarnings(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT ft.host_id FROM financial_transactions ft WHERE ` + unclaimedPredicate

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing hosts with earnings: %w", err)
	}
	defer rows.Close()

	var hosts []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning host id: %w", err)
		}

		hosts = append(hosts, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating host rows: %w", err)
	}

	return hosts, nil
}

func (s *Store) PendingEarnings(ctx context.Context, hostID uuid.UUID, cutoff time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(ft.net_amount), 0)
		FROM financial_transactions ft
		WHERE ft.host_id = $1 AND ft.processed_date <= $2 AND ` + unclaimedPredicate

	var total int64
	if err := s.db.QueryRowContext(ctx, query, hostID, cutoff).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing pending earnings: %w", err)
	}

	return total, nil
}

func settlementLockKey(hostID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(hostID[:])

	return int64(h.Sum64())
}

type settlementTx struct {
	tx     *sql.Tx
	hostID uuid.UUID
}

// BeginSettlement opens the claiming transaction for one host. An advisory
// lock keyed on the host id serializes concurrent runs for the same host;
// runs for different hosts proceed in parallel.
func (s *Store) BeginSettlement(ctx context.Context, hostID uuid.UUID) (payout.SettlementTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning settlement tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", settlementLockKey(hostID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring settlement lock: %w", err)
	}

	return &settlementTx{tx: dbTx, hostID: hostID}, nil
}

func (stx *settlementTx) Commit() error   { return stx.tx.Commit() }
func (stx *settlementTx) Rollback() error { return stx.tx.Rollback() }

func (stx *settlementTx) EligibleEntries(ctx context.Context, cutoff time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT ft.id, ft.booking_id, ft.property_id, ft.host_id, ft.type,
			ft.gross_amount, ft.platform_fee, ft.processing_fee, ft.net_amount,
			ft.status, ft.payment_date, ft.processed_date, ft.created_at
		FROM financial_transactions ft
		WHERE ft.host_id = $1 AND ft.processed_date <= $2 AND ` + unclaimedPredicate + `
		ORDER BY ft.processed_date ASC
		FOR UPDATE OF ft
	`

	rows, err := stx.tx.QueryContext(ctx, query, stx.hostID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("selecting eligible transactions: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry

	for rows.Next() {
		var e ledger.Entry

		var typeStr, statusStr string

		if err := rows.Scan(
			&e.ID, &e.BookingID, &e.PropertyID, &e.HostID, &typeStr,
			&e.GrossAmount, &e.PlatformFee, &e.ProcessingFee, &e.NetAmount,
			&statusStr, &e.PaymentDate, &e.ProcessedDate, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		e.Type = ledger.Type(typeStr)
		e.Status = ledger.Status(statusStr)

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return entries, nil
}

func (stx *settlementTx) CreatePayout(ctx context.Context, p *payout.Payout, entryIDs []uuid.UUID) error {
	query := `
		INSERT INTO payouts (host_id, bank_account_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := stx.tx.QueryRowContext(ctx, query,
		p.HostID,
		p.BankAccountID,
		p.Amount,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating payout: %w", err)
	}

	// The partial unique index on live memberships rejects a transaction
	// already claimed elsewhere, backstopping the advisory lock.
	joinQuery := `
		INSERT INTO payout_transactions (payout_id, transaction_id)
		VALUES ($1, $2)
	`

	for _, entryID := range entryIDs {
		if _, err := stx.tx.ExecContext(ctx, joinQuery, p.ID, entryID); err != nil {
			return fmt.Errorf("claiming transaction %s: %w", entryID, err)
		}
	}

	return nil
}

func (stx *settlementTx) AppendEvent(ctx context.Context, ev *event.Event) error {
	return appendEvent(ctx, stx.tx, ev)
}

const insertEventQuery = `
	INSERT INTO events (type, booking_id, payout_id, host_id, payload)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, seq, occurred_at
`

func appendEvent(ctx context.Context, tx *sql.Tx, ev *event.Event) error {
	err := tx.QueryRowContext(ctx, insertEventQuery,
		ev.Type,
		ev.BookingID,
		ev.PayoutID,
		ev.HostID,
		ev.Payload,
	).Scan(&ev.ID, &ev.Seq, &ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}

	return nil
}

// RecordTransfer applies the processor's status report under a row lock.
// A failed or canceled payout releases its claimed transactions so a later
// run can pick them up again.
func (s *Store) RecordTransfer(ctx context.Context, id uuid.UUID, status payout.Status, failureReason string, ev *event.Event) (*payout.Payout, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transfer tx: %w", err)
	}
	defer dbTx.Rollback()

	query := `SELECT ` + selectPayoutColumns + ` FROM payouts WHERE id = $1 FOR UPDATE`

	p, err := scanPayout(dbTx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payout.ErrNotFound
		}

		return nil, fmt.Errorf("locking payout: %w", err)
	}

	if p.Status == status {
		// Idempotent re-report.
		return p, nil
	}

	if !payout.CanTransition(p.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", payout.ErrInvalidTransition, p.Status, status)
	}

	update := `
		UPDATE payouts
		SET status = $1,
			failure_reason = NULLIF($2, ''),
			completed_at = CASE WHEN $1::text IN ('paid', 'failed', 'canceled', 'reversed') THEN NOW() ELSE completed_at END
		WHERE id = $3
		RETURNING completed_at
	`
	if err := dbTx.QueryRowContext(ctx, update, status, failureReason, id).Scan(&p.CompletedAt); err != nil {
		return nil, fmt.Errorf("updating payout: %w", err)
	}

	if payout.Releasing(status) {
		release := `UPDATE payout_transactions SET released = true WHERE payout_id = $1`
		if _, err := dbTx.ExecContext(ctx, release, id); err != nil {
			return nil, fmt.Errorf("releasing claimed transactions: %w", err)
		}
	}

	if err := appendEvent(ctx, dbTx, ev); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer tx: %w", err)
	}

	p.Status = status

	if failureReason != "" {
		p.FailureReason = &failureReason
	}

	return p, nil
}

package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=payout
type Repository interface {
	GetPayout(ctx context.Context, id uuid.UUID) (*Payout, error)
	ListPayouts(ctx context.Context, hostID uuid.UUID) ([]*Payout, error)

	GetSettings(ctx context.Context, hostID uuid.UUID) (*Settings, error)
	UpsertSettings(ctx context.Context, s *Settings) error

	// HostsWithEligibleEarnings returns hosts that have at least one
	// completed, unclaimed transaction. The hold period is applied per host
	// during the run itself.
	HostsWithEligibleEarnings(ctx context.Context) ([]uuid.UUID, error)
	PendingEarnings(ctx context.Context, hostID uuid.UUID, cutoff time.Time) (int64, error)

	BeginSettlement(ctx context.Context, hostID uuid.UUID) (SettlementTx, error)
	RecordTransfer(ctx context.Context, id uuid.UUID, status Status, failureReason string, ev *event.Event) (*Payout, error)
}

// SettlementTx is one atomic settlement run for a host. The store serializes
// runs per host, so two concurrent runs cannot claim the same transaction.
type SettlementTx interface {
	EligibleEntries(ctx context.Context, cutoff time.Time) ([]*ledger.Entry, error)
	CreatePayout(ctx context.Context, p *Payout, entryIDs []uuid.UUID) error
	AppendEvent(ctx context.Context, ev *event.Event) error
	Commit() error
	Rollback() error
}

// Defaults apply to hosts that have not saved payout settings.
type Defaults struct {
	HoldPeriodDays int
	MinimumAmount  int64
	Frequency      Frequency
}

type Service struct {
	repo     Repository
	defaults Defaults
}

func NewService(repo Repository, defaults Defaults) *Service {
	return &Service{repo: repo, defaults: defaults}
}

// RunResult describes one settlement run. A nil Payout with no error means
// the host's eligible earnings were below the minimum; that is a no-op, not
// a failure.
type RunResult struct {
	Payout   *Payout
	Earnings int64
}

// Run settles one host: it claims every completed transaction past the hold
// period that is not already part of a live payout, and turns them into a
// single pending payout when the total clears the host's minimum.
func (s *Service) Run(ctx context.Context, hostID uuid.UUID) (*RunResult, error) {
	settings, err := s.settingsFor(ctx, hostID)
	if err != nil {
		return nil, err
	}

	stx, err := s.repo.BeginSettlement(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer stx.Rollback()

	cutoff := time.Now().UTC().AddDate(0, 0, -settings.HoldPeriodDays)

	entries, err := stx.EligibleEntries(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("selecting eligible transactions: %w", err)
	}

	var total int64

	entryIDs := make([]uuid.UUID, len(entries))

	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}

		entryIDs[i] = e.ID
		total += e.NetAmount
	}

	if total < settings.MinimumAmount || len(entries) == 0 {
		return &RunResult{Earnings: total}, nil
	}

	p := &Payout{
		HostID:        hostID,
		BankAccountID: settings.BankAccountID,
		Amount:        total,
		Status:        StatusPending,
	}
	if err := stx.CreatePayout(ctx, p, entryIDs); err != nil {
		return nil, err
	}

	ev, err := newEvent(event.TypePayoutCreated, p, len(entryIDs))
	if err != nil {
		return nil, err
	}

	if err := stx.AppendEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("appending event: %w", err)
	}

	if err := stx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	return &RunResult{Payout: p, Earnings: total}, nil
}

// RunDue settles every host whose payout frequency makes them due today.
// Individual host failures are logged and do not stop the sweep.
func (s *Service) RunDue(ctx context.Context) {
	hosts, err := s.repo.HostsWithEligibleEarnings(ctx)
	if err != nil {
		slog.Error("listing hosts for settlement", "error", err)
		return
	}

	now := time.Now().UTC()

	for _, hostID := range hosts {
		settings, err := s.settingsFor(ctx, hostID)
		if err != nil {
			slog.Error("loading payout settings", "host_id", hostID, "error", err)
			continue
		}

		if !settings.Due(now) {
			continue
		}

		result, err := s.Run(ctx, hostID)
		if err != nil {
			slog.Error("settlement run failed", "host_id", hostID, "error", err)
			continue
		}

		if result.Payout != nil {
			slog.Info("payout created", "host_id", hostID, "payout_id", result.Payout.ID, "amount", result.Payout.Amount)
		}
	}
}

// RecordTransfer applies the payment processor's report for a payout. Only
// status, completion time and failure reason change; terminal payouts cannot
// be re-transitioned. Moving to failed or canceled releases the claimed
// transactions for a later run.
func (s *Service) RecordTransfer(ctx context.Context, id uuid.UUID, status Status, failureReason string) (*Payout, error) {
	switch status {
	case StatusProcessing, StatusInTransit, StatusPaid, StatusFailed, StatusCanceled, StatusReversed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	p, err := s.repo.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}

	// The event carries the status being applied, not the one being left.
	payload, err := json.Marshal(map[string]any{
		"payout_id": p.ID,
		"amount":    p.Amount,
		"status":    string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding event payload: %w", err)
	}

	ev := &event.Event{
		Type:     event.TypePayoutUpdated,
		PayoutID: &p.ID,
		HostID:   p.HostID,
		Payload:  payload,
	}

	return s.repo.RecordTransfer(ctx, id, status, failureReason, ev)
}

// PendingEarnings is the dashboard figure: the sum a settlement run would
// consider right now for the host.
func (s *Service) PendingEarnings(ctx context.Context, actor policy.Actor, hostID uuid.UUID) (int64, error) {
	if !policy.CanReadHostRecord(actor, hostID) {
		return 0, nil
	}

	settings, err := s.settingsFor(ctx, hostID)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -settings.HoldPeriodDays)

	return s.repo.PendingEarnings(ctx, hostID, cutoff)
}

func (s *Service) List(ctx context.Context, actor policy.Actor, hostID uuid.UUID) ([]*Payout, error) {
	if !policy.CanReadHostRecord(actor, hostID) {
		return nil, nil
	}

	return s.repo.ListPayouts(ctx, hostID)
}

func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Payout, error) {
	p, err := s.repo.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadHostRecord(actor, p.HostID) {
		return nil, ErrNotFound
	}

	return p, nil
}

// Settings returns the host's saved settings, or the platform defaults when
// none exist.
func (s *Service) Settings(ctx context.Context, actor policy.Actor, hostID uuid.UUID) (*Settings, error) {
	if !policy.CanReadHostRecord(actor, hostID) {
		return nil, ErrNoSettings
	}

	return s.settingsFor(ctx, hostID)
}

var ErrInvalidInput = errors.New("invalid payout settings")

type SettingsParams struct {
	BankAccountID  *uuid.UUID
	HoldPeriodDays int
	MinimumAmount  int64
	Frequency      Frequency
}

func (s *Service) UpdateSettings(ctx context.Context, actor policy.Actor, hostID uuid.UUID, params SettingsParams) (*Settings, error) {
	if !policy.CanReadHostRecord(actor, hostID) {
		return nil, ErrNoSettings
	}

	if params.HoldPeriodDays < 0 {
		return nil, fmt.Errorf("%w: hold period must not be negative", ErrInvalidInput)
	}

	if params.MinimumAmount < 0 {
		return nil, fmt.Errorf("%w: minimum payout must not be negative", ErrInvalidInput)
	}

	switch params.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, params.Frequency)
	}

	settings := &Settings{
		HostID:         hostID,
		BankAccountID:  params.BankAccountID,
		HoldPeriodDays: params.HoldPeriodDays,
		MinimumAmount:  params.MinimumAmount,
		Frequency:      params.Frequency,
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *Service) settingsFor(ctx context.Context, hostID uuid.UUID) (*Settings, error) {
	settings, err := s.repo.GetSettings(ctx, hostID)
	if err != nil {
		if errors.Is(err, ErrNoSettings) {
			return &Settings{
				HostID:         hostID,
				HoldPeriodDays: s.defaults.HoldPeriodDays,
				MinimumAmount:  s.defaults.MinimumAmount,
				Frequency:      s.defaults.Frequency,
			}, nil
		}

		return nil, err
	}

	return settings, nil
}

func newEvent(t event.Type, p *Payout, transactionCount int) (*event.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"payout_id":         p.ID,
		"amount":            p.Amount,
		"status":            string(p.Status),
		"transaction_count": transactionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding event payload: %w", err)
	}

	return &event.Event{
		Type:     t,
		PayoutID: &p.ID,
		HostID:   p.HostID,
		Payload:  payload,
	}, nil
}

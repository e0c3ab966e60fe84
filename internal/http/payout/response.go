package payout

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/payout"
)

type payoutResponse struct {
	ID            uuid.UUID     `json:"id"`
	HostID        uuid.UUID     `json:"host_id"`
	BankAccountID *uuid.UUID    `json:"bank_account_id,omitempty"`
	Amount        int64         `json:"amount"`
	Status        payout.Status `json:"status"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

func toResponse(p *payout.Payout) payoutResponse {
	return payoutResponse{
		ID:            p.ID,
		HostID:        p.HostID,
		BankAccountID: p.BankAccountID,
		Amount:        p.Amount,
		Status:        p.Status,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
		CompletedAt:   p.CompletedAt,
	}
}

func toResponseList(payouts []*payout.Payout) []payoutResponse {
	resp := make([]payoutResponse, len(payouts))
	for i, p := range payouts {
		resp[i] = toResponse(p)
	}

	return resp
}

type earningsResponse struct {
	PendingEarnings int64 `json:"pending_earnings"`
}

type runResponse struct {
	Earnings int64           `json:"earnings"`
	Payout   *payoutResponse `json:"payout,omitempty"`
}

func toRunResponse(result *payout.RunResult) runResponse {
	resp := runResponse{Earnings: result.Earnings}

	if result.Payout != nil {
		p := toResponse(result.Payout)
		resp.Payout = &p
	}

	return resp
}

type settingsResponse struct {
	HostID         uuid.UUID        `json:"host_id"`
	BankAccountID  *uuid.UUID       `json:"bank_account_id,omitempty"`
	HoldPeriodDays int              `json:"hold_period_days"`
	MinimumAmount  int64            `json:"minimum_payout_amount"`
	Frequency      payout.Frequency `json:"payout_frequency"`
}

func toSettingsResponse(s *payout.Settings) settingsResponse {
	return settingsResponse{
		HostID:         s.HostID,
		BankAccountID:  s.BankAccountID,
		HoldPeriodDays: s.HoldPeriodDays,
		MinimumAmount:  s.MinimumAmount,
		Frequency:      s.Frequency,
	}
}

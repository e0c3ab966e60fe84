package payout

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/payout"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

type Handler struct {
	svc *payout.Service

	// callbackSecret authenticates the payment processor's transfer
	// callbacks. Empty means no processor is configured and the callback
	// endpoint rejects everything.
	callbackSecret string
}

func NewHandler(svc *payout.Service, callbackSecret string) *Handler {
	return &Handler{svc: svc, callbackSecret: callbackSecret}
}

func (h *Handler) callbackAuthorized(r *http.Request) bool {
	if h.callbackSecret == "" {
		return false
	}

	presented := r.Header.Get("X-Callback-Secret")

	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.callbackSecret)) == 1
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/earnings", h.earnings)
	r.Post("/run", h.run)
	r.Get("/settings", h.settings)
	r.Put("/settings", h.updateSettings)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/transfer", h.recordTransfer)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := policy.FromContext(r.Context())

	payouts, err := h.svc.List(r.Context(), actor, actor.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(payouts)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) earnings(w http.ResponseWriter, r *http.Request) {
	actor := policy.FromContext(r.Context())

	total, err := h.svc.PendingEarnings(r.Context(), actor, actor.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(earningsResponse{PendingEarnings: total}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// run triggers an on-demand settlement for the calling host. Below-minimum
// earnings are a no-op, reported as such rather than an error.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	actor := policy.FromContext(r.Context())
	if actor.Anonymous() {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	result, err := h.svc.Run(r.Context(), actor.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if result.Payout != nil {
		w.WriteHeader(http.StatusCreated)
	}

	if err := json.NewEncoder(w).Encode(toRunResponse(result)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Get(r.Context(), policy.FromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type recordTransferRequest struct {
	Status        payout.Status `json:"status"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// recordTransfer is the payment processor's status callback. It is
// authenticated by the shared callback secret, not a host token.
func (h *Handler) recordTransfer(w http.ResponseWriter, r *http.Request) {
	if !h.callbackAuthorized(r) {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req recordTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.RecordTransfer(r.Context(), id, req.Status, req.FailureReason)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	actor := policy.FromContext(r.Context())

	settings, err := h.svc.Settings(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toSettingsResponse(settings)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateSettingsRequest struct {
	BankAccountID  *uuid.UUID       `json:"bank_account_id,omitempty"`
	HoldPeriodDays int              `json:"hold_period_days"`
	MinimumAmount  int64            `json:"minimum_payout_amount"`
	Frequency      payout.Frequency `json:"payout_frequency"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	actor := policy.FromContext(r.Context())

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := h.svc.UpdateSettings(r.Context(), actor, actor.ID, payout.SettingsParams{
		BankAccountID:  req.BankAccountID,
		HoldPeriodDays: req.HoldPeriodDays,
		MinimumAmount:  req.MinimumAmount,
		Frequency:      req.Frequency,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toSettingsResponse(settings)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payout.ErrNotFound), errors.Is(err, payout.ErrNoSettings):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, payout.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, payout.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

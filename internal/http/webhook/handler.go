package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

type Handler struct {
	svc *event.Service

	// callbackSecret authenticates the external dispatcher's delivery
	// reports. Empty means no dispatcher is configured and the report
	// endpoint rejects everything.
	callbackSecret string
}

func NewHandler(svc *event.Service, callbackSecret string) *Handler {
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
	r.Post("/", h.subscribe)
	r.Get("/", h.list)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.unsubscribe)
	r.Post("/{id}/delivery", h.recordDelivery)
}

// EventRoutes exposes the append-only event feed consumed by the dashboard
// and the external dispatcher.
func (h *Handler) EventRoutes(r chi.Router) {
	r.Get("/", h.listEvents)
}

type subscribeRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret,omitempty"`
	Events []string `json:"events,omitempty"`
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), policy.FromContext(r.Context()), event.SubscriptionParams{
		URL:    req.URL,
		Secret: req.Secret,
		Events: req.Events,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(sub)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.Subscriptions(r.Context(), policy.FromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(subs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateSubscriptionRequest struct {
	URL    *string   `json:"url,omitempty"`
	Secret *string   `json:"secret,omitempty"`
	Events *[]string `json:"events,omitempty"`
	Active *bool     `json:"active,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.svc.UpdateSubscription(r.Context(), policy.FromContext(r.Context()), id, event.SubscriptionUpdate{
		URL:    req.URL,
		Secret: req.Secret,
		Events: req.Events,
		Active: req.Active,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(sub)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Unsubscribe(r.Context(), policy.FromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type recordDeliveryRequest struct {
	OK bool `json:"ok"`
}

// recordDelivery is reported by the external dispatcher after each attempt.
// It is authenticated by the shared callback secret, not a host token.
func (h *Handler) recordDelivery(w http.ResponseWriter, r *http.Request) {
	if !h.callbackAuthorized(r) {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req recordDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.svc.RecordDelivery(r.Context(), id, req.OK)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(sub)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	actor := policy.FromContext(r.Context())

	filter := event.ListFilter{HostID: actor.ID}

	if s := r.URL.Query().Get("after"); s != "" {
		if seq, err := strconv.ParseInt(s, 10, 64); err == nil {
			filter.AfterSeq = seq
		}
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err := strconv.Atoi(s); err == nil {
			filter.Limit = limit
		}
	}

	events, err := h.svc.List(r.Context(), actor, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toEventResponseList(events)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, event.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, event.ErrDisabled):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

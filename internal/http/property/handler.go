package property

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/policy"
	"github.com/mahmoudomarus/krib-server/internal/property"
)

type Handler struct {
	svc *property.Service
}

func NewHandler(svc *property.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
}

type createPropertyRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	ImageURL    string `json:"image_url"`
	NightlyRate int64  `json:"nightly_rate"`
	CleaningFee int64  `json:"cleaning_fee"`
	MaxGuests   int    `json:"max_guests"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), policy.FromContext(r.Context()), property.CreateParams{
		Name:        req.Name,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		NightlyRate: req.NightlyRate,
		CleaningFee: req.CleaningFee,
		MaxGuests:   req.MaxGuests,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := property.ListFilter{}

	if s := r.URL.Query().Get("host_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.HostID = &id
		}
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := property.Status(s)
		filter.Status = &status
	}

	props, err := h.svc.List(r.Context(), policy.FromContext(r.Context()), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(props)); err != nil {
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

type updatePropertyRequest struct {
	Name        *string          `json:"name,omitempty"`
	Location    *string          `json:"location,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	NightlyRate *int64           `json:"nightly_rate,omitempty"`
	CleaningFee *int64           `json:"cleaning_fee,omitempty"`
	MaxGuests   *int             `json:"max_guests,omitempty"`
	Status      *property.Status `json:"status,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Update(r.Context(), policy.FromContext(r.Context()), id, property.UpdateParams{
		Name:        req.Name,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		NightlyRate: req.NightlyRate,
		CleaningFee: req.CleaningFee,
		MaxGuests:   req.MaxGuests,
		Status:      req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, property.ErrNotFound):
		http.Error(w, "property not found", http.StatusNotFound)
	case errors.Is(err, property.ErrForbidden):
		http.Error(w, "not allowed", http.StatusForbidden)
	case errors.Is(err, property.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

package outage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/pkg/httputil"
)

// Handler handles HTTP requests for the outage lifecycle.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new outage handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all outage lifecycle routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/outage", h.CreateOutage)
	r.Route("/outages/{ticket_id}", func(r chi.Router) {
		r.Get("/", h.GetOutage)
		r.Put("/", h.UpdateOutage)
		r.Get("/history", h.GetHistory)
		r.Get("/summary", h.GetSummary)
	})
}

// CreateOutageRequest represents the request body for creating an outage.
type CreateOutageRequest struct {
	TicketID        string     `json:"ticket_id" validate:"required"`
	AlarmName       string     `json:"alarm_name" validate:"required"`
	SiteID          string     `json:"site_id" validate:"required"`
	Severity        *string    `json:"severity" validate:"omitempty,oneof=critical major minor low"`
	Vendor          *string    `json:"vendor"`
	Supervisor      *string    `json:"supervisor"`
	RCA             *string    `json:"rca"`
	LocationName    *string    `json:"location_name"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	OutageStartTime time.Time  `json:"outage_start_time" validate:"required"`
	OutageEndTime   *time.Time `json:"outage_end_time"`
	OutageStatus    string     `json:"outage_status" validate:"required,oneof=resolved unresolved"`
}

// ToInput converts the request to a service input.
func (r *CreateOutageRequest) ToInput() CreateInput {
	var severity *domain.Severity
	if r.Severity != nil {
		s := domain.Severity(*r.Severity)
		severity = &s
	}

	return CreateInput{
		TicketID:        r.TicketID,
		AlarmName:       r.AlarmName,
		SiteID:          r.SiteID,
		Severity:        severity,
		Vendor:          r.Vendor,
		Supervisor:      r.Supervisor,
		RCA:             r.RCA,
		LocationName:    r.LocationName,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		OutageStartTime: r.OutageStartTime,
		OutageEndTime:   r.OutageEndTime,
		OutageStatus:    domain.OutageStatus(r.OutageStatus),
	}
}

// UpdateOutageRequest represents the partial-update request body. Absent
// fields leave the corresponding record field unchanged.
type UpdateOutageRequest struct {
	AlarmName       *string    `json:"alarm_name"`
	SiteID          *string    `json:"site_id"`
	Severity        *string    `json:"severity" validate:"omitempty,oneof=critical major minor low"`
	Vendor          *string    `json:"vendor"`
	Supervisor      *string    `json:"supervisor"`
	RCA             *string    `json:"rca"`
	LocationName    *string    `json:"location_name"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	OutageStartTime *time.Time `json:"outage_start_time"`
	OutageEndTime   *time.Time `json:"outage_end_time"`
	OutageStatus    *string    `json:"outage_status" validate:"omitempty,oneof=resolved unresolved"`
}

// ToPatch converts the request to a domain patch.
func (r *UpdateOutageRequest) ToPatch() domain.OutagePatch {
	patch := domain.OutagePatch{
		AlarmName:       r.AlarmName,
		SiteID:          r.SiteID,
		Vendor:          r.Vendor,
		Supervisor:      r.Supervisor,
		RCA:             r.RCA,
		LocationName:    r.LocationName,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		OutageStartTime: r.OutageStartTime,
		OutageEndTime:   r.OutageEndTime,
	}
	if r.Severity != nil {
		s := domain.Severity(*r.Severity)
		patch.Severity = &s
	}
	if r.OutageStatus != nil {
		st := domain.OutageStatus(*r.OutageStatus)
		patch.OutageStatus = &st
	}
	return patch
}

// CreateOutage handles POST /outage.
func (h *Handler) CreateOutage(w http.ResponseWriter, r *http.Request) {
	var req CreateOutageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if _, err := h.service.Create(r.Context(), req.ToInput()); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// GetOutage handles GET /outages/{ticket_id}. An optional version query
// parameter selects an exact version; the default is the latest.
func (h *Handler) GetOutage(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	var (
		record *domain.OutageVersion
		err    error
	)

	if raw := r.URL.Query().Get("version"); raw != "" {
		version, convErr := strconv.Atoi(raw)
		if convErr != nil || version < 1 {
			httputil.Error(w, http.StatusBadRequest, "version must be a positive integer")
			return
		}
		record, err = h.service.GetVersion(r.Context(), ticketID, version)
	} else {
		record, err = h.service.GetLatest(r.Context(), ticketID)
	}

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

// UpdateOutage handles PUT /outages/{ticket_id}.
func (h *Handler) UpdateOutage(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	var req UpdateOutageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	record, err := h.service.Update(r.Context(), ticketID, req.ToPatch())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

// GetHistory handles GET /outages/{ticket_id}/history. The full version
// chain is returned newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	history, err := h.service.GetHistory(r.Context(), ticketID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, history)
}

// GetSummary handles GET /outages/{ticket_id}/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	record, err := h.service.GetLatest(r.Context(), ticketID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Text(w, http.StatusOK, RenderSummary(record))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var fieldErr *domain.FieldError

	switch {
	case errors.As(err, &fieldErr):
		httputil.ValidationError(w, fieldErr)
	case errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrVersionNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTicketExists), errors.Is(err, ErrVersionConflict):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

package rca

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/pkg/httputil"
)

// Handler handles HTTP requests for RCA reports.
type Handler struct {
	repo      Repository
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler creates a new RCA handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{
		repo:      repo,
		validator: validator.New(),
		now:       time.Now,
	}
}

// RegisterRoutes registers RCA routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rca/{ticket_id}", func(r chi.Router) {
		r.Post("/", h.CreateRCA)
		r.Get("/", h.GetRCA)
		r.Put("/", h.UpdateRCA)
	})
}

// RCARequest represents the request body for creating or replacing an RCA.
type RCARequest struct {
	Author            string                 `json:"author" validate:"required"`
	Summary           string                 `json:"summary" validate:"required"`
	Timeline          []domain.TimelineEvent `json:"timeline"`
	RootCause         string                 `json:"root_cause" validate:"required"`
	Resolution        string                 `json:"resolution" validate:"required"`
	CorrectiveActions []string               `json:"corrective_actions"`
}

// ToDomain converts the request to a domain model.
func (r *RCARequest) ToDomain(ticketID string) *domain.RCAReport {
	return &domain.RCAReport{
		TicketID:          ticketID,
		Author:            r.Author,
		Summary:           r.Summary,
		Timeline:          r.Timeline,
		RootCause:         r.RootCause,
		Resolution:        r.Resolution,
		CorrectiveActions: r.CorrectiveActions,
	}
}

// CreateRCA handles POST /rca/{ticket_id}.
func (h *Handler) CreateRCA(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	var req RCARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	report := req.ToDomain(ticketID)
	now := h.now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	if err := h.repo.Create(r.Context(), report); err != nil {
		h.handleRepoError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, report)
}

// GetRCA handles GET /rca/{ticket_id}.
func (h *Handler) GetRCA(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	report, err := h.repo.GetByTicket(r.Context(), ticketID)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// UpdateRCA handles PUT /rca/{ticket_id}.
func (h *Handler) UpdateRCA(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	var req RCARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	report := req.ToDomain(ticketID)
	report.UpdatedAt = h.now().UTC()

	if err := h.repo.Update(r.Context(), report); err != nil {
		h.handleRepoError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRCANotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRCAExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

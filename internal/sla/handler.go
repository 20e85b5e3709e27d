package sla

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nociq/nociq/internal/outage"
	"github.com/nociq/nociq/internal/pkg/httputil"
)

// Handler handles HTTP requests for SLA reports and penalty payments.
type Handler struct {
	service *Service
}

// NewHandler creates a new SLA handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers SLA and payment routes. The per-ticket paths
// are registered flat because the ticket subtree is already mounted by
// the lifecycle handler.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sla/thresholds", h.GetThresholds)
	r.Get("/outages/{ticket_id}/sla", h.GetSLA)
	r.Get("/outages/{ticket_id}/payment", h.GetPayment)
	r.Post("/outages/{ticket_id}/payment/generate", h.GeneratePayment)
}

// GetSLA handles GET /outages/{ticket_id}/sla.
func (h *Handler) GetSLA(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	report, err := h.service.Evaluate(r.Context(), ticketID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// GetPayment handles GET /outages/{ticket_id}/payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	payment, err := h.service.GetPayment(r.Context(), ticketID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, payment)
}

// GeneratePayment handles POST /outages/{ticket_id}/payment/generate.
func (h *Handler) GeneratePayment(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")

	payment, err := h.service.GeneratePayment(r.Context(), ticketID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, payment)
}

// GetThresholds handles GET /sla/thresholds.
func (h *Handler) GetThresholds(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.Thresholds())
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, outage.ErrTicketNotFound), errors.Is(err, ErrPaymentNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrOutageStillOpen), errors.Is(err, ErrSLANotBreached):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPaymentExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

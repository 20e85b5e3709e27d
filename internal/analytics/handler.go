package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nociq/nociq/internal/pkg/ctxlog"
	"github.com/nociq/nociq/internal/pkg/httputil"
)

// Handler handles HTTP requests for analytics.
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers analytics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics/kpis", h.GetKPIs)
}

// GetKPIs handles GET /analytics/kpis.
func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.KPIs(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("kpi computation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

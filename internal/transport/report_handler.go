package transport

import (
	"errors"
	"net/http"

	"retail-pos/internal/middleware"
	"retail-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler serves the sales report and the dashboard snapshot.
type ReportHandler struct {
	reportService    service.ReportService
	dashboardService service.DashboardService
	logger           *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(
	reportService service.ReportService,
	dashboardService service.DashboardService,
	logger *zap.Logger,
) *ReportHandler {
	return &ReportHandler{
		reportService:    reportService,
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// RegisterRoutes registers report and dashboard routes, admin-only.
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Get("/api/sales/reports", h.SalesReport)
		r.Get("/api/dashboard", h.Dashboard)
	})
}

// SalesReport returns bucketed sales and top products for the requested
// time range; an absent timeRange means daily.
func (h *ReportHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	timeRange, err := service.ParseTimeRange(r.URL.Query().Get("timeRange"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeRange) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	report, err := h.reportService.SalesReport(r.Context(), timeRange)
	if err != nil {
		h.logger.Error("Failed to build sales report", zap.Error(err), zap.String("time_range", string(timeRange)))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// Dashboard returns today's metrics against yesterday plus recent sales.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboardService.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("Failed to build dashboard", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, dashboard)
}

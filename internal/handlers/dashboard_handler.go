package handlers

import (
	"net/http"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/service"
)

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Get returns the dashboard matching the caller's role
// @Summary Role-based dashboard
// @Description Employees get personal stats and recommendations, managers get their department overview, elevated roles get the company view
// @Tags Dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object "Dashboard payload, shape depends on role"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /dashboard [get]
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	dashboard, err := h.dashboardService.ForActor(actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, dashboard)
}

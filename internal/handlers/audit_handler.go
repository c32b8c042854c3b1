package handlers

import (
	"net/http"
	"strconv"
	"time"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
)

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List returns audit log entries, newest first
// @Summary List audit log
// @Description Admin-only listing of recorded actions
// @Tags Audit
// @Security BearerAuth
// @Produce json
// @Param user_id query int false "Filter by acting user"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "Maximum number of rows, default 100"
// @Param offset query int false "Pagination offset"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var filters repository.AuditFilters
	query := r.URL.Query()

	if s := query.Get("user_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			http.Error(w, "Invalid user_id", http.StatusBadRequest)
			return
		}
		uid := uint(id)
		filters.UserID = &uid
	}
	filters.Action = query.Get("action")
	filters.Resource = query.Get("resource")
	if s := query.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "Invalid since timestamp", http.StatusBadRequest)
			return
		}
		filters.Since = &t
	}
	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filters.Limit = n
	}
	if s := query.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		filters.Offset = n
	}

	entries, err := h.auditService.List(actorID, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, entries)
}

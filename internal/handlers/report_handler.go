package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
)

// ReportHandler handles statistics and reporting HTTP requests
type ReportHandler struct {
	statsService      *service.StatsService
	assessmentService *service.AssessmentService
	userService       *service.UserService
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	statsService *service.StatsService,
	assessmentService *service.AssessmentService,
	userService *service.UserService,
) *ReportHandler {
	return &ReportHandler{
		statsService:      statsService,
		assessmentService: assessmentService,
		userService:       userService,
	}
}

// UserStats returns one user's assessment statistics
// @Summary User statistics
// @Description Status counts, approved average and required-skill completion for one user
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserStats
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /reports/users/{id} [get]
func (h *ReportHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	stats, err := h.statsService.UserStats(actorID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, stats)
}

// MyStats returns the current user's statistics
// @Summary My statistics
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserStats
// @Router /reports/me [get]
func (h *ReportHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	stats, err := h.statsService.UserStats(actorID, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, stats)
}

// DepartmentStats returns a department's aggregate statistics
// @Summary Department statistics
// @Description Aggregates over a department's active employees, including skill coverage and compliance
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {object} models.DepartmentStats
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /reports/departments/{id} [get]
func (h *ReportHandler) DepartmentStats(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	stats, err := h.statsService.DepartmentStats(actorID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, stats)
}

// SkillGaps returns a department's skill gap analysis
// @Summary Skill gap analysis
// @Description Required skills whose non-compliance exceeds the reporting threshold, worst first
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {array} models.SkillGap
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /reports/departments/{id}/gaps [get]
func (h *ReportHandler) SkillGaps(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	gaps, err := h.statsService.SkillGapAnalysis(actorID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, gaps)
}

// Compare produces a side-by-side comparison of users or departments
// @Summary Compare entities
// @Description Compare at least two users or two departments by effective skill scores
// @Tags Reports
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CompareInput true "Entities and optional skill filter"
// @Success 200 {array} models.ComparisonEntry
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /reports/compare [post]
func (h *ReportHandler) Compare(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var input service.CompareInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	entries, err := h.statsService.Compare(actorID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, entries)
}

// Trend returns daily activity counts
// @Summary Activity trend
// @Description Daily new-user and new-assessment counts with no gaps in the series
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param days query int false "Window in days, default 30"
// @Success 200 {array} models.TrendPoint
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /reports/trend [get]
func (h *ReportHandler) Trend(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	days := 30
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "Invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}

	points, err := h.statsService.Trend(actorID, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, points)
}

// ExportAssessments streams assessments the caller may see as CSV
// @Summary Export assessments
// @Description Download assessments visible to the caller as a CSV file
// @Tags Reports
// @Security BearerAuth
// @Produce text/csv
// @Param status query string false "Filter by status" Enums(pending, approved, rejected)
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /reports/export [get]
func (h *ReportHandler) ExportAssessments(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var filters repository.AssessmentFilters
	if s := r.URL.Query().Get("status"); s != "" {
		status := models.AssessmentStatus(s)
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			filters.Status = &status
		default:
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
	}

	assessments, err := h.assessmentService.List(actorID, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="assessments-%s.csv"`, time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"user", "login", "skill", "category", "self_score", "manager_score", "effective_score", "status", "assessed_at"})
	for _, a := range assessments {
		managerScore := ""
		if a.ManagerScore != nil {
			managerScore = strconv.Itoa(*a.ManagerScore)
		}
		cw.Write([]string{
			a.UserName,
			a.UserLogin,
			a.SkillName,
			a.CategoryName,
			strconv.Itoa(a.SelfScore),
			managerScore,
			strconv.Itoa(a.EffectiveScore()),
			string(a.Status),
			a.AssessedAt.Format(time.RFC3339),
		})
	}
}

// ExportUsers streams users the caller may see as CSV
// @Summary Export users
// @Description Download users visible to the caller as a CSV file
// @Tags Reports
// @Security BearerAuth
// @Produce text/csv
// @Param department_id query int false "Filter by department"
// @Param active query bool false "Only active users"
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /reports/export/users [get]
func (h *ReportHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var filters repository.UserFilters
	query := r.URL.Query()
	if s := query.Get("department_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			http.Error(w, "Invalid department_id", http.StatusBadRequest)
			return
		}
		did := uint(id)
		filters.DepartmentID = &did
	}
	if query.Get("active") == "true" {
		filters.ActiveOnly = true
	}

	users, err := h.userService.List(actorID, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="users-%s.csv"`, time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "login", "email", "full_name", "position", "role", "department_id", "active", "created_at"})
	for _, u := range users {
		cw.Write([]string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Login,
			u.Email,
			u.FullName,
			u.Position,
			string(u.Role),
			strconv.FormatUint(uint64(u.DepartmentID), 10),
			strconv.FormatBool(u.IsActive),
			u.CreatedAt.Format(time.RFC3339),
		})
	}
}

// ExportDepartments streams per-department statistics as CSV
// @Summary Export department statistics
// @Description Download aggregated statistics for every department as a CSV file
// @Tags Reports
// @Security BearerAuth
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /reports/export/departments [get]
func (h *ReportHandler) ExportDepartments(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	stats, err := h.statsService.AllDepartmentStats(actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="departments-%s.csv"`, time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"department", "employees", "assessments", "pending", "approved", "rejected", "average_score", "completion_rate", "skill_coverage"})
	for _, ds := range stats {
		cw.Write([]string{
			ds.DepartmentName,
			strconv.Itoa(ds.EmployeeCount),
			strconv.Itoa(ds.TotalAssessments),
			strconv.Itoa(ds.PendingCount),
			strconv.Itoa(ds.ApprovedCount),
			strconv.Itoa(ds.RejectedCount),
			strconv.FormatFloat(ds.AverageScore, 'f', 2, 64),
			strconv.FormatFloat(ds.CompletionRate, 'f', 1, 64),
			strconv.FormatFloat(ds.SkillCoverage, 'f', 1, 64),
		})
	}
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
)

// AssessmentHandler handles assessment lifecycle HTTP requests
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessmentService *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

func pathID(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Submit creates or overwrites the current user's self-assessment for a skill
// @Summary Submit self-assessment
// @Description Create or overwrite the caller's assessment for one skill; any resubmission resets the status to pending
// @Tags Assessments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.SelfAssessmentInput true "Self-assessment"
// @Success 200 {object} models.Assessment
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 404 {object} map[string]string "Skill not found"
// @Failure 409 {object} map[string]string "Concurrent modification"
// @Router /assessments [post]
func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var input models.SelfAssessmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	assessment, err := h.assessmentService.SubmitSelfAssessment(userID, input)
	if err != nil {
		slog.Error("Failed to submit self-assessment", "error", err, "user_id", userID, "skill_id", input.SkillID)
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, assessment)
}

// Review approves or rejects a pending assessment
// @Summary Review assessment
// @Description Approve or reject a pending assessment; rejecting requires a reason
// @Tags Assessments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Assessment ID"
// @Param request body models.ReviewInput true "Decision"
// @Success 200 {object} models.Assessment
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Illegal transition"
// @Router /assessments/{id}/review [post]
func (h *AssessmentHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	var input models.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	assessment, err := h.assessmentService.Review(userID, id, input)
	if err != nil {
		slog.Error("Failed to review assessment", "error", err, "assessment_id", id, "reviewer_id", userID)
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, assessment)
}

// Adjust changes the manager score of an approved assessment
// @Summary Adjust approved score
// @Description Replace the manager score of an already approved assessment
// @Tags Assessments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Assessment ID"
// @Param request body models.AdjustInput true "New manager score"
// @Success 200 {object} models.Assessment
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 409 {object} map[string]string "Illegal transition"
// @Router /assessments/{id}/adjust [post]
func (h *AssessmentHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	var input models.AdjustInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	assessment, err := h.assessmentService.Adjust(userID, id, input)
	if err != nil {
		slog.Error("Failed to adjust assessment", "error", err, "assessment_id", id, "reviewer_id", userID)
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, assessment)
}

// Get retrieves one assessment
// @Summary Get assessment
// @Description Retrieve one assessment, gated by the view rules
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} models.Assessment
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	assessment, err := h.assessmentService.GetByID(userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, assessment)
}

// History retrieves an assessment's audit trail
// @Summary Assessment history
// @Description Retrieve an assessment's append-only history, newest first, optionally windowed by since/until (RFC 3339)
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Param since query string false "Window start (RFC 3339)"
// @Param until query string false "Window end (RFC 3339)"
// @Success 200 {array} models.AssessmentHistory
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /assessments/{id}/history [get]
func (h *AssessmentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	var since, until *time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "Invalid since timestamp", http.StatusBadRequest)
			return
		}
		since = &t
	}
	if s := r.URL.Query().Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "Invalid until timestamp", http.StatusBadRequest)
			return
		}
		until = &t
	}

	history, err := h.assessmentService.HistoryFor(userID, id, since, until)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, history)
}

// List retrieves assessments scoped to the caller's role
// @Summary List assessments
// @Description List assessments the caller may see, filterable by user, skill and status
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param user_id query int false "Filter by owner"
// @Param skill_id query int false "Filter by skill"
// @Param status query string false "Filter by status" Enums(pending, approved, rejected)
// @Success 200 {array} models.AssessmentWithDetails
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /assessments [get]
func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var filters repository.AssessmentFilters
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
	if s := query.Get("skill_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			http.Error(w, "Invalid skill_id", http.StatusBadRequest)
			return
		}
		sid := uint(id)
		filters.SkillID = &sid
	}
	if s := query.Get("status"); s != "" {
		status := models.AssessmentStatus(s)
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			filters.Status = &status
		default:
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
	}

	assessments, err := h.assessmentService.List(userID, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, assessments)
}

// My retrieves the current user's own assessments
// @Summary My assessments
// @Description List the caller's own assessments
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.AssessmentWithDetails
// @Router /assessments/my [get]
func (h *AssessmentHandler) My(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	assessments, err := h.assessmentService.List(userID, repository.AssessmentFilters{UserID: &userID})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, assessments)
}

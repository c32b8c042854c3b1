package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
)

// UserHandler handles user administration HTTP requests
type UserHandler struct {
	userService  *service.UserService
	auditService *service.AuditService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, auditService *service.AuditService) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// Create registers a new user
// @Summary Create user
// @Description Register a new user account (admin or HR only)
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreateUserInput true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var input service.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	user, err := h.userService.Create(actorID, input)
	if err != nil {
		slog.Error("Failed to create user", "error", err, "actor_id", actorID)
		writeServiceError(w, err)
		return
	}

	h.auditService.Log(actorID, "user.create", "users", user.Login)

	w.WriteHeader(http.StatusCreated)
	JSONResponse(w, user)
}

// Get retrieves one user
// @Summary Get user
// @Description Retrieve one user's profile, gated by the view rules
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.userService.Get(actorID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, user)
}

// List retrieves users scoped to the caller's role
// @Summary List users
// @Description List users visible to the caller, filterable by department, role and search term
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param department_id query int false "Filter by department"
// @Param role query string false "Filter by role"
// @Param active query bool false "Active accounts only"
// @Param search query string false "Match against name, login or email"
// @Success 200 {array} models.User
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if s := query.Get("role"); s != "" {
		filters.Roles = []string{s}
	}
	if query.Get("active") == "true" {
		filters.ActiveOnly = true
	}
	filters.Search = query.Get("search")

	users, err := h.userService.List(actorID, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, users)
}

// Update changes a user's profile or assignment
// @Summary Update user
// @Description Update a user's profile, role, department or manager (admin or HR only)
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body service.UpdateUserInput true "Changes"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var input service.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	user, err := h.userService.Update(actorID, id, input)
	if err != nil {
		slog.Error("Failed to update user", "error", err, "user_id", id, "actor_id", actorID)
		writeServiceError(w, err)
		return
	}

	h.auditService.Log(actorID, "user.update", "users", user.Login)

	JSONResponse(w, user)
}

// Deactivate soft-deletes a user
// @Summary Deactivate user
// @Description Deactivate a user account, keeping its assessments and history (admin or HR only)
// @Tags Users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204 "Deactivated"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id} [delete]
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
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

	if err := h.userService.Deactivate(actorID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.auditService.Log(actorID, "user.deactivate", "users", strconv.FormatUint(uint64(id), 10))

	w.WriteHeader(http.StatusNoContent)
}

// Reactivate restores a deactivated user
// @Summary Reactivate user
// @Description Restore a deactivated user account (admin or HR only)
// @Tags Users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204 "Reactivated"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id}/reactivate [post]
func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
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

	if err := h.userService.Reactivate(actorID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.auditService.Log(actorID, "user.reactivate", "users", strconv.FormatUint(uint64(id), 10))

	w.WriteHeader(http.StatusNoContent)
}

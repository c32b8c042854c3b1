package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/models"
	"skillmatrix/internal/service"
)

// CatalogHandler handles department, skill and category HTTP requests
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListDepartments returns all departments
// @Summary List departments
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Department
// @Router /departments [get]
func (h *CatalogHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.catalogService.ListDepartments()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, departments)
}

// GetDepartment returns one department
// @Summary Get department
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {object} models.Department
// @Failure 404 {object} map[string]string "Not found"
// @Router /departments/{id} [get]
func (h *CatalogHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	dept, err := h.catalogService.GetDepartment(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, dept)
}

// CreateDepartment creates a department
// @Summary Create department
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.Department true "Department"
// @Success 201 {object} models.Department
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /departments [post]
func (h *CatalogHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var dept models.Department
	if err := json.NewDecoder(r.Body).Decode(&dept); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.catalogService.CreateDepartment(actorID, &dept); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	JSONResponse(w, dept)
}

// UpdateDepartment updates a department
// @Summary Update department
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Department ID"
// @Param request body models.Department true "Department"
// @Success 200 {object} models.Department
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /departments/{id} [put]
func (h *CatalogHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
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

	var dept models.Department
	if err := json.NewDecoder(r.Body).Decode(&dept); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}
	dept.ID = id

	if err := h.catalogService.UpdateDepartment(actorID, &dept); err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, dept)
}

// DeleteDepartment removes a department
// @Summary Delete department
// @Tags Catalog
// @Security BearerAuth
// @Param id path int true "Department ID"
// @Success 204 "Deleted"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /departments/{id} [delete]
func (h *CatalogHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
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

	if err := h.catalogService.DeleteDepartment(actorID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRequiredSkills returns a department's skill requirements
// @Summary Department required skills
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {array} models.RequiredSkill
// @Failure 404 {object} map[string]string "Not found"
// @Router /departments/{id}/required-skills [get]
func (h *CatalogHandler) GetRequiredSkills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	skills, err := h.catalogService.GetRequiredSkills(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, skills)
}

// SetRequiredSkill declares or updates a requirement
// @Summary Set required skill
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Param id path int true "Department ID"
// @Param request body models.RequiredSkill true "Requirement"
// @Success 204 "Saved"
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /departments/{id}/required-skills [put]
func (h *CatalogHandler) SetRequiredSkill(w http.ResponseWriter, r *http.Request) {
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

	var req models.RequiredSkill
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}
	req.DepartmentID = id

	if err := h.catalogService.SetRequiredSkill(actorID, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveRequiredSkill drops a requirement
// @Summary Remove required skill
// @Tags Catalog
// @Security BearerAuth
// @Param id path int true "Department ID"
// @Param skillId path int true "Skill ID"
// @Success 204 "Removed"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /departments/{id}/required-skills/{skillId} [delete]
func (h *CatalogHandler) RemoveRequiredSkill(w http.ResponseWriter, r *http.Request) {
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
	skillID, ok := pathID(r, "skillId")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	if err := h.catalogService.RemoveRequiredSkill(actorID, id, skillID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns all skill categories
// @Summary List skill categories
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.SkillCategory
// @Router /skill-categories [get]
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, categories)
}

// CreateCategory creates a skill category
// @Summary Create skill category
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.SkillCategory true "Category"
// @Success 201 {object} models.SkillCategory
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /skill-categories [post]
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var cat models.SkillCategory
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.catalogService.CreateCategory(actorID, &cat); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	JSONResponse(w, cat)
}

// UpdateCategory updates a skill category
// @Summary Update skill category
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body models.SkillCategory true "Category"
// @Success 200 {object} models.SkillCategory
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /skill-categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
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

	var cat models.SkillCategory
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}
	cat.ID = id

	if err := h.catalogService.UpdateCategory(actorID, &cat); err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, cat)
}

// ListSkills returns skills
// @Summary List skills
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param category_id query int false "Filter by category"
// @Param active query bool false "Active skills only"
// @Success 200 {array} models.Skill
// @Router /skills [get]
func (h *CatalogHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	var categoryID *uint
	if s := r.URL.Query().Get("category_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			http.Error(w, "Invalid category_id", http.StatusBadRequest)
			return
		}
		cid := uint(id)
		categoryID = &cid
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	skills, err := h.catalogService.ListSkills(categoryID, activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, skills)
}

// GetSkill returns one skill
// @Summary Get skill
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param id path int true "Skill ID"
// @Success 200 {object} models.Skill
// @Failure 404 {object} map[string]string "Not found"
// @Router /skills/{id} [get]
func (h *CatalogHandler) GetSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, ErrMsgInvalidID, http.StatusBadRequest)
		return
	}

	skill, err := h.catalogService.GetSkill(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, skill)
}

// CreateSkill creates a skill
// @Summary Create skill
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.Skill true "Skill"
// @Success 201 {object} models.Skill
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /skills [post]
func (h *CatalogHandler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var skill models.Skill
	if err := json.NewDecoder(r.Body).Decode(&skill); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if skill.DifficultyLevel == 0 {
		skill.DifficultyLevel = 3
	}
	skill.IsActive = true

	if err := h.catalogService.CreateSkill(actorID, &skill); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	JSONResponse(w, skill)
}

// UpdateSkill updates a skill
// @Summary Update skill
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Skill ID"
// @Param request body models.Skill true "Skill"
// @Success 200 {object} models.Skill
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /skills/{id} [put]
func (h *CatalogHandler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
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

	var skill models.Skill
	if err := json.NewDecoder(r.Body).Decode(&skill); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}
	skill.ID = id

	if err := h.catalogService.UpdateSkill(actorID, &skill); err != nil {
		writeServiceError(w, err)
		return
	}
	JSONResponse(w, skill)
}

// DeactivateSkill hides a skill from new assessments
// @Summary Deactivate skill
// @Tags Catalog
// @Security BearerAuth
// @Param id path int true "Skill ID"
// @Success 204 "Deactivated"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /skills/{id} [delete]
func (h *CatalogHandler) DeactivateSkill(w http.ResponseWriter, r *http.Request) {
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

	if err := h.catalogService.DeactivateSkill(actorID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

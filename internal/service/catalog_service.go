package service

import (
	"errors"
	"fmt"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// CatalogService manages the skill dictionary and department structure.
// Reads are open to any authenticated user; writes need admin or HR.
type CatalogService struct {
	deptRepo  *repository.DepartmentRepository
	skillRepo *repository.SkillRepository
	userRepo  *repository.UserRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	deptRepo *repository.DepartmentRepository,
	skillRepo *repository.SkillRepository,
	userRepo *repository.UserRepository,
) *CatalogService {
	return &CatalogService{deptRepo: deptRepo, skillRepo: skillRepo, userRepo: userRepo}
}

func (s *CatalogService) requireAdmin(actorID uint) error {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleHR {
		return ErrPermissionDenied
	}
	return nil
}

// ListDepartments returns all departments
func (s *CatalogService) ListDepartments() ([]models.Department, error) {
	return s.deptRepo.List()
}

// GetDepartment returns one department
func (s *CatalogService) GetDepartment(id uint) (*models.Department, error) {
	dept, err := s.deptRepo.GetByID(id)
	if errors.Is(err, repository.ErrDepartmentNotFound) {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, id)
	}
	return dept, err
}

// CreateDepartment creates a department. Admin only.
func (s *CatalogService) CreateDepartment(actorID uint, dept *models.Department) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if dept.Name == "" {
		return validationErr("name", "is required")
	}
	if dept.Code == "" {
		return validationErr("code", "is required")
	}

	if err := s.deptRepo.Create(dept); err != nil {
		if errors.Is(err, repository.ErrDepartmentExists) {
			return validationErr("name", "name or code already taken")
		}
		return err
	}
	return nil
}

// UpdateDepartment updates a department. Admin only.
func (s *CatalogService) UpdateDepartment(actorID uint, dept *models.Department) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if dept.Name == "" {
		return validationErr("name", "is required")
	}
	if dept.Code == "" {
		return validationErr("code", "is required")
	}

	if err := s.deptRepo.Update(dept); err != nil {
		if errors.Is(err, repository.ErrDepartmentExists) {
			return validationErr("name", "name or code already taken")
		}
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			return fmt.Errorf("%w: department %d", ErrNotFound, dept.ID)
		}
		return err
	}
	return nil
}

// DeleteDepartment removes an empty department. Admin only.
func (s *CatalogService) DeleteDepartment(actorID, id uint) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}

	if err := s.deptRepo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			return fmt.Errorf("%w: department %d", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// GetRequiredSkills returns a department's skill requirements
func (s *CatalogService) GetRequiredSkills(departmentID uint) ([]models.RequiredSkill, error) {
	if _, err := s.GetDepartment(departmentID); err != nil {
		return nil, err
	}
	return s.deptRepo.GetRequiredSkills(departmentID)
}

// SetRequiredSkill declares or updates a requirement. Admin only.
func (s *CatalogService) SetRequiredSkill(actorID uint, req *models.RequiredSkill) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if req.MinScore < 1 || req.MinScore > 5 {
		return validationErr("min_score", "must be between 1 and 5")
	}
	if req.Priority < 1 || req.Priority > 5 {
		return validationErr("priority", "must be between 1 and 5")
	}
	if _, err := s.GetDepartment(req.DepartmentID); err != nil {
		return err
	}
	if _, err := s.GetSkill(req.SkillID); err != nil {
		return err
	}

	req.IsRequired = true
	return s.deptRepo.SetRequiredSkill(req)
}

// RemoveRequiredSkill drops a requirement. Admin only.
func (s *CatalogService) RemoveRequiredSkill(actorID, departmentID, skillID uint) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}

	if err := s.deptRepo.RemoveRequiredSkill(departmentID, skillID); err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			return fmt.Errorf("%w: requirement (%d, %d)", ErrNotFound, departmentID, skillID)
		}
		return err
	}
	return nil
}

// ListCategories returns all skill categories
func (s *CatalogService) ListCategories() ([]models.SkillCategory, error) {
	return s.skillRepo.ListCategories()
}

// CreateCategory creates a skill category. Admin only.
func (s *CatalogService) CreateCategory(actorID uint, cat *models.SkillCategory) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if cat.Name == "" {
		return validationErr("name", "is required")
	}

	if err := s.skillRepo.CreateCategory(cat); err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return validationErr("name", "already taken")
		}
		return err
	}
	return nil
}

// UpdateCategory updates a skill category. Admin only.
func (s *CatalogService) UpdateCategory(actorID uint, cat *models.SkillCategory) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if cat.Name == "" {
		return validationErr("name", "is required")
	}

	if err := s.skillRepo.UpdateCategory(cat); err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return validationErr("name", "already taken")
		}
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fmt.Errorf("%w: category %d", ErrNotFound, cat.ID)
		}
		return err
	}
	return nil
}

// ListSkills returns skills, optionally filtered by category or active flag
func (s *CatalogService) ListSkills(categoryID *uint, activeOnly bool) ([]models.Skill, error) {
	return s.skillRepo.List(categoryID, activeOnly)
}

// GetSkill returns one skill
func (s *CatalogService) GetSkill(id uint) (*models.Skill, error) {
	skill, err := s.skillRepo.GetByID(id)
	if errors.Is(err, repository.ErrSkillNotFound) {
		return nil, fmt.Errorf("%w: skill %d", ErrNotFound, id)
	}
	return skill, err
}

// CreateSkill creates a skill. Admin only.
func (s *CatalogService) CreateSkill(actorID uint, skill *models.Skill) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if skill.Name == "" {
		return validationErr("name", "is required")
	}
	if skill.DifficultyLevel < 1 || skill.DifficultyLevel > 5 {
		return validationErr("difficulty_level", "must be between 1 and 5")
	}
	if _, err := s.skillRepo.GetCategoryByID(skill.CategoryID); errors.Is(err, repository.ErrCategoryNotFound) {
		return fmt.Errorf("%w: category %d", ErrNotFound, skill.CategoryID)
	} else if err != nil {
		return err
	}

	if err := s.skillRepo.Create(skill); err != nil {
		if errors.Is(err, repository.ErrSkillExists) {
			return validationErr("name", "already taken")
		}
		return err
	}
	return nil
}

// UpdateSkill updates a skill. Admin only.
func (s *CatalogService) UpdateSkill(actorID uint, skill *models.Skill) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if skill.Name == "" {
		return validationErr("name", "is required")
	}
	if skill.DifficultyLevel < 1 || skill.DifficultyLevel > 5 {
		return validationErr("difficulty_level", "must be between 1 and 5")
	}

	if err := s.skillRepo.Update(skill); err != nil {
		if errors.Is(err, repository.ErrSkillExists) {
			return validationErr("name", "already taken")
		}
		if errors.Is(err, repository.ErrSkillNotFound) {
			return fmt.Errorf("%w: skill %d", ErrNotFound, skill.ID)
		}
		return err
	}
	return nil
}

// DeactivateSkill hides a skill from new assessments. Admin only.
func (s *CatalogService) DeactivateSkill(actorID, id uint) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}

	if err := s.skillRepo.Deactivate(id); err != nil {
		if errors.Is(err, repository.ErrSkillNotFound) {
			return fmt.Errorf("%w: skill %d", ErrNotFound, id)
		}
		return err
	}
	return nil
}

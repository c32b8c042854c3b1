package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"skillmatrix/internal/models"
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDepartmentExists   = errors.New("department already exists")
)

// DepartmentRepository handles department and required-skill operations
type DepartmentRepository struct {
	db *sql.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Create creates a new department
func (r *DepartmentRepository) Create(dept *models.Department) error {
	query := `
		INSERT INTO departments (name, code, description, manager_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(query, dept.Name, dept.Code, dept.Description, dept.ManagerID, now, now).Scan(&dept.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDepartmentExists
	}
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}

	dept.CreatedAt = now
	dept.UpdatedAt = now
	return nil
}

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(id uint) (*models.Department, error) {
	query := `
		SELECT id, name, code, description, manager_id, created_at, updated_at
		FROM departments
		WHERE id = $1
	`

	dept := &models.Department{}
	err := r.db.QueryRow(query, id).Scan(
		&dept.ID,
		&dept.Name,
		&dept.Code,
		&dept.Description,
		&dept.ManagerID,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	return dept, nil
}

// List retrieves all departments ordered by name
func (r *DepartmentRepository) List() ([]models.Department, error) {
	query := `
		SELECT id, name, code, description, manager_id, created_at, updated_at
		FROM departments
		ORDER BY name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		var dept models.Department
		if err := rows.Scan(
			&dept.ID,
			&dept.Name,
			&dept.Code,
			&dept.Description,
			&dept.ManagerID,
			&dept.CreatedAt,
			&dept.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, dept)
	}

	return departments, rows.Err()
}

// Update updates a department
func (r *DepartmentRepository) Update(dept *models.Department) error {
	query := `
		UPDATE departments
		SET name = $1, code = $2, description = $3, manager_id = $4, updated_at = $5
		WHERE id = $6
	`

	now := time.Now()
	result, err := r.db.Exec(query, dept.Name, dept.Code, dept.Description, dept.ManagerID, now, dept.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDepartmentExists
	}
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrDepartmentNotFound
	}

	dept.UpdatedAt = now
	return nil
}

// Delete removes a department. Fails while users still reference it.
func (r *DepartmentRepository) Delete(id uint) error {
	result, err := r.db.Exec(`DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrDepartmentNotFound
	}

	return nil
}

// SetRequiredSkill declares or updates a department's skill requirement.
// At most one row exists per (department, skill) pair.
func (r *DepartmentRepository) SetRequiredSkill(req *models.RequiredSkill) error {
	query := `
		INSERT INTO required_skills (department_id, skill_id, min_score, priority, is_required, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (department_id, skill_id)
		DO UPDATE SET min_score = EXCLUDED.min_score, priority = EXCLUDED.priority, is_required = EXCLUDED.is_required
	`

	_, err := r.db.Exec(query, req.DepartmentID, req.SkillID, req.MinScore, req.Priority, req.IsRequired, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set required skill: %w", err)
	}
	return nil
}

// RemoveRequiredSkill drops a department's skill requirement
func (r *DepartmentRepository) RemoveRequiredSkill(departmentID, skillID uint) error {
	result, err := r.db.Exec(
		`DELETE FROM required_skills WHERE department_id = $1 AND skill_id = $2`,
		departmentID, skillID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove required skill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrDepartmentNotFound
	}

	return nil
}

// GetRequiredSkills retrieves a department's requirements with skill names
func (r *DepartmentRepository) GetRequiredSkills(departmentID uint) ([]models.RequiredSkill, error) {
	query := `
		SELECT rs.department_id, rs.skill_id, rs.min_score, rs.priority, rs.is_required, rs.created_at, s.name
		FROM required_skills rs
		JOIN skills s ON s.id = rs.skill_id
		WHERE rs.department_id = $1 AND rs.is_required = TRUE
		ORDER BY rs.priority DESC, s.name
	`

	rows, err := r.db.Query(query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get required skills: %w", err)
	}
	defer rows.Close()

	var skills []models.RequiredSkill
	for rows.Next() {
		var req models.RequiredSkill
		if err := rows.Scan(
			&req.DepartmentID,
			&req.SkillID,
			&req.MinScore,
			&req.Priority,
			&req.IsRequired,
			&req.CreatedAt,
			&req.SkillName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan required skill: %w", err)
		}
		skills = append(skills, req)
	}

	return skills, rows.Err()
}

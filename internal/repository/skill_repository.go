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
	ErrSkillNotFound    = errors.New("skill not found")
	ErrSkillExists      = errors.New("skill already exists")
	ErrCategoryNotFound = errors.New("skill category not found")
	ErrCategoryExists   = errors.New("skill category already exists")
)

// SkillRepository handles skill and skill-category database operations
type SkillRepository struct {
	db *sql.DB
}

// NewSkillRepository creates a new skill repository
func NewSkillRepository(db *sql.DB) *SkillRepository {
	return &SkillRepository{db: db}
}

// CreateCategory creates a new skill category
func (r *SkillRepository) CreateCategory(cat *models.SkillCategory) error {
	query := `
		INSERT INTO skill_categories (name, description, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(query, cat.Name, cat.Description, cat.SortOrder, now, now).Scan(&cat.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrCategoryExists
	}
	if err != nil {
		return fmt.Errorf("failed to create skill category: %w", err)
	}

	cat.CreatedAt = now
	cat.UpdatedAt = now
	return nil
}

// GetCategoryByID retrieves a skill category by ID
func (r *SkillRepository) GetCategoryByID(id uint) (*models.SkillCategory, error) {
	query := `
		SELECT id, name, description, sort_order, created_at, updated_at
		FROM skill_categories
		WHERE id = $1
	`

	cat := &models.SkillCategory{}
	err := r.db.QueryRow(query, id).Scan(
		&cat.ID,
		&cat.Name,
		&cat.Description,
		&cat.SortOrder,
		&cat.CreatedAt,
		&cat.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skill category: %w", err)
	}

	return cat, nil
}

// ListCategories retrieves all categories in sort order
func (r *SkillRepository) ListCategories() ([]models.SkillCategory, error) {
	query := `
		SELECT id, name, description, sort_order, created_at, updated_at
		FROM skill_categories
		ORDER BY sort_order, name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list skill categories: %w", err)
	}
	defer rows.Close()

	var categories []models.SkillCategory
	for rows.Next() {
		var cat models.SkillCategory
		if err := rows.Scan(
			&cat.ID,
			&cat.Name,
			&cat.Description,
			&cat.SortOrder,
			&cat.CreatedAt,
			&cat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan skill category: %w", err)
		}
		categories = append(categories, cat)
	}

	return categories, rows.Err()
}

// UpdateCategory updates a skill category
func (r *SkillRepository) UpdateCategory(cat *models.SkillCategory) error {
	query := `
		UPDATE skill_categories
		SET name = $1, description = $2, sort_order = $3, updated_at = $4
		WHERE id = $5
	`

	now := time.Now()
	result, err := r.db.Exec(query, cat.Name, cat.Description, cat.SortOrder, now, cat.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrCategoryExists
	}
	if err != nil {
		return fmt.Errorf("failed to update skill category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}

	cat.UpdatedAt = now
	return nil
}

// Create creates a new skill
func (r *SkillRepository) Create(skill *models.Skill) error {
	query := `
		INSERT INTO skills (name, description, category_id, difficulty_level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		skill.Name,
		skill.Description,
		skill.CategoryID,
		skill.DifficultyLevel,
		skill.IsActive,
		now,
		now,
	).Scan(&skill.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrSkillExists
	}
	if err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}

	skill.CreatedAt = now
	skill.UpdatedAt = now
	return nil
}

// GetByID retrieves a skill with its category name
func (r *SkillRepository) GetByID(id uint) (*models.Skill, error) {
	query := `
		SELECT s.id, s.name, s.description, s.category_id, s.difficulty_level, s.is_active, s.created_at, s.updated_at, c.name
		FROM skills s
		JOIN skill_categories c ON c.id = s.category_id
		WHERE s.id = $1
	`

	skill := &models.Skill{}
	err := r.db.QueryRow(query, id).Scan(
		&skill.ID,
		&skill.Name,
		&skill.Description,
		&skill.CategoryID,
		&skill.DifficultyLevel,
		&skill.IsActive,
		&skill.CreatedAt,
		&skill.UpdatedAt,
		&skill.CategoryName,
	)

	if err == sql.ErrNoRows {
		return nil, ErrSkillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}

	return skill, nil
}

// List retrieves skills, optionally restricted to one category or active only
func (r *SkillRepository) List(categoryID *uint, activeOnly bool) ([]models.Skill, error) {
	query := `
		SELECT s.id, s.name, s.description, s.category_id, s.difficulty_level, s.is_active, s.created_at, s.updated_at, c.name
		FROM skills s
		JOIN skill_categories c ON c.id = s.category_id
		WHERE 1=1
	`
	var args []any
	argPos := 1

	if categoryID != nil {
		query += fmt.Sprintf(" AND s.category_id = $%d", argPos)
		args = append(args, *categoryID)
		argPos++
	}
	if activeOnly {
		query += " AND s.is_active = TRUE"
	}

	query += " ORDER BY c.sort_order, s.name"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var skills []models.Skill
	for rows.Next() {
		var skill models.Skill
		if err := rows.Scan(
			&skill.ID,
			&skill.Name,
			&skill.Description,
			&skill.CategoryID,
			&skill.DifficultyLevel,
			&skill.IsActive,
			&skill.CreatedAt,
			&skill.UpdatedAt,
			&skill.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, skill)
	}

	return skills, rows.Err()
}

// Update updates a skill
func (r *SkillRepository) Update(skill *models.Skill) error {
	query := `
		UPDATE skills
		SET name = $1, description = $2, category_id = $3, difficulty_level = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`

	now := time.Now()
	result, err := r.db.Exec(
		query,
		skill.Name,
		skill.Description,
		skill.CategoryID,
		skill.DifficultyLevel,
		skill.IsActive,
		now,
		skill.ID,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrSkillExists
	}
	if err != nil {
		return fmt.Errorf("failed to update skill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrSkillNotFound
	}

	skill.UpdatedAt = now
	return nil
}

// Deactivate hides a skill from new assessments without touching existing ones
func (r *SkillRepository) Deactivate(id uint) error {
	result, err := r.db.Exec(`UPDATE skills SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate skill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if affected == 0 {
		return ErrSkillNotFound
	}

	return nil
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skillmatrix/internal/models"
)

var ErrAssessmentNotFound = errors.New("assessment not found")

const assessmentColumns = `id, user_id, skill_id, self_score, manager_score, status, comment,
	       reject_reason, assessed_at, approved_by_id, approved_at, updated_at`

// AssessmentRepository handles assessment database operations. Mutations that
// must commit together with their history row take an explicit *sql.Tx.
type AssessmentRepository struct {
	db *sql.DB
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func scanAssessment(row interface{ Scan(...any) error }) (*models.Assessment, error) {
	a := &models.Assessment{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.SkillID,
		&a.SelfScore,
		&a.ManagerScore,
		&a.Status,
		&a.Comment,
		&a.RejectReason,
		&a.AssessedAt,
		&a.ApprovedByID,
		&a.ApprovedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an assessment by ID
func (r *AssessmentRepository) GetByID(id uint) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`

	a, err := scanAssessment(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// GetByUserAndSkill retrieves the single assessment for a (user, skill) pair,
// or nil when none exists yet
func (r *AssessmentRepository) GetByUserAndSkill(userID, skillID uint) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE user_id = $1 AND skill_id = $2`

	a, err := scanAssessment(r.db.QueryRow(query, userID, skillID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// GetByIDForUpdateTx retrieves an assessment inside tx with a row lock, so
// concurrent reviews of the same assessment serialize instead of clobbering
func (r *AssessmentRepository) GetByIDForUpdateTx(tx *sql.Tx, id uint) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1 FOR UPDATE`

	a, err := scanAssessment(tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// GetByUserAndSkillForUpdateTx locks the (user, skill) row inside tx, or
// returns nil when none exists
func (r *AssessmentRepository) GetByUserAndSkillForUpdateTx(tx *sql.Tx, userID, skillID uint) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE user_id = $1 AND skill_id = $2 FOR UPDATE`

	a, err := scanAssessment(tx.QueryRow(query, userID, skillID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// CreateTx inserts a new pending assessment inside tx
func (r *AssessmentRepository) CreateTx(tx *sql.Tx, a *models.Assessment) error {
	query := `
		INSERT INTO assessments (user_id, skill_id, self_score, status, comment, assessed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	now := time.Now()
	err := tx.QueryRow(query, a.UserID, a.SkillID, a.SelfScore, a.Status, a.Comment, now).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	a.AssessedAt = now
	a.UpdatedAt = now
	return nil
}

// UpdateSelfTx overwrites the self score and comment inside tx and forces the
// status back to pending. The manager score is left untouched.
func (r *AssessmentRepository) UpdateSelfTx(tx *sql.Tx, id uint, selfScore int, comment *string) error {
	query := `
		UPDATE assessments
		SET self_score = $1, comment = $2, status = $3, reject_reason = NULL, assessed_at = $4, updated_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(query, selfScore, comment, models.StatusPending, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrAssessmentNotFound
	}

	return nil
}

// ApproveTx marks the assessment approved with the reviewer's score inside tx
func (r *AssessmentRepository) ApproveTx(tx *sql.Tx, id uint, managerScore int, approvedByID uint) error {
	query := `
		UPDATE assessments
		SET status = $1, manager_score = $2, approved_by_id = $3, approved_at = $4, reject_reason = NULL, updated_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(query, models.StatusApproved, managerScore, approvedByID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to approve assessment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check approve result: %w", err)
	}
	if affected == 0 {
		return ErrAssessmentNotFound
	}

	return nil
}

// RejectTx marks the assessment rejected with the reviewer's reason inside tx.
// Scores are left in place.
func (r *AssessmentRepository) RejectTx(tx *sql.Tx, id uint, reason string) error {
	query := `
		UPDATE assessments
		SET status = $1, reject_reason = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := tx.Exec(query, models.StatusRejected, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to reject assessment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reject result: %w", err)
	}
	if affected == 0 {
		return ErrAssessmentNotFound
	}

	return nil
}

// AdjustTx replaces the manager score of an approved assessment inside tx
func (r *AssessmentRepository) AdjustTx(tx *sql.Tx, id uint, managerScore int) error {
	query := `
		UPDATE assessments
		SET manager_score = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(query, managerScore, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to adjust assessment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check adjust result: %w", err)
	}
	if affected == 0 {
		return ErrAssessmentNotFound
	}

	return nil
}

// AssessmentFilters narrows List results
type AssessmentFilters struct {
	UserID       *uint
	DepartmentID *uint
	SkillID      *uint
	Status       *models.AssessmentStatus
}

// List retrieves assessments with user and skill details, newest first
func (r *AssessmentRepository) List(filters AssessmentFilters) ([]models.AssessmentWithDetails, error) {
	query := `
		SELECT a.id, a.user_id, a.skill_id, a.self_score, a.manager_score, a.status, a.comment,
		       a.reject_reason, a.assessed_at, a.approved_by_id, a.approved_at, a.updated_at,
		       u.full_name, u.login, u.department_id, s.name, c.name
		FROM assessments a
		JOIN users u ON u.id = a.user_id
		JOIN skills s ON s.id = a.skill_id
		JOIN skill_categories c ON c.id = s.category_id
		WHERE 1=1
	`
	var args []any
	argPos := 1

	if filters.UserID != nil {
		query += fmt.Sprintf(" AND a.user_id = $%d", argPos)
		args = append(args, *filters.UserID)
		argPos++
	}
	if filters.DepartmentID != nil {
		query += fmt.Sprintf(" AND u.department_id = $%d", argPos)
		args = append(args, *filters.DepartmentID)
		argPos++
	}
	if filters.SkillID != nil {
		query += fmt.Sprintf(" AND a.skill_id = $%d", argPos)
		args = append(args, *filters.SkillID)
		argPos++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND a.status = $%d", argPos)
		args = append(args, *filters.Status)
		argPos++
	}

	query += " ORDER BY a.updated_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var assessments []models.AssessmentWithDetails
	for rows.Next() {
		var a models.AssessmentWithDetails
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.SkillID,
			&a.SelfScore,
			&a.ManagerScore,
			&a.Status,
			&a.Comment,
			&a.RejectReason,
			&a.AssessedAt,
			&a.ApprovedByID,
			&a.ApprovedAt,
			&a.UpdatedAt,
			&a.UserName,
			&a.UserLogin,
			&a.DepartmentID,
			&a.SkillName,
			&a.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

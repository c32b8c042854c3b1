package repository

import (
	"database/sql"
	"fmt"
	"time"

	"skillmatrix/internal/models"
)

// AssessmentHistoryRepository handles the append-only assessment audit trail.
// Rows are only ever inserted, inside the same transaction as the assessment
// change they record.
type AssessmentHistoryRepository struct {
	db *sql.DB
}

// NewAssessmentHistoryRepository creates a new assessment history repository
func NewAssessmentHistoryRepository(db *sql.DB) *AssessmentHistoryRepository {
	return &AssessmentHistoryRepository{db: db}
}

// CreateTx appends a history row inside tx
func (r *AssessmentHistoryRepository) CreateTx(tx *sql.Tx, h *models.AssessmentHistory) error {
	query := `
		INSERT INTO assessment_history (assessment_id, old_score, new_score, changed_by_id, change_type, comment, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err := tx.QueryRow(
		query,
		h.AssessmentID,
		h.OldScore,
		h.NewScore,
		h.ChangedByID,
		h.ChangeType,
		h.Comment,
		now,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	h.ChangedAt = now
	return nil
}

// ListByAssessment retrieves an assessment's history, newest first,
// optionally windowed by time
func (r *AssessmentHistoryRepository) ListByAssessment(assessmentID uint, since, until *time.Time) ([]models.AssessmentHistory, error) {
	query := `
		SELECT id, assessment_id, old_score, new_score, changed_by_id, change_type, comment, changed_at
		FROM assessment_history
		WHERE assessment_id = $1
	`
	args := []any{assessmentID}
	argPos := 2

	if since != nil {
		query += fmt.Sprintf(" AND changed_at >= $%d", argPos)
		args = append(args, *since)
		argPos++
	}
	if until != nil {
		query += fmt.Sprintf(" AND changed_at <= $%d", argPos)
		args = append(args, *until)
		argPos++
	}

	query += " ORDER BY changed_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []models.AssessmentHistory
	for rows.Next() {
		var h models.AssessmentHistory
		if err := rows.Scan(
			&h.ID,
			&h.AssessmentID,
			&h.OldScore,
			&h.NewScore,
			&h.ChangedByID,
			&h.ChangeType,
			&h.Comment,
			&h.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, h)
	}

	return entries, rows.Err()
}

// CountByAssessment returns the number of history rows for an assessment
func (r *AssessmentHistoryRepository) CountByAssessment(assessmentID uint) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM assessment_history WHERE assessment_id = $1`, assessmentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

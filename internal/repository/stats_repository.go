package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"skillmatrix/internal/models"
)

// effectiveScore is the SQL rendering of the effective-score rule: the
// manager's score once approved, the self score otherwise.
const effectiveScore = `CASE WHEN a.status = 'approved' THEN COALESCE(a.manager_score, a.self_score) ELSE a.self_score END`

// StatsRepository runs the read-only aggregation queries. Nothing here
// mutates state.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// StatusCounts is a by-status breakdown of assessments
type StatusCounts struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
}

// UserStatusCounts counts one user's assessments by status
func (r *StatsRepository) UserStatusCounts(userID uint) (*StatusCounts, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'approved'),
		       COUNT(*) FILTER (WHERE status = 'rejected')
		FROM assessments
		WHERE user_id = $1
	`

	counts := &StatusCounts{}
	err := r.db.QueryRow(query, userID).Scan(&counts.Total, &counts.Pending, &counts.Approved, &counts.Rejected)
	if err != nil {
		return nil, fmt.Errorf("failed to count user assessments: %w", err)
	}
	return counts, nil
}

// UserApprovedAverage is the mean effective score over a user's approved
// assessments, 0 when there are none
func (r *StatsRepository) UserApprovedAverage(userID uint) (float64, error) {
	query := `
		SELECT COALESCE(AVG(` + effectiveScore + `), 0)
		FROM assessments a
		WHERE a.user_id = $1 AND a.status = 'approved'
	`

	var avg float64
	if err := r.db.QueryRow(query, userID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to average user scores: %w", err)
	}
	return avg, nil
}

// UserRequiredCounts returns how many skills the user's department requires
// and how many of those the user has approved
func (r *StatsRepository) UserRequiredCounts(userID uint) (required, approvedRequired int, err error) {
	query := `
		SELECT COUNT(rs.skill_id),
		       COUNT(a.id) FILTER (WHERE a.status = 'approved')
		FROM users u
		JOIN required_skills rs ON rs.department_id = u.department_id AND rs.is_required = TRUE
		LEFT JOIN assessments a ON a.user_id = u.id AND a.skill_id = rs.skill_id
		WHERE u.id = $1
	`

	if err := r.db.QueryRow(query, userID).Scan(&required, &approvedRequired); err != nil {
		return 0, 0, fmt.Errorf("failed to count required skills: %w", err)
	}
	return required, approvedRequired, nil
}

// DepartmentEmployeeCount counts a department's active employees
func (r *StatsRepository) DepartmentEmployeeCount(departmentID uint) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM users WHERE department_id = $1 AND is_active = TRUE`,
		departmentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return count, nil
}

// DepartmentStatusCounts counts assessments by status over a department's
// active employees
func (r *StatsRepository) DepartmentStatusCounts(departmentID uint) (*StatusCounts, error) {
	query := `
		SELECT COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'pending'),
		       COUNT(a.id) FILTER (WHERE a.status = 'approved'),
		       COUNT(a.id) FILTER (WHERE a.status = 'rejected')
		FROM assessments a
		JOIN users u ON u.id = a.user_id
		WHERE u.department_id = $1 AND u.is_active = TRUE
	`

	counts := &StatusCounts{}
	err := r.db.QueryRow(query, departmentID).Scan(&counts.Total, &counts.Pending, &counts.Approved, &counts.Rejected)
	if err != nil {
		return nil, fmt.Errorf("failed to count department assessments: %w", err)
	}
	return counts, nil
}

// DepartmentApprovedAverage is the mean effective score over approved
// assessments of a department's active employees, 0 when there are none
func (r *StatsRepository) DepartmentApprovedAverage(departmentID uint) (float64, error) {
	query := `
		SELECT COALESCE(AVG(` + effectiveScore + `), 0)
		FROM assessments a
		JOIN users u ON u.id = a.user_id
		WHERE u.department_id = $1 AND u.is_active = TRUE AND a.status = 'approved'
	`

	var avg float64
	if err := r.db.QueryRow(query, departmentID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to average department scores: %w", err)
	}
	return avg, nil
}

// DepartmentRequiredCounts returns the department's required-skill count and
// how many of those skills have at least one approved assessment among its
// active employees
func (r *StatsRepository) DepartmentRequiredCounts(departmentID uint) (required, approvedRequired int, err error) {
	requiredQuery := `
		SELECT COUNT(*) FROM required_skills WHERE department_id = $1 AND is_required = TRUE
	`
	if err := r.db.QueryRow(requiredQuery, departmentID).Scan(&required); err != nil {
		return 0, 0, fmt.Errorf("failed to count required skills: %w", err)
	}

	approvedQuery := `
		SELECT COUNT(DISTINCT rs.skill_id)
		FROM required_skills rs
		JOIN users u ON u.department_id = rs.department_id AND u.is_active = TRUE
		JOIN assessments a ON a.user_id = u.id AND a.skill_id = rs.skill_id AND a.status = 'approved'
		WHERE rs.department_id = $1 AND rs.is_required = TRUE
	`
	if err := r.db.QueryRow(approvedQuery, departmentID).Scan(&approvedRequired); err != nil {
		return 0, 0, fmt.Errorf("failed to count approved required skills: %w", err)
	}

	return required, approvedRequired, nil
}

// DepartmentCoveredSkills counts distinct required skills having at least one
// approved assessment meeting the minimum score among active employees
func (r *StatsRepository) DepartmentCoveredSkills(departmentID uint) (int, error) {
	query := `
		SELECT COUNT(DISTINCT rs.skill_id)
		FROM required_skills rs
		JOIN users u ON u.department_id = rs.department_id AND u.is_active = TRUE
		JOIN assessments a ON a.user_id = u.id AND a.skill_id = rs.skill_id
		WHERE rs.department_id = $1 AND rs.is_required = TRUE
		  AND a.status = 'approved'
		  AND ` + effectiveScore + ` >= rs.min_score
	`

	var count int
	if err := r.db.QueryRow(query, departmentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count covered skills: %w", err)
	}
	return count, nil
}

// DepartmentComplianceStats reports, per required skill, how many active
// employees hold an approved assessment meeting the minimum score
func (r *StatsRepository) DepartmentComplianceStats(departmentID uint) ([]models.SkillComplianceStat, error) {
	query := `
		SELECT rs.skill_id, s.name, rs.min_score,
		       COUNT(DISTINCT a.user_id) FILTER (
		           WHERE a.status = 'approved' AND ` + effectiveScore + ` >= rs.min_score
		       ),
		       (SELECT COUNT(*) FROM users WHERE department_id = rs.department_id AND is_active = TRUE)
		FROM required_skills rs
		JOIN skills s ON s.id = rs.skill_id
		LEFT JOIN users u ON u.department_id = rs.department_id AND u.is_active = TRUE
		LEFT JOIN assessments a ON a.user_id = u.id AND a.skill_id = rs.skill_id
		WHERE rs.department_id = $1 AND rs.is_required = TRUE
		GROUP BY rs.skill_id, s.name, rs.min_score, rs.department_id
		ORDER BY s.name
	`

	rows, err := r.db.Query(query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get compliance stats: %w", err)
	}
	defer rows.Close()

	var stats []models.SkillComplianceStat
	for rows.Next() {
		var s models.SkillComplianceStat
		if err := rows.Scan(&s.SkillID, &s.SkillName, &s.MinScore, &s.CompliantCount, &s.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan compliance stat: %w", err)
		}
		if s.TotalCount > 0 {
			s.ComplianceRate = float64(s.CompliantCount) / float64(s.TotalCount) * 100
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// CategoryStats aggregates assessment counts and approved averages per skill
// category, optionally restricted to one department's active employees
func (r *StatsRepository) CategoryStats(departmentID *uint) ([]models.CategoryStat, error) {
	query := `
		SELECT c.id, c.name, COUNT(a.id),
		       COALESCE(AVG(` + effectiveScore + `) FILTER (WHERE a.status = 'approved'), 0)
		FROM skill_categories c
		JOIN skills s ON s.category_id = c.id
		JOIN assessments a ON a.skill_id = s.id
		JOIN users u ON u.id = a.user_id AND u.is_active = TRUE
	`
	var args []any
	if departmentID != nil {
		query += " WHERE u.department_id = $1"
		args = append(args, *departmentID)
	}
	query += `
		GROUP BY c.id, c.name
		ORDER BY c.sort_order, c.name
	`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get category stats: %w", err)
	}
	defer rows.Close()

	var stats []models.CategoryStat
	for rows.Next() {
		var s models.CategoryStat
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.Count, &s.AverageScore); err != nil {
			return nil, fmt.Errorf("failed to scan category stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// SkillGaps computes, per required skill, how many active employees lack an
// approved assessment meeting the minimum score. Threshold filtering is the
// caller's concern.
func (r *StatsRepository) SkillGaps(departmentID uint) ([]models.SkillGap, error) {
	query := `
		SELECT rs.skill_id, s.name, rs.min_score,
		       COUNT(DISTINCT a.user_id) FILTER (
		           WHERE a.status = 'approved' AND ` + effectiveScore + ` >= rs.min_score
		       ),
		       (SELECT COUNT(*) FROM users WHERE department_id = rs.department_id AND is_active = TRUE)
		FROM required_skills rs
		JOIN skills s ON s.id = rs.skill_id
		LEFT JOIN users u ON u.department_id = rs.department_id AND u.is_active = TRUE
		LEFT JOIN assessments a ON a.user_id = u.id AND a.skill_id = rs.skill_id
		WHERE rs.department_id = $1 AND rs.is_required = TRUE
		GROUP BY rs.skill_id, s.name, rs.min_score, rs.department_id
	`

	rows, err := r.db.Query(query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get skill gaps: %w", err)
	}
	defer rows.Close()

	var gaps []models.SkillGap
	for rows.Next() {
		var g models.SkillGap
		var compliant int
		if err := rows.Scan(&g.SkillID, &g.SkillName, &g.MinScore, &compliant, &g.TotalEmployees); err != nil {
			return nil, fmt.Errorf("failed to scan skill gap: %w", err)
		}
		g.NonCompliantCount = g.TotalEmployees - compliant
		if g.TotalEmployees > 0 {
			g.GapPercentage = float64(g.NonCompliantCount) / float64(g.TotalEmployees) * 100
		}
		gaps = append(gaps, g)
	}

	return gaps, rows.Err()
}

// EntitySkillScore is one (entity, skill) cell of a comparison
type EntitySkillScore struct {
	EntityID   uint
	EntityName string
	SkillID    uint
	Score      float64
}

// UserSkillScores returns each user's effective score per skill, optionally
// restricted to a skill filter
func (r *StatsRepository) UserSkillScores(userIDs []uint, skillIDs []uint) ([]EntitySkillScore, error) {
	query := `
		SELECT u.id, u.full_name, a.skill_id, ` + effectiveScore + `::float
		FROM users u
		JOIN assessments a ON a.user_id = u.id
		WHERE u.id = ANY($1)
	`
	args := []any{pq.Array(userIDs)}
	if len(skillIDs) > 0 {
		query += " AND a.skill_id = ANY($2)"
		args = append(args, pq.Array(skillIDs))
	}

	return r.querySkillScores(query, args...)
}

// DepartmentSkillScores returns each department's mean effective score per
// skill over its active employees, optionally restricted to a skill filter
func (r *StatsRepository) DepartmentSkillScores(departmentIDs []uint, skillIDs []uint) ([]EntitySkillScore, error) {
	query := `
		SELECT d.id, d.name, a.skill_id, AVG(` + effectiveScore + `)::float
		FROM departments d
		JOIN users u ON u.department_id = d.id AND u.is_active = TRUE
		JOIN assessments a ON a.user_id = u.id
		WHERE d.id = ANY($1)
	`
	args := []any{pq.Array(departmentIDs)}
	if len(skillIDs) > 0 {
		query += " AND a.skill_id = ANY($2)"
		args = append(args, pq.Array(skillIDs))
	}
	query += " GROUP BY d.id, d.name, a.skill_id"

	return r.querySkillScores(query, args...)
}

func (r *StatsRepository) querySkillScores(query string, args ...any) ([]EntitySkillScore, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get skill scores: %w", err)
	}
	defer rows.Close()

	var scores []EntitySkillScore
	for rows.Next() {
		var s EntitySkillScore
		if err := rows.Scan(&s.EntityID, &s.EntityName, &s.SkillID, &s.Score); err != nil {
			return nil, fmt.Errorf("failed to scan skill score: %w", err)
		}
		scores = append(scores, s)
	}

	return scores, rows.Err()
}

// DayCount is one calendar day's count for a single measure
type DayCount struct {
	Date  time.Time
	Count int
}

// NewUsersByDay counts user registrations per calendar day since the cutoff
func (r *StatsRepository) NewUsersByDay(since time.Time) ([]DayCount, error) {
	query := `
		SELECT DATE(created_at), COUNT(*)
		FROM users
		WHERE created_at >= $1
		GROUP BY DATE(created_at)
	`
	return r.queryDayCounts(query, since)
}

// NewAssessmentsByDay counts assessment creations per calendar day since the
// cutoff, using the earliest history row as the creation moment
func (r *StatsRepository) NewAssessmentsByDay(since time.Time) ([]DayCount, error) {
	query := `
		SELECT DATE(changed_at), COUNT(*)
		FROM assessment_history
		WHERE change_type = 'created' AND changed_at >= $1
		GROUP BY DATE(changed_at)
	`
	return r.queryDayCounts(query, since)
}

func (r *StatsRepository) queryDayCounts(query string, since time.Time) ([]DayCount, error) {
	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get day counts: %w", err)
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var c DayCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// TopPerformers ranks a department's active employees by average effective
// score over their approved assessments
func (r *StatsRepository) TopPerformers(departmentID uint, limit int) ([]models.TopPerformer, error) {
	query := `
		SELECT u.id, u.full_name, u.position,
		       COALESCE(AVG(` + effectiveScore + `) FILTER (WHERE a.status = 'approved'), 0),
		       COUNT(a.id) FILTER (WHERE a.status = 'pending')
		FROM users u
		LEFT JOIN assessments a ON a.user_id = u.id
		WHERE u.department_id = $1 AND u.is_active = TRUE
		GROUP BY u.id, u.full_name, u.position
		ORDER BY 4 DESC, u.full_name
		LIMIT $2
	`

	rows, err := r.db.Query(query, departmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top performers: %w", err)
	}
	defer rows.Close()

	var performers []models.TopPerformer
	for rows.Next() {
		var p models.TopPerformer
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Position, &p.AverageScore, &p.PendingCount); err != nil {
			return nil, fmt.Errorf("failed to scan top performer: %w", err)
		}
		performers = append(performers, p)
	}

	return performers, rows.Err()
}

// RecommendedSkills lists the required skills of the user's department that
// the user has no approved assessment for yet
func (r *StatsRepository) RecommendedSkills(userID uint) ([]models.RecommendedSkill, error) {
	query := `
		SELECT s.id, s.name, s.description, s.category_id, s.difficulty_level, s.is_active,
		       s.created_at, s.updated_at, c.name, rs.min_score, rs.priority
		FROM users u
		JOIN required_skills rs ON rs.department_id = u.department_id AND rs.is_required = TRUE
		JOIN skills s ON s.id = rs.skill_id AND s.is_active = TRUE
		JOIN skill_categories c ON c.id = s.category_id
		LEFT JOIN assessments a ON a.user_id = u.id AND a.skill_id = rs.skill_id AND a.status = 'approved'
		WHERE u.id = $1 AND a.id IS NULL
		ORDER BY rs.priority DESC, s.name
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommended skills: %w", err)
	}
	defer rows.Close()

	var recommendations []models.RecommendedSkill
	for rows.Next() {
		var rec models.RecommendedSkill
		if err := rows.Scan(
			&rec.Skill.ID,
			&rec.Skill.Name,
			&rec.Skill.Description,
			&rec.Skill.CategoryID,
			&rec.Skill.DifficultyLevel,
			&rec.Skill.IsActive,
			&rec.Skill.CreatedAt,
			&rec.Skill.UpdatedAt,
			&rec.Skill.CategoryName,
			&rec.MinScore,
			&rec.Priority,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommended skill: %w", err)
		}
		recommendations = append(recommendations, rec)
	}

	return recommendations, rows.Err()
}

// CompanyTotals returns the organization-wide headline numbers
func (r *StatsRepository) CompanyTotals() (*models.CompanyTotals, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM users WHERE is_active = TRUE),
		       (SELECT COUNT(*) FROM departments),
		       (SELECT COUNT(*) FROM skills WHERE is_active = TRUE),
		       (SELECT COUNT(*) FROM assessments),
		       (SELECT COUNT(*) FROM assessments WHERE status = 'pending'),
		       (SELECT COUNT(*) FROM assessments WHERE status = 'approved'),
		       (SELECT COALESCE(AVG(` + effectiveScore + `), 0) FROM assessments a WHERE a.status = 'approved')
	`

	totals := &models.CompanyTotals{}
	err := r.db.QueryRow(query).Scan(
		&totals.TotalUsers,
		&totals.TotalDepartments,
		&totals.TotalSkills,
		&totals.TotalAssessments,
		&totals.PendingAssessments,
		&totals.ApprovedCount,
		&totals.AverageScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get company totals: %w", err)
	}

	return totals, nil
}

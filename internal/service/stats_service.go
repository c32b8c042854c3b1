package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"skillmatrix/internal/authz"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// gapReportThreshold is the fixed policy cutoff: only required skills whose
// non-compliance percentage exceeds it appear in gap reports.
const gapReportThreshold = 30.0

// StatsService is the read-only aggregation engine. Every method is a pure
// function of the current assessment snapshot.
type StatsService struct {
	statsRepo *repository.StatsRepository
	userRepo  *repository.UserRepository
	deptRepo  *repository.DepartmentRepository
}

// NewStatsService creates a new stats service
func NewStatsService(
	statsRepo *repository.StatsRepository,
	userRepo *repository.UserRepository,
	deptRepo *repository.DepartmentRepository,
) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		userRepo:  userRepo,
		deptRepo:  deptRepo,
	}
}

func (s *StatsService) getUser(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserStats summarizes one user's assessments. The average covers approved
// assessments only; completion is against the department's required skills.
func (s *StatsService) UserStats(actorID, userID uint) (*models.UserStats, error) {
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}
	subject, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, subject) {
		return nil, ErrPermissionDenied
	}

	return s.userStats(subject.ID)
}

func (s *StatsService) userStats(userID uint) (*models.UserStats, error) {
	counts, err := s.statsRepo.UserStatusCounts(userID)
	if err != nil {
		return nil, err
	}

	avg, err := s.statsRepo.UserApprovedAverage(userID)
	if err != nil {
		return nil, err
	}

	required, approvedRequired, err := s.statsRepo.UserRequiredCounts(userID)
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{
		UserID:                 userID,
		TotalAssessments:       counts.Total,
		PendingCount:           counts.Pending,
		ApprovedCount:          counts.Approved,
		RejectedCount:          counts.Rejected,
		AverageScore:           avg,
		RequiredSkills:         required,
		ApprovedRequiredSkills: approvedRequired,
	}
	if required > 0 {
		stats.CompletionRate = float64(approvedRequired) / float64(required) * 100
	}

	return stats, nil
}

// DepartmentStats aggregates over a department's active employees
func (s *StatsService) DepartmentStats(actorID, departmentID uint) (*models.DepartmentStats, error) {
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsElevated() && !(actor.Role == models.RoleManager && actor.DepartmentID == departmentID) {
		return nil, ErrPermissionDenied
	}

	return s.departmentStats(departmentID)
}

func (s *StatsService) departmentStats(departmentID uint) (*models.DepartmentStats, error) {
	dept, err := s.deptRepo.GetByID(departmentID)
	if errors.Is(err, repository.ErrDepartmentNotFound) {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, departmentID)
	}
	if err != nil {
		return nil, err
	}

	employees, err := s.statsRepo.DepartmentEmployeeCount(departmentID)
	if err != nil {
		return nil, err
	}

	counts, err := s.statsRepo.DepartmentStatusCounts(departmentID)
	if err != nil {
		return nil, err
	}

	avg, err := s.statsRepo.DepartmentApprovedAverage(departmentID)
	if err != nil {
		return nil, err
	}

	required, approvedRequired, err := s.statsRepo.DepartmentRequiredCounts(departmentID)
	if err != nil {
		return nil, err
	}

	covered, err := s.statsRepo.DepartmentCoveredSkills(departmentID)
	if err != nil {
		return nil, err
	}

	compliance, err := s.statsRepo.DepartmentComplianceStats(departmentID)
	if err != nil {
		return nil, err
	}

	categories, err := s.statsRepo.CategoryStats(&departmentID)
	if err != nil {
		return nil, err
	}

	stats := &models.DepartmentStats{
		DepartmentID:           dept.ID,
		DepartmentName:         dept.Name,
		EmployeeCount:          employees,
		TotalAssessments:       counts.Total,
		PendingCount:           counts.Pending,
		ApprovedCount:          counts.Approved,
		RejectedCount:          counts.Rejected,
		AverageScore:           avg,
		RequiredSkills:         required,
		ApprovedRequiredSkills: approvedRequired,
		CategoryStats:          categories,
		ComplianceStats:        compliance,
	}
	if required > 0 {
		stats.CompletionRate = float64(approvedRequired) / float64(required) * 100
	}
	if required > 0 {
		stats.SkillCoverage = float64(covered) / float64(required) * 100
	}

	return stats, nil
}

// SkillGapAnalysis reports the department's required skills whose
// non-compliance exceeds the reporting threshold, worst first
func (s *StatsService) SkillGapAnalysis(actorID, departmentID uint) ([]models.SkillGap, error) {
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsElevated() && !(actor.Role == models.RoleManager && actor.DepartmentID == departmentID) {
		return nil, ErrPermissionDenied
	}

	if _, err := s.deptRepo.GetByID(departmentID); errors.Is(err, repository.ErrDepartmentNotFound) {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, departmentID)
	} else if err != nil {
		return nil, err
	}

	return s.skillGaps(departmentID)
}

func (s *StatsService) skillGaps(departmentID uint) ([]models.SkillGap, error) {
	all, err := s.statsRepo.SkillGaps(departmentID)
	if err != nil {
		return nil, err
	}

	var gaps []models.SkillGap
	for _, g := range all {
		if g.GapPercentage > gapReportThreshold {
			gaps = append(gaps, g)
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		return gaps[i].GapPercentage > gaps[j].GapPercentage
	})

	return gaps, nil
}

// CompareInput selects either users or departments, never both
type CompareInput struct {
	UserIDs       []uint `json:"user_ids,omitempty"`
	DepartmentIDs []uint `json:"department_ids,omitempty"`
	SkillIDs      []uint `json:"skill_ids,omitempty"`
}

// Compare produces a side-by-side skill-score map per entity. Skills an
// entity has no score for stay absent from its map; the entity average is
// over present scores only.
func (s *StatsService) Compare(actorID uint, input CompareInput) ([]models.ComparisonEntry, error) {
	if len(input.UserIDs) > 0 && len(input.DepartmentIDs) > 0 {
		return nil, validationErr("entities", "cannot mix users and departments")
	}

	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}

	var entityIDs []uint
	var scores []repository.EntitySkillScore
	switch {
	case len(input.UserIDs) > 0:
		if len(input.UserIDs) < 2 {
			return nil, validationErr("user_ids", "at least two entities are required")
		}
		for _, id := range input.UserIDs {
			subject, err := s.getUser(id)
			if err != nil {
				return nil, err
			}
			if !authz.CanView(actor, subject) {
				return nil, ErrPermissionDenied
			}
		}
		entityIDs = input.UserIDs
		scores, err = s.statsRepo.UserSkillScores(input.UserIDs, input.SkillIDs)
	case len(input.DepartmentIDs) > 0:
		if len(input.DepartmentIDs) < 2 {
			return nil, validationErr("department_ids", "at least two entities are required")
		}
		if !actor.Role.IsElevated() {
			return nil, ErrPermissionDenied
		}
		for _, id := range input.DepartmentIDs {
			if _, err := s.deptRepo.GetByID(id); errors.Is(err, repository.ErrDepartmentNotFound) {
				return nil, fmt.Errorf("%w: department %d", ErrNotFound, id)
			} else if err != nil {
				return nil, err
			}
		}
		entityIDs = input.DepartmentIDs
		scores, err = s.statsRepo.DepartmentSkillScores(input.DepartmentIDs, input.SkillIDs)
	default:
		return nil, validationErr("entities", "at least two entities are required")
	}
	if err != nil {
		return nil, err
	}

	byEntity := make(map[uint]*models.ComparisonEntry, len(entityIDs))
	entries := make([]models.ComparisonEntry, 0, len(entityIDs))
	for _, id := range entityIDs {
		entries = append(entries, models.ComparisonEntry{
			EntityID:    id,
			SkillScores: map[uint]float64{},
		})
		byEntity[id] = &entries[len(entries)-1]
	}

	for _, score := range scores {
		entry, ok := byEntity[score.EntityID]
		if !ok {
			continue
		}
		entry.EntityName = score.EntityName
		entry.SkillScores[score.SkillID] = score.Score
	}

	// Entities with no overlap keep an empty map and a zero average.
	for i := range entries {
		if len(entries[i].SkillScores) == 0 {
			continue
		}
		var sum float64
		for _, v := range entries[i].SkillScores {
			sum += v
		}
		entries[i].AverageScore = sum / float64(len(entries[i].SkillScores))
	}

	return entries, nil
}

// AllDepartmentStats aggregates every department, for company-wide reports
func (s *StatsService) AllDepartmentStats(actorID uint) ([]models.DepartmentStats, error) {
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsElevated() {
		return nil, ErrPermissionDenied
	}

	departments, err := s.deptRepo.List()
	if err != nil {
		return nil, err
	}

	stats := make([]models.DepartmentStats, 0, len(departments))
	for _, dept := range departments {
		ds, err := s.departmentStats(dept.ID)
		if err != nil {
			return nil, err
		}
		stats = append(stats, *ds)
	}
	return stats, nil
}

// Trend buckets new-user and new-assessment counts by calendar day over the
// past windowDays, producing one point per day with no gaps
func (s *StatsService) Trend(actorID uint, windowDays int) ([]models.TrendPoint, error) {
	if windowDays < 1 {
		return nil, validationErr("window_days", "must be at least 1")
	}

	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsElevated() {
		return nil, ErrPermissionDenied
	}

	return s.trend(windowDays)
}

func (s *StatsService) trend(windowDays int) ([]models.TrendPoint, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -windowDays)
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	users, err := s.statsRepo.NewUsersByDay(startDay)
	if err != nil {
		return nil, err
	}
	assessments, err := s.statsRepo.NewAssessmentsByDay(startDay)
	if err != nil {
		return nil, err
	}

	usersByDay := make(map[string]int, len(users))
	for _, c := range users {
		usersByDay[c.Date.Format("2006-01-02")] = c.Count
	}
	assessmentsByDay := make(map[string]int, len(assessments))
	for _, c := range assessments {
		assessmentsByDay[c.Date.Format("2006-01-02")] = c.Count
	}

	points := make([]models.TrendPoint, 0, windowDays+1)
	for day := startDay; !day.After(now); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		points = append(points, models.TrendPoint{
			Date:           key,
			NewUsers:       usersByDay[key],
			NewAssessments: assessmentsByDay[key],
		})
	}

	return points, nil
}

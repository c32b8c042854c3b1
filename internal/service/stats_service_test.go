package service_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
	"skillmatrix/internal/testutil"
)

func newStatsService(db *sql.DB) *service.StatsService {
	return service.NewStatsService(
		repository.NewStatsRepository(db),
		repository.NewUserRepository(db),
		repository.NewDepartmentRepository(db),
	)
}

// approveAssessment runs a submission through review so the effective score
// comes from the manager.
func approveAssessment(t *testing.T, svc *service.AssessmentService, userID, reviewerID, skillID uint, selfScore, managerScore int) {
	t.Helper()

	submitted, err := svc.SubmitSelfAssessment(userID, models.SelfAssessmentInput{
		SkillID:   skillID,
		SelfScore: selfScore,
	})
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := svc.Review(reviewerID, submitted.ID, models.ReviewInput{
		Decision:      models.DecisionApprove,
		ReviewerScore: &managerScore,
	}); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
}

func TestDepartmentCompletionSingleEmployee(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	// A department with exactly one member, one required skill, and an
	// approval at the minimum score.
	dept := fixtures.CreateDepartment(t, "Solo", "SOL")
	solo := fixtures.CreateUser(t, "solo", models.RoleEmployee, dept.ID, nil)
	fixtures.RequireSkill(t, dept.ID, fixtures.GoSkill.ID, 3)
	approveAssessment(t, assessmentSvc, solo.ID, fixtures.Admin.ID, fixtures.GoSkill.ID, 3, 3)

	stats, err := statsSvc.DepartmentStats(fixtures.Admin.ID, dept.ID)
	if err != nil {
		t.Fatalf("Failed to get department stats: %v", err)
	}

	if stats.EmployeeCount != 1 {
		t.Errorf("Expected 1 employee, got %d", stats.EmployeeCount)
	}
	if stats.RequiredSkills != 1 {
		t.Errorf("Expected 1 required skill, got %d", stats.RequiredSkills)
	}
	if stats.CompletionRate != 100 {
		t.Errorf("Expected 100%% completion, got %.1f", stats.CompletionRate)
	}
	if stats.SkillCoverage != 100 {
		t.Errorf("Expected 100%% skill coverage, got %.1f", stats.SkillCoverage)
	}
	if stats.ApprovedRequiredSkills != 1 {
		t.Errorf("Expected 1 approved required assessment, got %d", stats.ApprovedRequiredSkills)
	}
}

func TestDepartmentCompletionIgnoresHeadcount(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	// Two members share the department but only one holds the approval.
	// Completion tracks required skills, not member headcount, so a single
	// approved required skill still completes the department.
	dept := fixtures.CreateDepartment(t, "Platform", "PLT")
	lead := fixtures.CreateUser(t, "plt-lead", models.RoleManager, dept.ID, nil)
	worker := fixtures.CreateUser(t, "plt-worker", models.RoleEmployee, dept.ID, &lead.ID)
	fixtures.RequireSkill(t, dept.ID, fixtures.GoSkill.ID, 3)
	approveAssessment(t, assessmentSvc, worker.ID, lead.ID, fixtures.GoSkill.ID, 3, 4)

	stats, err := statsSvc.DepartmentStats(fixtures.Admin.ID, dept.ID)
	if err != nil {
		t.Fatalf("Failed to get department stats: %v", err)
	}

	if stats.EmployeeCount != 2 {
		t.Errorf("Expected 2 employees, got %d", stats.EmployeeCount)
	}
	if stats.ApprovedRequiredSkills != 1 {
		t.Errorf("Expected 1 approved required skill, got %d", stats.ApprovedRequiredSkills)
	}
	if stats.CompletionRate != 100 {
		t.Errorf("Expected 100%% completion, got %.1f", stats.CompletionRate)
	}
}

func TestDepartmentStatsZeroGuards(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)

	// Design has no employees, no required skills and no assessments
	stats, err := statsSvc.DepartmentStats(fixtures.Admin.ID, fixtures.Design.ID)
	if err != nil {
		t.Fatalf("Failed to get department stats: %v", err)
	}

	if stats.CompletionRate != 0 {
		t.Errorf("Expected 0 completion rate for empty department, got %.1f", stats.CompletionRate)
	}
	if stats.SkillCoverage != 0 {
		t.Errorf("Expected 0 skill coverage for empty department, got %.1f", stats.SkillCoverage)
	}
	if stats.AverageScore != 0 {
		t.Errorf("Expected 0 average for empty department, got %.1f", stats.AverageScore)
	}
}

func TestUserStats(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	fixtures.RequireSkill(t, fixtures.Engineering.ID, fixtures.GoSkill.ID, 3)
	fixtures.RequireSkill(t, fixtures.Engineering.ID, fixtures.SQLSkill.ID, 3)

	approveAssessment(t, assessmentSvc, fixtures.Employee.ID, fixtures.Manager.ID, fixtures.GoSkill.ID, 3, 4)
	if _, err := assessmentSvc.SubmitSelfAssessment(fixtures.Employee.ID, models.SelfAssessmentInput{
		SkillID: fixtures.SQLSkill.ID, SelfScore: 2,
	}); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	stats, err := statsSvc.UserStats(fixtures.Employee.ID, fixtures.Employee.ID)
	if err != nil {
		t.Fatalf("Failed to get user stats: %v", err)
	}

	if stats.TotalAssessments != 2 {
		t.Errorf("Expected 2 assessments, got %d", stats.TotalAssessments)
	}
	if stats.ApprovedCount != 1 || stats.PendingCount != 1 {
		t.Errorf("Expected 1 approved and 1 pending, got %d and %d", stats.ApprovedCount, stats.PendingCount)
	}
	// Average covers approved assessments only, at the manager's score
	if stats.AverageScore != 4 {
		t.Errorf("Expected average 4.0 over approved assessments, got %.1f", stats.AverageScore)
	}
	if stats.CompletionRate != 50 {
		t.Errorf("Expected 50%% completion (1 of 2 required approved), got %.1f", stats.CompletionRate)
	}
}

func TestSkillGapThreshold(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	// Ten employees in a fresh department so percentages are exact
	dept := fixtures.CreateDepartment(t, "Platform", "PLT")
	manager := fixtures.CreateUser(t, "pltmanager", models.RoleManager, dept.ID, nil)
	var workers []*models.User
	for i := 0; i < 10; i++ {
		login := string(rune('a'+i)) + "worker"
		workers = append(workers, fixtures.CreateUser(t, login, models.RoleEmployee, dept.ID, &manager.ID))
	}

	fixtures.RequireSkill(t, dept.ID, fixtures.GoSkill.ID, 3)
	fixtures.RequireSkill(t, dept.ID, fixtures.SQLSkill.ID, 3)

	// Go: 4 of 11 members compliant including the manager -> ~64% gap, reported.
	// SQL: 9 of 11 compliant -> ~18% gap, below the threshold.
	approveAssessment(t, assessmentSvc, manager.ID, fixtures.Admin.ID, fixtures.GoSkill.ID, 3, 3)
	for i := 0; i < 3; i++ {
		approveAssessment(t, assessmentSvc, workers[i].ID, manager.ID, fixtures.GoSkill.ID, 3, 3)
	}
	approveAssessment(t, assessmentSvc, manager.ID, fixtures.Admin.ID, fixtures.SQLSkill.ID, 3, 3)
	for i := 0; i < 8; i++ {
		approveAssessment(t, assessmentSvc, workers[i].ID, manager.ID, fixtures.SQLSkill.ID, 3, 3)
	}

	gaps, err := statsSvc.SkillGapAnalysis(manager.ID, dept.ID)
	if err != nil {
		t.Fatalf("Failed to get gaps: %v", err)
	}

	if len(gaps) != 1 {
		t.Fatalf("Expected exactly 1 gap above threshold, got %d", len(gaps))
	}
	if gaps[0].SkillID != fixtures.GoSkill.ID {
		t.Errorf("Expected gap for skill %d, got %d", fixtures.GoSkill.ID, gaps[0].SkillID)
	}
	if gaps[0].GapPercentage <= 30 {
		t.Errorf("Reported gap %.1f%% is not above the threshold", gaps[0].GapPercentage)
	}
}

func TestCompareValidation(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)

	tests := []struct {
		name  string
		input service.CompareInput
	}{
		{"empty", service.CompareInput{}},
		{"single user", service.CompareInput{UserIDs: []uint{fixtures.Employee.ID}}},
		{"single department", service.CompareInput{DepartmentIDs: []uint{fixtures.Engineering.ID}}},
		{"mixed entities", service.CompareInput{
			UserIDs:       []uint{fixtures.Employee.ID, fixtures.Manager.ID},
			DepartmentIDs: []uint{fixtures.Engineering.ID, fixtures.Design.ID},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := statsSvc.Compare(fixtures.Admin.ID, tt.input)
			if !errors.Is(err, service.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	// Department comparison needs an elevated role
	_, err := statsSvc.Compare(fixtures.Manager.ID, service.CompareInput{
		DepartmentIDs: []uint{fixtures.Engineering.ID, fixtures.Design.ID},
	})
	if !errors.Is(err, service.ErrPermissionDenied) {
		t.Errorf("Expected permission denied for manager department comparison, got %v", err)
	}
}

func TestCompareUsers(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	colleague := fixtures.CreateUser(t, "colleague", models.RoleEmployee, fixtures.Engineering.ID, &fixtures.Manager.ID)

	approveAssessment(t, assessmentSvc, fixtures.Employee.ID, fixtures.Manager.ID, fixtures.GoSkill.ID, 3, 4)
	approveAssessment(t, assessmentSvc, fixtures.Employee.ID, fixtures.Manager.ID, fixtures.SQLSkill.ID, 3, 2)
	// The colleague has no approved assessments at all

	entries, err := statsSvc.Compare(fixtures.Admin.ID, service.CompareInput{
		UserIDs: []uint{fixtures.Employee.ID, colleague.ID},
	})
	if err != nil {
		t.Fatalf("Failed to compare: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 comparison entries, got %d", len(entries))
	}

	byID := map[uint]models.ComparisonEntry{}
	for _, e := range entries {
		byID[e.EntityID] = e
	}

	employee := byID[fixtures.Employee.ID]
	if len(employee.SkillScores) != 2 {
		t.Errorf("Expected 2 skill scores for employee, got %d", len(employee.SkillScores))
	}
	if employee.AverageScore != 3 {
		t.Errorf("Expected employee average 3.0, got %.1f", employee.AverageScore)
	}

	// An entity with no scores keeps an empty map and a zero average
	other := byID[colleague.ID]
	if len(other.SkillScores) != 0 {
		t.Errorf("Expected empty score map for colleague, got %d entries", len(other.SkillScores))
	}
	if other.AverageScore != 0 {
		t.Errorf("Expected zero average for colleague, got %.1f", other.AverageScore)
	}
}

func TestTrendSeriesHasNoGaps(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	statsSvc := newStatsService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	if _, err := assessmentSvc.SubmitSelfAssessment(fixtures.Employee.ID, models.SelfAssessmentInput{
		SkillID: fixtures.GoSkill.ID, SelfScore: 3,
	}); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	const window = 7
	points, err := statsSvc.Trend(fixtures.Admin.ID, window)
	if err != nil {
		t.Fatalf("Failed to get trend: %v", err)
	}

	if len(points) != window+1 {
		t.Fatalf("Expected %d points including today, got %d", window+1, len(points))
	}

	// Days must be consecutive with zero-filled quiet days
	for i := 1; i < len(points); i++ {
		prev, err := time.Parse("2006-01-02", points[i-1].Date)
		if err != nil {
			t.Fatalf("Bad date %q: %v", points[i-1].Date, err)
		}
		cur, err := time.Parse("2006-01-02", points[i].Date)
		if err != nil {
			t.Fatalf("Bad date %q: %v", points[i].Date, err)
		}
		if cur.Sub(prev) != 24*time.Hour {
			t.Errorf("Gap in series between %s and %s", points[i-1].Date, points[i].Date)
		}
	}

	// Today carries the fixture users and the fresh submission
	today := points[len(points)-1]
	if today.NewUsers == 0 {
		t.Error("Expected today's point to count the fixture users")
	}
	if today.NewAssessments != 1 {
		t.Errorf("Expected 1 new assessment today, got %d", today.NewAssessments)
	}

	// Trend is for elevated roles only
	if _, err := statsSvc.Trend(fixtures.Manager.ID, window); !errors.Is(err, service.ErrPermissionDenied) {
		t.Errorf("Expected permission denied for manager trend, got %v", err)
	}
}

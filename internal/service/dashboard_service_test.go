package service_test

import (
	"database/sql"
	"testing"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
	"skillmatrix/internal/testutil"
)

func newDashboardService(db *sql.DB) *service.DashboardService {
	return service.NewDashboardService(
		newStatsService(db),
		repository.NewStatsRepository(db),
		repository.NewAssessmentRepository(db),
		repository.NewNotificationRepository(db),
		repository.NewDepartmentRepository(db),
	)
}

func TestEmployeeDashboard(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	dashboardSvc := newDashboardService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	fixtures.RequireSkill(t, fixtures.Engineering.ID, fixtures.GoSkill.ID, 3)
	fixtures.RequireSkill(t, fixtures.Engineering.ID, fixtures.SQLSkill.ID, 3)
	approveAssessment(t, assessmentSvc, fixtures.Employee.ID, fixtures.Manager.ID, fixtures.GoSkill.ID, 3, 4)

	payload, err := dashboardSvc.ForActor(fixtures.Employee.ID)
	if err != nil {
		t.Fatalf("Failed to build dashboard: %v", err)
	}

	dashboard, ok := payload.(*models.EmployeeDashboard)
	if !ok {
		t.Fatalf("Expected employee dashboard, got %T", payload)
	}

	if dashboard.Stats.ApprovedCount != 1 {
		t.Errorf("Expected 1 approved assessment, got %d", dashboard.Stats.ApprovedCount)
	}
	// The approval notification shows up
	if len(dashboard.Notifications) == 0 {
		t.Error("Expected at least one notification")
	}
	// SQL is required but unassessed, so it is recommended
	found := false
	for _, rec := range dashboard.RecommendedSkills {
		if rec.Skill.ID == fixtures.SQLSkill.ID {
			found = true
		}
		if rec.Skill.ID == fixtures.GoSkill.ID {
			t.Error("Assessed skill should not be recommended")
		}
	}
	if !found {
		t.Error("Expected unassessed required skill to be recommended")
	}
}

func TestManagerDashboard(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	dashboardSvc := newDashboardService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	colleague := fixtures.CreateUser(t, "colleague", models.RoleEmployee, fixtures.Engineering.ID, &fixtures.Manager.ID)

	// Two pending submissions, the employee's first
	if _, err := assessmentSvc.SubmitSelfAssessment(fixtures.Employee.ID, models.SelfAssessmentInput{
		SkillID: fixtures.GoSkill.ID, SelfScore: 3,
	}); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := assessmentSvc.SubmitSelfAssessment(colleague.ID, models.SelfAssessmentInput{
		SkillID: fixtures.GoSkill.ID, SelfScore: 4,
	}); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	payload, err := dashboardSvc.ForActor(fixtures.Manager.ID)
	if err != nil {
		t.Fatalf("Failed to build dashboard: %v", err)
	}

	dashboard, ok := payload.(*models.ManagerDashboard)
	if !ok {
		t.Fatalf("Expected manager dashboard, got %T", payload)
	}

	if len(dashboard.PendingQueue) != 2 {
		t.Fatalf("Expected 2 pending assessments, got %d", len(dashboard.PendingQueue))
	}
	// Queue drains in arrival order
	if dashboard.PendingQueue[0].UserID != fixtures.Employee.ID {
		t.Errorf("Expected oldest submission first, got user %d", dashboard.PendingQueue[0].UserID)
	}
	if dashboard.Stats.DepartmentID != fixtures.Engineering.ID {
		t.Errorf("Expected stats for department %d, got %d", fixtures.Engineering.ID, dashboard.Stats.DepartmentID)
	}
}

func TestAdminDashboard(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	dashboardSvc := newDashboardService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	approveAssessment(t, assessmentSvc, fixtures.Employee.ID, fixtures.Manager.ID, fixtures.GoSkill.ID, 3, 4)

	payload, err := dashboardSvc.ForActor(fixtures.Admin.ID)
	if err != nil {
		t.Fatalf("Failed to build dashboard: %v", err)
	}

	dashboard, ok := payload.(*models.AdminDashboard)
	if !ok {
		t.Fatalf("Expected admin dashboard, got %T", payload)
	}

	if dashboard.Totals.TotalUsers != 3 {
		t.Errorf("Expected 3 users in totals, got %d", dashboard.Totals.TotalUsers)
	}
	if dashboard.Totals.TotalAssessments != 1 {
		t.Errorf("Expected 1 assessment in totals, got %d", dashboard.Totals.TotalAssessments)
	}
	// One entry per department
	if len(dashboard.DepartmentStats) != 2 {
		t.Errorf("Expected stats for 2 departments, got %d", len(dashboard.DepartmentStats))
	}
	// The company trend covers the configured window with no gaps
	if len(dashboard.ActivityTrend) != 31 {
		t.Errorf("Expected 31 trend points, got %d", len(dashboard.ActivityTrend))
	}
}

package service_test

import (
	"database/sql"
	"errors"
	"testing"

	"skillmatrix/internal/auth"
	"skillmatrix/internal/config"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
	"skillmatrix/internal/testutil"
)

func newUserService(db *sql.DB) *service.UserService {
	return service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewDepartmentRepository(db),
		auth.NewService(&config.JWTConfig{Secret: "test-secret-key-for-testing-only"}),
	)
}

func TestCreateUser(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newUserService(containers.DB)

	created, err := svc.Create(fixtures.Admin.ID, service.CreateUserInput{
		Login:        "newhire",
		Email:        "NewHire@Test.Local",
		Password:     "password123",
		FullName:     "New Hire",
		Role:         models.RoleEmployee,
		DepartmentID: fixtures.Engineering.ID,
		ManagerID:    &fixtures.Manager.ID,
	})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if created.Email != "newhire@test.local" {
		t.Errorf("Expected lowercased email, got %s", created.Email)
	}
	if !created.IsActive {
		t.Error("Expected new user to be active")
	}

	// Only admins and HR may create accounts
	if _, err := svc.Create(fixtures.Manager.ID, service.CreateUserInput{
		Login: "x", Email: "x@test.local", Password: "password123",
		FullName: "X", Role: models.RoleEmployee, DepartmentID: fixtures.Engineering.ID,
	}); !errors.Is(err, service.ErrPermissionDenied) {
		t.Errorf("Expected permission denied for manager, got %v", err)
	}

	// Duplicate login surfaces as a validation failure
	if _, err := svc.Create(fixtures.Admin.ID, service.CreateUserInput{
		Login: "newhire", Email: "other@test.local", Password: "password123",
		FullName: "Other", Role: models.RoleEmployee, DepartmentID: fixtures.Engineering.ID,
	}); !errors.Is(err, service.ErrValidation) {
		t.Errorf("Expected validation error for duplicate login, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newUserService(containers.DB)

	base := service.CreateUserInput{
		Login:        "valid",
		Email:        "valid@test.local",
		Password:     "password123",
		FullName:     "Valid User",
		Role:         models.RoleEmployee,
		DepartmentID: fixtures.Engineering.ID,
	}

	tests := []struct {
		name   string
		mutate func(*service.CreateUserInput)
	}{
		{"empty login", func(in *service.CreateUserInput) { in.Login = "  " }},
		{"bad email", func(in *service.CreateUserInput) { in.Email = "not-an-email" }},
		{"short password", func(in *service.CreateUserInput) { in.Password = "short" }},
		{"empty name", func(in *service.CreateUserInput) { in.FullName = "" }},
		{"unknown role", func(in *service.CreateUserInput) { in.Role = "wizard" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			if _, err := svc.Create(fixtures.Admin.ID, input); !errors.Is(err, service.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateUserManagerCycle(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newUserService(containers.DB)

	// employee reports to manager; pointing manager at employee closes a loop
	_, err := svc.Update(fixtures.Admin.ID, fixtures.Manager.ID, service.UpdateUserInput{
		ManagerID: &fixtures.Employee.ID,
	})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("Expected validation error for manager cycle, got %v", err)
	}

	// Self-management is the shortest cycle
	_, err = svc.Update(fixtures.Admin.ID, fixtures.Manager.ID, service.UpdateUserInput{
		ManagerID: &fixtures.Manager.ID,
	})
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("Expected validation error for self-management, got %v", err)
	}

	// A legitimate reassignment still works
	lead := fixtures.CreateUser(t, "lead", models.RoleManager, fixtures.Engineering.ID, nil)
	updated, err := svc.Update(fixtures.Admin.ID, fixtures.Manager.ID, service.UpdateUserInput{
		ManagerID: &lead.ID,
	})
	if err != nil {
		t.Fatalf("Failed to assign manager: %v", err)
	}
	if updated.ManagerID == nil || *updated.ManagerID != lead.ID {
		t.Errorf("Expected manager %d, got %v", lead.ID, updated.ManagerID)
	}

	// Clearing with zero removes the manager
	updated, err = svc.Update(fixtures.Admin.ID, fixtures.Manager.ID, service.UpdateUserInput{
		ManagerID: new(uint),
	})
	if err != nil {
		t.Fatalf("Failed to clear manager: %v", err)
	}
	if updated.ManagerID != nil {
		t.Errorf("Expected manager cleared, got %v", updated.ManagerID)
	}
}

func TestDeactivateUser(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	userSvc := newUserService(containers.DB)
	assessmentSvc := newAssessmentService(containers.DB)

	// The user's assessments survive deactivation
	if _, err := assessmentSvc.SubmitSelfAssessment(fixtures.Employee.ID, models.SelfAssessmentInput{
		SkillID: fixtures.GoSkill.ID, SelfScore: 3,
	}); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	// Nobody deactivates themselves
	if err := userSvc.Deactivate(fixtures.Admin.ID, fixtures.Admin.ID); !errors.Is(err, service.ErrValidation) {
		t.Errorf("Expected validation error for self-deactivation, got %v", err)
	}

	if err := userSvc.Deactivate(fixtures.Admin.ID, fixtures.Employee.ID); err != nil {
		t.Fatalf("Failed to deactivate: %v", err)
	}

	got, err := userSvc.Get(fixtures.Admin.ID, fixtures.Employee.ID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if got.IsActive {
		t.Error("Expected user to be inactive")
	}
	if got.DeactivatedAt == nil {
		t.Error("Expected deactivation timestamp")
	}

	if n := fixtures.CountRows(t, "assessments", "user_id = $1", fixtures.Employee.ID); n != 1 {
		t.Errorf("Expected assessments to survive deactivation, got %d", n)
	}

	if err := userSvc.Reactivate(fixtures.Admin.ID, fixtures.Employee.ID); err != nil {
		t.Fatalf("Failed to reactivate: %v", err)
	}
	got, err = userSvc.Get(fixtures.Admin.ID, fixtures.Employee.ID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if !got.IsActive {
		t.Error("Expected user to be active again")
	}
}

func TestListUsersScoping(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newUserService(containers.DB)

	fixtures.CreateUser(t, "designer", models.RoleEmployee, fixtures.Design.ID, nil)

	// A manager is pinned to their own department
	users, err := svc.List(fixtures.Manager.ID, repository.UserFilters{DepartmentID: &fixtures.Design.ID})
	if err != nil {
		t.Fatalf("Failed to list as manager: %v", err)
	}
	for _, u := range users {
		if u.DepartmentID != fixtures.Engineering.ID {
			t.Errorf("Manager listing leaked user %d from department %d", u.ID, u.DepartmentID)
		}
	}

	// Employees have no listing at all
	if _, err := svc.List(fixtures.Employee.ID, repository.UserFilters{}); !errors.Is(err, service.ErrPermissionDenied) {
		t.Errorf("Expected permission denied for employee, got %v", err)
	}

	// Elevated roles see every department
	all, err := svc.List(fixtures.Admin.ID, repository.UserFilters{})
	if err != nil {
		t.Fatalf("Failed to list as admin: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 users, got %d", len(all))
	}
}

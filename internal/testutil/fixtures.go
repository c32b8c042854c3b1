package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"skillmatrix/internal/models"
)

// Fixtures holds test data
type Fixtures struct {
	DB          *sql.DB
	Engineering *models.Department
	Design      *models.Department
	Admin       *models.User
	Manager     *models.User
	Employee    *models.User
	Category    *models.SkillCategory
	GoSkill     *models.Skill
	SQLSkill    *models.Skill
}

// SetupFixtures creates a department with a manager, an employee and an
// admin, plus a small skill catalog
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{DB: db}

	f.Engineering = f.CreateDepartment(t, "Engineering", "ENG")
	f.Design = f.CreateDepartment(t, "Design", "DSG")

	f.Admin = f.CreateUser(t, "admin", models.RoleAdmin, f.Engineering.ID, nil)
	f.Manager = f.CreateUser(t, "manager", models.RoleManager, f.Engineering.ID, nil)
	f.Employee = f.CreateUser(t, "employee", models.RoleEmployee, f.Engineering.ID, &f.Manager.ID)

	f.Category = f.CreateCategory(t, "Backend")
	f.GoSkill = f.CreateSkill(t, "Go", f.Category.ID)
	f.SQLSkill = f.CreateSkill(t, "SQL", f.Category.ID)

	return f
}

// CreateDepartment inserts a department
func (f *Fixtures) CreateDepartment(t *testing.T, name, code string) *models.Department {
	t.Helper()

	var dept models.Department
	err := f.DB.QueryRow(`
		INSERT INTO departments (name, code)
		VALUES ($1, $2)
		RETURNING id, name, code, created_at, updated_at
	`, name, code).Scan(&dept.ID, &dept.Name, &dept.Code, &dept.CreatedAt, &dept.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create department %s: %v", name, err)
	}
	return &dept
}

// CreateUser inserts an active user with the password "password123"
func (f *Fixtures) CreateUser(t *testing.T, login string, role models.Role, departmentID uint, managerID *uint) *models.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var user models.User
	err = f.DB.QueryRow(`
		INSERT INTO users (login, email, password_hash, full_name, position, role, department_id, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, login, email, full_name, role, department_id, is_active, created_at, updated_at
	`, login, fmt.Sprintf("%s@test.local", login), string(hashedPassword),
		fmt.Sprintf("Test %s", login), "Tester", role, departmentID, managerID).Scan(
		&user.ID, &user.Login, &user.Email, &user.FullName,
		&user.Role, &user.DepartmentID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", login, err)
	}
	user.ManagerID = managerID
	return &user
}

// CreateCategory inserts a skill category
func (f *Fixtures) CreateCategory(t *testing.T, name string) *models.SkillCategory {
	t.Helper()

	var category models.SkillCategory
	err := f.DB.QueryRow(`
		INSERT INTO skill_categories (name)
		VALUES ($1)
		RETURNING id, name, sort_order, created_at, updated_at
	`, name).Scan(&category.ID, &category.Name, &category.SortOrder, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create category %s: %v", name, err)
	}
	return &category
}

// CreateSkill inserts an active skill
func (f *Fixtures) CreateSkill(t *testing.T, name string, categoryID uint) *models.Skill {
	t.Helper()

	var skill models.Skill
	err := f.DB.QueryRow(`
		INSERT INTO skills (name, category_id)
		VALUES ($1, $2)
		RETURNING id, name, category_id, difficulty_level, is_active, created_at, updated_at
	`, name, categoryID).Scan(
		&skill.ID, &skill.Name, &skill.CategoryID,
		&skill.DifficultyLevel, &skill.IsActive, &skill.CreatedAt, &skill.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create skill %s: %v", name, err)
	}
	return &skill
}

// RequireSkill marks a skill as required for a department
func (f *Fixtures) RequireSkill(t *testing.T, departmentID, skillID uint, minScore int) {
	t.Helper()

	_, err := f.DB.Exec(`
		INSERT INTO required_skills (department_id, skill_id, min_score)
		VALUES ($1, $2, $3)
	`, departmentID, skillID, minScore)
	if err != nil {
		t.Fatalf("Failed to require skill %d for department %d: %v", skillID, departmentID, err)
	}
}

// CountRows returns the number of rows in a table matching the condition
func (f *Fixtures) CountRows(t *testing.T, table, condition string, args ...any) int {
	t.Helper()

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, condition)
	if err := f.DB.QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return count
}

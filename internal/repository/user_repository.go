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
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

const userColumns = `id, login, email, password_hash, full_name, position, role, department_id,
	       manager_id, is_active, last_login_at, created_at, updated_at, deactivated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Login,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Position,
		&user.Role,
		&user.DepartmentID,
		&user.ManagerID,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeactivatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (login, email, password_hash, full_name, position, role, department_id, manager_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		user.Login,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Position,
		user.Role,
		user.DepartmentID,
		user.ManagerID,
		user.IsActive,
		now,
		now,
	).Scan(&user.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByLogin retrieves a user by login
func (r *UserRepository) GetByLogin(login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`

	user, err := scanUser(r.db.QueryRow(query, login))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UserFilters narrows List results
type UserFilters struct {
	DepartmentID *uint
	Roles        []string
	ActiveOnly   bool
	Search       string
}

// List retrieves users matching the filters, ordered by full name
func (r *UserRepository) List(filters UserFilters) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any
	argPos := 1

	if filters.DepartmentID != nil {
		query += fmt.Sprintf(" AND department_id = $%d", argPos)
		args = append(args, *filters.DepartmentID)
		argPos++
	}
	if len(filters.Roles) > 0 {
		query += fmt.Sprintf(" AND role = ANY($%d)", argPos)
		args = append(args, pq.Array(filters.Roles))
		argPos++
	}
	if filters.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND (full_name ILIKE $%d OR login ILIKE $%d OR email ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	query += " ORDER BY full_name"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

// GetAll retrieves every user keyed by ID, for manager-chain walks
func (r *UserRepository) GetAll() (map[uint]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := make(map[uint]*models.User)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}

	return users, rows.Err()
}

// Update updates a user's profile and assignment fields
func (r *UserRepository) Update(user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, full_name = $2, position = $3, role = $4, department_id = $5, manager_id = $6, updated_at = $7
		WHERE id = $8
	`

	now := time.Now()
	result, err := r.db.Exec(
		query,
		user.Email,
		user.FullName,
		user.Position,
		user.Role,
		user.DepartmentID,
		user.ManagerID,
		now,
		user.ID,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	user.UpdatedAt = now
	return nil
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(userID uint, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.Exec(query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(userID uint) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`
	_, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a user. Assessments and history stay in place.
func (r *UserRepository) Deactivate(userID uint) error {
	query := `
		UPDATE users
		SET is_active = FALSE, deactivated_at = $1, updated_at = $1
		WHERE id = $2 AND is_active = TRUE
	`

	result, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Reactivate restores a deactivated user
func (r *UserRepository) Reactivate(userID uint) error {
	query := `
		UPDATE users
		SET is_active = TRUE, deactivated_at = NULL, updated_at = $1
		WHERE id = $2
	`

	result, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to reactivate user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reactivate result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// CountDirectReports returns how many active users report to the manager
func (r *UserRepository) CountDirectReports(managerID uint) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE manager_id = $1 AND is_active = TRUE`, managerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count direct reports: %w", err)
	}
	return count, nil
}

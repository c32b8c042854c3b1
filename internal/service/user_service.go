package service

import (
	"errors"
	"fmt"
	"strings"

	"skillmatrix/internal/auth"
	"skillmatrix/internal/authz"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// CreateUserInput is the enumerated surface of a user creation
type CreateUserInput struct {
	Login        string      `json:"login"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	FullName     string      `json:"full_name"`
	Position     string      `json:"position"`
	Role         models.Role `json:"role"`
	DepartmentID uint        `json:"department_id"`
	ManagerID    *uint       `json:"manager_id,omitempty"`
}

// UpdateUserInput is the enumerated surface of a user update
type UpdateUserInput struct {
	Email        *string      `json:"email,omitempty"`
	FullName     *string      `json:"full_name,omitempty"`
	Position     *string      `json:"position,omitempty"`
	Role         *models.Role `json:"role,omitempty"`
	DepartmentID *uint        `json:"department_id,omitempty"`
	ManagerID    *uint        `json:"manager_id,omitempty"`
}

// UserService handles user administration
type UserService struct {
	userRepo *repository.UserRepository
	deptRepo *repository.DepartmentRepository
	authSvc  *auth.Service
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, deptRepo *repository.DepartmentRepository, authSvc *auth.Service) *UserService {
	return &UserService{userRepo: userRepo, deptRepo: deptRepo, authSvc: authSvc}
}

func validRole(r models.Role) bool {
	switch r {
	case models.RoleEmployee, models.RoleManager, models.RoleAdmin, models.RoleHR, models.RoleDirector:
		return true
	}
	return false
}

// Create registers a new user. Admin only.
func (s *UserService) Create(actorID uint, input CreateUserInput) (*models.User, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleHR {
		return nil, ErrPermissionDenied
	}

	input.Login = strings.TrimSpace(input.Login)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Login == "" {
		return nil, validationErr("login", "is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, validationErr("email", "must be a valid address")
	}
	if len(input.Password) < 8 {
		return nil, validationErr("password", "must be at least 8 characters")
	}
	if input.FullName == "" {
		return nil, validationErr("full_name", "is required")
	}
	if !validRole(input.Role) {
		return nil, validationErr("role", "is not a known role")
	}

	if _, err := s.deptRepo.GetByID(input.DepartmentID); errors.Is(err, repository.ErrDepartmentNotFound) {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, input.DepartmentID)
	} else if err != nil {
		return nil, err
	}

	if input.ManagerID != nil {
		if _, err := s.userRepo.GetByID(*input.ManagerID); errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: manager %d", ErrNotFound, *input.ManagerID)
		} else if err != nil {
			return nil, err
		}
	}

	hash, err := s.authSvc.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Login:        input.Login,
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Position:     input.Position,
		Role:         input.Role,
		DepartmentID: input.DepartmentID,
		ManagerID:    input.ManagerID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, validationErr("login", "login or email already taken")
		}
		return nil, err
	}

	return user, nil
}

// Update changes a user's profile or assignment. Manager reassignment walks
// the manager chain first so no cycle can be written.
func (s *UserService) Update(actorID, userID uint, input UpdateUserInput) (*models.User, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleHR {
		return nil, ErrPermissionDenied
	}

	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, validationErr("email", "must be a valid address")
		}
		user.Email = email
	}
	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, validationErr("full_name", "is required")
		}
		user.FullName = *input.FullName
	}
	if input.Position != nil {
		user.Position = *input.Position
	}
	if input.Role != nil {
		if !validRole(*input.Role) {
			return nil, validationErr("role", "is not a known role")
		}
		user.Role = *input.Role
	}
	if input.DepartmentID != nil {
		if _, err := s.deptRepo.GetByID(*input.DepartmentID); errors.Is(err, repository.ErrDepartmentNotFound) {
			return nil, fmt.Errorf("%w: department %d", ErrNotFound, *input.DepartmentID)
		} else if err != nil {
			return nil, err
		}
		user.DepartmentID = *input.DepartmentID
	}
	if input.ManagerID != nil {
		if *input.ManagerID == 0 {
			user.ManagerID = nil
		} else {
			if _, err := s.userRepo.GetByID(*input.ManagerID); errors.Is(err, repository.ErrUserNotFound) {
				return nil, fmt.Errorf("%w: manager %d", ErrNotFound, *input.ManagerID)
			} else if err != nil {
				return nil, err
			}

			all, err := s.userRepo.GetAll()
			if err != nil {
				return nil, err
			}
			if authz.WouldCreateManagerCycle(all, userID, *input.ManagerID) {
				return nil, validationErr("manager_id", "assignment would create a manager cycle")
			}
			user.ManagerID = input.ManagerID
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, validationErr("email", "already taken")
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, err
	}

	return user, nil
}

// Deactivate soft-deletes a user, keeping assessments and history intact
func (s *UserService) Deactivate(actorID, userID uint) error {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleHR {
		return ErrPermissionDenied
	}
	if actorID == userID {
		return validationErr("user_id", "cannot deactivate yourself")
	}

	if err := s.userRepo.Deactivate(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}
	return nil
}

// Reactivate restores a deactivated user
func (s *UserService) Reactivate(actorID, userID uint) error {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleHR {
		return ErrPermissionDenied
	}

	if err := s.userRepo.Reactivate(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}
	return nil
}

// Get retrieves one user, gated by the view predicate
func (s *UserService) Get(actorID, userID uint) (*models.User, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	if !authz.CanView(actor, user) {
		return nil, ErrPermissionDenied
	}
	return user, nil
}

// List retrieves users scoped to the actor's role: managers see their own
// department, elevated roles see everyone
func (s *UserService) List(actorID uint, filters repository.UserFilters) ([]models.User, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role.IsElevated():
	case actor.Role == models.RoleManager:
		filters.DepartmentID = &actor.DepartmentID
	default:
		return nil, ErrPermissionDenied
	}

	return s.userRepo.List(filters)
}

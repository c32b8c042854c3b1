package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"skillmatrix/internal/auth"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// TokenPair is what a successful login or refresh returns
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	auditRepo   *repository.AuditRepository
	authSvc     *auth.Service
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	auditRepo *repository.AuditRepository,
	authSvc *auth.Service,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		authSvc:     authSvc,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Login authenticates by login or email and issues an access/refresh pair.
// Both tokens are tracked as sessions so logout can revoke them.
func (s *AuthService) Login(loginOrEmail, password, ipAddress, userAgent string) (*TokenPair, error) {
	user, err := s.userRepo.GetByLogin(loginOrEmail)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.userRepo.GetByEmail(loginOrEmail)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		s.audit(&user.ID, "login_failed", "auth", ipAddress, userAgent, "wrong password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	pair, err := s.issueTokens(user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		slog.Error("Failed to update last login", "user_id", user.ID, "error", err)
	}
	s.audit(&user.ID, "login", "auth", ipAddress, userAgent, "")

	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The old refresh
// session is revoked so each refresh token works once.
func (s *AuthService) Refresh(refreshToken, ipAddress, userAgent string) (*TokenPair, error) {
	claims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if session.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := s.sessionRepo.DeleteByJTI(claims.ID); err != nil {
		return nil, err
	}

	return s.issueTokens(user, ipAddress, userAgent)
}

func (s *AuthService) issueTokens(user *models.User, ipAddress, userAgent string) (*TokenPair, error) {
	accessToken, accessJTI, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, refreshJTI, err := s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	sessions := []models.Session{
		{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			JTI:            accessJTI,
			TokenType:      "access",
			ExpiresAt:      now.Add(s.accessTTL),
			LastActivityAt: now,
			CreatedAt:      now,
			IPAddress:      ipAddress,
			UserAgent:      userAgent,
		},
		{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			JTI:            refreshJTI,
			TokenType:      "refresh",
			ExpiresAt:      now.Add(s.refreshTTL),
			LastActivityAt: now,
			CreatedAt:      now,
			IPAddress:      ipAddress,
			UserAgent:      userAgent,
		},
	}
	for i := range sessions {
		if err := s.sessionRepo.Create(&sessions[i]); err != nil {
			return nil, err
		}
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Logout revokes the session behind the presented token's JTI
func (s *AuthService) Logout(jti string, userID uint, ipAddress, userAgent string) error {
	if err := s.sessionRepo.DeleteByJTI(jti); err != nil {
		return err
	}
	s.audit(&userID, "logout", "auth", ipAddress, userAgent, "")
	return nil
}

// LogoutAll revokes every session of the user
func (s *AuthService) LogoutAll(userID uint, ipAddress, userAgent string) error {
	if err := s.sessionRepo.DeleteAllUserSessions(userID); err != nil {
		return err
	}
	s.audit(&userID, "logout_all", "auth", ipAddress, userAgent, "")
	return nil
}

// ChangePassword verifies the current password, replaces the hash and
// revokes all existing sessions
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return validationErr("new_password", "must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return err
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(userID, hash); err != nil {
		return err
	}

	return s.sessionRepo.DeleteAllUserSessions(userID)
}

// CleanupExpiredSessions drops expired session rows
func (s *AuthService) CleanupExpiredSessions() error {
	return s.sessionRepo.DeleteExpiredSessions()
}

func (s *AuthService) audit(userID *uint, action, resource, ipAddress, userAgent, details string) {
	entry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := s.auditRepo.Create(entry); err != nil {
		slog.Error("Failed to write audit entry", "action", action, "error", err)
	}
}

package service_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"skillmatrix/internal/auth"
	"skillmatrix/internal/config"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
	"skillmatrix/internal/testutil"
)

func newAuthService(db *sql.DB) *service.AuthService {
	jwtCfg := &config.JWTConfig{
		Secret:            "test-secret-key-for-testing-only",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	}
	return service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		repository.NewAuditRepository(db),
		auth.NewService(jwtCfg),
		jwtCfg.Expiration,
		jwtCfg.RefreshExpiration,
	)
}

func TestLogin(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newAuthService(containers.DB)

	pair, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Expected both tokens to be issued")
	}
	if pair.User.ID != fixtures.Employee.ID {
		t.Errorf("Expected user %d, got %d", fixtures.Employee.ID, pair.User.ID)
	}

	// Login by email works too
	if _, err := svc.Login("employee@test.local", "password123", "127.0.0.1", "test-agent"); err != nil {
		t.Errorf("Failed to login by email: %v", err)
	}

	// Each login tracks an access and a refresh session
	got := fixtures.CountRows(t, "sessions", "user_id = $1", fixtures.Employee.ID)
	if got != 4 {
		t.Errorf("Expected 4 sessions after two logins, got %d", got)
	}
}

func TestLoginFailures(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newAuthService(containers.DB)

	if _, err := svc.Login("employee", "wrong-password", "127.0.0.1", "test-agent"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("Expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login("nobody", "password123", "127.0.0.1", "test-agent"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("Expected invalid credentials for unknown login, got %v", err)
	}

	// Failed password attempts are audited
	got := fixtures.CountRows(t, "audit_logs", "action = 'login_failed'")
	if got != 1 {
		t.Errorf("Expected 1 login_failed audit entry, got %d", got)
	}

	// Deactivated accounts cannot log in
	if _, err := containers.DB.Exec(
		"UPDATE users SET is_active = FALSE WHERE id = $1", fixtures.Employee.ID,
	); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}
	if _, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent"); !errors.Is(err, service.ErrUserInactive) {
		t.Errorf("Expected inactive user error, got %v", err)
	}
}

func TestRefreshIsSingleUse(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	testutil.SetupFixtures(t, containers.DB)
	svc := newAuthService(containers.DB)

	pair, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	refreshed, err := svc.Refresh(pair.RefreshToken, "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if refreshed.AccessToken == pair.AccessToken {
		t.Error("Expected a fresh access token")
	}

	// The consumed refresh token is dead
	if _, err := svc.Refresh(pair.RefreshToken, "127.0.0.1", "test-agent"); !errors.Is(err, service.ErrInvalidToken) {
		t.Errorf("Expected invalid token on refresh reuse, got %v", err)
	}

	// An access token is not accepted as a refresh token
	if _, err := svc.Refresh(refreshed.AccessToken, "127.0.0.1", "test-agent"); !errors.Is(err, service.ErrInvalidToken) {
		t.Errorf("Expected invalid token for access token, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newAuthService(containers.DB)

	if _, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent"); err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	if err := svc.ChangePassword(fixtures.Employee.ID, "password123", "short"); !errors.Is(err, service.ErrValidation) {
		t.Errorf("Expected validation error for short password, got %v", err)
	}
	if err := svc.ChangePassword(fixtures.Employee.ID, "wrong-current", "new-password-123"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("Expected invalid credentials for wrong current password, got %v", err)
	}

	if err := svc.ChangePassword(fixtures.Employee.ID, "password123", "new-password-123"); err != nil {
		t.Fatalf("Failed to change password: %v", err)
	}

	// All existing sessions are revoked
	got := fixtures.CountRows(t, "sessions", "user_id = $1", fixtures.Employee.ID)
	if got != 0 {
		t.Errorf("Expected 0 sessions after password change, got %d", got)
	}

	// The new password works, the old one does not
	if _, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("Expected old password to be rejected, got %v", err)
	}
	if _, err := svc.Login("employee", "new-password-123", "127.0.0.1", "test-agent"); err != nil {
		t.Errorf("Failed to login with new password: %v", err)
	}
}

func TestLogout(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := newAuthService(containers.DB)

	if _, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent"); err != nil {
		t.Fatalf("Failed to login: %v", err)
	}
	if _, err := svc.Login("employee", "password123", "127.0.0.1", "test-agent"); err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	if err := svc.LogoutAll(fixtures.Employee.ID, "127.0.0.1", "test-agent"); err != nil {
		t.Fatalf("Failed to logout all: %v", err)
	}
	got := fixtures.CountRows(t, "sessions", "user_id = $1", fixtures.Employee.ID)
	if got != 0 {
		t.Errorf("Expected 0 sessions after logout all, got %d", got)
	}
}

package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillmatrix/internal/auth"
	"skillmatrix/internal/config"
	"skillmatrix/internal/middleware"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"
	"skillmatrix/internal/testutil"
)

func newTestJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:            "test-secret-key-for-testing-only",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestLoggedOutTokenIsRejected verifies that a token stops working the
// moment its session is revoked, even though the JWT itself is still valid.
func TestLoggedOutTokenIsRejected(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)

	jwtCfg := newTestJWTConfig()
	authService := auth.NewService(jwtCfg)
	sessionRepo := repository.NewSessionRepository(containers.DB)
	authSvc := service.NewAuthService(
		repository.NewUserRepository(containers.DB),
		sessionRepo,
		repository.NewAuditRepository(containers.DB),
		authService,
		jwtCfg.Expiration,
		jwtCfg.RefreshExpiration,
	)
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	protected := authMw.Authenticate(okHandler())

	pair, err := authSvc.Login("employee", "password123", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	if rec := doRequest(t, protected, pair.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with fresh token, got %d", rec.Code)
	}

	if err := authSvc.LogoutAll(fixtures.Employee.ID, "127.0.0.1", "test-agent"); err != nil {
		t.Fatalf("Failed to logout: %v", err)
	}

	if rec := doRequest(t, protected, pair.AccessToken); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", rec.Code)
	}
}

// TestRefreshTokenIsNotAnAccessToken verifies that the long-lived refresh
// token cannot be used to call protected endpoints directly.
func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	testutil.SetupFixtures(t, containers.DB)

	jwtCfg := newTestJWTConfig()
	authService := auth.NewService(jwtCfg)
	sessionRepo := repository.NewSessionRepository(containers.DB)
	authSvc := service.NewAuthService(
		repository.NewUserRepository(containers.DB),
		sessionRepo,
		repository.NewAuditRepository(containers.DB),
		authService,
		jwtCfg.Expiration,
		jwtCfg.RefreshExpiration,
	)
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	protected := authMw.Authenticate(okHandler())

	pair, err := authSvc.Login("employee", "password123", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	if rec := doRequest(t, protected, pair.RefreshToken); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for refresh token on protected route, got %d", rec.Code)
	}
}

func TestAuthenticateHeaderParsing(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	testutil.SetupFixtures(t, containers.DB)

	authService := auth.NewService(newTestJWTConfig())
	sessionRepo := repository.NewSessionRepository(containers.DB)
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	protected := authMw.Authenticate(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
		})
	}
}

// TestRoleChangeTakesImmediateEffect verifies that role checks read the
// current role, not the one baked into an older token.
func TestRoleChangeTakesImmediateEffect(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)

	jwtCfg := newTestJWTConfig()
	authService := auth.NewService(jwtCfg)
	sessionRepo := repository.NewSessionRepository(containers.DB)
	userRepo := repository.NewUserRepository(containers.DB)
	authSvc := service.NewAuthService(
		userRepo,
		sessionRepo,
		repository.NewAuditRepository(containers.DB),
		authService,
		jwtCfg.Expiration,
		jwtCfg.RefreshExpiration,
	)
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	rbacMw := middleware.NewRBACMiddleware(userRepo)
	adminOnly := authMw.Authenticate(rbacMw.RequireAnyRole(models.RoleAdmin)(okHandler()))

	pair, err := authSvc.Login("employee", "password123", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	if rec := doRequest(t, adminOnly, pair.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for employee on admin route, got %d", rec.Code)
	}

	// Promote without reissuing the token
	if _, err := containers.DB.Exec(
		"UPDATE users SET role = 'admin' WHERE id = $1", fixtures.Employee.ID,
	); err != nil {
		t.Fatalf("Failed to promote user: %v", err)
	}

	if rec := doRequest(t, adminOnly, pair.AccessToken); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 after promotion with the same token, got %d", rec.Code)
	}
}

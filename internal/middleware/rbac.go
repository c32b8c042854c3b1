package middleware

import (
	"net/http"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// RBACMiddleware handles role-based access control. The role comes from the
// users table on every request, so a role change takes effect immediately
// instead of waiting for token expiry.
type RBACMiddleware struct {
	userRepo *repository.UserRepository
}

// NewRBACMiddleware creates a new RBAC middleware
func NewRBACMiddleware(userRepo *repository.UserRepository) *RBACMiddleware {
	return &RBACMiddleware{userRepo: userRepo}
}

// RequireAnyRole checks if the user holds any of the required roles
func (m *RBACMiddleware) RequireAnyRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			user, err := m.userRepo.GetByID(userID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, "Failed to get user")
				return
			}
			if !user.IsActive {
				respondWithError(w, http.StatusForbidden, "Account is deactivated")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondWithError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

// RequireElevated requires an admin, HR or director role
func (m *RBACMiddleware) RequireElevated(next http.Handler) http.Handler {
	return m.RequireAnyRole(models.RoleAdmin, models.RoleHR, models.RoleDirector)(next)
}

// RequireActive only checks that the account behind the token still exists
// and is active
func (m *RBACMiddleware) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		user, err := m.userRepo.GetByID(userID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to get user")
			return
		}
		if !user.IsActive {
			respondWithError(w, http.StatusForbidden, "Account is deactivated")
			return
		}

		next.ServeHTTP(w, r)
	})
}

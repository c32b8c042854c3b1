package middleware

import (
	"net/http"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// AuditMiddleware logs security-related actions
type AuditMiddleware struct {
	auditRepo *repository.AuditRepository
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(auditRepo *repository.AuditRepository) *AuditMiddleware {
	return &AuditMiddleware{auditRepo: auditRepo}
}

// Log records the action after the wrapped handler ran
func (m *AuditMiddleware) Log(action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			var userID *uint
			if id, ok := GetUserID(r); ok {
				userID = &id
			}

			entry := &models.AuditLog{
				UserID:    userID,
				Action:    action,
				Resource:  resource,
				Details:   r.Method + " " + r.URL.Path,
				IPAddress: getIP(r),
				UserAgent: r.UserAgent(),
			}

			// Ignore errors so auditing never blocks the request.
			_ = m.auditRepo.Create(entry)
		})
	}
}

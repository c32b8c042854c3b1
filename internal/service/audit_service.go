package service

import (
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// AuditService handles audit logging
type AuditService struct {
	auditRepo *repository.AuditRepository
	userRepo  *repository.UserRepository
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *repository.AuditRepository, userRepo *repository.UserRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo, userRepo: userRepo}
}

// Log creates an audit log entry, ignoring errors
// This is the recommended way to log audit events as it won't fail the main operation
func (s *AuditService) Log(userID uint, action, resource, details string) {
	_ = s.auditRepo.Create(&models.AuditLog{
		UserID:   &userID,
		Action:   action,
		Resource: resource,
		Details:  details,
	})
}

// List returns audit entries for review. Admin only.
func (s *AuditService) List(actorID uint, filters repository.AuditFilters) ([]models.AuditLog, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrPermissionDenied
	}

	if filters.Limit <= 0 || filters.Limit > 500 {
		filters.Limit = 100
	}
	return s.auditRepo.List(filters)
}

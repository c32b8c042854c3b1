package service

import (
	"errors"
	"fmt"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// NotificationService exposes a user's own notifications. All operations are
// implicitly scoped to the acting user; nobody reads someone else's inbox.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// List returns the actor's notifications, newest first
func (s *NotificationService) List(actorID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.notificationRepo.ListByUser(actorID, unreadOnly, limit)
}

// CountUnread returns the actor's unread count
func (s *NotificationService) CountUnread(actorID uint) (int, error) {
	return s.notificationRepo.CountUnread(actorID)
}

// MarkRead marks one of the actor's notifications read
func (s *NotificationService) MarkRead(actorID, notificationID uint) error {
	err := s.notificationRepo.MarkRead(notificationID, actorID)
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return err
}

// MarkAllRead marks all of the actor's notifications read
func (s *NotificationService) MarkAllRead(actorID uint) error {
	return s.notificationRepo.MarkAllRead(actorID)
}

// Delete removes one of the actor's notifications
func (s *NotificationService) Delete(actorID, notificationID uint) error {
	err := s.notificationRepo.Delete(notificationID, actorID)
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return err
}

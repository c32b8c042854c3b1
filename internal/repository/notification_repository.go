package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillmatrix/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func marshalMetadata(metadata map[string]any) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification metadata: %w", err)
	}
	return raw, nil
}

// CreateTx inserts a notification inside tx, so lifecycle notifications
// commit together with the state change that caused them
func (r *NotificationRepository) CreateTx(tx *sql.Tx, n *models.Notification) error {
	raw, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (user_id, title, message, type, action_url, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	if err := tx.QueryRow(query, n.UserID, n.Title, n.Message, n.Type, n.ActionURL, raw, now).Scan(&n.ID); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.CreatedAt = now
	return nil
}

// Create inserts a standalone notification outside any transaction
func (r *NotificationRepository) Create(n *models.Notification) error {
	raw, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (user_id, title, message, type, action_url, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	if err := r.db.QueryRow(query, n.UserID, n.Title, n.Message, n.Type, n.ActionURL, raw, now).Scan(&n.ID); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.CreatedAt = now
	return nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, is_read, action_url, metadata, created_at, read_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC"

	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var raw []byte
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.IsRead,
			&n.ActionURL,
			&raw,
			&n.CreatedAt,
			&n.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
			}
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnread(userID uint) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read, scoped to its owner
func (r *NotificationRepository) MarkRead(id, userID uint) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $1
		WHERE id = $2 AND user_id = $3 AND is_read = FALSE
	`

	result, err := r.db.Exec(query, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllRead marks all of a user's notifications read
func (r *NotificationRepository) MarkAllRead(userID uint) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $1
		WHERE user_id = $2 AND is_read = FALSE
	`

	_, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification, scoped to its owner
func (r *NotificationRepository) Delete(id, userID uint) error {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

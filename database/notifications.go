package database

import (
	"context"
	"fmt"

	"roadeye/models"
)

// CreateNotification inserts a standalone notification. Lifecycle
// transitions insert theirs inside UpdateReportStatus; this path serves
// out-of-band messages such as admin broadcasts.
func (d *Database) CreateNotification(ctx context.Context, n *models.Notification) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES (?, ?, ?, ?)`,
		n.UserID, n.Title, n.Message, n.Type)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		n.ID = id
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first
func (d *Database) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TrackUpload records an object uploaded to storage before its report row
// exists
func (d *Database) TrackUpload(ctx context.Context, objectKey, userID string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO pending_uploads (object_key, user_id) VALUES (?, ?)`,
		objectKey, userID)
	if err != nil {
		return fmt.Errorf("failed to track upload %s: %w", objectKey, err)
	}
	return nil
}

// MarkUploadsAttached flips the attached flag once the report referencing
// the objects has been inserted
func (d *Database) MarkUploadsAttached(ctx context.Context, objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(objectKeys)), ", ")
	args := make([]interface{}, len(objectKeys))
	for i, k := range objectKeys {
		args[i] = k
	}

	_, err := d.db.ExecContext(ctx,
		"UPDATE pending_uploads SET attached = TRUE WHERE object_key IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to mark uploads attached: %w", err)
	}
	return nil
}

// StaleUploads returns object keys uploaded before the cutoff that were
// never attached to a report
func (d *Database) StaleUploads(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT object_key FROM pending_uploads
		WHERE attached = FALSE AND created_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale uploads: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan upload key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteUpload removes a pending upload row after its object has been swept
func (d *Database) DeleteUpload(ctx context.Context, objectKey string) error {
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM pending_uploads WHERE object_key = ?", objectKey)
	if err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", objectKey, err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"

	"roadeye/models"
)

// GetOrCreateStats fetches a user's stats record, creating one with the
// welcome baseline on first access. The create is keyed by user id and is
// safe under concurrent first access: a losing INSERT is a no-op and the
// subsequent read returns the winner's row.
func (d *Database) GetOrCreateStats(ctx context.Context, userID string) (*models.UserStats, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT IGNORE INTO users_stats (user_id, points, streak, reports_count, badge)
		VALUES (?, ?, ?, 0, ?)`,
		userID, models.WelcomeBonusPoints, models.InitialStreak, models.BadgeNovice)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats for user %s: %w", userID, err)
	}

	return d.GetStats(ctx, userID)
}

// GetStats fetches a user's stats record
func (d *Database) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var s models.UserStats
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, points, streak, reports_count, badge, city, ward, created_at, updated_at
		FROM users_stats WHERE user_id = ?`, userID).
		Scan(&s.UserID, &s.Points, &s.Streak, &s.ReportsCount, &s.Badge,
			&s.City, &s.Ward, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats for user %s: %w", userID, err)
	}
	return &s, nil
}

// AwardReportPoints credits the fixed per-report award and bumps the report
// counter. The increment runs in the database so concurrent submissions by
// the same user cannot lose updates. The badge is recomputed from the new
// total.
func (d *Database) AwardReportPoints(ctx context.Context, userID string) (*models.UserStats, error) {
	if _, err := d.GetOrCreateStats(ctx, userID); err != nil {
		return nil, err
	}

	_, err := d.db.ExecContext(ctx, `
		UPDATE users_stats SET points = points + ?, reports_count = reports_count + 1
		WHERE user_id = ?`,
		models.ReportAwardPoints, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to award points to user %s: %w", userID, err)
	}

	stats, err := d.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	badge := models.BadgeForPoints(stats.Points)
	if badge != stats.Badge {
		if _, err := d.db.ExecContext(ctx,
			"UPDATE users_stats SET badge = ? WHERE user_id = ?", badge, userID); err != nil {
			return nil, fmt.Errorf("failed to update badge for user %s: %w", userID, err)
		}
		stats.Badge = badge
	}

	return stats, nil
}

// UpdateStatsProfile updates the free-form profile fields on a stats record
func (d *Database) UpdateStatsProfile(ctx context.Context, userID, city, ward string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE users_stats SET city = ?, ward = ? WHERE user_id = ?", city, ward, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile for user %s: %w", userID, err)
	}
	return nil
}

// TopScores returns the leaderboard: stats records ordered by points
// descending, capped at limit
func (d *Database) TopScores(ctx context.Context, limit int) ([]models.UserStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, points, streak, reports_count, badge, city, ward, created_at, updated_at
		FROM users_stats ORDER BY points DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	leaders := []models.UserStats{}
	for rows.Next() {
		var s models.UserStats
		if err := rows.Scan(&s.UserID, &s.Points, &s.Streak, &s.ReportsCount, &s.Badge,
			&s.City, &s.Ward, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		leaders = append(leaders, s)
	}
	return leaders, rows.Err()
}

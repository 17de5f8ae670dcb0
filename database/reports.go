package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"roadeye/models"
)

// ErrReportNotFound is returned when a report id does not exist
var ErrReportNotFound = errors.New("report not found")

// ErrInvalidTransition is returned when a lifecycle transition is not
// permitted from the report's current status
var ErrInvalidTransition = errors.New("invalid status transition")

const reportColumns = `id, user_id, issue_type, severity, description, latitude, longitude, address,
		images, status, COALESCE(admin_notes, ''), eta, resolved_at,
		verification_score, ai_validated, COALESCE(ai_reason, ''), created_at, updated_at`

// CreateReport inserts a new report with status Pending
func (d *Database) CreateReport(ctx context.Context, r *models.Report) error {
	images, err := json.Marshal(r.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, issue_type, severity, description,
			latitude, longitude, address, images, status, verification_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.IssueType, r.Severity, r.Description,
		r.Latitude, r.Longitude, r.Address, string(images), string(r.Status), r.VerificationScore)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetReport fetches a single report by id
func (d *Database) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	report, err := scanReport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	return report, nil
}

// ListReports returns all reports, newest first
func (d *Database) ListReports(ctx context.Context) ([]models.Report, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM reports ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// ListReportsByUser returns a user's reports, newest first. limit <= 0 means
// no limit.
func (d *Database) ListReportsByUser(ctx context.Context, userID string, limit int) ([]models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE user_id = ? ORDER BY created_at DESC"
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// ListMapReports returns reports matching the live-map filter: severity in
// the given set, resolved reports excluded unless requested, optionally
// restricted to a viewport.
func (d *Database) ListMapReports(ctx context.Context, q *models.MapQuery) ([]models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports"
	conds := []string{}
	args := []interface{}{}

	if len(q.Severities) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Severities)), ", ")
		conds = append(conds, "severity IN ("+placeholders+")")
		for _, s := range q.Severities {
			args = append(args, s)
		}
	}
	if !q.IncludeResolved {
		conds = append(conds, "status != ?")
		args = append(args, string(models.StatusResolved))
	}
	if q.Viewport != nil {
		conds = append(conds, "latitude BETWEEN ? AND ?", "longitude BETWEEN ? AND ?")
		args = append(args, q.Viewport.LatMin, q.Viewport.LatMax, q.Viewport.LonMin, q.Viewport.LonMax)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query map reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// UpdateReportStatus performs a lifecycle transition: it updates the report's
// status, admin notes and ETA, stamps resolved_at when entering Resolved
// (and clears it otherwise), and inserts exactly one notification addressed
// to the report's owner. The report update and the notification insert
// commit atomically.
func (d *Database) UpdateReportStatus(ctx context.Context, reportID string, target models.Status, adminNotes string, eta *time.Time) (*models.Report, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ? FOR UPDATE", reportID)
	report, err := scanReport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if !report.Status.CanTransition(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, report.Status, target)
	}

	var resolvedAt *time.Time
	if target == models.StatusResolved {
		now := time.Now().UTC()
		resolvedAt = &now
	}

	if eta == nil {
		eta = report.ETA
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reports SET status = ?, admin_notes = ?, eta = ?, resolved_at = ?
		WHERE id = ?`,
		string(target), adminNotes, eta, resolvedAt, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES (?, ?, ?, ?)`,
		report.UserID, target.NotificationTitle(),
		target.NotificationMessage(report.IssueType), models.NotificationTypeStatusUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	report.Status = target
	report.AdminNotes = adminNotes
	report.ETA = eta
	report.ResolvedAt = resolvedAt
	report.UpdatedAt = time.Now().UTC()
	return report, nil
}

// SetVerificationResult annotates a report with the validation gate's output
func (d *Database) SetVerificationResult(ctx context.Context, reportID string, score float64, reason string) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE reports SET verification_score = ?, ai_validated = TRUE, ai_reason = ?
		WHERE id = ?`,
		score, reason, reportID)
	if err != nil {
		return fmt.Errorf("failed to set verification result: %w", err)
	}
	return nil
}

// CountReportsByStatus returns report counts grouped by status
func (d *Database) CountReportsByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM reports GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[models.Status(status)] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	var images string
	var eta, resolvedAt sql.NullTime
	var status string

	err := row.Scan(&r.ID, &r.UserID, &r.IssueType, &r.Severity, &r.Description,
		&r.Latitude, &r.Longitude, &r.Address, &images, &status,
		&r.AdminNotes, &eta, &resolvedAt,
		&r.VerificationScore, &r.AIValidated, &r.AIReason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Status = models.Status(status)
	if err := json.Unmarshal([]byte(images), &r.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images for report %s: %w", r.ID, err)
	}
	if eta.Valid {
		r.ETA = &eta.Time
	}
	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}
	return &r, nil
}

func collectReports(rows *sql.Rows) ([]models.Report, error) {
	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

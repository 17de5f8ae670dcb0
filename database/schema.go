package database

import (
	"fmt"

	"github.com/apex/log"
)

// Schema contains the database schema for the RoadEye service
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(64) PRIMARY KEY,
    email VARCHAR(256) NOT NULL,
    display_name VARCHAR(256) NOT NULL,
    role ENUM('citizen', 'admin') NOT NULL DEFAULT 'citizen',
    password_hash VARCHAR(256) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY unique_email (email)
);

CREATE TABLE IF NOT EXISTS auth_tokens (
    id INT AUTO_INCREMENT PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    token_hash VARCHAR(256) NOT NULL,
    token_type ENUM('access', 'refresh') DEFAULT 'access',
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    INDEX idx_user_token_type (user_id, token_type)
);

CREATE TABLE IF NOT EXISTS reports (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    issue_type VARCHAR(64) NOT NULL,
    severity ENUM('Low', 'Medium', 'High') NOT NULL,
    description TEXT,
    latitude DOUBLE NOT NULL,
    longitude DOUBLE NOT NULL,
    address VARCHAR(512) NOT NULL DEFAULT '',
    images JSON NOT NULL,
    status ENUM('Pending', 'Approved', 'In Progress', 'Resolved', 'Rejected') NOT NULL DEFAULT 'Pending',
    admin_notes TEXT,
    eta DATE NULL,
    resolved_at TIMESTAMP NULL,
    verification_score DOUBLE NOT NULL DEFAULT 0.85,
    ai_validated BOOLEAN NOT NULL DEFAULT FALSE,
    ai_reason TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_user_created (user_id, created_at),
    INDEX idx_status (status),
    INDEX idx_severity_status (severity, status),
    INDEX idx_latlng (latitude, longitude)
);

CREATE TABLE IF NOT EXISTS users_stats (
    user_id VARCHAR(64) PRIMARY KEY,
    points INT NOT NULL DEFAULT 0,
    streak INT NOT NULL DEFAULT 0,
    reports_count INT NOT NULL DEFAULT 0,
    badge VARCHAR(64) NOT NULL DEFAULT 'Novice',
    city VARCHAR(128) NOT NULL DEFAULT '',
    ward VARCHAR(128) NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_points (points DESC)
);

CREATE TABLE IF NOT EXISTS notifications (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    title VARCHAR(256) NOT NULL,
    message TEXT NOT NULL,
    type VARCHAR(64) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_user_created (user_id, created_at)
);

CREATE TABLE IF NOT EXISTS pending_uploads (
    object_key VARCHAR(512) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    attached BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_attached_created (attached, created_at)
);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      string
}

// Migrations list all database migrations
var Migrations = []Migration{}

// InitializeSchema creates the database schema and runs migrations
func (d *Database) InitializeSchema() error {
	if _, err := d.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := d.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// runMigrations applies all pending database migrations
func (d *Database) runMigrations() error {
	rows, err := d.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, migration := range Migrations {
		if applied[migration.Version] {
			continue
		}
		log.Infof("Applying migration %d: %s", migration.Version, migration.Name)

		if _, err := d.db.Exec(migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		if _, err := d.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

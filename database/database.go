package database

import (
	"database/sql"
	"fmt"
	"time"

	"roadeye/config"

	_ "github.com/go-sql-driver/mysql"
)

// Database wraps the MySQL connection and all persistence operations
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection from the configuration
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// NewDatabaseFromConn wraps an existing connection; used by tests
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

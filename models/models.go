package models

import (
	"fmt"
	"time"
)

// Issue types a citizen can report
const (
	IssuePothole      = "Pothole"
	IssueBrokenRoad   = "Broken Road"
	IssueWaterlogging = "Waterlogging"
	IssueOpenManhole  = "Open Manhole"
	IssueAccidentZone = "Accident Prone"
)

// Severity levels
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// ValidIssueType reports whether t is one of the supported issue types
func ValidIssueType(t string) bool {
	switch t {
	case IssuePothole, IssueBrokenRoad, IssueWaterlogging, IssueOpenManhole, IssueAccidentZone:
		return true
	}
	return false
}

// ValidSeverity reports whether s is one of the supported severities
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Report is a citizen-submitted road damage record
type Report struct {
	ID                string     `json:"id" db:"id"`
	UserID            string     `json:"user_id" db:"user_id"`
	IssueType         string     `json:"issue_type" db:"issue_type"`
	Severity          string     `json:"severity" db:"severity"`
	Description       string     `json:"description" db:"description"`
	Latitude          float64    `json:"latitude" db:"latitude"`
	Longitude         float64    `json:"longitude" db:"longitude"`
	Address           string     `json:"address" db:"address"`
	Images            []string   `json:"images" db:"images"`
	Status            Status     `json:"status" db:"status"`
	AdminNotes        string     `json:"admin_notes,omitempty" db:"admin_notes"`
	ETA               *time.Time `json:"eta,omitempty" db:"eta"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	VerificationScore float64    `json:"verification_score" db:"verification_score"`
	AIValidated       bool       `json:"ai_validated" db:"ai_validated"`
	AIReason          string     `json:"ai_reason,omitempty" db:"ai_reason"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// UserStats is the per-user reputation record
type UserStats struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Points       int       `json:"points" db:"points"`
	Streak       int       `json:"streak" db:"streak"`
	ReportsCount int       `json:"reports_count" db:"reports_count"`
	Badge        string    `json:"badge" db:"badge"`
	City         string    `json:"city,omitempty" db:"city"`
	Ward         string    `json:"ward,omitempty" db:"ward"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Reputation constants
const (
	WelcomeBonusPoints = 100
	ReportAwardPoints  = 10
	InitialStreak      = 1
)

// Badge levels derived from points
const (
	BadgeNovice   = "Novice"
	BadgeScout    = "Scout"
	BadgeGuardian = "Guardian"
	BadgeChampion = "Champion"
)

// BadgeForPoints derives the badge label for a point total
func BadgeForPoints(points int) string {
	switch {
	case points >= 1000:
		return BadgeChampion
	case points >= 500:
		return BadgeGuardian
	case points >= 250:
		return BadgeScout
	}
	return BadgeNovice
}

// Notification is an in-app message addressed to a single user
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Notification types
const (
	// NotificationTypeStatusUpdate tags notifications emitted by lifecycle transitions
	NotificationTypeStatusUpdate = "status_update"
	// NotificationTypeAnnouncement tags out-of-band messages sent by admins
	NotificationTypeAnnouncement = "announcement"
)

// User is an authenticated account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         string    `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// User roles
const (
	RoleCitizen = "citizen"
	RoleAdmin   = "admin"
)

// SignupRequest is the payload for account creation
type SignupRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// LoginRequest is the payload for email/password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the payload for refreshing a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse carries a freshly minted token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// SendNotificationRequest is the admin out-of-band notification payload
type SendNotificationRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// UpdateStatusRequest is the admin transition payload
type UpdateStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
	ETA        string `json:"eta"` // YYYY-MM-DD, optional
}

// MapQuery filters the live map listing
type MapQuery struct {
	Severities      []string
	IncludeResolved bool
	Viewport        *Viewport
}

// Viewport is a lat/lng bounding box
type Viewport struct {
	LatMin float64 `form:"latmin" json:"latmin"`
	LonMin float64 `form:"lonmin" json:"lonmin"`
	LatMax float64 `form:"latmax" json:"latmax"`
	LonMax float64 `form:"lonmax" json:"lonmax"`
}

// Validate checks the viewport is a well-formed box
func (v *Viewport) Validate() error {
	if v.LatMin > v.LatMax || v.LonMin > v.LonMax {
		return fmt.Errorf("malformed viewport: (%f,%f)-(%f,%f)", v.LatMin, v.LonMin, v.LatMax, v.LonMax)
	}
	return nil
}

// MapPoint is one live-map marker: either a single report or an aggregated
// cluster of Count reports pinned at the centroid
type MapPoint struct {
	ReportID  string  `json:"report_id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IssueType string  `json:"issue_type,omitempty"`
	Severity  string  `json:"severity,omitempty"`
	Status    Status  `json:"status,omitempty"`
	Count     int64   `json:"count,omitempty"`
}

// ReportEvent is published to RabbitMQ and broadcast to websocket clients on
// report submission and lifecycle transitions
type ReportEvent struct {
	Event     string    `json:"event"` // "submitted" or "status_changed"
	ReportID  string    `json:"report_id"`
	UserID    string    `json:"user_id"`
	IssueType string    `json:"issue_type"`
	Severity  string    `json:"severity"`
	Status    Status    `json:"status"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp"`
	ConnectedClients int    `json:"connected_clients"`
}

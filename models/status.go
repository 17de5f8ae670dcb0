package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a report
type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// ParseStatus parses a status string, case-insensitively
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "in progress", "in_progress":
		return StatusInProgress, nil
	case "resolved":
		return StatusResolved, nil
	case "rejected":
		return StatusRejected, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsTerminal reports whether a status accepts no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// CanTransition reports whether a report in status s may move to target.
// Resolved is reachable from any non-terminal state; the remaining edges
// follow the review graph: Pending -> Approved | Rejected,
// Pending | Approved -> In Progress.
func (s Status) CanTransition(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	switch target {
	case StatusResolved:
		return true
	case StatusInProgress:
		return s == StatusPending || s == StatusApproved
	case StatusApproved, StatusRejected:
		return s == StatusPending
	}
	return false
}

// NotificationTitle is the title of the notification emitted when a report
// enters status s
func (s Status) NotificationTitle() string {
	return fmt.Sprintf("Report %s", s)
}

// NotificationMessage is the message body of the notification emitted when a
// report of the given issue type enters status s
func (s Status) NotificationMessage(issueType string) string {
	return fmt.Sprintf("Your report for %s has been %s.", issueType, strings.ToLower(string(s)))
}

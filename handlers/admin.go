package handlers

import (
	"errors"
	"net/http"
	"time"

	"roadeye/database"
	"roadeye/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// ListAllReports returns every report, newest first, with status counts
// for the admin console header
func (h *Handlers) ListAllReports(c *gin.Context) {
	reports, err := h.db.ListReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list reports for admin: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}

	counts, err := h.db.CountReportsByStatus(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to count reports by status: %v", err)
		counts = map[models.Status]int{}
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"counts":  counts,
	})
}

// UpdateStatus performs one lifecycle transition on a report: it stores the
// operator's notes and optional ETA, stamps resolved_at when resolving, and
// notifies the report's owner.
func (h *Handlers) UpdateStatus(c *gin.Context) {
	reportID := c.Param("id")

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := models.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if target == models.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot transition a report back to Pending"})
		return
	}

	var eta *time.Time
	if req.ETA != "" {
		parsed, err := time.Parse("2006-01-02", req.ETA)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid eta, expected YYYY-MM-DD"})
			return
		}
		eta = &parsed
	}

	report, err := h.db.UpdateReportStatus(c.Request.Context(), reportID, target, req.AdminNotes, eta)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		case errors.Is(err, database.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			log.Errorf("Failed to update status of report %s: %v", reportID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update report status"})
		}
		return
	}

	h.publishEvent(models.ReportEvent{
		Event:     "status_changed",
		ReportID:  report.ID,
		UserID:    report.UserID,
		IssueType: report.IssueType,
		Severity:  report.Severity,
		Status:    report.Status,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		Timestamp: time.Now().UTC(),
	})

	c.JSON(http.StatusOK, report)
}

// SendNotification delivers an out-of-band message to a single user, outside
// the lifecycle notifications that transitions emit on their own
func (h *Handlers) SendNotification(c *gin.Context) {
	var req models.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification := &models.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    models.NotificationTypeAnnouncement,
	}
	if err := h.db.CreateNotification(c.Request.Context(), notification); err != nil {
		log.Errorf("Failed to send notification to user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send notification"})
		return
	}

	c.JSON(http.StatusCreated, notification)
}

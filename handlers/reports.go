package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"roadeye/database"
	"roadeye/models"
	"roadeye/storage"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// defaultVerificationScore is attached at creation, before the async
// validation gate has run
const defaultVerificationScore = 0.85

// SubmitReport accepts a multipart submission: 1-5 images plus the issue
// fields. Images are uploaded to object storage concurrently; any upload
// failure fails the whole submission (already-uploaded objects stay behind
// as tracked orphans for the sweeper). The report row is then inserted, the
// points award runs best-effort, and the validation gate annotates the
// report asynchronously.
func (h *Handlers) SubmitReport(c *gin.Context) {
	userID := c.GetString("user_id")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	issueType := c.PostForm("issue_type")
	severity := c.PostForm("severity")
	if !models.ValidIssueType(issueType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown issue type %q", issueType)})
		return
	}
	if !models.ValidSeverity(severity) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown severity %q", severity)})
		return
	}

	latitude, err := strconv.ParseFloat(c.PostForm("latitude"), 64)
	if err != nil || latitude < -90 || latitude > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return
	}
	longitude, err := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if err != nil || longitude < -180 || longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return
	}

	address := c.PostForm("address")
	if address == "" {
		address = fmt.Sprintf("Lat: %.4f, Lng: %.4f", latitude, longitude)
	}

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}
	if len(files) > h.cfg.MaxImagesPerReport {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("maximum %d images allowed", h.cfg.MaxImagesPerReport)})
		return
	}
	for _, f := range files {
		if f.Size > h.cfg.MaxImageSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image %s exceeds the size limit", f.Filename)})
			return
		}
	}

	imageURLs, objectKeys, err := h.uploadImages(c.Request.Context(), userID, files)
	if err != nil {
		log.Errorf("Image upload failed for user %s: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to upload images"})
		return
	}

	report := &models.Report{
		ID:                uuid.New().String(),
		UserID:            userID,
		IssueType:         issueType,
		Severity:          severity,
		Description:       c.PostForm("description"),
		Latitude:          latitude,
		Longitude:         longitude,
		Address:           address,
		Images:            imageURLs,
		Status:            models.StatusPending,
		VerificationScore: defaultVerificationScore,
	}

	if err := h.db.CreateReport(c.Request.Context(), report); err != nil {
		log.Errorf("Failed to save report for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save the report"})
		return
	}

	if err := h.db.MarkUploadsAttached(c.Request.Context(), objectKeys); err != nil {
		log.Warnf("Failed to mark uploads attached for report %s: %v", report.ID, err)
	}

	// Best-effort follow-up: the report stands even if the award fails.
	stats, err := h.db.AwardReportPoints(c.Request.Context(), userID)
	if err != nil {
		log.Errorf("Points award lost for user %s after report %s: %v", userID, report.ID, err)
	}

	go h.validateReport(report.ID, imageURLs[0])

	h.publishEvent(models.ReportEvent{
		Event:     "submitted",
		ReportID:  report.ID,
		UserID:    report.UserID,
		IssueType: report.IssueType,
		Severity:  report.Severity,
		Status:    report.Status,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		Timestamp: time.Now().UTC(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"report": report,
		"stats":  stats,
	})
}

// uploadImages fans the uploads out concurrently and waits for all of them.
// Ordering of the returned URLs matches the submitted file order. There is
// no rollback: on partial failure the uploaded objects remain tracked in
// pending_uploads until the sweeper collects them.
func (h *Handlers) uploadImages(ctx context.Context, userID string, files []*multipart.FileHeader) ([]string, []string, error) {
	urls := make([]string, len(files))
	keys := make([]string, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()

			f, err := fh.Open()
			if err != nil {
				errs[i] = fmt.Errorf("failed to open %s: %w", fh.Filename, err)
				return
			}
			defer f.Close()

			key := storage.ObjectKey(fh.Filename)
			contentType := fh.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "image/jpeg"
			}

			url, err := h.storage.Upload(ctx, key, f, fh.Size, contentType)
			if err != nil {
				errs[i] = err
				return
			}

			if err := h.db.TrackUpload(ctx, key, userID); err != nil {
				log.Warnf("Failed to track upload %s: %v", key, err)
			}

			urls[i] = url
			keys[i] = key
		}(i, fh)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return urls, keys, nil
}

// validateReport runs the validation gate on the report's first image and
// annotates the row with the verdict
func (h *Handlers) validateReport(reportID, imageURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result := h.validator.Validate(ctx, imageURL)

	if err := h.db.SetVerificationResult(ctx, reportID, result.Score, result.Reason); err != nil {
		log.Errorf("Failed to store validation result for report %s: %v", reportID, err)
		return
	}
	log.Infof("Report %s validated: valid=%t score=%.2f", reportID, result.IsValid, result.Score)
}

// ListMyReports returns the caller's reports, newest first
func (h *Handlers) ListMyReports(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	reports, err := h.db.ListReportsByUser(c.Request.Context(), c.GetString("user_id"), limit)
	if err != nil {
		log.Errorf("Failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport returns a single report; citizens can only read their own
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.db.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == database.ErrReportNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		log.Errorf("Failed to get report %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}

	role := c.GetString("role")
	if role != models.RoleAdmin && report.UserID != c.GetString("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

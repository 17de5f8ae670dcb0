package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"roadeye/mapaggr"
	"roadeye/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// MapReports serves the live map: reports filtered by severity set and
// resolved visibility, optionally restricted to a viewport. When a viewport
// is given, dense areas are aggregated into counted S2 cell pins.
func (h *Handlers) MapReports(c *gin.Context) {
	query := &models.MapQuery{}

	if raw := c.Query("severities"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if !models.ValidSeverity(s) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity " + s})
				return
			}
			query.Severities = append(query.Severities, s)
		}
	}
	query.IncludeResolved, _ = strconv.ParseBool(c.DefaultQuery("include_resolved", "false"))

	if c.Query("latmin") != "" {
		var vp models.Viewport
		if err := c.ShouldBindQuery(&vp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport"})
			return
		}
		if err := vp.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		query.Viewport = &vp
	}

	reports, err := h.db.ListMapReports(c.Request.Context(), query)
	if err != nil {
		log.Errorf("Failed to query map reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query map"})
		return
	}

	points := make([]models.MapPoint, 0, len(reports))
	for _, r := range reports {
		points = append(points, models.MapPoint{
			ReportID:  r.ID,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			IssueType: r.IssueType,
			Severity:  r.Severity,
			Status:    r.Status,
		})
	}

	if query.Viewport != nil {
		aggr := mapaggr.NewAggregator(query.Viewport)
		for _, p := range points {
			aggr.AddPoint(p)
		}
		points = aggr.ToArray()
	}

	c.JSON(http.StatusOK, gin.H{"points": points})
}

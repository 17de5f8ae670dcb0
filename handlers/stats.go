package handlers

import (
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// MyStats returns the caller's reputation record, creating it with the
// welcome bonus on first access
func (h *Handlers) MyStats(c *gin.Context) {
	stats, err := h.db.GetOrCreateStats(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		log.Errorf("Failed to get stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateMyProfile updates the caller's city and ward
func (h *Handlers) UpdateMyProfile(c *gin.Context) {
	var req struct {
		City string `json:"city"`
		Ward string `json:"ward"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	if _, err := h.db.GetOrCreateStats(c.Request.Context(), userID); err != nil {
		log.Errorf("Failed to init stats for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	if err := h.db.UpdateStatsProfile(c.Request.Context(), userID, req.City, req.Ward); err != nil {
		log.Errorf("Failed to update profile for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	stats, err := h.db.GetStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Leaderboard returns the top point earners
func (h *Handlers) Leaderboard(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	leaders, err := h.db.TopScores(c.Request.Context(), limit)
	if err != nil {
		log.Errorf("Failed to get top scores: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaders": leaders})
}

// Notifications returns the caller's notifications, newest first
func (h *Handlers) Notifications(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifications, err := h.db.ListNotifications(c.Request.Context(), c.GetString("user_id"), limit)
	if err != nil {
		log.Errorf("Failed to list notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

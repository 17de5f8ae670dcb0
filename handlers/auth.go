package handlers

import (
	"net/http"

	"roadeye/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Signup creates a new citizen account and returns a token pair
func (h *Handlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		log.Errorf("Signup failed for %s: %v", req.Email, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	access, refresh, err := h.auth.GenerateTokenPair(c.Request.Context(), user.ID, user.Role)
	if err != nil {
		log.Errorf("Failed to generate tokens for new user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate tokens"})
		return
	}

	c.JSON(http.StatusCreated, models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	})
}

// Login authenticates with email/password and returns a token pair
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, access, refresh, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	})
}

// Refresh exchanges a refresh token for a new token pair
func (h *Handlers) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, role, err := h.auth.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	if err := h.auth.InvalidateToken(c.Request.Context(), userID, req.RefreshToken); err != nil {
		log.Warnf("Failed to invalidate used refresh token for user %s: %v", userID, err)
	}

	access, refresh, err := h.auth.GenerateTokenPair(c.Request.Context(), userID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// Logout invalidates the caller's current access token
func (h *Handlers) Logout(c *gin.Context) {
	userID := c.GetString("user_id")
	token := c.GetString("token")

	if err := h.auth.InvalidateToken(c.Request.Context(), userID, token); err != nil {
		log.Errorf("Logout failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's account
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

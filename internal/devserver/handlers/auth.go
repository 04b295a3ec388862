package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clubhub/client/internal/devserver/repository"
	"clubhub/client/internal/devserver/service"
	"clubhub/client/internal/models"
)

func (h HandlerSet) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	userID, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Major:    req.Major,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken", "message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "signup_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, models.SignupResponse{
		UserID:  userID,
		Message: "verification code sent",
	})
}

func (h HandlerSet) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), req.Code, req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_code", "message": err.Error()})
		return
	}

	sendLoginResponse(c, result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotVerified):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_verified", "message": err.Error()})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		}
		return
	}

	sendLoginResponse(c, result)
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_refresh_token", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.RefreshResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h HandlerSet) RevokeUser(c *gin.Context) {
	n := h.authService.RevokeUser(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

func sendLoginResponse(c *gin.Context, result service.AuthResult) {
	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ID:           result.User.ID,
		Email:        result.User.Email,
		Major:        result.User.Major,
		CreatedAt:    result.User.CreatedAt.Format(time.RFC3339),
	})
}

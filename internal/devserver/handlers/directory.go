package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubhub/client/internal/devserver/middleware"
	"clubhub/client/internal/models"
)

// Admins see inactive clubs and events too.
func isAdmin(c *gin.Context) bool {
	user, ok := middleware.CurrentUser(c)
	return ok && user.Role == models.UserRoleAdmin
}

func (h HandlerSet) ListClubs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"clubs": h.directory.ListClubs(c.Request.Context(), isAdmin(c)),
	})
}

func (h HandlerSet) GetClub(c *gin.Context) {
	club, err := h.directory.GetClub(c.Request.Context(), c.Param("id"), isAdmin(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "club_not_found"})
		return
	}
	c.JSON(http.StatusOK, club)
}

func (h HandlerSet) ListEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"events": h.directory.ListEvents(c.Request.Context(), isAdmin(c)),
	})
}

func (h HandlerSet) GetEvent(c *gin.Context) {
	event, err := h.directory.GetEvent(c.Request.Context(), c.Param("id"), isAdmin(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event_not_found"})
		return
	}
	c.JSON(http.StatusOK, event)
}

type activeRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h HandlerSet) SetClubActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	club, err := h.directory.SetClubActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "club_not_found"})
		return
	}

	h.log.Info().Str("club_id", club.ID).Bool("active", club.IsActive).Msg("club activation changed")
	c.JSON(http.StatusOK, club)
}

func (h HandlerSet) SetEventActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	event, err := h.directory.SetEventActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event_not_found"})
		return
	}

	h.log.Info().Str("event_id", event.ID).Bool("active", event.IsActive).Msg("event activation changed")
	c.JSON(http.StatusOK, event)
}

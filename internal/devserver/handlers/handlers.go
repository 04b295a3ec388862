package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clubhub/client/internal/config"
	"clubhub/client/internal/devserver/middleware"
	"clubhub/client/internal/devserver/repository"
	"clubhub/client/internal/devserver/service"
	"clubhub/client/internal/models"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	users       *repository.UserRepository
	directory   *repository.DirectoryRepository
	startedAt   time.Time
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	authService *service.AuthService,
	users *repository.UserRepository,
	directory *repository.DirectoryRepository,
) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: authService,
		users:       users,
		directory:   directory,
		startedAt:   time.Now(),
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/verify", h.Verify)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}

	requireUser := middleware.Auth(h.cfg.DevServer.JWTSecret, h.users)

	directory := router.Group("")
	directory.Use(requireUser)
	{
		directory.GET("/clubs", h.ListClubs)
		directory.GET("/clubs/:id", h.GetClub)
		directory.GET("/events", h.ListEvents)
		directory.GET("/events/:id", h.GetEvent)
	}

	admin := router.Group("/admin")
	admin.Use(
		requireUser,
		middleware.RequireRoles(models.UserRoleAdmin),
	)
	{
		admin.PATCH("/clubs/:id/active", h.SetClubActive)
		admin.PATCH("/events/:id/active", h.SetEventActive)
		admin.POST("/users/:id/revoke", h.RevokeUser)
	}
}

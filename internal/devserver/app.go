// Package devserver is an in-memory stand-in for the directory API: the
// four auth endpoints plus clubs and events behind bearer auth.
package devserver

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"clubhub/client/internal/config"
	"clubhub/client/internal/devserver/handlers"
	"clubhub/client/internal/devserver/jobs"
	"clubhub/client/internal/devserver/repository"
	"clubhub/client/internal/devserver/server"
	"clubhub/client/internal/devserver/service"
	"clubhub/client/internal/metrics"
	"clubhub/client/internal/models"
)

type App struct {
	HTTP      *server.HTTPServer
	Scheduler *jobs.Scheduler
	Auth      *service.AuthService

	codes *repository.CodeRepository
}

func New(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger, reg *prometheus.Registry) (*App, error) {
	users := repository.NewUserRepository()
	sessions := repository.NewSessionRepository()
	codes := repository.NewCodeRepository()
	directory := repository.NewDirectoryRepository()

	auth := service.NewAuthService(users, sessions, codes, cfg.DevServer, log)

	if cfg.DevServer.SeedAdminEmail != "" {
		if err := auth.SeedAccount(ctx, cfg.DevServer.SeedAdminEmail, cfg.DevServer.SeedAdminPass, models.UserRoleAdmin); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}
	if err := service.SeedDirectory(ctx, directory, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("seed directory: %w", err)
	}

	var (
		httpMetrics *metrics.HTTP
		gatherer    prometheus.Gatherer
	)
	if reg != nil {
		httpMetrics = metrics.NewHTTP(reg)
		gatherer = reg
	}

	handlerSet := handlers.NewHandlerSet(log, cfg, auth, users, directory)

	return &App{
		HTTP:      server.NewHTTPServer(cfg, log, handlerSet, gatherer, httpMetrics),
		Scheduler: jobs.NewScheduler(cfg.DevServer.CleanupSchedule, codes, sessions, log),
		Auth:      auth,
		codes:     codes,
	}, nil
}

// VerificationCode returns the outstanding code of a signed-up user.
func (a *App) VerificationCode(userID string) (string, bool) {
	code, ok := a.codes.Peek(context.Background(), userID)
	return code.Code, ok
}

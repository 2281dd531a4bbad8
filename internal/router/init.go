package router

import (
	"github.com/haydnphilipdesign/coversheet-service/internal/container"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/repository"
	pginfra "github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/postgres"
	handlers "github.com/haydnphilipdesign/coversheet-service/internal/interface/http"
	"github.com/haydnphilipdesign/coversheet-service/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()

	var logs repository.GenerationLogRepository
	if pool := container.GetPGPool(); pool != nil {
		logs = pginfra.NewGenerationLogRepository(pool)
	}

	coversheetHandler := handlers.NewCoversheetHandler(
		container.GetCoversheet(),
		container.GetRabbitPub(),
		logs,
		container.GetLogger(),
	)
	authHandler := handlers.NewAuthHandler(
		container.GetRedis(),
		container.GetLogger(),
		cfg,
		container.GetJWT(),
	)

	r.Add(modules.NewCoversheetModule(coversheetHandler, container.GetJWT()))
	r.Add(modules.NewAuthModule(authHandler, container.GetJWT()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}

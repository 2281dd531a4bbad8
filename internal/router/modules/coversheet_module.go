package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haydnphilipdesign/coversheet-service/internal/container"
	handlers "github.com/haydnphilipdesign/coversheet-service/internal/interface/http"
	"github.com/haydnphilipdesign/coversheet-service/internal/interface/middleware"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
)

type CoversheetModule struct {
	Handler *handlers.CoversheetHandler
	JWT     *helpers.JWTManager
}

func NewCoversheetModule(h *handlers.CoversheetHandler, jwt *helpers.JWTManager) *CoversheetModule {
	return &CoversheetModule{Handler: h, JWT: jwt}
}

func (m *CoversheetModule) Register(rg *gin.RouterGroup) {
	// Rendering holds a browser for seconds at a time, so generation gets a
	// tighter per-IP budget than the read endpoints.
	generateLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	readLimiter := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	rg.POST("/coversheet/generate", generateLimiter, m.Handler.Generate)
	rg.POST("/coversheet/enqueue", generateLimiter, m.Handler.Enqueue)

	// Audit trail requires an operator session
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	{
		auth.GET("/coversheet/logs", readLimiter, m.Handler.ListLogs)
		auth.GET("/coversheet/logs/:id", readLimiter, m.Handler.GetLog)
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/haydnphilipdesign/coversheet-service/config"
	"github.com/haydnphilipdesign/coversheet-service/internal/application"
	"github.com/haydnphilipdesign/coversheet-service/internal/container"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/repository"
	"github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/airtable"
	pginfra "github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/postgres"
	"github.com/haydnphilipdesign/coversheet-service/internal/interface/middleware"
	"github.com/haydnphilipdesign/coversheet-service/internal/router"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
	"github.com/haydnphilipdesign/coversheet-service/pkg/mailer"
	"github.com/haydnphilipdesign/coversheet-service/pkg/pdf"
	"github.com/haydnphilipdesign/coversheet-service/pkg/response"
	"github.com/haydnphilipdesign/coversheet-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	warnings, err := cfg.Validate()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	ctx := context.Background()

	// Initialize Postgres pool
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	// Run migrations using database/sql with pgx stdlib
	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil && !errors.Is(migrate.ErrNoChange, err) {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// JWT
	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Object storage for rendered documents; optional in local setups
	var uploader application.ObjectUploader
	if cfg.GCSBucket != "" {
		gcsClient, gerr := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if gerr != nil {
			log.Fatalf("failed to init GCS client: %v", gerr)
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetGCS(gcsClient)
		uploader = helpers.NewGCSUploader(gcsClient, cfg.GCSBucket)
	}

	// RabbitMQ publisher for the enqueue endpoint; optional
	rabbitPub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQGenerateQueue)
	if err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable; /coversheet/enqueue disabled")
		rabbitPub = nil
	} else {
		defer rabbitPub.Close()
	}

	dispatcher := buildDispatcher(cfg, logger)
	var emailDispatch application.EmailDispatcher
	if dispatcher != nil {
		emailDispatch = dispatcher
	}

	var fetcher application.RecordFetcher
	if cfg.AirtableAPIKey != "" && cfg.AirtableBaseID != "" {
		fetcher = airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID)
	}

	renderer := pdf.NewChromeRenderer(pdf.Config{
		SettleTimeout: cfg.RenderTimeout,
		BrowserBin:    cfg.ChromeBin,
		NoSandbox:     cfg.Env != "development",
	})

	var logs repository.GenerationLogRepository = pginfra.NewGenerationLogRepository(pool)

	svc := application.NewService(
		fetcher,
		renderer,
		emailDispatch,
		uploader,
		helpers.NewRedisDedupeStore(rdb),
		logs,
		logger,
		application.Options{
			TemplatesDir:   cfg.TemplatesDir,
			OutputDir:      cfg.OutputDir,
			FilenamePrefix: cfg.FilenamePrefix,
			FromAddress:    cfg.EmailFrom,
			ToAddress:      cfg.EmailTo,
			RetryAttempts:  cfg.RetryAttempts,
			RetryBaseDelay: cfg.RetryBaseDelay,
		},
	)

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetDispatcher(dispatcher)
	container.SetRabbitPub(rabbitPub)
	container.SetCoversheet(svc)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	// CORS
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		response.Error[any](c, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(http.ErrServerClosed, err) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// buildDispatcher wires SMTP as the primary provider with an HTTP API
// provider as fallback. Resend wins over Mailgun when both are configured.
func buildDispatcher(cfg *config.Config, logger *logrus.Logger) *mailer.Dispatcher {
	var primary, secondary mailer.Sender

	if cfg.SMTPHost != "" {
		smtp, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Secure:   cfg.SMTPSecure,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
		if err != nil {
			logger.WithError(err).Warn("smtp sender misconfigured; skipping")
		} else {
			primary = smtp
		}
	}

	switch {
	case cfg.ResendAPIKey != "":
		secondary = mailer.NewResendSender(mailer.ResendConfig{APIKey: cfg.ResendAPIKey, From: cfg.EmailFrom})
	case cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "":
		secondary = mailer.NewMailgunSender(mailer.MailgunConfig{
			Domain: cfg.MailgunDomain,
			APIKey: cfg.MailgunAPIKey,
			From:   cfg.EmailFrom,
		})
	}

	if primary == nil && secondary == nil {
		return nil
	}
	if primary == nil {
		primary, secondary = secondary, nil
	}
	return mailer.NewDispatcher(primary, secondary, logger)
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(migrate.ErrNoChange, err) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

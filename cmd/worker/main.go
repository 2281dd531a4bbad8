package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/haydnphilipdesign/coversheet-service/config"
	"github.com/haydnphilipdesign/coversheet-service/internal/application"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/repository"
	"github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/airtable"
	pginfra "github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/postgres"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
	"github.com/haydnphilipdesign/coversheet-service/pkg/mailer"
	"github.com/haydnphilipdesign/coversheet-service/pkg/pdf"
)

// The worker drains queued generate jobs published by /coversheet/enqueue.
// Each delivery is one application.GenerateRequest; a failed render is
// requeued once via Nack, a malformed payload is dropped.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQGenerateQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQGenerateQueue, 4)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	var uploader application.ObjectUploader
	if cfg.GCSBucket != "" {
		gcsClient, gerr := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if gerr != nil {
			log.Fatalf("failed to init GCS client: %v", gerr)
		}
		defer func() { _ = gcsClient.Close() }()
		uploader = helpers.NewGCSUploader(gcsClient, cfg.GCSBucket)
	}

	var dispatcher application.EmailDispatcher
	if d := buildDispatcher(cfg, logger); d != nil {
		dispatcher = d
	}

	var fetcher application.RecordFetcher
	if cfg.AirtableAPIKey != "" && cfg.AirtableBaseID != "" {
		fetcher = airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID)
	}

	var logs repository.GenerationLogRepository = pginfra.NewGenerationLogRepository(pool)

	svc := application.NewService(
		fetcher,
		pdf.NewChromeRenderer(pdf.Config{
			SettleTimeout: cfg.RenderTimeout,
			BrowserBin:    cfg.ChromeBin,
			NoSandbox:     cfg.Env != "development",
		}),
		dispatcher,
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

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			var req application.GenerateRequest
			if err := json.Unmarshal(msg.Body, &req); err != nil {
				logger.WithError(err).Error("bad message, dropping")
				_ = msg.Nack(false, false)
				continue
			}

			c, cancel := context.WithTimeout(ctx, 2*time.Minute)
			res, err := svc.Generate(c, req)
			cancel()
			if err != nil {
				logger.WithError(err).Error("generate failed")
				_ = msg.Nack(false, !msg.Redelivered)
				continue
			}

			logger.WithField("filename", res.Filename).
				WithField("email_sent", res.EmailSent).
				Info("cover sheet generated")
			_ = msg.Ack(false)
		}
		close(done)
	}()

	logger.Infof("worker listening on queue=%s", cfg.RabbitMQGenerateQueue)
	<-stop
	logger.Info("shutting down...")
	consumer.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// buildDispatcher mirrors the API server wiring: SMTP primary, HTTP API
// provider as fallback.
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

package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/repository"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
	"github.com/haydnphilipdesign/coversheet-service/pkg/mailer"
	"github.com/haydnphilipdesign/coversheet-service/pkg/template"
)

// ErrInvalidRequest marks caller mistakes that map to HTTP 400.
var ErrInvalidRequest = errors.New("invalid generate request")

// RecordFetcher loads a transaction from the external record store.
type RecordFetcher interface {
	FetchTransaction(ctx context.Context, tableID, recordID string) (*entity.Transaction, error)
}

// Renderer turns populated HTML into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// EmailDispatcher sends the finished document with provider fallback.
type EmailDispatcher interface {
	Send(ctx context.Context, msg *mailer.Message) mailer.DispatchResult
}

// ObjectUploader persists the PDF to an object store and returns its URL.
type ObjectUploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// DedupeStore guards against double dispatch when a slow request is retried
// end to end. FirstDispatch reports whether key was newly claimed.
type DedupeStore interface {
	FirstDispatch(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Options tunes the pipeline.
type Options struct {
	TemplatesDir   string
	OutputDir      string
	FilenamePrefix string
	FromAddress    string
	ToAddress      string // default recipient (the coordination desk)
	RetryAttempts  int
	RetryBaseDelay time.Duration
	DedupeTTL      time.Duration
}

// GenerateRequest carries either a direct intake payload or a record-store
// pointer. AgentRole overrides the record's role when set.
type GenerateRequest struct {
	FormData  *entity.Transaction `json:"formData,omitempty"`
	TableID   string              `json:"tableId,omitempty"`
	RecordID  string              `json:"recordId,omitempty"`
	AgentRole string              `json:"agentRole,omitempty"`
	SendEmail bool                `json:"sendEmail,omitempty"`
	Recipient string              `json:"recipient,omitempty"`
}

// GenerateResult reports what was produced and how dispatch went. A render
// success with a dispatch failure is still a success at this level; EmailSent
// and EmailError let the caller tell the two apart.
type GenerateResult struct {
	Filename            string `json:"filename"`
	LocalPath           string `json:"path,omitempty"`
	ObjectURL           string `json:"objectUrl,omitempty"`
	Role                string `json:"role"`
	TemplateName        string `json:"template"`
	LogID               string `json:"logId,omitempty"`
	EmailSent           bool   `json:"emailSent"`
	EmailProvider       string `json:"emailProvider,omitempty"`
	EmailMessageID      string `json:"emailMessageId,omitempty"`
	EmailError          string `json:"emailError,omitempty"`
	DuplicateSuppressed bool   `json:"duplicateSuppressed,omitempty"`
}

// Service is the single parameterized populate-render-dispatch pipeline.
type Service struct {
	records    RecordFetcher
	renderer   Renderer
	dispatcher EmailDispatcher
	uploader   ObjectUploader
	dedupe     DedupeStore
	logs       repository.GenerationLogRepository
	logger     *logrus.Logger
	opts       Options
	now        func() time.Time
}

func NewService(
	records RecordFetcher,
	renderer Renderer,
	dispatcher EmailDispatcher,
	uploader ObjectUploader,
	dedupe DedupeStore,
	logs repository.GenerationLogRepository,
	logger *logrus.Logger,
	opts Options,
) *Service {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = 10 * time.Minute
	}
	return &Service{
		records:    records,
		renderer:   renderer,
		dispatcher: dispatcher,
		uploader:   uploader,
		dedupe:     dedupe,
		logs:       logs,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Generate runs the pipeline for one request: resolve input, select and
// populate the template, render, persist, dispatch. Steps are strictly
// sequential; only the record fetch and the render are wrapped in backoff
// retries, never the email send.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	tx, err := s.resolveTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	role := tx.AgentRole
	if req.AgentRole != "" {
		role = req.AgentRole
	}
	sel := template.SelectTemplate(role)

	raw, err := os.ReadFile(filepath.Join(s.opts.TemplatesDir, sel.File()))
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", sel.File(), err)
	}

	html := template.Populate(string(raw), BuildContext(tx, sel, s.now()))

	var pdfBytes []byte
	err = helpers.Retry(ctx, s.opts.RetryAttempts, s.opts.RetryBaseDelay, func() error {
		var rerr error
		pdfBytes, rerr = s.renderer.Render(ctx, html)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	identifier := tx.RecordID
	if identifier == "" {
		identifier = tx.PropertyAddress
	}
	filename := DocumentFilename(s.opts.FilenamePrefix, sel.Role, identifier, s.now())

	result := &GenerateResult{
		Filename:     filename,
		Role:         string(sel.Role),
		TemplateName: sel.TemplateName,
	}

	if s.opts.OutputDir != "" {
		if path, werr := s.writeLocal(filename, pdfBytes); werr != nil {
			s.warn(werr, "failed to stage pdf locally")
		} else {
			result.LocalPath = path
		}
	}

	if s.uploader != nil {
		url, uerr := s.uploader.Upload(ctx, "coversheets/"+filename, "application/pdf", bytes.NewReader(pdfBytes))
		if uerr != nil {
			s.warn(uerr, "failed to upload pdf to object store")
		} else {
			result.ObjectURL = url
		}
	}

	logRow := s.recordGeneration(tx, sel, result)

	if req.SendEmail {
		s.dispatch(ctx, req, tx, sel, filename, pdfBytes, result)
	}

	if logRow != nil {
		logRow.EmailSent = result.EmailSent
		logRow.EmailProvider = result.EmailProvider
		logRow.EmailMessageID = result.EmailMessageID
		logRow.EmailError = result.EmailError
		if uerr := s.logs.UpdateDispatch(logRow); uerr != nil {
			s.warn(uerr, "failed to update generation log")
		}
		result.LogID = logRow.ID
	}

	return result, nil
}

func (s *Service) resolveTransaction(ctx context.Context, req GenerateRequest) (*entity.Transaction, error) {
	if req.FormData != nil {
		return req.FormData, nil
	}
	if req.TableID == "" || req.RecordID == "" {
		return nil, fmt.Errorf("%w: either formData or tableId+recordId is required", ErrInvalidRequest)
	}
	if s.records == nil {
		return nil, errors.New("record store is not configured")
	}

	var tx *entity.Transaction
	err := helpers.Retry(ctx, s.opts.RetryAttempts, s.opts.RetryBaseDelay, func() error {
		var ferr error
		tx, ferr = s.records.FetchTransaction(ctx, req.TableID, req.RecordID)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", req.RecordID, err)
	}
	return tx, nil
}

func (s *Service) writeLocal(filename string, pdfBytes []byte) (string, error) {
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.opts.OutputDir, filename)
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) recordGeneration(tx *entity.Transaction, sel template.Selection, result *GenerateResult) *entity.GenerationLog {
	if s.logs == nil {
		return nil
	}
	row := &entity.GenerationLog{
		RecordID:     tx.RecordID,
		Role:         string(sel.Role),
		TemplateName: sel.TemplateName,
		Filename:     result.Filename,
		LocalPath:    result.LocalPath,
		ObjectURL:    result.ObjectURL,
	}
	if err := s.logs.Create(row); err != nil {
		s.warn(err, "failed to insert generation log")
		return nil
	}
	return row
}

func (s *Service) dispatch(ctx context.Context, req GenerateRequest, tx *entity.Transaction, sel template.Selection, filename string, pdfBytes []byte, result *GenerateResult) {
	if s.dispatcher == nil {
		result.EmailError = "email dispatch is not configured"
		return
	}

	to := req.Recipient
	if to == "" {
		to = s.opts.ToAddress
	}
	if to == "" {
		result.EmailError = "no recipient configured"
		return
	}

	// Suppress double-sends when a whole request is retried after a slow but
	// successful dispatch. The document itself is still generated above.
	if s.dedupe != nil && tx.RecordID != "" {
		key := dispatchKey(tx.RecordID, string(sel.Role), to)
		first, derr := s.dedupe.FirstDispatch(ctx, key, s.opts.DedupeTTL)
		if derr != nil {
			s.warn(derr, "dedupe store unavailable, sending anyway")
		} else if !first {
			result.DuplicateSuppressed = true
			result.EmailError = "duplicate dispatch suppressed"
			return
		}
	}

	subject := fmt.Sprintf("Transaction Cover Sheet - %s", orDefault(tx.PropertyAddress, tx.RecordID))
	res := s.dispatcher.Send(ctx, &mailer.Message{
		From:    s.opts.FromAddress,
		To:      to,
		Subject: subject,
		HTML: fmt.Sprintf("<p>Attached is the %s cover sheet for %s.</p>",
			sel.TemplateName, orDefault(tx.PropertyAddress, "the transaction")),
		Attachments: []mailer.Attachment{
			{Filename: filename, ContentType: "application/pdf", Content: pdfBytes},
		},
	})

	result.EmailSent = res.Sent
	result.EmailProvider = res.Provider
	result.EmailMessageID = res.MessageID
	result.EmailError = res.Error
}

func (s *Service) warn(err error, msg string) {
	if s.logger != nil {
		s.logger.WithError(err).Warn(msg)
	}
}

func dispatchKey(recordID, role, recipient string) string {
	sum := sha256.Sum256([]byte(recordID + "|" + role + "|" + recipient))
	return "coversheet:dispatch:" + hex.EncodeToString(sum[:16])
}

package application

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/repository"
	"github.com/haydnphilipdesign/coversheet-service/pkg/mailer"
)

type fakeRenderer struct {
	calls    int
	failTill int
	lastHTML string
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.calls++
	f.lastHTML = html
	if f.calls <= f.failTill {
		return nil, errors.New("browser crashed")
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeDispatcher struct {
	calls  int
	result mailer.DispatchResult
	last   *mailer.Message
}

func (f *fakeDispatcher) Send(_ context.Context, msg *mailer.Message) mailer.DispatchResult {
	f.calls++
	f.last = msg
	return f.result
}

type fakeFetcher struct {
	calls    int
	failTill int
	tx       *entity.Transaction
}

func (f *fakeFetcher) FetchTransaction(_ context.Context, _, _ string) (*entity.Transaction, error) {
	f.calls++
	if f.calls <= f.failTill {
		return nil, errors.New("airtable unreachable")
	}
	return f.tx, nil
}

type fakeLogs struct {
	created *entity.GenerationLog
	updated *entity.GenerationLog
}

func (f *fakeLogs) Create(l *entity.GenerationLog) error {
	l.ID = "log-1"
	f.created = l
	return nil
}
func (f *fakeLogs) UpdateDispatch(l *entity.GenerationLog) error { f.updated = l; return nil }
func (f *fakeLogs) GetByID(string) (*entity.GenerationLog, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeLogs) List(int, int) ([]*entity.GenerationLog, error) { return nil, nil }

type fakeDedupe struct{ first bool }

func (f *fakeDedupe) FirstDispatch(context.Context, string, time.Duration) (bool, error) {
	return f.first, nil
}

type fakeUploader struct{ url string }

func (f *fakeUploader) Upload(_ context.Context, objectPath, _ string, _ io.Reader) (string, error) {
	return f.url + "/" + objectPath, nil
}

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	tpl := `<html><body>Agent: {{agentName}} Property: {{propertyAddress}}` +
		`{{#if hasSellersAssist}} Assist: {{sellersAssist}}{{/if}} {{missingField}}</body></html>`
	for _, name := range []string{"Buyer.html", "Seller.html", "DualAgent.html"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(tpl), 0o644))
	}
	return dir
}

func newTestService(t *testing.T, r Renderer, d EmailDispatcher, f RecordFetcher, logs *fakeLogs, dedupe DedupeStore) (*Service, string) {
	t.Helper()
	out := t.TempDir()
	svc := NewService(f, r, d, nil, dedupe, logsOrNil(logs), nil, Options{
		TemplatesDir:   writeTemplates(t),
		OutputDir:      out,
		FilenamePrefix: "CoverSheet",
		FromAddress:    "noreply@example.com",
		ToAddress:      "desk@example.com",
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	})
	return svc, out
}

// logsOrNil avoids the typed-nil trap when no fake is supplied.
func logsOrNil(f *fakeLogs) repository.GenerationLogRepository {
	if f == nil {
		return nil
	}
	return f
}

func directRequest(sendEmail bool) GenerateRequest {
	return GenerateRequest{
		FormData: &entity.Transaction{
			RecordID:         "rec1",
			AgentRole:        "listing agent",
			AgentName:        "Jane Doe",
			PropertyAddress:  "123 Main St",
			HasSellersAssist: false,
			SellersAssist:    5000,
		},
		SendEmail: sendEmail,
	}
}

func TestGenerate_DirectFormData(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{}
	dispatcher := &fakeDispatcher{result: mailer.DispatchResult{Sent: true, Provider: "smtp", MessageID: "<id@host>"}}
	logs := &fakeLogs{}
	svc, outDir := newTestService(t, renderer, dispatcher, nil, logs, nil)

	res, err := svc.Generate(context.Background(), directRequest(true))
	require.NoError(t, err)

	assert.Equal(t, "Seller", res.TemplateName)
	assert.Equal(t, "LISTING_AGENT", res.Role)
	assert.Contains(t, res.Filename, "CoverSheet_LISTING_AGENT_rec1_")
	assert.True(t, strings.HasSuffix(res.Filename, ".pdf"))

	// Populated HTML reached the renderer with no leftover tokens.
	assert.Contains(t, renderer.lastHTML, "Agent: Jane Doe")
	assert.NotContains(t, renderer.lastHTML, "{{")
	assert.NotContains(t, renderer.lastHTML, "Assist:")

	// Artifact staged locally.
	data, err := os.ReadFile(filepath.Join(outDir, res.Filename))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	// Dispatch outcome reflected in result and in the audit row.
	assert.True(t, res.EmailSent)
	assert.Equal(t, "smtp", res.EmailProvider)
	assert.Equal(t, "log-1", res.LogID)
	require.NotNil(t, logs.updated)
	assert.True(t, logs.updated.EmailSent)

	require.NotNil(t, dispatcher.last)
	require.Len(t, dispatcher.last.Attachments, 1)
	assert.Equal(t, res.Filename, dispatcher.last.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", dispatcher.last.Attachments[0].ContentType)
}

func TestGenerate_FetchesRecordWithRetry(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{failTill: 2, tx: &entity.Transaction{
		RecordID:  "recXYZ",
		AgentRole: "BUYERS AGENT",
		AgentName: "Bob",
	}}
	renderer := &fakeRenderer{}
	svc, _ := newTestService(t, renderer, &fakeDispatcher{}, fetcher, nil, nil)

	res, err := svc.Generate(context.Background(), GenerateRequest{
		TableID:  "tblTransactions",
		RecordID: "recXYZ",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.calls)
	assert.Equal(t, "Buyer", res.TemplateName)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeRenderer{}, &fakeDispatcher{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGenerate_RenderRetriesThenFails(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{failTill: 99}
	svc, _ := newTestService(t, renderer, &fakeDispatcher{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), directRequest(false))
	require.Error(t, err)
	assert.Equal(t, 3, renderer.calls)
	assert.Contains(t, err.Error(), "render pdf")
}

func TestGenerate_DispatchFailureIsNotPipelineFailure(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{result: mailer.DispatchResult{
		Sent:  false,
		Error: "smtp: refused; resend: api down",
	}}
	svc, _ := newTestService(t, &fakeRenderer{}, dispatcher, nil, nil, nil)

	res, err := svc.Generate(context.Background(), directRequest(true))
	require.NoError(t, err, "generated-but-unsent must still report the render success")

	assert.NotEmpty(t, res.Filename)
	assert.False(t, res.EmailSent)
	assert.Contains(t, res.EmailError, "smtp")
	assert.Contains(t, res.EmailError, "resend")
}

func TestGenerate_DuplicateDispatchSuppressed(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{result: mailer.DispatchResult{Sent: true, Provider: "smtp", MessageID: "x"}}
	svc, _ := newTestService(t, &fakeRenderer{}, dispatcher, nil, nil, &fakeDedupe{first: false})

	res, err := svc.Generate(context.Background(), directRequest(true))
	require.NoError(t, err)

	assert.Zero(t, dispatcher.calls)
	assert.True(t, res.DuplicateSuppressed)
	assert.False(t, res.EmailSent)
}

func TestGenerate_UploadsToObjectStore(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeRenderer{}, &fakeDispatcher{}, &fakeUploader{url: "https://storage.example.com/bucket"}, nil, nil, nil, Options{
		TemplatesDir:   writeTemplates(t),
		FilenamePrefix: "CoverSheet",
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
	})

	res, err := svc.Generate(context.Background(), directRequest(false))
	require.NoError(t, err)

	assert.Contains(t, res.ObjectURL, "coversheets/"+res.Filename)
	assert.Empty(t, res.LocalPath, "no output dir configured")
}

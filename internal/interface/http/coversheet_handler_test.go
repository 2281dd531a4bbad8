package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydnphilipdesign/coversheet-service/internal/application"
	"github.com/haydnphilipdesign/coversheet-service/pkg/mailer"
)

type stubRenderer struct{ err error }

func (r stubRenderer) Render(context.Context, string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4"), nil
}

type stubDispatcher struct{ result mailer.DispatchResult }

func (d stubDispatcher) Send(context.Context, *mailer.Message) mailer.DispatchResult {
	return d.result
}

func newTestRouter(t *testing.T, renderErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	tpl := []byte(`<html><body>{{propertyAddress}}</body></html>`)
	for _, name := range []string{"Buyer.html", "Seller.html", "DualAgent.html"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), tpl, 0o644))
	}

	svc := application.NewService(
		nil,
		stubRenderer{err: renderErr},
		stubDispatcher{result: mailer.DispatchResult{Sent: true, Provider: "smtp", MessageID: "id"}},
		nil, nil, nil,
		logrus.New(),
		application.Options{
			TemplatesDir:   dir,
			FilenamePrefix: "CoverSheet",
			FromAddress:    "noreply@example.com",
			ToAddress:      "desk@example.com",
			RetryAttempts:  1,
			RetryBaseDelay: time.Millisecond,
		},
	)

	h := NewCoversheetHandler(svc, nil, nil, logrus.New())
	r := gin.New()
	r.POST("/api/coversheet/generate", h.Generate)
	r.POST("/api/coversheet/enqueue", h.Enqueue)
	r.GET("/api/coversheet/logs", h.ListLogs)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateEndpoint_OK(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(r, "/api/coversheet/generate", gin.H{
		"formData": gin.H{
			"agentRole":       "BUYERS AGENT",
			"propertyAddress": "55 Oak Ln",
		},
		"sendEmail": true,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Filename  string `json:"filename"`
			Role      string `json:"role"`
			Template  string `json:"template"`
			EmailSent bool   `json:"emailSent"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "BUYERS_AGENT", env.Data.Role)
	assert.Equal(t, "Buyer", env.Data.Template)
	assert.True(t, env.Data.EmailSent)
	assert.Contains(t, env.Data.Filename, "CoverSheet_BUYERS_AGENT_")
}

func TestGenerateEndpoint_MissingInput(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(r, "/api/coversheet/generate", gin.H{"sendEmail": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateEndpoint_BadRecipient(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(r, "/api/coversheet/generate", gin.H{
		"formData":  gin.H{"agentRole": "LISTING AGENT"},
		"recipient": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateEndpoint_RenderFailure(t *testing.T) {
	r := newTestRouter(t, errors.New("browser gone"))

	w := postJSON(r, "/api/coversheet/generate", gin.H{
		"formData": gin.H{"agentRole": "DUAL AGENT"},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestEnqueueEndpoint_NoQueue(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(r, "/api/coversheet/enqueue", gin.H{
		"tableId":  "tbl1",
		"recordId": "rec1",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEnqueueEndpoint_MissingInput(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(r, "/api/coversheet/enqueue", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListLogs_Unconfigured(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/coversheet/logs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

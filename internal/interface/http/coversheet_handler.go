package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/haydnphilipdesign/coversheet-service/internal/application"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"
	"github.com/haydnphilipdesign/coversheet-service/internal/domain/repository"
	"github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/airtable"
	"github.com/haydnphilipdesign/coversheet-service/internal/infrastructure/postgres"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
	"github.com/haydnphilipdesign/coversheet-service/pkg/response"
	"github.com/haydnphilipdesign/coversheet-service/pkg/validation"
)

type CoversheetHandler struct {
	Svc    *application.Service
	Pub    *helpers.RabbitPublisher
	Logs   repository.GenerationLogRepository
	Logger *logrus.Logger
}

func NewCoversheetHandler(svc *application.Service, pub *helpers.RabbitPublisher, logs repository.GenerationLogRepository, logger *logrus.Logger) *CoversheetHandler {
	return &CoversheetHandler{Svc: svc, Pub: pub, Logs: logs, Logger: logger}
}

type generateRequest struct {
	FormData  *entity.Transaction `json:"formData"`
	TableID   string              `json:"tableId"`
	RecordID  string              `json:"recordId"`
	AgentRole string              `json:"agentRole"`
	SendEmail bool                `json:"sendEmail"`
	Recipient string              `json:"recipient" binding:"omitempty,email"`
}

func (r generateRequest) toApplication() application.GenerateRequest {
	return application.GenerateRequest{
		FormData:  r.FormData,
		TableID:   r.TableID,
		RecordID:  r.RecordID,
		AgentRole: r.AgentRole,
		SendEmail: r.SendEmail,
		Recipient: r.Recipient,
	}
}

// Generate POST /api/coversheet/generate
// Runs the populate-render-dispatch pipeline synchronously.
func (h *CoversheetHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Generate(c.Request.Context(), req.toApplication())
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidRequest):
			response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, airtable.ErrRecordNotFound):
			response.Error[any](c, http.StatusNotFound, "record not found", nil)
		default:
			helpers.LogError(h.Logger, "coversheet generation failed", err, logrus.Fields{
				"record_id": req.RecordID,
			})
			response.Error[any](c, http.StatusInternalServerError, "generation failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, res, "cover sheet generated", nil)
}

// Enqueue POST /api/coversheet/enqueue
// Queues the same request for the background worker and returns 202.
func (h *CoversheetHandler) Enqueue(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.FormData == nil && (req.TableID == "" || req.RecordID == "") {
		response.Error[any](c, http.StatusBadRequest, "either formData or tableId+recordId is required", nil)
		return
	}
	if h.Pub == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "queue is not configured", nil)
		return
	}

	if err := h.Pub.PublishJSON(c.Request.Context(), req.toApplication()); err != nil {
		helpers.LogError(h.Logger, "enqueue failed", err, logrus.Fields{"record_id": req.RecordID})
		response.Error[any](c, http.StatusInternalServerError, "enqueue failed", nil)
		return
	}

	response.Success[any](c, http.StatusAccepted, gin.H{"queued": true}, "cover sheet queued", nil)
}

// ListLogs GET /api/coversheet/logs?limit=&offset=
func (h *CoversheetHandler) ListLogs(c *gin.Context) {
	if h.Logs == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "audit log is not configured", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := h.Logs.List(limit, offset)
	if err != nil {
		helpers.LogError(h.Logger, "list generation logs failed", err, nil)
		response.Error[any](c, http.StatusInternalServerError, "failed to list logs", nil)
		return
	}
	response.Success(c, http.StatusOK, rows, "generation logs", map[string]any{"limit": limit, "offset": offset})
}

// GetLog GET /api/coversheet/logs/:id
func (h *CoversheetHandler) GetLog(c *gin.Context) {
	if h.Logs == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "audit log is not configured", nil)
		return
	}
	row, err := h.Logs.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "log not found", nil)
			return
		}
		helpers.LogError(h.Logger, "get generation log failed", err, logrus.Fields{"id": c.Param("id")})
		response.Error[any](c, http.StatusInternalServerError, "failed to load log", nil)
		return
	}
	response.Success(c, http.StatusOK, row, "generation log", nil)
}

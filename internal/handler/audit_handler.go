package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/middleware"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/response"
	"github.com/stemsi/degree-audit-backend/internal/service"
	"github.com/stemsi/degree-audit-backend/internal/validator"
)

// AuditService is what the audit endpoints need from the service layer.
type AuditService interface {
	AuditPDF(ctx context.Context, studentID int, fileName string, r io.Reader, size int64, degreeKey string) (*model.AuditView, error)
	AuditText(ctx context.Context, studentID int, text, degreeKey string) (*model.AuditView, error)
	Get(ctx context.Context, studentID int, id uuid.UUID) (*model.AuditView, error)
	List(ctx context.Context, studentID, limit int) ([]*model.AuditSummary, error)
	Plan(ctx context.Context, studentID int, id uuid.UUID) (*audit.Plan, error)
}

// AuditHandler handles the student audit endpoints.
type AuditHandler struct {
	auditService AuditService
	log          zerolog.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService AuditService, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		log:          log.With().Str("component", "audit_handler").Logger(),
	}
}

// UploadReport godoc
// POST /api/v1/student/audits
// Audits an uploaded degree-audit PDF (multipart field "file").
func (h *AuditHandler) UploadReport(c *gin.Context) {
	claims := middleware.GetClaims(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	var form model.PDFAuditForm
	if fields := validator.BindForm(c, &form); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.auditService.AuditPDF(c.Request.Context(), claims.UserID, header.Filename, file, header.Size, form.DegreeKey)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"audit": view})
}

// AuditText godoc
// POST /api/v1/student/audits/text
// Audits report text the client already extracted.
func (h *AuditHandler) AuditText(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.TextAuditRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.auditService.AuditText(c.Request.Context(), claims.UserID, req.Text, req.DegreeKey)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"audit": view})
}

// List godoc
// GET /api/v1/student/audits?limit=
func (h *AuditHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var q model.ListAuditsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if q.Limit == 0 {
		q.Limit = service.DefaultListLimit
	}

	audits, err := h.auditService.List(c.Request.Context(), claims.UserID, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithListing(c, http.StatusOK, gin.H{"audits": audits}, q.Limit, len(audits))
}

// Get godoc
// GET /api/v1/student/audits/:id
func (h *AuditHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.auditService.Get(c.Request.Context(), claims.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"audit": view})
}

// Plan godoc
// GET /api/v1/student/audits/:id/plan
// Lays the audit out as a year-by-year plan.
func (h *AuditHandler) Plan(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	plan, err := h.auditService.Plan(c.Request.Context(), claims.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"plan": plan})
}

func (h *AuditHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrNotPDF):
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrEmptyDocument):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrEmptyDocument)
	case errors.Is(err, service.ErrUnreadablePDF):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnreadableDocument)
	case errors.Is(err, service.ErrUnknownDegreeKey):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownDegree)
	case errors.Is(err, service.ErrRequirementsUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRequirementsUnavailable)
	case errors.Is(err, service.ErrAuditNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		h.log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Audit request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

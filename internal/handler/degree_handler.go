package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/middleware"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/response"
	"github.com/stemsi/degree-audit-backend/internal/service"
)

// DegreeService is what the requirement endpoints need from the service layer.
type DegreeService interface {
	List() ([]model.DegreeSummary, error)
	Get(key string) (audit.DegreeRequirement, error)
	Reload(ctx context.Context) (*service.DegreeSnapshot, error)
}

type DegreeHandler struct {
	degreeService DegreeService
	log           zerolog.Logger
}

func NewDegreeHandler(degreeService DegreeService, log zerolog.Logger) *DegreeHandler {
	return &DegreeHandler{
		degreeService: degreeService,
		log:           log.With().Str("component", "degree_handler").Logger(),
	}
}

// GET /api/v1/degrees
func (h *DegreeHandler) GetAll(c *gin.Context) {
	degrees, err := h.degreeService.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"degrees": degrees})
}

// GET /api/v1/degrees/:key
func (h *DegreeHandler) GetByKey(c *gin.Context) {
	degree, err := h.degreeService.Get(c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"degree": degree})
}

// POST /api/v1/admin/degrees/reload
func (h *DegreeHandler) Reload(c *gin.Context) {
	snap, err := h.degreeService.Reload(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Requirement reload failed")
		response.Fail(c, http.StatusBadGateway, response.ErrRequirementsUnavailable)
		return
	}

	if claims := middleware.GetClaims(c); claims != nil {
		h.log.Info().Int("admin_id", claims.UserID).Str("version", snap.Version).Msg("Requirement table reloaded")
	}
	response.Success(c, http.StatusOK, gin.H{
		"version":   snap.Version,
		"source":    snap.Source,
		"degrees":   len(snap.Table),
		"loaded_at": snap.LoadedAt,
	})
}

func (h *DegreeHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDegreeNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrRequirementsUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRequirementsUnavailable)
	default:
		h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Degree request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

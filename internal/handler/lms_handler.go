package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-lms-gradesync/internal/dto"
	"github.com/noah-isme/sma-lms-gradesync/internal/middleware"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/internal/service"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/response"
)

type oauthFlow interface {
	BuildLoginURL(ctx context.Context, userID string) (string, error)
	HandleCallback(ctx context.Context, code, state string) error
}

type mappingManager interface {
	Get(ctx context.Context, unitID string) (*models.UnitMapping, error)
	Create(ctx context.Context, unitID string, req dto.LMSMappingRequest) (*models.UnitMapping, error)
	Update(ctx context.Context, unitID string, req dto.LMSMappingRequest) (*models.UnitMapping, error)
	Delete(ctx context.Context, unitID string) error
}

type gradeSyncJobs interface {
	Trigger(ctx context.Context, unitID, userID string) (*dto.GradeSyncTriggerResponse, error)
	Result(ctx context.Context, unitID string) ([]byte, error)
	Availability(ctx context.Context, unitID string) (*dto.GradeSyncAvailabilityResponse, error)
	ResolveResultLink(ctx context.Context, token string) (string, []byte, error)
}

type gradeSyncProbe interface {
	GradesWeighted(ctx context.Context, unitID, userID string) (bool, error)
	Endpoint() string
}

// LMSHandler exposes the LMS login flow, unit mappings and grade transfers.
type LMSHandler struct {
	oauth           oauthFlow
	mappings        mappingManager
	jobs            gradeSyncJobs
	probe           gradeSyncProbe
	successRedirect string
}

// NewLMSHandler constructs the handler. successRedirect is where the browser lands after a
// completed login.
func NewLMSHandler(oauth oauthFlow, mappings mappingManager, jobs gradeSyncJobs, probe gradeSyncProbe, successRedirect string) *LMSHandler {
	if successRedirect == "" {
		successRedirect = "/success-close"
	}
	return &LMSHandler{oauth: oauth, mappings: mappings, jobs: jobs, probe: probe, successRedirect: successRedirect}
}

// LoginURL godoc
// @Summary Build the LMS authorization URL
// @Tags LMS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /lms/login-url [post]
func (h *LMSHandler) LoginURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	url, err := h.oauth.BuildLoginURL(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.LMSLoginURLResponse{URL: url})
}

// Callback godoc
// @Summary Complete the LMS authorization
// @Tags LMS
// @Param code query string true "Authorization code"
// @Param state query string true "State issued with the login URL"
// @Success 302
// @Failure 500 {object} response.Envelope
// @Router /lms/callback [get]
func (h *LMSHandler) Callback(c *gin.Context) {
	if err := h.oauth.HandleCallback(c.Request.Context(), c.Query("code"), c.Query("state")); err != nil {
		msg := appErrors.FromError(err).Message
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "Error processing oauth callback: "+msg))
		return
	}
	c.Redirect(http.StatusFound, h.successRedirect)
}

// Endpoint godoc
// @Summary Configured LMS API host
// @Tags LMS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /lms/endpoint [get]
func (h *LMSHandler) Endpoint(c *gin.Context) {
	response.JSON(c, http.StatusOK, dto.LMSEndpointResponse{Endpoint: h.probe.Endpoint()})
}

// GetMapping godoc
// @Summary Get the LMS mapping of a unit
// @Tags LMS
// @Produce json
// @Param unit_id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /units/{unit_id}/lms [get]
func (h *LMSHandler) GetMapping(c *gin.Context) {
	mapping, err := h.mappings.Get(c.Request.Context(), c.Param(middleware.UnitParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping)
}

// CreateMapping godoc
// @Summary Link a unit to an LMS org unit
// @Tags LMS
// @Accept json
// @Produce json
// @Param unit_id path string true "Unit ID"
// @Param payload body dto.LMSMappingRequest true "Mapping payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /units/{unit_id}/lms [post]
func (h *LMSHandler) CreateMapping(c *gin.Context) {
	var req dto.LMSMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mapping payload"))
		return
	}
	mapping, err := h.mappings.Create(c.Request.Context(), c.Param(middleware.UnitParam), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}

// UpdateMapping godoc
// @Summary Change the LMS mapping of a unit
// @Tags LMS
// @Accept json
// @Produce json
// @Param unit_id path string true "Unit ID"
// @Param payload body dto.LMSMappingRequest true "Mapping payload"
// @Success 200 {object} response.Envelope
// @Router /units/{unit_id}/lms [put]
func (h *LMSHandler) UpdateMapping(c *gin.Context) {
	var req dto.LMSMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mapping payload"))
		return
	}
	mapping, err := h.mappings.Update(c.Request.Context(), c.Param(middleware.UnitParam), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping)
}

// DeleteMapping godoc
// @Summary Unlink a unit from the LMS
// @Tags LMS
// @Param unit_id path string true "Unit ID"
// @Success 204
// @Router /units/{unit_id}/lms [delete]
func (h *LMSHandler) DeleteMapping(c *gin.Context) {
	if err := h.mappings.Delete(c.Request.Context(), c.Param(middleware.UnitParam)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TriggerGradeSync godoc
// @Summary Queue a grade transfer to the LMS
// @Tags LMS
// @Produce json
// @Param unit_id path string true "Unit ID"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /units/{unit_id}/lms/grades [post]
func (h *LMSHandler) TriggerGradeSync(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.jobs.Trigger(c.Request.Context(), c.Param(middleware.UnitParam), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// GradeSyncResult godoc
// @Summary Download the latest grade transfer result
// @Tags LMS
// @Produce text/csv
// @Param unit_id path string true "Unit ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /units/{unit_id}/lms/grades [get]
func (h *LMSHandler) GradeSyncResult(c *gin.Context) {
	unitID := c.Param(middleware.UnitParam)
	data, err := h.jobs.Result(c.Request.Context(), unitID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CSV(c, resultFilename(unitID), data)
}

// GradeSyncAvailable godoc
// @Summary Whether a grade transfer result exists
// @Tags LMS
// @Produce json
// @Param unit_id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /units/{unit_id}/lms/grades/available [get]
func (h *LMSHandler) GradeSyncAvailable(c *gin.Context) {
	resp, err := h.jobs.Availability(c.Request.Context(), c.Param(middleware.UnitParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// GradesWeighted godoc
// @Summary Whether the LMS org unit uses weighted grading
// @Tags LMS
// @Produce json
// @Param unit_id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /units/{unit_id}/lms/grades/weighted [get]
func (h *LMSHandler) GradesWeighted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	weighted, err := h.probe.GradesWeighted(c.Request.Context(), c.Param(middleware.UnitParam), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.GradeWeightingResponse{Weighted: weighted})
}

// SignedResult godoc
// @Summary Download a grade transfer result through a signed link
// @Tags LMS
// @Produce text/csv
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /lms/results/{token} [get]
func (h *LMSHandler) SignedResult(c *gin.Context) {
	unitID, data, err := h.jobs.ResolveResultLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CSV(c, resultFilename(unitID), data)
}

func resultFilename(unitID string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '_'
		}
		return r
	}, unitID)
	return name + "-" + service.GradeSyncResultFilename
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/service"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/response"
)

// ClearanceHandler exposes the clearance catalog endpoints.
type ClearanceHandler struct {
	service *service.ClearanceService
}

// NewClearanceHandler constructs handler.
func NewClearanceHandler(svc *service.ClearanceService) *ClearanceHandler {
	return &ClearanceHandler{service: svc}
}

// Catalog godoc
// @Summary List open clearances
// @Description Open clearances addressed to the caller's department, course and level, overlaid with the caller's submission status
// @Tags Clearances
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /clearances [get]
func (h *ClearanceHandler) Catalog(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.Catalog(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Clearance detail
// @Tags Clearances
// @Produce json
// @Param id path string true "Clearance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearances/{id} [get]
func (h *ClearanceHandler) Get(c *gin.Context) {
	clearance, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, clearance, nil)
}

// Create godoc
// @Summary Post a clearance
// @Description Approver-only creation of a clearance entry for a target population
// @Tags Clearances
// @Accept json
// @Produce json
// @Param payload body service.CreateClearanceRequest true "Clearance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /clearances [post]
func (h *ClearanceHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clearance payload"))
		return
	}

	clearance, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, clearance)
}

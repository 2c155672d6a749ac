package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/service"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/response"
)

// TrackerHandler serves the student's submission tracker views.
type TrackerHandler struct {
	service *service.TrackerService
}

// NewTrackerHandler constructs handler.
func NewTrackerHandler(svc *service.TrackerService) *TrackerHandler {
	return &TrackerHandler{service: svc}
}

// parseStatus maps the query value onto a canonical status, tolerating case.
func parseStatus(raw string) (models.Status, bool) {
	for _, s := range []models.Status{models.StatusPending, models.StatusApproved, models.StatusDisapproved} {
		if strings.EqualFold(raw, string(s)) {
			return s, true
		}
	}
	return "", false
}

// View godoc
// @Summary Tracker view by status
// @Description Current student's submissions filtered by status. Empty views consume the session fetch budget.
// @Tags Tracker
// @Produce json
// @Param status query string true "Pending, Approved or Disapproved"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /submissions [get]
func (h *TrackerHandler) View(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, ok := parseStatus(c.Query("status"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be Pending, Approved or Disapproved"))
		return
	}

	view, err := h.service.View(c.Request.Context(), claims.UserID, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// Detail godoc
// @Summary Submission detail
// @Description Role-branched detail for one of the caller's submissions
// @Tags Tracker
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *TrackerHandler) Detail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

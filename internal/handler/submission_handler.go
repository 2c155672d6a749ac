package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/service"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/response"
)

const requirementFieldPrefix = "requirements["

// SubmissionHandler exposes submission creation and resubmission.
type SubmissionHandler struct {
	service *service.SubmissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Create godoc
// @Summary Submit a clearance
// @Description Multipart submission form. Requirement attachments are posted under requirements[<name>] file fields, payment receipts under receipt.
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param clearance_id formData string true "Clearance ID"
// @Param full_name formData string true "Student name as typed"
// @Param student_id formData string true "Student ID as typed"
// @Param gcash_number formData string false "GCash number for payment clearances"
// @Param amount formData string false "Amount paid"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}

	req := service.CreateSubmissionRequest{
		ClearanceID:    c.PostForm("clearance_id"),
		TypedName:      c.PostForm("full_name"),
		TypedStudentID: c.PostForm("student_id"),
		GcashNumber:    c.PostForm("gcash_number"),
		Amount:         c.PostForm("amount"),
	}

	files, receipt, closeAll, err := collectUploads(form)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeAll()
	req.Files = files
	req.Receipt = receipt

	submission, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, submission)
}

// Resubmit godoc
// @Summary Resubmit a disapproved submission
// @Description Replace the evidence of a disapproved submission. Same multipart layout as submission creation.
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/resubmit [post]
func (h *SubmissionHandler) Resubmit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}

	req := service.ResubmitRequest{
		GcashNumber: c.PostForm("gcash_number"),
		Amount:      c.PostForm("amount"),
	}

	files, receipt, closeAll, err := collectUploads(form)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeAll()
	req.Files = files
	req.Receipt = receipt

	submission, err := h.service.Resubmit(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submission, nil)
}

// collectUploads opens the form attachments as streams. Requirement files are
// posted under requirements[<name>], the payment receipt under receipt. The
// returned closer releases every opened stream once the service is done.
func collectUploads(form *multipart.Form) ([]service.FileUpload, *service.FileUpload, func(), error) {
	var (
		files   []service.FileUpload
		receipt *service.FileUpload
		opened  []io.Closer
	)
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	open := func(header *multipart.FileHeader) (multipart.File, error) {
		f, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable attachment")
		}
		opened = append(opened, f)
		return f, nil
	}

	for field, headers := range form.File {
		switch {
		case field == "receipt":
			if len(headers) == 0 {
				continue
			}
			f, err := open(headers[0])
			if err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			receipt = &service.FileUpload{Filename: headers[0].Filename, Content: f}
		case strings.HasPrefix(field, requirementFieldPrefix) && strings.HasSuffix(field, "]"):
			requirement := field[len(requirementFieldPrefix) : len(field)-1]
			for _, header := range headers {
				f, err := open(header)
				if err != nil {
					closeAll()
					return nil, nil, nil, err
				}
				files = append(files, service.FileUpload{
					Requirement: requirement,
					Filename:    header.Filename,
					Content:     f,
				})
			}
		}
	}

	return files, receipt, closeAll, nil
}

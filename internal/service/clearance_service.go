package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
)

type clearanceRepository interface {
	List(ctx context.Context, filter models.ClearanceFilter) ([]models.Clearance, error)
	FindByID(ctx context.Context, id string) (*models.Clearance, error)
	Create(ctx context.Context, clearance *models.Clearance) error
}

type submissionStatusReader interface {
	StatusesByStudent(ctx context.Context, studentUID string) (map[string]models.Submission, error)
}

type clearanceUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateClearanceRequest carries an approver's new clearance posting.
type CreateClearanceRequest struct {
	Role             models.ApproverRole `json:"role" validate:"required"`
	TargetDepartment string              `json:"target_department" validate:"required"`
	TargetCourse     string              `json:"target_course" validate:"required"`
	TargetLevel      string              `json:"target_level" validate:"required"`
	ScheduleDate     time.Time           `json:"schedule_date" validate:"required"`
	Requirements     []string            `json:"requirements"`
	Amount           *string             `json:"amount,omitempty"`
	Purpose          *string             `json:"purpose,omitempty"`
	QRCodeURL        *string             `json:"qr_code_url,omitempty"`
	SignatureURL     *string             `json:"signature_url,omitempty"`
}

// ClearanceService serves the clearance catalog.
type ClearanceService struct {
	clearances  clearanceRepository
	submissions submissionStatusReader
	users       clearanceUserReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClearanceService constructs a ClearanceService.
func NewClearanceService(clearances clearanceRepository, submissions submissionStatusReader, users clearanceUserReader, validate *validator.Validate, logger *zap.Logger) *ClearanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClearanceService{
		clearances:  clearances,
		submissions: submissions,
		users:       users,
		validator:   validate,
		logger:      logger,
	}
}

// Catalog lists the clearances addressed to the student's department, course
// and level, each overlaid with the student's own submission status. Entries
// the student never submitted against read as None.
func (s *ClearanceService) Catalog(ctx context.Context, studentUID string) ([]models.ClearanceWithStatus, error) {
	student, err := s.users.FindByID(ctx, studentUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only student accounts can browse clearances")
	}

	clearances, err := s.clearances.List(ctx, models.ClearanceFilter{
		Department: student.Department,
		Course:     student.Course,
		Level:      student.Level,
		OpenOnly:   true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clearances")
	}

	statuses, err := s.submissions.StatusesByStudent(ctx, studentUID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission statuses")
	}

	result := make([]models.ClearanceWithStatus, 0, len(clearances))
	for _, clearance := range clearances {
		entry := models.ClearanceWithStatus{
			Clearance:        clearance,
			SubmissionStatus: models.StatusNone,
		}
		if submission, ok := statuses[clearance.ID]; ok {
			entry.SubmissionStatus = submission.Status
			id := submission.ID
			entry.SubmissionID = &id
		}
		result = append(result, entry)
	}
	return result, nil
}

// Get returns a single clearance by ID.
func (s *ClearanceService) Get(ctx context.Context, id string) (*models.Clearance, error) {
	clearance, err := s.clearances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance")
	}
	return clearance, nil
}

// Create posts a new clearance on behalf of an approver account. Payment
// details are only accepted for the roles that collect them.
func (s *ClearanceService) Create(ctx context.Context, approverUID string, req CreateClearanceRequest) (*models.Clearance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clearance payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown approver role")
	}

	approver, err := s.users.FindByID(ctx, approverUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approver")
	}
	if approver.Role != models.RoleApprover {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only approver accounts can post clearances")
	}

	if !req.Role.RequiresPayment() && (req.Amount != nil || req.QRCodeURL != nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment details are not accepted for this role")
	}

	requirements := models.StringList(req.Requirements)
	if len(requirements) == 0 {
		requirements = models.StringList{models.NoRequirementsSentinel}
	}

	clearance := &models.Clearance{
		ApproverUID:        approver.ID,
		ApproverName:       approver.FullName,
		ApproverDepartment: approver.Department,
		Role:               req.Role,
		TargetDepartment:   req.TargetDepartment,
		TargetCourse:       req.TargetCourse,
		TargetLevel:        req.TargetLevel,
		ScheduleDate:       req.ScheduleDate,
		Requirements:       requirements,
		Amount:             req.Amount,
		Purpose:            req.Purpose,
		QRCodeURL:          req.QRCodeURL,
		SignatureURL:       req.SignatureURL,
	}

	if err := s.clearances.Create(ctx, clearance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create clearance")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &approver.ID,
		Action:     models.AuditActionClearanceCreate,
		Resource:   "clearances",
		ResourceID: &clearance.ID,
	}); err != nil {
		s.logger.Warn("failed to record clearance audit log", zap.Error(err))
	}

	return clearance, nil
}

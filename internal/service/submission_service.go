package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/normalize"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/storage"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByClearanceAndStudent(ctx context.Context, clearanceID, studentUID string) (*models.Submission, error)
	CreateAndCloseClearance(ctx context.Context, submission *models.Submission) error
	ApplyResubmission(ctx context.Context, id string, update models.ResubmitUpdate) error
	MarkResubmitting(ctx context.Context, id string, ts time.Time) error
	RevertResubmitting(ctx context.Context, id string) error
}

type submissionClearanceReader interface {
	FindByID(ctx context.Context, id string) (*models.Clearance, error)
}

type submissionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type blobStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// FileUpload is a single attachment streamed from the request. Requirement
// names which catalog entry an instructor attachment answers; it is unused
// for receipts.
type FileUpload struct {
	Requirement string
	Filename    string
	Content     io.Reader
}

// CreateSubmissionRequest carries the submission form. TypedName and
// TypedStudentID are the values the student keyed in, compared against the
// stored profile before anything is uploaded.
type CreateSubmissionRequest struct {
	ClearanceID    string `validate:"required"`
	TypedName      string `validate:"required"`
	TypedStudentID string `validate:"required"`
	Files          []FileUpload
	GcashNumber    string
	Amount         string
	Receipt        *FileUpload
}

// ResubmitRequest carries replacement evidence for a disapproved submission.
type ResubmitRequest struct {
	Files       []FileUpload
	GcashNumber string
	Amount      string
	Receipt     *FileUpload
}

// SubmissionService drives the submission and resubmission workflows.
type SubmissionService struct {
	submissions submissionRepository
	clearances  submissionClearanceReader
	users       submissionUserReader
	store       blobStore
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(submissions submissionRepository, clearances submissionClearanceReader, users submissionUserReader, store blobStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		submissions: submissions,
		clearances:  clearances,
		users:       users,
		store:       store,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubmissionService) saveBlob(path string, r io.Reader) (string, error) {
	start := time.Now()
	saved, err := s.store.SaveStream(path, r)
	s.metrics.ObserveUpload(time.Since(start), err != nil)
	return saved, err
}

func folderForRole(role models.ApproverRole) string {
	switch role {
	case models.RoleSSGAdviser:
		return storage.FolderAdviserList
	case models.RolePTCATreasurer:
		return storage.FolderTreasurerList
	case models.RoleDean:
		return storage.FolderDeanList
	default:
		return ""
	}
}

// Create validates the form, uploads the attachments one at a time, then
// records the submission and closes the clearance in a single transaction.
// Identity checks run before the first byte is uploaded; any upload failure
// removes the blobs already written.
func (s *SubmissionService) Create(ctx context.Context, studentUID string, req CreateSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	student, err := s.users.FindByID(ctx, studentUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only student accounts can submit")
	}

	if normalize.Name(req.TypedName) != student.FullName {
		return nil, appErrors.Clone(appErrors.ErrValidation, "full name does not match your registered profile")
	}
	if normalize.StudentID(req.TypedStudentID) != student.StudentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id does not match your registered profile")
	}

	clearance, err := s.clearances.FindByID(ctx, req.ClearanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance")
	}

	if _, err := s.submissions.FindByClearanceAndStudent(ctx, clearance.ID, studentUID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "clearance already has a submission")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}

	submission := &models.Submission{
		ClearanceID: clearance.ID,
		StudentUID:  student.ID,
		ApproverUID: clearance.ApproverUID,
		StudentName: student.FullName,
		StudentID:   student.StudentID,
		Department:  student.Department,
		Course:      student.Course,
		Level:       student.Level,
		Status:      models.StatusPending,
		SubmittedAt: s.now(),
	}

	var uploaded []string
	cleanup := func() {
		for _, path := range uploaded {
			if err := s.store.Delete(path); err != nil {
				s.logger.Warn("failed to remove uploaded file", zap.String("path", path), zap.Error(err))
			}
		}
	}

	if clearance.Role == models.RoleInstructor {
		files, paths, err := s.uploadRequirementFiles(student.ID, clearance, req.Files)
		uploaded = append(uploaded, paths...)
		if err != nil {
			cleanup()
			return nil, err
		}
		submission.RequirementFiles = files
	} else {
		submission.RequirementFiles = models.RequirementFileList{
			{Requirement: models.NoRequirementsSentinel, URLs: []string{}},
		}

		if req.Receipt == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "payment receipt is required")
		}
		gcash := normalize.GcashNumber(req.GcashNumber)
		if gcash == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "gcash number is required")
		}
		amount := normalize.Amount(req.Amount)

		ts := s.now()
		path := storage.SubmitListPath(folderForRole(clearance.Role), student.ID, clearance.ApproverUID, req.Receipt.Filename, ts)
		saved, err := s.saveBlob(path, req.Receipt.Content)
		if err != nil {
			cleanup()
			return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to upload receipt")
		}
		uploaded = append(uploaded, saved)

		submission.GcashNumber = &gcash
		submission.Amount = &amount
		submission.SetReceiptURL(clearance.Role, saved)
	}

	if err := s.submissions.CreateAndCloseClearance(ctx, submission); err != nil {
		cleanup()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}
	s.metrics.RecordSubmission("created")

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &student.ID,
		Action:     models.AuditActionSubmissionCreate,
		Resource:   "student_submissions",
		ResourceID: &submission.ID,
	}); err != nil {
		s.logger.Warn("failed to record submission audit log", zap.Error(err))
	}

	return submission, nil
}

// Resubmit replaces the evidence on a disapproved submission and returns it
// to Pending. The row carries a transitional Re-submit marker while the new
// uploads run; a failed upload reverts it to Disapproved. Only the receipt
// slot matching the clearance role is rewritten, and the approver's recorded
// disapproval reason is left untouched.
func (s *SubmissionService) Resubmit(ctx context.Context, studentUID, submissionID string, req ResubmitRequest) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission.StudentUID != studentUID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
	}
	if submission.Status != models.StatusDisapproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "only disapproved submissions can be resubmitted")
	}

	clearance, err := s.clearances.FindByID(ctx, submission.ClearanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance")
	}

	markedAt := s.now()
	if err := s.submissions.MarkResubmitting(ctx, submission.ID, markedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "submission is no longer disapproved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark resubmission")
	}

	var uploaded []string
	revert := func() {
		for _, path := range uploaded {
			if err := s.store.Delete(path); err != nil {
				s.logger.Warn("failed to remove uploaded file", zap.String("path", path), zap.Error(err))
			}
		}
		if err := s.submissions.RevertResubmitting(ctx, submission.ID); err != nil {
			s.logger.Error("failed to revert resubmission marker", zap.String("submission_id", submission.ID), zap.Error(err))
		}
	}

	update := models.ResubmitUpdate{
		Status:      models.StatusPending,
		SubmittedAt: s.now(),
	}

	if clearance.Role == models.RoleInstructor {
		files, paths, err := s.uploadRequirementFiles(studentUID, clearance, req.Files)
		uploaded = append(uploaded, paths...)
		if err != nil {
			revert()
			return nil, err
		}
		update.RequirementFiles = &files
	} else {
		if req.Receipt == nil {
			revert()
			return nil, appErrors.Clone(appErrors.ErrValidation, "payment receipt is required")
		}

		ts := s.now()
		path := storage.ReceiptPath(req.Receipt.Filename, ts)
		saved, err := s.saveBlob(path, req.Receipt.Content)
		if err != nil {
			revert()
			return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to upload receipt")
		}
		uploaded = append(uploaded, saved)

		switch clearance.Role {
		case models.RoleSSGAdviser:
			update.AdviserReceiptURL = &saved
		case models.RolePTCATreasurer:
			update.TreasurerReceiptURL = &saved
		case models.RoleDean:
			update.DeanReceiptURL = &saved
		}

		if req.GcashNumber != "" {
			gcash := normalize.GcashNumber(req.GcashNumber)
			update.GcashNumber = &gcash
		}
		if req.Amount != "" {
			amount := normalize.Amount(req.Amount)
			update.Amount = &amount
		}
	}

	if err := s.submissions.ApplyResubmission(ctx, submission.ID, update); err != nil {
		revert()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record resubmission")
	}
	s.metrics.RecordSubmission("resubmitted")

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &studentUID,
		Action:     models.AuditActionResubmit,
		Resource:   "student_submissions",
		ResourceID: &submission.ID,
	}); err != nil {
		s.logger.Warn("failed to record resubmission audit log", zap.Error(err))
	}

	result, err := s.submissions.FindByID(ctx, submission.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload submission")
	}
	return result, nil
}

// uploadRequirementFiles streams instructor attachments one at a time and
// groups the stored paths per requirement. When the clearance lists no
// requirements, no attachments are accepted and the sentinel entry is
// recorded instead.
func (s *SubmissionService) uploadRequirementFiles(studentUID string, clearance *models.Clearance, files []FileUpload) (models.RequirementFileList, []string, error) {
	if !clearance.HasRequirements() {
		return models.RequirementFileList{
			{Requirement: models.NoRequirementsSentinel, URLs: []string{}},
		}, nil, nil
	}

	byRequirement := make(map[string][]FileUpload, len(files))
	for _, f := range files {
		byRequirement[f.Requirement] = append(byRequirement[f.Requirement], f)
	}

	var uploaded []string
	result := make(models.RequirementFileList, 0, len(clearance.Requirements))
	for _, requirement := range clearance.Requirements {
		attachments := byRequirement[requirement]
		if len(attachments) == 0 {
			return nil, uploaded, appErrors.Clone(appErrors.ErrValidation, "every requirement needs at least one attachment")
		}

		entry := models.RequirementFile{Requirement: requirement, URLs: make([]string, 0, len(attachments))}
		for _, attachment := range attachments {
			ts := s.now()
			path := storage.RequirementFilePath(studentUID, clearance.ApproverUID, attachment.Filename, ts)
			saved, err := s.saveBlob(path, attachment.Content)
			if err != nil {
				return nil, uploaded, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to upload requirement file")
			}
			uploaded = append(uploaded, saved)
			entry.URLs = append(entry.URLs, saved)
		}
		result = append(result, entry)
	}

	return result, uploaded, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
)

type trackerSubmissionReader interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
}

type trackerClearanceReader interface {
	FindByID(ctx context.Context, id string) (*models.Clearance, error)
}

type trackerUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type trackerCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
}

// TrackerConfig tunes the status read views.
type TrackerConfig struct {
	MaxFetchAttempts int
	BudgetTTL        time.Duration
	ProfileCacheTTL  time.Duration
}

// TrackerView is the submission status worklist backing the tracker page.
type TrackerView struct {
	Status      models.Status       `json:"status"`
	StudentID   string              `json:"student_id"`
	Submissions []models.Submission `json:"submissions"`
}

// TrackerService serves the per-status read views over a student's
// submissions. Each (student, status) view carries a bounded fetch budget in
// Redis so a session stops retrying an empty view instead of polling forever.
type TrackerService struct {
	submissions trackerSubmissionReader
	clearances  trackerClearanceReader
	users       trackerUserReader
	cache       trackerCache
	metrics     *MetricsService
	logger      *zap.Logger
	config      TrackerConfig
}

// NewTrackerService constructs a TrackerService.
func NewTrackerService(submissions trackerSubmissionReader, clearances trackerClearanceReader, users trackerUserReader, cache trackerCache, metrics *MetricsService, logger *zap.Logger, config TrackerConfig) *TrackerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFetchAttempts <= 0 {
		config.MaxFetchAttempts = 3
	}
	return &TrackerService{
		submissions: submissions,
		clearances:  clearances,
		users:       users,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		config:      config,
	}
}

func budgetKey(studentUID string, status models.Status) string {
	return fmt.Sprintf("tracker:budget:%s:%s", studentUID, strings.ToLower(string(status)))
}

// View returns the student's submissions in the given status. Empty results
// consume one unit of the view's fetch budget; once the budget is spent the
// view reports exhaustion, without reaching the store, until the session
// ends or the TTL lapses. A non-empty result never touches the budget.
func (s *TrackerService) View(ctx context.Context, studentUID string, status models.Status) (*TrackerView, error) {
	if !status.Valid() || status == models.StatusNone {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
	}

	if s.cache != nil {
		attempts, err := s.cache.Counter(ctx, budgetKey(studentUID, status))
		if err != nil {
			s.logger.Warn("failed to read fetch budget", zap.Error(err))
		} else if attempts >= int64(s.config.MaxFetchAttempts) {
			return nil, appErrors.Clone(appErrors.ErrFetchExhausted,
				fmt.Sprintf("no %s submissions yet", strings.ToLower(string(status))))
		}
	}

	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{StudentUID: studentUID, Status: status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	if len(submissions) == 0 && s.cache != nil {
		attempts, err := s.cache.Increment(ctx, budgetKey(studentUID, status), s.config.BudgetTTL)
		if err != nil {
			s.logger.Warn("failed to track fetch budget", zap.Error(err))
		} else if attempts >= int64(s.config.MaxFetchAttempts) {
			s.metrics.RecordBudgetExhausted()
			return nil, appErrors.Clone(appErrors.ErrFetchExhausted,
				fmt.Sprintf("no %s submissions yet", strings.ToLower(string(status))))
		}
	}

	return &TrackerView{
		Status:      status,
		StudentID:   s.studentID(ctx, studentUID),
		Submissions: submissions,
	}, nil
}

// Detail loads a single submission joined with its clearance for display.
// The shape branches on the approver role: instructor rows carry requirement
// files and the signature, payment rows carry the purpose, amount, QR code
// and the matching receipt. Approved rows are labelled On Time or Overdue
// against the clearance schedule.
func (s *TrackerService) Detail(ctx context.Context, studentUID, submissionID string) (*models.SubmissionDetail, error) {
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

	clearance, err := s.clearances.FindByID(ctx, submission.ClearanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance")
	}

	detail := &models.SubmissionDetail{
		Submission:   *submission,
		Role:         clearance.Role,
		ApproverName: clearance.ApproverName,
		ScheduleDate: clearance.ScheduleDate,
	}

	if clearance.Role == models.RoleInstructor {
		detail.SignatureURL = clearance.SignatureURL
	} else {
		detail.Purpose = clearance.Purpose
		detail.ClearAmount = clearance.Amount
		detail.QRCodeURL = clearance.QRCodeURL
	}

	if submission.Status == models.StatusApproved && submission.ReviewedAt != nil {
		detail.Timeliness = models.Timeliness(*submission.ReviewedAt, clearance.ScheduleDate)
	}

	return detail, nil
}

// studentID resolves the formatted student ID, preferring the session cache
// populated at login and falling back to the profile row.
func (s *TrackerService) studentID(ctx context.Context, studentUID string) string {
	if s.cache != nil {
		var cached string
		if err := s.cache.Get(ctx, profileCacheKey(studentUID), &cached); err == nil && cached != "" {
			s.metrics.RecordCacheOperation(true)
			return cached
		} else if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("failed to read cached student id", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	user, err := s.users.FindByID(ctx, studentUID)
	if err != nil {
		s.logger.Warn("failed to load student profile", zap.Error(err))
		return ""
	}

	if s.cache != nil && user.StudentID != "" {
		if err := s.cache.Set(ctx, profileCacheKey(studentUID), user.StudentID, s.config.ProfileCacheTTL); err != nil {
			s.logger.Warn("failed to cache student id", zap.Error(err))
		}
	}
	return user.StudentID
}

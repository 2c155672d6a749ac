package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
)

const submissionColumns = `id, clearance_id, student_uid, approver_uid, student_name, student_id, department, course, level, status, submitted_at, reviewed_at, disapproval_reason, requirement_files, gcash_number, amount, adviser_receipt_url, treasurer_receipt_url, dean_receipt_url`

// SubmissionRepository manages persistence for student submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// List returns submissions matching the filter, newest first.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentUID != "" {
		conditions = append(conditions, fmt.Sprintf("student_uid = $%d", len(args)+1))
		args = append(args, filter.StudentUID)
	}
	if filter.ClearanceID != "" {
		conditions = append(conditions, fmt.Sprintf("clearance_id = $%d", len(args)+1))
		args = append(args, filter.ClearanceID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf(`SELECT %s FROM student_submissions WHERE %s ORDER BY submitted_at DESC`,
		submissionColumns, strings.Join(conditions, " AND "))

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// FindByID fetches a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_submissions WHERE id = $1 LIMIT 1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// FindByClearanceAndStudent returns the submission a student made against a
// clearance, or sql.ErrNoRows when none exists.
func (r *SubmissionRepository) FindByClearanceAndStudent(ctx context.Context, clearanceID, studentUID string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_submissions WHERE clearance_id = $1 AND student_uid = $2 ORDER BY submitted_at DESC LIMIT 1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, clearanceID, studentUID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by clearance: %w", err)
	}
	return &submission, nil
}

// StatusesByStudent maps clearance IDs to the student's latest submission
// against each, used to overlay catalog entries with their status.
func (r *SubmissionRepository) StatusesByStudent(ctx context.Context, studentUID string) (map[string]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_submissions WHERE student_uid = $1 ORDER BY submitted_at ASC`, submissionColumns)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, studentUID); err != nil {
		return nil, fmt.Errorf("list submission statuses: %w", err)
	}
	result := make(map[string]models.Submission, len(submissions))
	for _, s := range submissions {
		result[s.ClearanceID] = s
	}
	return result, nil
}

// CreateAndCloseClearance inserts the submission and marks its clearance Done
// in a single transaction. The original flow issued these as independent
// writes and could strand a closed clearance without a submission; batching
// them removes that window.
func (r *SubmissionRepository) CreateAndCloseClearance(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO student_submissions (id, clearance_id, student_uid, approver_uid, student_name, student_id, department, course, level, status, submitted_at, requirement_files, gcash_number, amount, adviser_receipt_url, treasurer_receipt_url, dean_receipt_url)
        VALUES (:id, :clearance_id, :student_uid, :approver_uid, :student_name, :student_id, :department, :course, :level, :status, :submitted_at, :requirement_files, :gcash_number, :amount, :adviser_receipt_url, :treasurer_receipt_url, :dean_receipt_url)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}

	const closeQuery = `UPDATE clearances SET is_submitted = true, status = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, closeQuery, submission.ClearanceID, models.ClearanceStatusDone); err != nil {
		return fmt.Errorf("close clearance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}

// ApplyResubmission writes the resubmission payload. Only the evidence slot
// present in the update is touched; the disapproval reason column is never in
// the SET list.
func (r *SubmissionRepository) ApplyResubmission(ctx context.Context, id string, update models.ResubmitUpdate) error {
	sets := []string{"status = $2", "submitted_at = $3"}
	args := []interface{}{id, update.Status, update.SubmittedAt}

	if update.RequirementFiles != nil {
		sets = append(sets, fmt.Sprintf("requirement_files = $%d", len(args)+1))
		args = append(args, *update.RequirementFiles)
	}
	if update.AdviserReceiptURL != nil {
		sets = append(sets, fmt.Sprintf("adviser_receipt_url = $%d", len(args)+1))
		args = append(args, *update.AdviserReceiptURL)
	}
	if update.TreasurerReceiptURL != nil {
		sets = append(sets, fmt.Sprintf("treasurer_receipt_url = $%d", len(args)+1))
		args = append(args, *update.TreasurerReceiptURL)
	}
	if update.DeanReceiptURL != nil {
		sets = append(sets, fmt.Sprintf("dean_receipt_url = $%d", len(args)+1))
		args = append(args, *update.DeanReceiptURL)
	}
	if update.GcashNumber != nil {
		sets = append(sets, fmt.Sprintf("gcash_number = $%d", len(args)+1))
		args = append(args, *update.GcashNumber)
	}
	if update.Amount != nil {
		sets = append(sets, fmt.Sprintf("amount = $%d", len(args)+1))
		args = append(args, *update.Amount)
	}

	query := fmt.Sprintf(`UPDATE student_submissions SET %s WHERE id = $1`, strings.Join(sets, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply resubmission: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkResubmitting records the transitional Re-submit marker before the
// resubmission uploads begin.
func (r *SubmissionRepository) MarkResubmitting(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE student_submissions SET status = $2, submitted_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.StatusResubmit, ts, models.StatusDisapproved)
	if err != nil {
		return fmt.Errorf("mark resubmitting: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevertResubmitting restores Disapproved after a failed resubmission.
func (r *SubmissionRepository) RevertResubmitting(ctx context.Context, id string) error {
	const query = `UPDATE student_submissions SET status = $2 WHERE id = $1 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, id, models.StatusDisapproved, models.StatusResubmit); err != nil {
		return fmt.Errorf("revert resubmitting: %w", err)
	}
	return nil
}

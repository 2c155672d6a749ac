package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
)

func newSubmissionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows(id, clearanceID string, status models.Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "clearance_id", "student_uid", "approver_uid", "student_name", "student_id", "department", "course", "level", "status", "submitted_at", "reviewed_at", "disapproval_reason", "requirement_files", "gcash_number", "amount", "adviser_receipt_url", "treasurer_receipt_url", "dean_receipt_url"}).
		AddRow(id, clearanceID, "student-1", "approver-1", "Juan Dela Cruz", "123456-7", "CITE", "BSIT", "4th Year", status, time.Now(), nil, nil, `[{"requirement":"Library Card","urls":["/files/a"]}]`, nil, nil, nil, nil, nil)
}

func TestSubmissionRepositoryFindByClearanceAndStudent(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_submissions WHERE clearance_id = $1 AND student_uid = $2 ORDER BY submitted_at DESC LIMIT 1")).
		WithArgs("clr-1", "student-1").
		WillReturnRows(submissionRows("sub-1", "clr-1", models.StatusPending))

	submission, err := repo.FindByClearanceAndStudent(context.Background(), "clr-1", "student-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, submission.Status)
	require.Len(t, submission.RequirementFiles, 1)
	require.Equal(t, "Library Card", submission.RequirementFiles[0].Requirement)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_submissions WHERE clearance_id = $1 AND student_uid = $2")).
		WithArgs("clr-2", "student-1").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByClearanceAndStudent(context.Background(), "clr-2", "student-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryStatusesByStudent(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := submissionRows("sub-1", "clr-1", models.StatusApproved)
	rows.AddRow("sub-2", "clr-2", "student-1", "approver-2", "Juan Dela Cruz", "123456-7", "CITE", "BSIT", "4th Year", models.StatusDisapproved, time.Now(), time.Now(), "blurry photo", `[]`, nil, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_submissions WHERE student_uid = $1 ORDER BY submitted_at ASC")).
		WithArgs("student-1").
		WillReturnRows(rows)

	statuses, err := repo.StatusesByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, models.StatusApproved, statuses["clr-1"].Status)
	require.Equal(t, models.StatusDisapproved, statuses["clr-2"].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateAndCloseClearance(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearances SET is_submitted = true, status = $2 WHERE id = $1")).
		WithArgs("clr-1", models.ClearanceStatusDone).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	submission := &models.Submission{
		ClearanceID: "clr-1",
		StudentUID:  "student-1",
		ApproverUID: "approver-1",
		StudentName: "Juan Dela Cruz",
		StudentID:   "123456-7",
		Department:  "CITE",
		Course:      "BSIT",
		Level:       "4th Year",
		Status:      models.StatusPending,
		SubmittedAt: time.Now(),
		RequirementFiles: models.RequirementFileList{
			{Requirement: models.NoRequirementsSentinel, URLs: []string{}},
		},
	}
	require.NoError(t, repo.CreateAndCloseClearance(context.Background(), submission))
	require.NotEmpty(t, submission.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateRollsBackOnCloseFailure(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearances")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	submission := &models.Submission{ClearanceID: "clr-1", StudentUID: "student-1", Status: models.StatusPending, SubmittedAt: time.Now()}
	err := repo.CreateAndCloseClearance(context.Background(), submission)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApplyResubmissionWritesSingleSlot(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	receipt := "/files/receipts/172000_receipt.png"
	gcash := "09171234567"
	amount := "1,500"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_submissions SET status = $2, submitted_at = $3, treasurer_receipt_url = $4, gcash_number = $5, amount = $6 WHERE id = $1")).
		WithArgs("sub-1", models.StatusPending, sqlmock.AnyArg(), receipt, gcash, amount).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyResubmission(context.Background(), "sub-1", models.ResubmitUpdate{
		Status:              models.StatusPending,
		SubmittedAt:         time.Now(),
		TreasurerReceiptURL: &receipt,
		GcashNumber:         &gcash,
		Amount:              &amount,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkResubmittingRequiresDisapproved(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_submissions SET status = $2, submitted_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("sub-1", models.StatusResubmit, sqlmock.AnyArg(), models.StatusDisapproved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkResubmitting(context.Background(), "sub-1", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

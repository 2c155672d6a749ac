package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
)

func newClearanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func clearanceRows(id string, role models.ApproverRole) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "approver_uid", "approver_name", "approver_department", "role", "target_department", "target_course", "target_level", "schedule_date", "requirements", "amount", "purpose", "qr_code_url", "signature_url", "is_submitted", "status", "created_at"}).
		AddRow(id, "approver-1", "Maria Santos", "CITE", role, "CITE", "BSIT", "4th Year", time.Now().Add(72*time.Hour), `["Library Card"]`, nil, nil, nil, nil, false, models.ClearanceStatusOpen, time.Now())
}

func TestClearanceRepositoryListFiltersByPopulation(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clearances WHERE 1=1 AND target_department = $1 AND target_course = $2 AND target_level = $3 AND status = $4 ORDER BY created_at DESC")).
		WithArgs("CITE", "BSIT", "4th Year", models.ClearanceStatusOpen).
		WillReturnRows(clearanceRows("clr-1", models.RoleInstructor))

	clearances, err := repo.List(context.Background(), models.ClearanceFilter{
		Department: "CITE",
		Course:     "BSIT",
		Level:      "4th Year",
		OpenOnly:   true,
	})
	require.NoError(t, err)
	require.Len(t, clearances, 1)
	require.Equal(t, models.RoleInstructor, clearances[0].Role)
	require.Equal(t, models.StringList{"Library Card"}, clearances[0].Requirements)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clearances WHERE id = $1 LIMIT 1")).
		WithArgs("clr-1").
		WillReturnRows(clearanceRows("clr-1", models.RoleDean))

	clearance, err := repo.FindByID(context.Background(), "clr-1")
	require.NoError(t, err)
	require.Equal(t, "clr-1", clearance.ID)
	require.True(t, clearance.Role.RequiresPayment())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	clearance := &models.Clearance{
		ApproverUID:        "approver-1",
		ApproverName:       "Maria Santos",
		ApproverDepartment: "CITE",
		Role:               models.RoleSSGAdviser,
		TargetDepartment:   "CITE",
		TargetCourse:       "BSIT",
		TargetLevel:        "4th Year",
		ScheduleDate:       time.Now().Add(72 * time.Hour),
		Requirements:       models.StringList{models.NoRequirementsSentinel},
	}
	require.NoError(t, repo.Create(context.Background(), clearance))
	require.NotEmpty(t, clearance.ID)
	require.Equal(t, models.ClearanceStatusOpen, clearance.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

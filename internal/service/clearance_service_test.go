package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
)

type mockCatalogRepo struct {
	clearances []models.Clearance
	lastFilter models.ClearanceFilter
	created    *models.Clearance
}

func (m *mockCatalogRepo) List(ctx context.Context, filter models.ClearanceFilter) ([]models.Clearance, error) {
	m.lastFilter = filter
	return m.clearances, nil
}

func (m *mockCatalogRepo) FindByID(ctx context.Context, id string) (*models.Clearance, error) {
	for i := range m.clearances {
		if m.clearances[i].ID == id {
			return &m.clearances[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) Create(ctx context.Context, clearance *models.Clearance) error {
	clearance.ID = "clr-new"
	m.created = clearance
	return nil
}

type mockStatusReader struct {
	statuses map[string]models.Submission
}

func (m *mockStatusReader) StatusesByStudent(ctx context.Context, studentUID string) (map[string]models.Submission, error) {
	return m.statuses, nil
}

func TestClearanceCatalogOverlaysStatuses(t *testing.T) {
	repo := &mockCatalogRepo{clearances: []models.Clearance{
		{ID: "clr-1", Role: models.RoleInstructor},
		{ID: "clr-2", Role: models.RoleDean},
		{ID: "clr-3", Role: models.RoleSSGAdviser},
	}}
	statuses := &mockStatusReader{statuses: map[string]models.Submission{
		"clr-1": {ID: "sub-1", ClearanceID: "clr-1", Status: models.StatusApproved},
		"clr-2": {ID: "sub-2", ClearanceID: "clr-2", Status: models.StatusDisapproved},
	}}
	users := &mockUserReader{user: testStudent()}
	svc := NewClearanceService(repo, statuses, users, validator.New(), zap.NewNop())

	catalog, err := svc.Catalog(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, catalog, 3)
	assert.Equal(t, models.StatusApproved, catalog[0].SubmissionStatus)
	assert.Equal(t, models.StatusDisapproved, catalog[1].SubmissionStatus)
	assert.Equal(t, models.StatusNone, catalog[2].SubmissionStatus)
	assert.Nil(t, catalog[2].SubmissionID)
	require.NotNil(t, catalog[0].SubmissionID)
	assert.Equal(t, "sub-1", *catalog[0].SubmissionID)

	assert.Equal(t, "CITE", repo.lastFilter.Department)
	assert.Equal(t, "BSIT", repo.lastFilter.Course)
	assert.Equal(t, "4th Year", repo.lastFilter.Level)
	assert.True(t, repo.lastFilter.OpenOnly)
}

func TestClearanceCatalogRejectsNonStudent(t *testing.T) {
	users := &mockUserReader{user: &models.User{ID: "approver-1", Role: models.RoleApprover, Department: "CITE"}}
	svc := NewClearanceService(&mockCatalogRepo{}, &mockStatusReader{}, users, validator.New(), zap.NewNop())

	_, err := svc.Catalog(context.Background(), "approver-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestClearanceCreateDefaultsSentinelRequirements(t *testing.T) {
	repo := &mockCatalogRepo{}
	users := &mockUserReader{user: &models.User{ID: "approver-1", FullName: "Maria Santos", Department: "CITE", Role: models.RoleApprover}}
	svc := NewClearanceService(repo, &mockStatusReader{}, users, validator.New(), zap.NewNop())

	clearance, err := svc.Create(context.Background(), "approver-1", CreateClearanceRequest{
		Role:             models.RoleInstructor,
		TargetDepartment: "CITE",
		TargetCourse:     "BSIT",
		TargetLevel:      "4th Year",
		ScheduleDate:     time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StringList{models.NoRequirementsSentinel}, clearance.Requirements)
	assert.Equal(t, "Maria Santos", clearance.ApproverName)
	assert.False(t, clearance.HasRequirements())
}

func TestClearanceCreateRejectsPaymentOnInstructor(t *testing.T) {
	users := &mockUserReader{user: &models.User{ID: "approver-1", Role: models.RoleApprover}}
	svc := NewClearanceService(&mockCatalogRepo{}, &mockStatusReader{}, users, validator.New(), zap.NewNop())

	amount := "500"
	_, err := svc.Create(context.Background(), "approver-1", CreateClearanceRequest{
		Role:             models.RoleInstructor,
		TargetDepartment: "CITE",
		TargetCourse:     "BSIT",
		TargetLevel:      "4th Year",
		ScheduleDate:     time.Now().Add(72 * time.Hour),
		Amount:           &amount,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClearanceCreateRejectsStudentAccount(t *testing.T) {
	users := &mockUserReader{user: testStudent()}
	svc := NewClearanceService(&mockCatalogRepo{}, &mockStatusReader{}, users, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "student-1", CreateClearanceRequest{
		Role:             models.RoleDean,
		TargetDepartment: "CITE",
		TargetCourse:     "BSIT",
		TargetLevel:      "4th Year",
		ScheduleDate:     time.Now().Add(72 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

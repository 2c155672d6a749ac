package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/export"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/storage"
)

type submissionStub struct{}

func (submissionStub) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	reviewed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	reason := "photo unreadable"
	return []models.Submission{
		{ID: "sub-1", ClearanceID: "clr-1", StudentUID: filter.StudentUID, Status: models.StatusApproved, SubmittedAt: reviewed.Add(-48 * time.Hour), ReviewedAt: &reviewed},
		{ID: "sub-2", ClearanceID: "clr-1", StudentUID: filter.StudentUID, Status: models.StatusDisapproved, SubmittedAt: reviewed, DisapprovalReason: &reason},
	}, nil
}

type clearanceStub struct{}

func (clearanceStub) FindByID(ctx context.Context, id string) (*models.Clearance, error) {
	return &models.Clearance{
		ID:           id,
		ApproverName: "Maria Santos",
		Role:         models.RoleInstructor,
		ScheduleDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(submissionStub{}, clearanceStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeClearanceStatus,
		Params:    models.ReportJobParams{StudentUID: "student-1", Format: models.ReportFormatCSV},
		CreatedBy: "student-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	payload, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	content := string(payload)
	assert.Contains(t, content, "Maria Santos")
	assert.Contains(t, content, models.TimelinessOnTime)
	assert.Contains(t, content, "photo unreadable")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypeClearanceStatus,
		Params: models.ReportJobParams{StudentUID: "student-1", Format: models.ReportFormatPDF},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	payload, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	_, err := svc.Generate(context.Background(), &models.ReportJob{ID: "job-3", Type: "grades"})
	require.Error(t, err)
}

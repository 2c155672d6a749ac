package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/export"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/storage"
)

type exportSubmissionReader interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

type exportClearanceReader interface {
	FindByID(ctx context.Context, id string) (*models.Clearance, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders a student's clearance status table to CSV or PDF and
// persists the result behind a signed download token.
type ExportService struct {
	submissions exportSubmissionReader
	clearances  exportClearanceReader
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(submissions exportSubmissionReader, clearances exportClearanceReader, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		submissions: submissions,
		clearances:  clearances,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeClearanceStatus {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}

	dataset, title, err := s.buildClearanceStatusDataset(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", job.Type, timestamp, job.Params.Format)
}

// buildClearanceStatusDataset rows the student's submissions with their
// approver, role, due date, status and timeliness.
func (s *ExportService) buildClearanceStatusDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{StudentUID: params.StudentUID})
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(submissions))
	for _, submission := range submissions {
		clearance, err := s.clearances.FindByID(ctx, submission.ClearanceID)
		if err != nil {
			return export.Dataset{}, "", err
		}

		timeliness := ""
		if submission.Status == models.StatusApproved && submission.ReviewedAt != nil {
			timeliness = models.Timeliness(*submission.ReviewedAt, clearance.ScheduleDate)
		}
		reason := ""
		if submission.DisapprovalReason != nil {
			reason = *submission.DisapprovalReason
		}

		dataRows = append(dataRows, map[string]string{
			"Approver":     clearance.ApproverName,
			"Role":         string(clearance.Role),
			"Due Date":     clearance.ScheduleDate.UTC().Format("2006-01-02"),
			"Status":       string(submission.Status),
			"Submitted At": submission.SubmittedAt.UTC().Format(time.RFC3339),
			"Timeliness":   timeliness,
			"Remarks":      reason,
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Approver", "Role", "Due Date", "Status", "Submitted At", "Timeliness", "Remarks"},
		Rows:    dataRows,
	}
	return dataset, "Clearance Status Report", nil
}

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

const clearanceColumns = `id, approver_uid, approver_name, approver_department, role, target_department, target_course, target_level, schedule_date, requirements, amount, purpose, qr_code_url, signature_url, is_submitted, status, created_at`

// ClearanceRepository manages persistence for the clearance catalog.
type ClearanceRepository struct {
	db *sqlx.DB
}

// NewClearanceRepository constructs a ClearanceRepository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{db: db}
}

// List returns clearances matching the population filter.
func (r *ClearanceRepository) List(ctx context.Context, filter models.ClearanceFilter) ([]models.Clearance, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("target_department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("target_course = $%d", len(args)+1))
		args = append(args, filter.Course)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("target_level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.OpenOnly {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, models.ClearanceStatusOpen)
	}

	query := fmt.Sprintf(`SELECT %s FROM clearances WHERE %s ORDER BY created_at DESC`,
		clearanceColumns, strings.Join(conditions, " AND "))

	var clearances []models.Clearance
	if err := r.db.SelectContext(ctx, &clearances, query, args...); err != nil {
		return nil, fmt.Errorf("list clearances: %w", err)
	}
	return clearances, nil
}

// FindByID fetches a clearance by identifier.
func (r *ClearanceRepository) FindByID(ctx context.Context, id string) (*models.Clearance, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearances WHERE id = $1 LIMIT 1`, clearanceColumns)
	var clearance models.Clearance
	if err := r.db.GetContext(ctx, &clearance, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find clearance: %w", err)
	}
	return &clearance, nil
}

// Create inserts a new clearance record.
func (r *ClearanceRepository) Create(ctx context.Context, clearance *models.Clearance) error {
	if clearance.ID == "" {
		clearance.ID = uuid.NewString()
	}
	if clearance.CreatedAt.IsZero() {
		clearance.CreatedAt = time.Now().UTC()
	}
	if clearance.Status == "" {
		clearance.Status = models.ClearanceStatusOpen
	}
	const query = `INSERT INTO clearances (id, approver_uid, approver_name, approver_department, role, target_department, target_course, target_level, schedule_date, requirements, amount, purpose, qr_code_url, signature_url, is_submitted, status, created_at)
        VALUES (:id, :approver_uid, :approver_name, :approver_department, :role, :target_department, :target_course, :target_level, :schedule_date, :requirements, :amount, :purpose, :qr_code_url, :signature_url, :is_submitted, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, clearance); err != nil {
		return fmt.Errorf("create clearance: %w", err)
	}
	return nil
}

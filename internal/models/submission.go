package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a student submission.
//
// None is never persisted on a submission row; it is the synthetic state of a
// clearance the student has not responded to yet. Re-submit is a transitional
// marker recorded while a resubmission is being re-uploaded and always
// settles to Pending once the update lands.
type Status string

const (
	StatusNone        Status = "None"
	StatusPending     Status = "Pending"
	StatusApproved    Status = "Approved"
	StatusDisapproved Status = "Disapproved"
	StatusResubmit    Status = "Re-submit"
)

// Valid reports whether the value belongs to the status domain.
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusApproved, StatusDisapproved, StatusResubmit:
		return true
	}
	return false
}

// Terminal reports whether the student can take no further action.
func (s Status) Terminal() bool {
	return s == StatusApproved
}

// CanTransition reports whether a student-driven move from s to next is
// allowed. Approver-driven moves (Pending to Approved/Disapproved) happen
// outside this service and are only ever read back.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusNone:
		return next == StatusPending
	case StatusDisapproved:
		return next == StatusPending || next == StatusResubmit
	case StatusResubmit:
		return next == StatusPending
	}
	return false
}

// RequirementFile pairs a requirement label with the uploaded evidence URLs.
type RequirementFile struct {
	Requirement string   `json:"requirement"`
	URLs        []string `json:"urls"`
}

// RequirementFileList stores the requirement evidence as JSON in one column.
type RequirementFileList []RequirementFile

// Value implements driver.Valuer.
func (l RequirementFileList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal requirement files: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *RequirementFileList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("unsupported requirement file source %T", src)
}

// Submission is a student's response to a clearance. Exactly one of the three
// receipt slots is ever written, matching the clearance role; instructor
// submissions use RequirementFiles instead.
type Submission struct {
	ID                  string              `db:"id" json:"id"`
	ClearanceID         string              `db:"clearance_id" json:"clearance_id"`
	StudentUID          string              `db:"student_uid" json:"student_uid"`
	ApproverUID         string              `db:"approver_uid" json:"approver_uid"`
	StudentName         string              `db:"student_name" json:"student_name"`
	StudentID           string              `db:"student_id" json:"student_id"`
	Department          string              `db:"department" json:"department"`
	Course              string              `db:"course" json:"course"`
	Level               string              `db:"level" json:"level"`
	Status              Status              `db:"status" json:"status"`
	SubmittedAt         time.Time           `db:"submitted_at" json:"submitted_at"`
	ReviewedAt          *time.Time          `db:"reviewed_at" json:"reviewed_at,omitempty"`
	DisapprovalReason   *string             `db:"disapproval_reason" json:"disapproval_reason,omitempty"`
	RequirementFiles    RequirementFileList `db:"requirement_files" json:"requirement_files"`
	GcashNumber         *string             `db:"gcash_number" json:"gcash_number,omitempty"`
	Amount              *string             `db:"amount" json:"amount,omitempty"`
	AdviserReceiptURL   *string             `db:"adviser_receipt_url" json:"adviser_receipt_url,omitempty"`
	TreasurerReceiptURL *string             `db:"treasurer_receipt_url" json:"treasurer_receipt_url,omitempty"`
	DeanReceiptURL      *string             `db:"dean_receipt_url" json:"dean_receipt_url,omitempty"`
}

// ReceiptURL returns the receipt slot matching the given role.
func (s *Submission) ReceiptURL(role ApproverRole) *string {
	switch role {
	case RoleSSGAdviser:
		return s.AdviserReceiptURL
	case RolePTCATreasurer:
		return s.TreasurerReceiptURL
	case RoleDean:
		return s.DeanReceiptURL
	}
	return nil
}

// SetReceiptURL writes the receipt slot matching the given role.
func (s *Submission) SetReceiptURL(role ApproverRole, url string) {
	switch role {
	case RoleSSGAdviser:
		s.AdviserReceiptURL = &url
	case RolePTCATreasurer:
		s.TreasurerReceiptURL = &url
	case RoleDean:
		s.DeanReceiptURL = &url
	}
}

// SubmissionFilter restricts tracker queries.
type SubmissionFilter struct {
	StudentUID  string
	ClearanceID string
	Status      Status
}

// Timeliness labels for approved submissions.
const (
	TimelinessOnTime  = "On Time"
	TimelinessOverdue = "Overdue"
)

// Timeliness classifies an approval against the clearance due date. The
// comparison is strict: an approval after midnight of the schedule date is
// overdue, approval on or before it is on time.
func Timeliness(reviewedAt, scheduleDate time.Time) string {
	if reviewedAt.After(scheduleDate) {
		return TimelinessOverdue
	}
	return TimelinessOnTime
}

// ResubmitUpdate carries the fields a resubmission writes back. Exactly one
// of the four evidence slots is non-nil, decided by the clearance role; the
// disapproval reason is deliberately absent so it survives for audit display.
type ResubmitUpdate struct {
	RequirementFiles    *RequirementFileList
	AdviserReceiptURL   *string
	TreasurerReceiptURL *string
	DeanReceiptURL      *string
	GcashNumber         *string
	Amount              *string
	Status              Status
	SubmittedAt         time.Time
}

// SubmissionDetail is the role-branched read view the tracker renders.
// Instructor submissions expose requirement files and the approver signature;
// payment roles expose purpose, amount, QR code, GCash number and the
// role-specific receipt.
type SubmissionDetail struct {
	Submission
	Role         ApproverRole `json:"role"`
	ApproverName string       `json:"approver_name"`
	ScheduleDate time.Time    `json:"schedule_date"`
	Purpose      *string      `json:"purpose,omitempty"`
	ClearAmount  *string      `json:"clearance_amount,omitempty"`
	QRCodeURL    *string      `json:"qr_code_url,omitempty"`
	SignatureURL *string      `json:"signature_url,omitempty"`
	Timeliness   string       `json:"timeliness,omitempty"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ApproverRole identifies which approver desk issued a clearance. The role
// determines the submission form: instructors collect requirement files,
// every other role collects a payment receipt.
type ApproverRole string

const (
	RoleInstructor    ApproverRole = "INSTRUCTOR"
	RoleSSGAdviser    ApproverRole = "SSG ADVISER"
	RolePTCATreasurer ApproverRole = "PTCA TREASURER"
	RoleDean          ApproverRole = "DEAN"
)

// Valid reports whether the role is one of the four approver desks.
func (r ApproverRole) Valid() bool {
	switch r {
	case RoleInstructor, RoleSSGAdviser, RolePTCATreasurer, RoleDean:
		return true
	}
	return false
}

// RequiresPayment reports whether submissions against this role carry a
// GCash payment and receipt instead of requirement files.
func (r ApproverRole) RequiresPayment() bool {
	return r.Valid() && r != RoleInstructor
}

// NoRequirementsSentinel is stored as the single requirement entry when a
// clearance declares no requirements. Both the create and resubmit paths
// record `{requirement: "No", urls: []}` instead of an empty list.
const NoRequirementsSentinel = "No"

// Clearance lifecycle status values.
const (
	ClearanceStatusOpen = "Open"
	ClearanceStatusDone = "Done"
)

// StringList stores a JSON-encoded list of strings in a single column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("unsupported string list source %T", src)
}

// Clearance is a sign-off request created by an approver and addressed to a
// population of students (department + course + level).
type Clearance struct {
	ID                 string       `db:"id" json:"id"`
	ApproverUID        string       `db:"approver_uid" json:"approver_uid"`
	ApproverName       string       `db:"approver_name" json:"approver_name"`
	ApproverDepartment string       `db:"approver_department" json:"approver_department"`
	Role               ApproverRole `db:"role" json:"role"`
	TargetDepartment   string       `db:"target_department" json:"target_department"`
	TargetCourse       string       `db:"target_course" json:"target_course"`
	TargetLevel        string       `db:"target_level" json:"target_level"`
	ScheduleDate       time.Time    `db:"schedule_date" json:"schedule_date"`
	Requirements       StringList   `db:"requirements" json:"requirements"`
	Amount             *string      `db:"amount" json:"amount,omitempty"`
	Purpose            *string      `db:"purpose" json:"purpose,omitempty"`
	QRCodeURL          *string      `db:"qr_code_url" json:"qr_code_url,omitempty"`
	SignatureURL       *string      `db:"signature_url" json:"signature_url,omitempty"`
	IsSubmitted        bool         `db:"is_submitted" json:"is_submitted"`
	Status             string       `db:"status" json:"status"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
}

// HasRequirements reports whether the clearance demands at least one
// attachment. The sentinel entry counts as "nothing required".
func (c *Clearance) HasRequirements() bool {
	if len(c.Requirements) == 0 {
		return false
	}
	if len(c.Requirements) == 1 && c.Requirements[0] == NoRequirementsSentinel {
		return false
	}
	return true
}

// ClearanceFilter restricts catalog queries to a student population.
type ClearanceFilter struct {
	Department string
	Course     string
	Level      string
	Role       ApproverRole
	OpenOnly   bool
}

// ClearanceWithStatus overlays the caller's submission state onto a catalog
// entry. Status is None when the student has no submission against it.
type ClearanceWithStatus struct {
	Clearance
	SubmissionStatus Status  `json:"submission_status"`
	SubmissionID     *string `json:"submission_id,omitempty"`
}

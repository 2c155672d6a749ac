package models

import "time"

// UserRole represents the account type attached to a profile.
type UserRole string

const (
	RoleStudent  UserRole = "STUDENT"
	RoleApprover UserRole = "APPROVER"
)

// StudentDepartments lists the department codes recognised as student
// accounts. A profile whose department is not in this list is treated as
// non-student and denied the student endpoints.
var StudentDepartments = []string{"CITE", "COCJE", "COTE", "COHM"}

// IsStudentDepartment reports whether the code maps to a student department.
func IsStudentDepartment(code string) bool {
	for _, d := range StudentDepartments {
		if d == code {
			return true
		}
	}
	return false
}

// User represents a registered account stored in the users table. Student
// profile fields (student ID, department, course, level, semester) are set at
// registration and immutable through this service.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Department   string     `db:"department" json:"department"`
	Course       string     `db:"course" json:"course"`
	Level        string     `db:"level" json:"level"`
	Semester     string     `db:"semester" json:"semester"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsStudent reports whether the profile passes the student gate.
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent && IsStudentDepartment(u.Department)
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Teacher represents a teaching staff record.
type Teacher struct {
	ID                string         `db:"id" json:"id"`
	EmployeeID        string         `db:"employee_id" json:"employee_id"`
	SchoolID          string         `db:"school_id" json:"school_id"`
	SchoolCode        string         `db:"school_code" json:"school_code"`
	SchoolName        string         `db:"school_name" json:"school_name"`
	Name              string         `db:"name" json:"name"`
	Email             string         `db:"email" json:"email"`
	Phone             string         `db:"phone" json:"phone"`
	PasswordHash      string         `db:"password_hash" json:"-"`
	Subject           string         `db:"subject" json:"subject"`
	Classes           pq.StringArray `db:"classes" json:"classes"`
	Status            string         `db:"status" json:"status"`
	JoinDate          string         `db:"join_date" json:"join_date,omitempty"`
	Qualifications    pq.StringArray `db:"qualifications" json:"qualifications"`
	Experience        int            `db:"experience" json:"experience"`
	Address           string         `db:"address" json:"address,omitempty"`
	DateOfBirth       string         `db:"date_of_birth" json:"date_of_birth,omitempty"`
	EmergencyContact  string         `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Gender            string         `db:"gender" json:"gender,omitempty"`
	BloodGroup        string         `db:"blood_group" json:"blood_group,omitempty"`
	Designation       string         `db:"designation" json:"designation"`
	Department        string         `db:"department" json:"department,omitempty"`
	Salary            *float64       `db:"salary" json:"salary,omitempty"`
	ProfileImage      string         `db:"profile_image" json:"profile_image,omitempty"`
	Role              Role           `db:"role" json:"role"`
	CreatedBy         string         `db:"created_by" json:"created_by,omitempty"`
	LastLogin         *time.Time     `db:"last_login" json:"last_login,omitempty"`
	PasswordChangedAt *time.Time     `db:"password_changed_at" json:"password_changed_at,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// RegisterTeacherRequest creates a teacher account.
type RegisterTeacherRequest struct {
	Name             string   `json:"name" validate:"required"`
	Email            string   `json:"email" validate:"required"`
	Phone            string   `json:"phone" validate:"required"`
	Subject          string   `json:"subject" validate:"required"`
	Classes          []string `json:"classes"`
	Qualifications   []string `json:"qualifications"`
	Experience       int      `json:"experience"`
	JoinDate         string   `json:"join_date"`
	Address          string   `json:"address"`
	DateOfBirth      string   `json:"date_of_birth"`
	EmergencyContact string   `json:"emergency_contact"`
	Gender           string   `json:"gender"`
	BloodGroup       string   `json:"blood_group"`
	Designation      string   `json:"designation"`
	Department       string   `json:"department"`
	Salary           *float64 `json:"salary"`
	SchoolID         string   `json:"school_id"`
}

// RegisterTeacherResult returns the issued identifiers and the one-time
// temporary password.
type RegisterTeacherResult struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}

// StringList unmarshals from either a JSON array or a comma-separated
// string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*l = asList
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	var out []string
	for _, part := range strings.Split(asString, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*l = out
	return nil
}

// UpdateTeacherRequest carries a partial update. Nil fields are untouched.
type UpdateTeacherRequest struct {
	Name             *string    `json:"name"`
	Email            *string    `json:"email"`
	Phone            *string    `json:"phone"`
	Subject          *string    `json:"subject"`
	Classes          StringList `json:"classes"`
	Qualifications   StringList `json:"qualifications"`
	Experience       *int       `json:"experience"`
	Address          *string    `json:"address"`
	DateOfBirth      *string    `json:"date_of_birth"`
	EmergencyContact *string    `json:"emergency_contact"`
	Gender           *string    `json:"gender"`
	BloodGroup       *string    `json:"blood_group"`
	Designation      *string    `json:"designation"`
	Department       *string    `json:"department"`
	Salary           *float64   `json:"salary"`
	ProfileImage     *string    `json:"profile_image"`
}

// TeacherFilter captures list filtering and pagination for teachers.
type TeacherFilter struct {
	SchoolID  string
	Status    string
	Subject   string
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// TeacherStatistics aggregates roster numbers for dashboards.
type TeacherStatistics struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	Inactive      int            `json:"inactive"`
	BySubject     map[string]int `json:"by_subject"`
	AvgExperience float64        `json:"avg_experience"`
	MinExperience int            `json:"min_experience"`
	MaxExperience int            `json:"max_experience"`
	NewThisYear   int            `json:"new_this_year"`
}

// TeacherImportRow is one parsed spreadsheet row from a bulk import file.
type TeacherImportRow struct {
	RowNumber int
	Name      string
	Email     string
	Phone     string
	Subject   string
	Classes   []string
}

// ImportResult summarises a bulk import run. Errors are capped by the
// service so a bad file does not produce an unbounded response.
type ImportResult struct {
	Processed       int      `json:"processed"`
	Successful      int      `json:"successful"`
	Failed          int      `json:"failed"`
	Duplicates      int      `json:"duplicates"`
	Errors          []string `json:"errors,omitempty"`
	DuplicateEmails []string `json:"duplicate_emails,omitempty"`
}

// ResetPasswordResult returns the regenerated one-time password.
type ResetPasswordResult struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}

package models

import "time"

const (
	StudentStatusGraduated   = "graduated"
	StudentStatusTransferred = "transferred"
)

// Student represents an enrolled student record.
type Student struct {
	ID                string    `db:"id" json:"id"`
	StudentID         string    `db:"student_id" json:"student_id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	Phone             string    `db:"phone" json:"phone,omitempty"`
	RollNumber        string    `db:"roll_number" json:"roll_number"`
	Class             string    `db:"class" json:"class"`
	Section           string    `db:"section" json:"section"`
	DateOfBirth       string    `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            string    `db:"gender" json:"gender,omitempty"`
	Address           string    `db:"address" json:"address,omitempty"`
	ParentName        string    `db:"parent_name" json:"parent_name,omitempty"`
	ParentPhone       string    `db:"parent_phone" json:"parent_phone,omitempty"`
	ParentEmail       string    `db:"parent_email" json:"parent_email,omitempty"`
	ParentOccupation  string    `db:"parent_occupation" json:"parent_occupation,omitempty"`
	BloodGroup        string    `db:"blood_group" json:"blood_group,omitempty"`
	MedicalConditions string    `db:"medical_conditions" json:"medical_conditions,omitempty"`
	AdmissionDate     string    `db:"admission_date" json:"admission_date,omitempty"`
	Attendance        float64   `db:"attendance" json:"attendance"`
	Performance       float64   `db:"performance" json:"performance"`
	Status            string    `db:"status" json:"status"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	InitialPassword   string    `db:"initial_password" json:"-"`
	ProfileImage      string    `db:"profile_image" json:"profile_image,omitempty"`
	CreatedBy         string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// CreateStudentRequest enrolls a single student.
type CreateStudentRequest struct {
	Name              string  `json:"name" validate:"required"`
	Email             string  `json:"email" validate:"required"`
	Class             string  `json:"class" validate:"required"`
	Section           string  `json:"section" validate:"required"`
	Phone             string  `json:"phone"`
	RollNumber        string  `json:"roll_number"`
	DateOfBirth       string  `json:"date_of_birth"`
	Gender            string  `json:"gender"`
	Address           string  `json:"address"`
	ParentName        string  `json:"parent_name"`
	ParentPhone       string  `json:"parent_phone"`
	ParentEmail       string  `json:"parent_email"`
	ParentOccupation  string  `json:"parent_occupation"`
	BloodGroup        string  `json:"blood_group"`
	MedicalConditions string  `json:"medical_conditions"`
	AdmissionDate     string  `json:"admission_date"`
	Attendance        float64 `json:"attendance"`
	Performance       float64 `json:"performance"`
}

// CreateStudentResult returns the issued identifiers and the one-time
// initial password.
type CreateStudentResult struct {
	ID              string `json:"id"`
	StudentID       string `json:"student_id"`
	Email           string `json:"email"`
	InitialPassword string `json:"initial_password"`
}

// UpdateStudentRequest carries a partial update. Nil fields are untouched.
type UpdateStudentRequest struct {
	Name              *string  `json:"name"`
	Email             *string  `json:"email"`
	Phone             *string  `json:"phone"`
	RollNumber        *string  `json:"roll_number"`
	Class             *string  `json:"class"`
	Section           *string  `json:"section"`
	DateOfBirth       *string  `json:"date_of_birth"`
	Gender            *string  `json:"gender"`
	Address           *string  `json:"address"`
	ParentName        *string  `json:"parent_name"`
	ParentPhone       *string  `json:"parent_phone"`
	ParentEmail       *string  `json:"parent_email"`
	ParentOccupation  *string  `json:"parent_occupation"`
	BloodGroup        *string  `json:"blood_group"`
	MedicalConditions *string  `json:"medical_conditions"`
	AdmissionDate     *string  `json:"admission_date"`
	Attendance        *float64 `json:"attendance"`
	Performance       *float64 `json:"performance"`
	Status            *string  `json:"status"`
}

// StudentFilter captures list filtering and pagination for students.
type StudentFilter struct {
	Class     string
	Section   string
	Status    string
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// StudentImportRow is one parsed spreadsheet row from a bulk import file.
type StudentImportRow struct {
	RowNumber   int
	Name        string
	Email       string
	Class       string
	Section     string
	Phone       string
	ParentName  string
	ParentPhone string
}

// BulkDeleteRequest removes several students in one call.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BulkDeleteResult reports how many records were removed.
type BulkDeleteResult struct {
	Requested int `json:"requested"`
	Deleted   int `json:"deleted"`
}

// StudentStatistics aggregates roster numbers for dashboards.
type StudentStatistics struct {
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	Inactive       int            `json:"inactive"`
	Graduated      int            `json:"graduated"`
	Transferred    int            `json:"transferred"`
	ByClass        map[string]int `json:"by_class"`
	AvgAttendance  float64        `json:"avg_attendance"`
	AvgPerformance float64        `json:"avg_performance"`
	TopPerformers  int            `json:"top_performers"`
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/intellilearn/admin-api/internal/models"
)

const studentColumns = `id, student_id, name, email, phone, roll_number, class, section, date_of_birth,
	gender, address, parent_name, parent_phone, parent_email, parent_occupation, blood_group,
	medical_conditions, admission_date, attendance, performance, status, password_hash,
	initial_password, profile_image, created_by, created_at, updated_at`

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching filters along with total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Class != "" {
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, filter.Class)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(roll_number) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(COALESCE(parent_name, '')) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"name":        "name",
		"email":       "email",
		"roll_number": "roll_number",
		"class":       "class",
		"attendance":  "attendance",
		"performance": "performance",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, limit, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID fetches a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByStudentID fetches a student by their business identifier.
func (r *StudentRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE student_id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByEmail checks if another student uses the same email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// ExistingEmails returns which of the given emails are already registered.
// One round trip regardless of batch size.
func (r *StudentRepository) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(emails))
	for i, email := range emails {
		lowered[i] = strings.ToLower(email)
	}
	const query = "SELECT LOWER(email) FROM students WHERE LOWER(email) = ANY($1)"
	var existing []string
	if err := r.db.SelectContext(ctx, &existing, query, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("check student emails: %w", err)
	}
	return existing, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, student_id, name, email, phone, roll_number, class, section,
		date_of_birth, gender, address, parent_name, parent_phone, parent_email, parent_occupation,
		blood_group, medical_conditions, admission_date, attendance, performance, status, password_hash,
		initial_password, profile_image, created_by, created_at, updated_at)
		VALUES (:id, :student_id, :name, :email, :phone, :roll_number, :class, :section, :date_of_birth,
		:gender, :address, :parent_name, :parent_phone, :parent_email, :parent_occupation, :blood_group,
		:medical_conditions, :admission_date, :attendance, :performance, :status, :password_hash,
		:initial_password, :profile_image, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkInsert inserts a batch of students in a single statement.
func (r *StudentRepository) BulkInsert(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
		if students[i].CreatedAt.IsZero() {
			students[i].CreatedAt = now
		}
		students[i].UpdatedAt = now
	}

	const query = `INSERT INTO students (id, student_id, name, email, phone, roll_number, class, section,
		date_of_birth, gender, address, parent_name, parent_phone, parent_email, parent_occupation,
		blood_group, medical_conditions, admission_date, attendance, performance, status, password_hash,
		initial_password, profile_image, created_by, created_at, updated_at)
		VALUES (:id, :student_id, :name, :email, :phone, :roll_number, :class, :section, :date_of_birth,
		:gender, :address, :parent_name, :parent_phone, :parent_email, :parent_occupation, :blood_group,
		:medical_conditions, :admission_date, :attendance, :performance, :status, :password_hash,
		:initial_password, :profile_image, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, students); err != nil {
		return fmt.Errorf("bulk insert students: %w", err)
	}
	return nil
}

// Update persists the full student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, phone = :phone,
		roll_number = :roll_number, class = :class, section = :section, date_of_birth = :date_of_birth,
		gender = :gender, address = :address, parent_name = :parent_name, parent_phone = :parent_phone,
		parent_email = :parent_email, parent_occupation = :parent_occupation, blood_group = :blood_group,
		medical_conditions = :medical_conditions, admission_date = :admission_date,
		attendance = :attendance, performance = :performance, status = :status,
		profile_image = :profile_image, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

type studentAggregates struct {
	Total          int     `db:"total"`
	Active         int     `db:"active"`
	Inactive       int     `db:"inactive"`
	Graduated      int     `db:"graduated"`
	Transferred    int     `db:"transferred"`
	AvgAttendance  float64 `db:"avg_attendance"`
	AvgPerformance float64 `db:"avg_performance"`
	TopPerformers  int     `db:"top_performers"`
}

// Statistics computes roster aggregates for students.
func (r *StudentRepository) Statistics(ctx context.Context) (*models.StudentStatistics, error) {
	const aggQuery = `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'active') AS active,
		COUNT(*) FILTER (WHERE status = 'inactive') AS inactive,
		COUNT(*) FILTER (WHERE status = 'graduated') AS graduated,
		COUNT(*) FILTER (WHERE status = 'transferred') AS transferred,
		COALESCE(AVG(attendance), 0) AS avg_attendance,
		COALESCE(AVG(performance), 0) AS avg_performance,
		COUNT(*) FILTER (WHERE performance >= 90) AS top_performers
		FROM students`
	var agg studentAggregates
	if err := r.db.GetContext(ctx, &agg, aggQuery); err != nil {
		return nil, fmt.Errorf("student statistics: %w", err)
	}

	const classQuery = `SELECT class, COUNT(*) AS count FROM students
		WHERE class <> '' GROUP BY class ORDER BY count DESC`
	rows, err := r.db.QueryxContext(ctx, classQuery)
	if err != nil {
		return nil, fmt.Errorf("student class distribution: %w", err)
	}
	defer rows.Close()

	byClass := make(map[string]int)
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("scan class distribution: %w", err)
		}
		byClass[class] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("class distribution rows: %w", err)
	}

	return &models.StudentStatistics{
		Total:          agg.Total,
		Active:         agg.Active,
		Inactive:       agg.Inactive,
		Graduated:      agg.Graduated,
		Transferred:    agg.Transferred,
		ByClass:        byClass,
		AvgAttendance:  agg.AvgAttendance,
		AvgPerformance: agg.AvgPerformance,
		TopPerformers:  agg.TopPerformers,
	}, nil
}

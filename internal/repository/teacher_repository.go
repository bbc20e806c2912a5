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

const teacherColumns = `id, employee_id, school_id, school_code, school_name, name, email, phone,
	password_hash, subject, classes, status, join_date, qualifications, experience, address,
	date_of_birth, emergency_contact, gender, blood_group, designation, department, salary,
	profile_image, role, created_by, last_login, password_changed_at, created_at, updated_at`

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(subject) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(employee_id) LIKE $%d OR LOWER(subject) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1, len(args)+1))
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
		"employee_id": "employee_id",
		"subject":     "subject",
		"experience":  "experience",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, base, column, order, limit, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	return teachers, total, nil
}

// All returns every teacher, optionally scoped to one school. Used by
// roster exports.
func (r *TeacherRepository) All(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE ($1 = '' OR school_id = $1) ORDER BY name ASC", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("export teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by primary key.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByEmployeeID fetches a teacher by their business identifier.
func (r *TeacherRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE employee_id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, employeeID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByEmail fetches a teacher by email.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE LOWER(email) = LOWER($1)", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, email); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1)"
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
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// ExistingEmails returns which of the given emails are already registered.
// One round trip regardless of batch size.
func (r *TeacherRepository) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(emails))
	for i, email := range emails {
		lowered[i] = strings.ToLower(email)
	}
	const query = "SELECT LOWER(email) FROM teachers WHERE LOWER(email) = ANY($1)"
	var existing []string
	if err := r.db.SelectContext(ctx, &existing, query, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("check teacher emails: %w", err)
	}
	return existing, nil
}

// CountBySchoolCode counts teachers registered under a school code. Used to
// derive the next employee id sequence number.
func (r *TeacherRepository) CountBySchoolCode(ctx context.Context, schoolCode string) (int, error) {
	const query = "SELECT COUNT(*) FROM teachers WHERE school_code = $1"
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolCode); err != nil {
		return 0, fmt.Errorf("count teachers by school: %w", err)
	}
	return count, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, employee_id, school_id, school_code, school_name, name, email,
		phone, password_hash, subject, classes, status, join_date, qualifications, experience, address,
		date_of_birth, emergency_contact, gender, blood_group, designation, department, salary,
		profile_image, role, created_by, created_at, updated_at)
		VALUES (:id, :employee_id, :school_id, :school_code, :school_name, :name, :email, :phone,
		:password_hash, :subject, :classes, :status, :join_date, :qualifications, :experience, :address,
		:date_of_birth, :emergency_contact, :gender, :blood_group, :designation, :department, :salary,
		:profile_image, :role, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// BulkInsert inserts a batch of teachers in a single statement.
func (r *TeacherRepository) BulkInsert(ctx context.Context, teachers []models.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range teachers {
		if teachers[i].ID == "" {
			teachers[i].ID = uuid.NewString()
		}
		if teachers[i].CreatedAt.IsZero() {
			teachers[i].CreatedAt = now
		}
		teachers[i].UpdatedAt = now
	}

	const query = `INSERT INTO teachers (id, employee_id, school_id, school_code, school_name, name, email,
		phone, password_hash, subject, classes, status, join_date, qualifications, experience, address,
		date_of_birth, emergency_contact, gender, blood_group, designation, department, salary,
		profile_image, role, created_by, created_at, updated_at)
		VALUES (:id, :employee_id, :school_id, :school_code, :school_name, :name, :email, :phone,
		:password_hash, :subject, :classes, :status, :join_date, :qualifications, :experience, :address,
		:date_of_birth, :emergency_contact, :gender, :blood_group, :designation, :department, :salary,
		:profile_image, :role, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teachers); err != nil {
		return fmt.Errorf("bulk insert teachers: %w", err)
	}
	return nil
}

// Update persists the full teacher record.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, phone = :phone, subject = :subject,
		classes = :classes, status = :status, join_date = :join_date, qualifications = :qualifications,
		experience = :experience, address = :address, date_of_birth = :date_of_birth,
		emergency_contact = :emergency_contact, gender = :gender, blood_group = :blood_group,
		designation = :designation, department = :department, salary = :salary,
		profile_image = :profile_image, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash and stamps the change.
func (r *TeacherRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE teachers SET password_hash = $2, password_changed_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher password: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps a successful authentication.
func (r *TeacherRepository) UpdateLastLogin(ctx context.Context, id string) error {
	const query = `UPDATE teachers SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher last login: %w", err)
	}
	return nil
}

// UpdateStatus sets the teacher status.
func (r *TeacherRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE teachers SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher status: %w", err)
	}
	return nil
}

// Delete removes a teacher record.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teachers WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

type teacherAggregates struct {
	Total         int     `db:"total"`
	Active        int     `db:"active"`
	Inactive      int     `db:"inactive"`
	AvgExperience float64 `db:"avg_experience"`
	MinExperience int     `db:"min_experience"`
	MaxExperience int     `db:"max_experience"`
	NewThisYear   int     `db:"new_this_year"`
}

// Statistics computes roster aggregates, optionally scoped to one school.
func (r *TeacherRepository) Statistics(ctx context.Context, schoolID string) (*models.TeacherStatistics, error) {
	const aggQuery = `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'active') AS active,
		COUNT(*) FILTER (WHERE status = 'inactive') AS inactive,
		COALESCE(AVG(experience), 0) AS avg_experience,
		COALESCE(MIN(experience), 0) AS min_experience,
		COALESCE(MAX(experience), 0) AS max_experience,
		COUNT(*) FILTER (WHERE created_at >= date_trunc('year', NOW())) AS new_this_year
		FROM teachers WHERE ($1 = '' OR school_id = $1)`
	var agg teacherAggregates
	if err := r.db.GetContext(ctx, &agg, aggQuery, schoolID); err != nil {
		return nil, fmt.Errorf("teacher statistics: %w", err)
	}

	const subjectQuery = `SELECT subject, COUNT(*) AS count FROM teachers
		WHERE ($1 = '' OR school_id = $1) AND subject <> ''
		GROUP BY subject ORDER BY count DESC`
	rows, err := r.db.QueryxContext(ctx, subjectQuery, schoolID)
	if err != nil {
		return nil, fmt.Errorf("teacher subject distribution: %w", err)
	}
	defer rows.Close()

	bySubject := make(map[string]int)
	for rows.Next() {
		var subject string
		var count int
		if err := rows.Scan(&subject, &count); err != nil {
			return nil, fmt.Errorf("scan subject distribution: %w", err)
		}
		bySubject[subject] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subject distribution rows: %w", err)
	}

	return &models.TeacherStatistics{
		Total:         agg.Total,
		Active:        agg.Active,
		Inactive:      agg.Inactive,
		BySubject:     bySubject,
		AvgExperience: agg.AvgExperience,
		MinExperience: agg.MinExperience,
		MaxExperience: agg.MaxExperience,
		NewThisYear:   agg.NewThisYear,
	}, nil
}

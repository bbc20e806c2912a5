package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intellilearn/admin-api/internal/models"
)

const contactColumns = `id, school_name, principal_name, email, phone, school_type, student_count,
	address, city, state, country, website, message, preferred_contact, timeline, grades, interests,
	is_approved, is_active, priority_level, source, accepted_plan, admin_notes, rejection_reason,
	review_notes, initial_password, school_code, teacher_ids, created_at, updated_at,
	approved_at, rejected_at, activated_at, deactivated_at`

// ContactRepository manages persistence for school contact requests.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a new contact request.
func (r *ContactRepository) Create(ctx context.Context, contact *models.SchoolContact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	const query = `INSERT INTO school_contacts (id, school_name, principal_name, email, phone, school_type,
		student_count, address, city, state, country, website, message, preferred_contact, timeline,
		grades, interests, is_approved, is_active, priority_level, source, accepted_plan, admin_notes,
		rejection_reason, review_notes, initial_password, school_code, teacher_ids, created_at, updated_at)
		VALUES (:id, :school_name, :principal_name, :email, :phone, :school_type, :student_count, :address,
		:city, :state, :country, :website, :message, :preferred_contact, :timeline, :grades, :interests,
		:is_approved, :is_active, :priority_level, :source, :accepted_plan, :admin_notes, :rejection_reason,
		:review_notes, :initial_password, :school_code, :teacher_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contact); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// List returns contact requests matching filters, newest first, with the
// total count.
func (r *ContactRepository) List(ctx context.Context, filter models.ContactFilter) ([]models.SchoolContact, int, error) {
	base := "FROM school_contacts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.IsApproved != nil {
		conditions = append(conditions, fmt.Sprintf("is_approved = $%d", len(args)+1))
		args = append(args, *filter.IsApproved)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority_level = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC", contactColumns, base)
	var contacts []models.SchoolContact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	return contacts, total, nil
}

// FindByID fetches a contact request by ID.
func (r *ContactRepository) FindByID(ctx context.Context, id string) (*models.SchoolContact, error) {
	query := fmt.Sprintf("SELECT %s FROM school_contacts WHERE id = $1", contactColumns)
	var contact models.SchoolContact
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		return nil, err
	}
	return &contact, nil
}

// ExistsByEmail reports whether a contact already uses the email.
func (r *ContactRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = "SELECT 1 FROM school_contacts WHERE LOWER(email) = LOWER($1) LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check contact email: %w", err)
	}
	return true, nil
}

// Update persists the full contact record.
func (r *ContactRepository) Update(ctx context.Context, contact *models.SchoolContact) error {
	contact.UpdatedAt = time.Now().UTC()
	const query = `UPDATE school_contacts SET school_name = :school_name, principal_name = :principal_name,
		email = :email, phone = :phone, school_type = :school_type, student_count = :student_count,
		address = :address, city = :city, state = :state, country = :country, website = :website,
		message = :message, preferred_contact = :preferred_contact, timeline = :timeline, grades = :grades,
		interests = :interests, is_approved = :is_approved, is_active = :is_active,
		priority_level = :priority_level, source = :source, accepted_plan = :accepted_plan,
		admin_notes = :admin_notes, rejection_reason = :rejection_reason, review_notes = :review_notes,
		initial_password = :initial_password, school_code = :school_code, teacher_ids = :teacher_ids,
		updated_at = :updated_at, approved_at = :approved_at, rejected_at = :rejected_at,
		activated_at = :activated_at, deactivated_at = :deactivated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, contact)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// Contact lifecycle flag combinations. Approval and activation are
// independent booleans so a contact can be approved but not yet active.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"

	SourceContactForm = "contact_form"

	DefaultPlan = "basic"
)

// SchoolContact represents an inbound partnership request from a school.
type SchoolContact struct {
	ID               string         `db:"id" json:"id"`
	SchoolName       string         `db:"school_name" json:"school_name"`
	PrincipalName    string         `db:"principal_name" json:"principal_name"`
	Email            string         `db:"email" json:"email"`
	Phone            string         `db:"phone" json:"phone"`
	SchoolType       string         `db:"school_type" json:"school_type"`
	StudentCount     string         `db:"student_count" json:"student_count,omitempty"`
	Address          string         `db:"address" json:"address,omitempty"`
	City             string         `db:"city" json:"city,omitempty"`
	State            string         `db:"state" json:"state,omitempty"`
	Country          string         `db:"country" json:"country,omitempty"`
	Website          string         `db:"website" json:"website,omitempty"`
	Message          string         `db:"message" json:"message,omitempty"`
	PreferredContact string         `db:"preferred_contact" json:"preferred_contact"`
	Timeline         string         `db:"timeline" json:"timeline"`
	Grades           pq.StringArray `db:"grades" json:"grades"`
	Interests        pq.StringArray `db:"interests" json:"interests"`
	IsApproved       bool           `db:"is_approved" json:"is_approved"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	PriorityLevel    string         `db:"priority_level" json:"priority_level"`
	Source           string         `db:"source" json:"source"`
	AcceptedPlan     string         `db:"accepted_plan" json:"accepted_plan,omitempty"`
	AdminNotes       string         `db:"admin_notes" json:"admin_notes,omitempty"`
	RejectionReason  string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewNotes      string         `db:"review_notes" json:"review_notes,omitempty"`
	InitialPassword  string         `db:"initial_password" json:"-"`
	SchoolCode       string         `db:"school_code" json:"school_code,omitempty"`
	TeacherIDs       pq.StringArray `db:"teacher_ids" json:"teacher_ids,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
	ApprovedAt       *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt       *time.Time     `db:"rejected_at" json:"rejected_at,omitempty"`
	ActivatedAt      *time.Time     `db:"activated_at" json:"activated_at,omitempty"`
	DeactivatedAt    *time.Time     `db:"deactivated_at" json:"deactivated_at,omitempty"`
}

// SubmitContactRequest is the public contact-form payload.
type SubmitContactRequest struct {
	SchoolName       string   `json:"schoolName" validate:"required"`
	PrincipalName    string   `json:"principalName" validate:"required"`
	Email            string   `json:"email" validate:"required"`
	Phone            string   `json:"phone" validate:"required"`
	SchoolType       string   `json:"schoolType" validate:"required"`
	StudentCount     string   `json:"studentCount"`
	Address          string   `json:"address"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	Country          string   `json:"country"`
	Website          string   `json:"website"`
	Message          string   `json:"message"`
	PreferredContact string   `json:"preferredContact"`
	Timeline         string   `json:"timeline"`
	Grades           []string `json:"grades"`
	Interests        []string `json:"interests"`
}

// ContactFilter captures list filtering for contact requests.
type ContactFilter struct {
	IsApproved *bool
	IsActive   *bool
	Priority   string
}

// ApproveContactRequest approves a pending request and assigns a plan.
type ApproveContactRequest struct {
	AcceptedPlan string `json:"accepted_plan"`
	AdminNotes   string `json:"admin_notes"`
}

// ApproveContactResult carries the generated credentials back to the admin.
type ApproveContactResult struct {
	ContactID string `json:"contact_id"`
	Password  string `json:"password"`
	Plan      string `json:"plan"`
}

// RejectContactRequest declines a pending request.
type RejectContactRequest struct {
	Reason     string `json:"reason"`
	AdminNotes string `json:"admin_notes"`
}

// ReviewContactRequest flags a request for follow-up.
type ReviewContactRequest struct {
	ReviewNotes string `json:"review_notes"`
	AdminNotes  string `json:"admin_notes"`
	Priority    string `json:"priority"`
}

// ActivateContactRequest turns an institution on, optionally approving it
// in the same step.
type ActivateContactRequest struct {
	AlsoApprove bool   `json:"also_approve"`
	AdminNotes  string `json:"admin_notes"`
}

// DeactivateContactRequest turns an institution off.
type DeactivateContactRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// UpdateContactStatusRequest toggles the institution active flag. The
// pointer distinguishes a missing field from an explicit false.
type UpdateContactStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// SendCredentialsResult reports the regenerated password after dispatch.
type SendCredentialsResult struct {
	ContactID string `json:"contact_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	EmailSent bool   `json:"email_sent"`
}

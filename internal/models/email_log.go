package models

import "time"

// EmailKind selects the HTML template used for an outbound message.
type EmailKind string

const (
	EmailKindApproval    EmailKind = "approval"
	EmailKindRejection   EmailKind = "rejection"
	EmailKindCredentials EmailKind = "credentials"
	EmailKindGeneral     EmailKind = "general"
)

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog is an append-only record of every send attempt.
type EmailLog struct {
	ID              string    `db:"id" json:"id"`
	ToEmail         string    `db:"to_email" json:"to_email"`
	Subject         string    `db:"subject" json:"subject"`
	InstitutionName string    `db:"institution_name" json:"institution_name,omitempty"`
	Kind            EmailKind `db:"kind" json:"kind"`
	Status          string    `db:"status" json:"status"`
	BodyPreview     string    `db:"body_preview" json:"body_preview,omitempty"`
	SentAt          time.Time `db:"sent_at" json:"sent_at"`
}

// SendEmailRequest is the admin manual-send payload.
type SendEmailRequest struct {
	To          string `json:"to" validate:"required,email"`
	Subject     string `json:"subject" validate:"required"`
	Message     string `json:"message" validate:"required"`
	Institution string `json:"institution"`
}

// EmailLogFilter captures list filtering for the email audit log.
type EmailLogFilter struct {
	Kind        EmailKind
	Status      string
	Institution string
	Page        int
	Limit       int
}

// EmailStatistics summarises the audit log for the admin dashboard.
type EmailStatistics struct {
	Total           int               `json:"total"`
	Sent            int               `json:"sent"`
	Failed          int               `json:"failed"`
	ByKind          map[string]int    `json:"by_kind"`
	Today           int               `json:"today"`
	TopInstitutions []InstitutionMail `json:"top_institutions"`
}

// InstitutionMail pairs an institution with its email volume.
type InstitutionMail struct {
	Institution string `db:"institution_name" json:"institution"`
	Count       int    `db:"count" json:"count"`
}

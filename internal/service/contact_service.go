package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

type contactRepository interface {
	Create(ctx context.Context, contact *models.SchoolContact) error
	List(ctx context.Context, filter models.ContactFilter) ([]models.SchoolContact, int, error)
	FindByID(ctx context.Context, id string) (*models.SchoolContact, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, contact *models.SchoolContact) error
}

type contactMailer interface {
	Send(ctx context.Context, to, subject, body string, kind models.EmailKind, institution string) error
}

type credentialGenerator interface {
	GenerateApprovalPassword() (string, error)
}

// ContactService implements the partnership request intake and the admin
// approval workflow.
type ContactService struct {
	repo      contactRepository
	mailer    contactMailer
	auth      credentialGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs a ContactService instance.
func NewContactService(repo contactRepository, mailer contactMailer, auth credentialGenerator, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContactService{repo: repo, mailer: mailer, auth: auth, validator: validate, logger: logger}
}

// Submit records a new partnership request from the public contact form.
func (s *ContactService) Submit(ctx context.Context, req models.SubmitContactRequest) (*models.SchoolContact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "schoolName, principalName, email, phone and schoolType are required")
	}
	for field, value := range map[string]string{
		"schoolName":    req.SchoolName,
		"principalName": req.PrincipalName,
		"email":         req.Email,
		"phone":         req.Phone,
		"schoolType":    req.SchoolType,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must not be blank", field))
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "a request with this email address already exists")
	}

	contact := &models.SchoolContact{
		SchoolName:       strings.TrimSpace(req.SchoolName),
		PrincipalName:    strings.TrimSpace(req.PrincipalName),
		Email:            email,
		Phone:            strings.TrimSpace(req.Phone),
		SchoolType:       strings.TrimSpace(req.SchoolType),
		StudentCount:     req.StudentCount,
		Address:          req.Address,
		City:             req.City,
		State:            req.State,
		Country:          req.Country,
		Website:          req.Website,
		Message:          req.Message,
		PreferredContact: defaultString(req.PreferredContact, "email"),
		Timeline:         defaultString(req.Timeline, "3_months"),
		Grades:           req.Grades,
		Interests:        req.Interests,
		PriorityLevel:    models.PriorityNormal,
		Source:           models.SourceContactForm,
	}
	if contact.Grades == nil {
		contact.Grades = []string{}
	}
	if contact.Interests == nil {
		contact.Interests = []string{}
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save contact request")
	}

	s.logger.Info("contact request submitted",
		zap.String("contact_id", contact.ID),
		zap.String("school_name", contact.SchoolName))
	return contact, nil
}

// List returns contact requests matching the filter, newest first.
func (s *ContactService) List(ctx context.Context, filter models.ContactFilter) ([]models.SchoolContact, int, error) {
	contacts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact requests")
	}
	return contacts, total, nil
}

// ListPending returns requests awaiting a decision.
func (s *ContactService) ListPending(ctx context.Context) ([]models.SchoolContact, int, error) {
	notApproved := false
	notActive := false
	return s.List(ctx, models.ContactFilter{IsApproved: &notApproved, IsActive: &notActive})
}

// ListApproved returns approved requests.
func (s *ContactService) ListApproved(ctx context.Context) ([]models.SchoolContact, int, error) {
	approved := true
	return s.List(ctx, models.ContactFilter{IsApproved: &approved})
}

// Get fetches one contact request.
func (s *ContactService) Get(ctx context.Context, id string) (*models.SchoolContact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact request")
	}
	return contact, nil
}

// Approve marks a request approved and active, assigns a plan and issues
// the institution credential. Email dispatch is a separate call.
func (s *ContactService) Approve(ctx context.Context, id string, req models.ApproveContactRequest) (*models.ApproveContactResult, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	password, err := s.auth.GenerateApprovalPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}

	now := time.Now().UTC()
	contact.IsApproved = true
	contact.IsActive = true
	contact.AcceptedPlan = defaultString(req.AcceptedPlan, models.DefaultPlan)
	contact.AdminNotes = defaultString(req.AdminNotes, "Approved on "+now.Format(time.RFC3339))
	contact.InitialPassword = password
	contact.ApprovedAt = &now

	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact request approved",
		zap.String("contact_id", contact.ID),
		zap.String("plan", contact.AcceptedPlan))
	return &models.ApproveContactResult{ContactID: contact.ID, Password: password, Plan: contact.AcceptedPlan}, nil
}

// NotifyApproval sends the welcome email with credentials for an approved
// request. Returns whether the delivery succeeded.
func (s *ContactService) NotifyApproval(ctx context.Context, id string) (bool, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	body := fmt.Sprintf("Congratulations! Your partnership request for %s has been approved.\n"+
		"Your account is now active on the %s plan.\n"+
		"Login email: %s\n"+
		"Temporary password: %s\n"+
		"Please change your password after the first login.",
		contact.SchoolName, defaultString(contact.AcceptedPlan, models.DefaultPlan), contact.Email, contact.InitialPassword)

	if err := s.mailer.Send(ctx, contact.Email, "Welcome to IntelliLearn - Application Approved", body, models.EmailKindApproval, contact.SchoolName); err != nil {
		s.logger.Warn("approval email failed", zap.String("contact_id", id), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Reject declines a request.
func (s *ContactService) Reject(ctx context.Context, id string, req models.RejectContactRequest) (*models.SchoolContact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contact.IsApproved = false
	contact.IsActive = false
	contact.RejectionReason = req.Reason
	if req.AdminNotes != "" {
		contact.AdminNotes = req.AdminNotes
	}
	contact.RejectedAt = &now

	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact request rejected", zap.String("contact_id", contact.ID))
	return contact, nil
}

// NotifyRejection sends the decline email. Returns whether the delivery
// succeeded.
func (s *ContactService) NotifyRejection(ctx context.Context, id string) (bool, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	body := fmt.Sprintf("Thank you for your interest in IntelliLearn.\n"+
		"After careful review we are unable to approve the partnership request for %s at this time.",
		contact.SchoolName)
	if contact.RejectionReason != "" {
		body += "\nReason: " + contact.RejectionReason
	}
	body += "\nYou are welcome to apply again in the future."

	if err := s.mailer.Send(ctx, contact.Email, "Update on Your IntelliLearn Application", body, models.EmailKindRejection, contact.SchoolName); err != nil {
		s.logger.Warn("rejection email failed", zap.String("contact_id", id), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Review flags a request for follow-up and raises its priority.
func (s *ContactService) Review(ctx context.Context, id string, req models.ReviewContactRequest) (*models.SchoolContact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	contact.ReviewNotes = req.ReviewNotes
	if req.AdminNotes != "" {
		contact.AdminNotes = req.AdminNotes
	}
	contact.PriorityLevel = defaultString(req.Priority, models.PriorityHigh)

	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// Activate turns an institution on, optionally approving it in the same
// step.
func (s *ContactService) Activate(ctx context.Context, id string, req models.ActivateContactRequest) (*models.SchoolContact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contact.IsActive = true
	contact.ActivatedAt = &now
	if req.AlsoApprove && !contact.IsApproved {
		contact.IsApproved = true
		contact.ApprovedAt = &now
	}
	if req.AdminNotes != "" {
		contact.AdminNotes = req.AdminNotes
	}

	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("institution activated", zap.String("contact_id", contact.ID))
	return contact, nil
}

// Deactivate turns an institution off.
func (s *ContactService) Deactivate(ctx context.Context, id string, req models.DeactivateContactRequest) (*models.SchoolContact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contact.IsActive = false
	contact.DeactivatedAt = &now
	if req.AdminNotes != "" {
		contact.AdminNotes = req.AdminNotes
	}

	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("institution deactivated", zap.String("contact_id", contact.ID))
	return contact, nil
}

// UpdateStatus toggles the institution active flag. The field must be
// present in the payload.
func (s *ContactService) UpdateStatus(ctx context.Context, id string, req models.UpdateContactStatusRequest) (*models.SchoolContact, error) {
	if req.IsActive == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "is_active is required")
	}

	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contact.IsActive = *req.IsActive
	if *req.IsActive {
		contact.ActivatedAt = &now
	} else {
		contact.DeactivatedAt = &now
	}

	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// SendCredentials regenerates the institution credential, persists it and
// dispatches the credentials email.
func (s *ContactService) SendCredentials(ctx context.Context, id string) (*models.SendCredentialsResult, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	password, err := s.auth.GenerateApprovalPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}

	contact.InitialPassword = password
	if err := s.update(ctx, contact); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Here are the login credentials for %s.\n"+
		"Login email: %s\n"+
		"Password: %s\n"+
		"Please change your password after the first login.",
		contact.SchoolName, contact.Email, password)

	sent := true
	if err := s.mailer.Send(ctx, contact.Email, "Your IntelliLearn Login Credentials", body, models.EmailKindCredentials, contact.SchoolName); err != nil {
		s.logger.Warn("credentials email failed", zap.String("contact_id", id), zap.Error(err))
		sent = false
	}

	return &models.SendCredentialsResult{
		ContactID: contact.ID,
		Email:     contact.Email,
		Password:  password,
		EmailSent: sent,
	}, nil
}

func (s *ContactService) update(ctx context.Context, contact *models.SchoolContact) error {
	if err := s.repo.Update(ctx, contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contact request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact request")
	}
	return nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

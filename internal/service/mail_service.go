package service

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/intellilearn/admin-api/internal/models"
	"github.com/intellilearn/admin-api/pkg/config"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

// Dialer abstracts the SMTP transport so tests can intercept deliveries.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailLogStore interface {
	Insert(ctx context.Context, log *models.EmailLog) error
	List(ctx context.Context, filter models.EmailLogFilter) ([]models.EmailLog, int, error)
	Statistics(ctx context.Context) (*models.EmailStatistics, error)
}

// MailService renders and dispatches transactional email and keeps the
// audit log of every attempt.
type MailService struct {
	dialer    Dialer
	logs      emailLogStore
	config    config.SMTPConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	shell     *template.Template
}

// NewDialer builds the production SMTP dialer from configuration. The
// connection upgrades to TLS via STARTTLS before authenticating.
func NewDialer(cfg config.SMTPConfig) *gomail.Dialer {
	return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
}

// NewMailService constructs a MailService instance.
func NewMailService(dialer Dialer, logs emailLogStore, cfg config.SMTPConfig, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	shell := template.Must(template.New("mail").Parse(mailShellTemplate))
	return &MailService{dialer: dialer, logs: logs, config: cfg, metrics: metrics, validator: validate, logger: logger, shell: shell}
}

// Send dispatches one message and records the attempt. The kind picks the
// visual treatment of the HTML body.
func (s *MailService) Send(ctx context.Context, to, subject, body string, kind models.EmailKind, institution string) error {
	if s.config.Host == "" || s.config.Username == "" || s.config.Password == "" || s.config.FromEmail == "" {
		s.record(ctx, to, subject, body, kind, institution, models.EmailStatusFailed)
		return appErrors.Clone(appErrors.ErrMailConfig, "")
	}

	html, err := s.renderHTML(subject, body, kind, institution)
	if err != nil {
		s.record(ctx, to, subject, body, kind, institution, models.EmailStatusFailed)
		return appErrors.Wrap(err, appErrors.ErrMailSend.Code, appErrors.ErrMailSend.Status, "failed to render email")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.config.FromEmail, s.config.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.record(ctx, to, subject, body, kind, institution, models.EmailStatusFailed)
		s.logger.Error("email delivery failed",
			zap.String("to", to),
			zap.String("kind", string(kind)),
			zap.Error(err))
		if isAuthError(err) {
			return appErrors.Wrap(err, appErrors.ErrMailAuth.Code, appErrors.ErrMailAuth.Status, appErrors.ErrMailAuth.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrMailSend.Code, appErrors.ErrMailSend.Status, appErrors.ErrMailSend.Message)
	}

	s.record(ctx, to, subject, body, kind, institution, models.EmailStatusSent)
	s.logger.Info("email sent", zap.String("to", to), zap.String("kind", string(kind)))
	return nil
}

// SendManual handles the admin compose endpoint. The template kind is
// inferred from the subject line.
func (s *MailService) SendManual(ctx context.Context, req models.SendEmailRequest) (models.EmailKind, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "to, subject and message are required")
	}
	kind := InferKind(req.Subject)
	return kind, s.Send(ctx, req.To, req.Subject, req.Message, kind, req.Institution)
}

// ListLogs returns audit entries matching the filter.
func (s *MailService) ListLogs(ctx context.Context, filter models.EmailLogFilter) ([]models.EmailLog, *models.Pagination, error) {
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list email logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return logs, models.NewPagination(page, limit, total), nil
}

// Statistics summarises the audit log.
func (s *MailService) Statistics(ctx context.Context) (*models.EmailStatistics, error) {
	stats, err := s.logs.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute email statistics")
	}
	return stats, nil
}

// InferKind maps a subject line to a template kind.
func InferKind(subject string) models.EmailKind {
	lowered := strings.ToLower(subject)
	switch {
	case strings.Contains(lowered, "credential") || strings.Contains(lowered, "password"):
		return models.EmailKindCredentials
	case strings.Contains(lowered, "approv") || strings.Contains(lowered, "welcome"):
		return models.EmailKindApproval
	case strings.Contains(lowered, "reject") || strings.Contains(lowered, "declin"):
		return models.EmailKindRejection
	default:
		return models.EmailKindGeneral
	}
}

type mailShellData struct {
	Heading     string
	AccentColor string
	Institution string
	Body        template.HTML
}

func (s *MailService) renderHTML(subject, body string, kind models.EmailKind, institution string) (string, error) {
	heading := subject
	accent := "#2d6cdf"
	switch kind {
	case models.EmailKindApproval:
		heading = "Welcome to IntelliLearn"
		accent = "#1f9d55"
	case models.EmailKindRejection:
		heading = "Update on Your Application"
		accent = "#8a94a6"
	case models.EmailKindCredentials:
		heading = "Your Login Credentials"
		accent = "#2d6cdf"
	}

	paragraphs := strings.Split(body, "\n")
	var sb strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(template.HTMLEscapeString(p))
		sb.WriteString("</p>")
	}

	data := mailShellData{
		Heading:     heading,
		AccentColor: accent,
		Institution: institution,
		Body:        template.HTML(sb.String()),
	}

	var out strings.Builder
	if err := s.shell.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render mail template: %w", err)
	}
	return out.String(), nil
}

func (s *MailService) record(ctx context.Context, to, subject, body string, kind models.EmailKind, institution, status string) {
	s.metrics.ObserveEmail(string(kind), status)
	if s.logs == nil {
		return
	}
	preview := body
	if len(preview) > 200 {
		preview = preview[:200]
	}
	entry := &models.EmailLog{
		ToEmail:         to,
		Subject:         subject,
		InstitutionName: institution,
		Kind:            kind,
		Status:          status,
		BodyPreview:     preview,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record email log", zap.Error(err))
	}
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "535") || strings.Contains(msg, "auth")
}

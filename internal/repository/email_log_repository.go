package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intellilearn/admin-api/internal/models"
)

const emailLogColumns = `id, to_email, subject, institution_name, kind, status, body_preview, sent_at`

// EmailLogRepository manages the append-only email audit log.
type EmailLogRepository struct {
	db *sqlx.DB
}

// NewEmailLogRepository constructs an EmailLogRepository.
func NewEmailLogRepository(db *sqlx.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// Insert appends one send attempt.
func (r *EmailLogRepository) Insert(ctx context.Context, log *models.EmailLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.SentAt.IsZero() {
		log.SentAt = time.Now().UTC()
	}

	const query = `INSERT INTO email_logs (id, to_email, subject, institution_name, kind, status, body_preview, sent_at)
		VALUES (:id, :to_email, :subject, :institution_name, :kind, :status, :body_preview, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// List returns audit entries matching filters, newest first, with the
// total count.
func (r *EmailLogRepository) List(ctx context.Context, filter models.EmailLogFilter) ([]models.EmailLog, int, error) {
	base := "FROM email_logs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Institution != "" {
		search := "%" + strings.ToLower(filter.Institution) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(COALESCE(institution_name, '')) LIKE $%d", len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY sent_at DESC LIMIT %d OFFSET %d", emailLogColumns, base, limit, offset)
	var logs []models.EmailLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list email logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count email logs: %w", err)
	}

	return logs, total, nil
}

type emailAggregates struct {
	Total  int `db:"total"`
	Sent   int `db:"sent"`
	Failed int `db:"failed"`
	Today  int `db:"today"`
}

// Statistics summarises the audit log for dashboards.
func (r *EmailLogRepository) Statistics(ctx context.Context) (*models.EmailStatistics, error) {
	const aggQuery = `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'sent') AS sent,
		COUNT(*) FILTER (WHERE status = 'failed') AS failed,
		COUNT(*) FILTER (WHERE sent_at >= date_trunc('day', NOW())) AS today
		FROM email_logs`
	var agg emailAggregates
	if err := r.db.GetContext(ctx, &agg, aggQuery); err != nil {
		return nil, fmt.Errorf("email statistics: %w", err)
	}

	const kindQuery = `SELECT kind, COUNT(*) AS count FROM email_logs GROUP BY kind`
	rows, err := r.db.QueryxContext(ctx, kindQuery)
	if err != nil {
		return nil, fmt.Errorf("email kind distribution: %w", err)
	}
	defer rows.Close()

	byKind := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan email kinds: %w", err)
		}
		byKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("email kind rows: %w", err)
	}

	const topQuery = `SELECT institution_name, COUNT(*) AS count FROM email_logs
		WHERE institution_name <> '' GROUP BY institution_name ORDER BY count DESC LIMIT 5`
	var top []models.InstitutionMail
	if err := r.db.SelectContext(ctx, &top, topQuery); err != nil {
		return nil, fmt.Errorf("email top institutions: %w", err)
	}

	return &models.EmailStatistics{
		Total:           agg.Total,
		Sent:            agg.Sent,
		Failed:          agg.Failed,
		ByKind:          byKind,
		Today:           agg.Today,
		TopInstitutions: top,
	}, nil
}

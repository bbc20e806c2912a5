package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
	"github.com/intellilearn/admin-api/pkg/response"
)

type mailService interface {
	SendManual(ctx context.Context, req models.SendEmailRequest) (models.EmailKind, error)
	ListLogs(ctx context.Context, filter models.EmailLogFilter) ([]models.EmailLog, *models.Pagination, error)
	Statistics(ctx context.Context) (*models.EmailStatistics, error)
}

// NotificationHandler wires outbound email and its audit log to HTTP
// routes.
type NotificationHandler struct {
	mail mailService
}

// NewNotificationHandler constructs a new NotificationHandler.
func NewNotificationHandler(mail mailService) *NotificationHandler {
	return &NotificationHandler{mail: mail}
}

// Send godoc
// @Summary Send an email from the admin console
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.SendEmailRequest true "Email payload"
// @Success 200 {object} response.Envelope
// @Router /admin/send-email [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req models.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}

	kind, err := h.mail.SendManual(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"to": req.To, "kind": kind, "sent": true}, nil)
}

// Logs godoc
// @Summary List the email audit log
// @Tags Notifications
// @Produce json
// @Param type query string false "Filter by email kind"
// @Param status query string false "Filter by delivery status"
// @Param institution query string false "Filter by institution name"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/emails [get]
func (h *NotificationHandler) Logs(c *gin.Context) {
	filter := models.EmailLogFilter{
		Kind:        models.EmailKind(c.Query("type")),
		Status:      c.Query("status"),
		Institution: c.Query("institution"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}

	logs, pagination, err := h.mail.ListLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Statistics godoc
// @Summary Email delivery statistics
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/email-stats [get]
func (h *NotificationHandler) Statistics(c *gin.Context) {
	stats, err := h.mail.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

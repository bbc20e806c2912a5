package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

type mailServiceMock struct {
	sendKind   models.EmailKind
	sendErr    error
	logsResp   []models.EmailLog
	logsPage   *models.Pagination
	logsErr    error
	statsResp  *models.EmailStatistics
	statsErr   error
	lastSend   models.SendEmailRequest
	lastFilter models.EmailLogFilter
}

func (m *mailServiceMock) SendManual(ctx context.Context, req models.SendEmailRequest) (models.EmailKind, error) {
	m.lastSend = req
	return m.sendKind, m.sendErr
}

func (m *mailServiceMock) ListLogs(ctx context.Context, filter models.EmailLogFilter) ([]models.EmailLog, *models.Pagination, error) {
	m.lastFilter = filter
	return m.logsResp, m.logsPage, m.logsErr
}

func (m *mailServiceMock) Statistics(ctx context.Context) (*models.EmailStatistics, error) {
	return m.statsResp, m.statsErr
}

func TestNotificationHandlerSend(t *testing.T) {
	mockSvc := &mailServiceMock{sendKind: models.EmailKindGeneral}
	handler := NewNotificationHandler(mockSvc)

	payload, _ := json.Marshal(models.SendEmailRequest{
		To:      "principal@example.com",
		Subject: "Welcome aboard",
		Message: "Hello",
	})
	c, w := testContext(t, http.MethodPost, "/admin/send-email", payload)

	handler.Send(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "principal@example.com", mockSvc.lastSend.To)
	assert.Contains(t, w.Body.String(), `"sent":true`)
}

func TestNotificationHandlerSendInvalidBody(t *testing.T) {
	handler := NewNotificationHandler(&mailServiceMock{})

	c, w := testContext(t, http.MethodPost, "/admin/send-email", []byte(`{"to":`))

	handler.Send(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandlerSendMailFailure(t *testing.T) {
	mockSvc := &mailServiceMock{sendErr: appErrors.ErrMailSend}
	handler := NewNotificationHandler(mockSvc)

	payload, _ := json.Marshal(models.SendEmailRequest{
		To:      "principal@example.com",
		Subject: "Welcome",
		Message: "Hello",
	})
	c, w := testContext(t, http.MethodPost, "/admin/send-email", payload)

	handler.Send(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SEND_FAILED")
}

func TestNotificationHandlerLogsParsesQuery(t *testing.T) {
	mockSvc := &mailServiceMock{logsPage: models.NewPagination(1, 20, 0)}
	handler := NewNotificationHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/admin/emails?type=credentials&status=failed&institution=Green%20Hills&page=2&limit=5", nil)

	handler.Logs(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EmailKindCredentials, mockSvc.lastFilter.Kind)
	assert.Equal(t, "failed", mockSvc.lastFilter.Status)
	assert.Equal(t, "Green Hills", mockSvc.lastFilter.Institution)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.Limit)
}

func TestNotificationHandlerStatistics(t *testing.T) {
	mockSvc := &mailServiceMock{
		statsResp: &models.EmailStatistics{Total: 10, Sent: 8, Failed: 2},
	}
	handler := NewNotificationHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/admin/email-stats", nil)

	handler.Statistics(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":8`)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellilearn/admin-api/internal/middleware"
	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

type teacherServiceMock struct {
	registerResp *models.RegisterTeacherResult
	registerErr  error
	loginResp    *models.LoginResponse
	loginErr     error
	listResp     []models.Teacher
	listPage     *models.Pagination
	listErr      error
	getResp      *models.Teacher
	getErr       error
	updateResp   *models.Teacher
	updateChange bool
	updateErr    error
	deleteErr    error
	importResp   *models.ImportResult
	importErr    error
	templateResp []byte
	templateErr  error
	exportResp   []byte
	exportName   string
	exportType   string
	exportErr    error
	statusResp   *models.Teacher
	statusErr    error
	statsResp    *models.TeacherStatistics
	statsErr     error
	passwordErr  error
	resetResp    *models.ResetPasswordResult
	resetErr     error
	lastFilter   models.TeacherFilter
	lastFile     string
	lastStatus   string
}

func (m *teacherServiceMock) Register(ctx context.Context, actor *models.JWTClaims, req models.RegisterTeacherRequest) (*models.RegisterTeacherResult, error) {
	return m.registerResp, m.registerErr
}

func (m *teacherServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *teacherServiceMock) List(ctx context.Context, actor *models.JWTClaims, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, m.listPage, m.listErr
}

func (m *teacherServiceMock) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Teacher, error) {
	return m.getResp, m.getErr
}

func (m *teacherServiceMock) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateTeacherRequest) (*models.Teacher, bool, error) {
	return m.updateResp, m.updateChange, m.updateErr
}

func (m *teacherServiceMock) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	return m.deleteErr
}

func (m *teacherServiceMock) BulkImport(ctx context.Context, actor *models.JWTClaims, filename string, payload []byte) (*models.ImportResult, error) {
	m.lastFile = filename
	return m.importResp, m.importErr
}

func (m *teacherServiceMock) ImportTemplate() ([]byte, error) {
	return m.templateResp, m.templateErr
}

func (m *teacherServiceMock) Export(ctx context.Context, actor *models.JWTClaims, format string) ([]byte, string, string, error) {
	return m.exportResp, m.exportName, m.exportType, m.exportErr
}

func (m *teacherServiceMock) ChangeStatus(ctx context.Context, actor *models.JWTClaims, id, status string) (*models.Teacher, error) {
	m.lastStatus = status
	return m.statusResp, m.statusErr
}

func (m *teacherServiceMock) Statistics(ctx context.Context, actor *models.JWTClaims) (*models.TeacherStatistics, error) {
	return m.statsResp, m.statsErr
}

func (m *teacherServiceMock) ChangePassword(ctx context.Context, actor *models.JWTClaims, req models.ChangePasswordRequest) error {
	return m.passwordErr
}

func (m *teacherServiceMock) ResetPassword(ctx context.Context, actor *models.JWTClaims, id string) (*models.ResetPasswordResult, error) {
	return m.resetResp, m.resetErr
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestTeacherHandlerRegister(t *testing.T) {
	mockSvc := &teacherServiceMock{
		registerResp: &models.RegisterTeacherResult{ID: "t1", EmployeeID: "GHST20260001", TempPassword: "temp-pass99"},
	}
	handler := NewTeacherHandler(mockSvc)

	payload, _ := json.Marshal(models.RegisterTeacherRequest{
		Name:     "Alice Brown",
		Email:    "alice@example.com",
		SchoolID: "school-1",
	})
	c, w := testContext(t, http.MethodPost, "/teachers/register", payload)

	handler.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "GHST20260001")
}

func TestTeacherHandlerRegisterInvalidBody(t *testing.T) {
	handler := NewTeacherHandler(&teacherServiceMock{})

	c, w := testContext(t, http.MethodPost, "/teachers/register", []byte(`{"name":`))

	handler.Register(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerLoginInvalidCredentials(t *testing.T) {
	mockSvc := &teacherServiceMock{loginErr: appErrors.ErrInvalidCredentials}
	handler := NewTeacherHandler(mockSvc)

	payload, _ := json.Marshal(models.LoginRequest{Email: "a@example.com", Password: "wrong"})
	c, w := testContext(t, http.MethodPost, "/teachers/login", payload)

	handler.Login(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTeacherHandlerListParsesQuery(t *testing.T) {
	mockSvc := &teacherServiceMock{listPage: models.NewPagination(2, 10, 25)}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/teachers?search=math&status=active&page=2&limit=10&sort=name&order=asc", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "math", mockSvc.lastFilter.Search)
	assert.Equal(t, "active", mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.Limit)
	assert.Equal(t, "name", mockSvc.lastFilter.SortBy)
	assert.Equal(t, "asc", mockSvc.lastFilter.SortOrder)
}

func TestTeacherHandlerListForbidden(t *testing.T) {
	mockSvc := &teacherServiceMock{listErr: appErrors.ErrForbidden}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/teachers", nil)

	handler.List(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTeacherHandlerUpdateNoChanges(t *testing.T) {
	mockSvc := &teacherServiceMock{
		updateResp:   &models.Teacher{ID: "t1"},
		updateChange: false,
	}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodPut, "/teachers/t1", []byte(`{"phone":"+15550101"}`))
	c.Params = gin.Params{{Key: "id", Value: "t1"}}

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No changes made")
}

func TestTeacherHandlerBulkImport(t *testing.T) {
	mockSvc := &teacherServiceMock{
		importResp: &models.ImportResult{Processed: 3, Successful: 2, Failed: 1},
	}
	handler := NewTeacherHandler(mockSvc)

	body, contentType := multipartUpload(t, "file", "teachers.csv", []byte("name,email\nAlice,alice@example.com\n"))
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/teachers/bulk-import", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.BulkImport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teachers.csv", mockSvc.lastFile)
	assert.Contains(t, w.Body.String(), `"successful":2`)
}

func TestTeacherHandlerBulkImportMissingFile(t *testing.T) {
	handler := NewTeacherHandler(&teacherServiceMock{})

	c, w := testContext(t, http.MethodPost, "/teachers/bulk-import", nil)

	handler.BulkImport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerImportTemplate(t *testing.T) {
	mockSvc := &teacherServiceMock{templateResp: []byte("PK\x03\x04")}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/teachers/bulk-import/template", nil)

	handler.ImportTemplate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "teacher_import_template.xlsx")
}

func TestTeacherHandlerExport(t *testing.T) {
	mockSvc := &teacherServiceMock{
		exportResp: []byte("name,email\n"),
		exportName: "teachers_20260830.csv",
		exportType: "text/csv",
	}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/teachers/export?format=csv", nil)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "teachers_20260830.csv")
}

func TestTeacherHandlerChangeStatus(t *testing.T) {
	mockSvc := &teacherServiceMock{statusResp: &models.Teacher{ID: "t1", Status: "inactive"}}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodPut, "/teachers/t1/status", []byte(`{"status":"inactive"}`))
	c.Params = gin.Params{{Key: "id", Value: "t1"}}

	handler.ChangeStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inactive", mockSvc.lastStatus)
}

func TestTeacherHandlerChangePasswordWrongCurrent(t *testing.T) {
	mockSvc := &teacherServiceMock{passwordErr: appErrors.ErrInvalidCredentials}
	handler := NewTeacherHandler(mockSvc)

	payload, _ := json.Marshal(models.ChangePasswordRequest{CurrentPassword: "old", NewPassword: "new-password"})
	c, w := testContext(t, http.MethodPost, "/teachers/change-password", payload)

	handler.ChangePassword(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTeacherHandlerResetPassword(t *testing.T) {
	mockSvc := &teacherServiceMock{
		resetResp: &models.ResetPasswordResult{ID: "t1", TempPassword: "temp-pass99"},
	}
	handler := NewTeacherHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/teachers/t1/reset-password", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}

	handler.ResetPassword(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "temp-pass99")
}

package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
	"github.com/intellilearn/admin-api/pkg/response"
)

type teacherService interface {
	Register(ctx context.Context, actor *models.JWTClaims, req models.RegisterTeacherRequest) (*models.RegisterTeacherResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	List(ctx context.Context, actor *models.JWTClaims, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Teacher, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateTeacherRequest) (*models.Teacher, bool, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	BulkImport(ctx context.Context, actor *models.JWTClaims, filename string, payload []byte) (*models.ImportResult, error)
	ImportTemplate() ([]byte, error)
	Export(ctx context.Context, actor *models.JWTClaims, format string) ([]byte, string, string, error)
	ChangeStatus(ctx context.Context, actor *models.JWTClaims, id, status string) (*models.Teacher, error)
	Statistics(ctx context.Context, actor *models.JWTClaims) (*models.TeacherStatistics, error)
	ChangePassword(ctx context.Context, actor *models.JWTClaims, req models.ChangePasswordRequest) error
	ResetPassword(ctx context.Context, actor *models.JWTClaims, id string) (*models.ResetPasswordResult, error)
}

// TeacherHandler wires the teacher roster to HTTP routes.
type TeacherHandler struct {
	teachers teacherService
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(teachers teacherService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers}
}

// Register godoc
// @Summary Register a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.RegisterTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teachers/register [post]
func (h *TeacherHandler) Register(c *gin.Context) {
	var req models.RegisterTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}
	result, err := h.teachers.Register(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Login godoc
// @Summary Authenticate a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /teachers/login [post]
func (h *TeacherHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	result, err := h.teachers.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param search query string false "Search by name/email/employee id/subject"
// @Param status query string false "Filter by status"
// @Param subject query string false "Filter by subject"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter := models.TeacherFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Status:    c.Query("status"),
		Subject:   c.Query("subject"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}

	teachers, pagination, err := h.teachers.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get teacher detail
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher or employee ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.teachers.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Update godoc
// @Summary Update a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher or employee ID"
// @Param payload body models.UpdateTeacherRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req models.UpdateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	teacher, changed, err := h.teachers.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{}
	if !changed {
		meta["message"] = "No changes made"
	}
	response.JSON(c, http.StatusOK, teacher, nil, meta)
}

// Delete godoc
// @Summary Delete a teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher or employee ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	if err := h.teachers.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// BulkImport godoc
// @Summary Import teachers from a spreadsheet
// @Tags Teachers
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx, xls or csv file"
// @Success 200 {object} response.Envelope
// @Router /teachers/bulk-import [post]
func (h *TeacherHandler) BulkImport(c *gin.Context) {
	filename, payload, err := uploadedFile(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.teachers.BulkImport(c.Request.Context(), claimsFromContext(c), filename, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ImportTemplate godoc
// @Summary Download the teacher import template
// @Tags Teachers
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /teachers/bulk-import/template [get]
func (h *TeacherHandler) ImportTemplate(c *gin.Context) {
	payload, err := h.teachers.ImportTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "teacher_import_template.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

// Export godoc
// @Summary Export the teacher roster
// @Tags Teachers
// @Produce json
// @Param format query string false "Export format (xlsx, csv, pdf)"
// @Success 200 {file} binary
// @Router /teachers/export [get]
func (h *TeacherHandler) Export(c *gin.Context) {
	payload, filename, contentType, err := h.teachers.Export(c.Request.Context(), claimsFromContext(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, payload)
}

// ChangeStatus godoc
// @Summary Activate or deactivate a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher or employee ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/status [put]
func (h *TeacherHandler) ChangeStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	teacher, err := h.teachers.ChangeStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Statistics godoc
// @Summary Teacher roster statistics
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers/statistics [get]
func (h *TeacherHandler) Statistics(c *gin.Context) {
	stats, err := h.teachers.Statistics(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/change-password [post]
func (h *TeacherHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}

	if err := h.teachers.ChangePassword(c.Request.Context(), claimsFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "password changed"}, nil)
}

// ResetPassword godoc
// @Summary Reset a teacher password
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher or employee ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/reset-password [post]
func (h *TeacherHandler) ResetPassword(c *gin.Context) {
	result, err := h.teachers.ResetPassword(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// uploadedFile reads the multipart "file" field into memory.
func uploadedFile(c *gin.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open uploaded file")
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file")
	}
	return header.Filename, payload, nil
}

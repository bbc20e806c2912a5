package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
	"github.com/intellilearn/admin-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Create(ctx context.Context, actor *models.JWTClaims, req models.CreateStudentRequest) (*models.CreateStudentResult, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error)
	BulkImport(ctx context.Context, actor *models.JWTClaims, filename string, payload []byte) (*models.ImportResult, error)
	ImportTemplate() ([]byte, error)
	Statistics(ctx context.Context) (*models.StudentStatistics, error)
}

// StudentHandler wires the student roster to HTTP routes.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs a new StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name/roll number/email/parent name"
// @Param class query string false "Filter by class"
// @Param section query string false "Filter by section"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Class:     c.Query("class"),
		Section:   c.Query("section"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Create godoc
// @Summary Enroll a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	result, err := h.students.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student or record ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student or record ID"
// @Param payload body models.UpdateStudentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req models.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student
// @Tags Students
// @Produce json
// @Param id path string true "Student or record ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// BulkDelete godoc
// @Summary Delete several students
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.BulkDeleteRequest true "IDs payload"
// @Success 200 {object} response.Envelope
// @Router /students/bulk-delete [post]
func (h *StudentHandler) BulkDelete(c *gin.Context) {
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk delete payload"))
		return
	}

	result, err := h.students.BulkDelete(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkImport godoc
// @Summary Import students from a spreadsheet
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx, xls or csv file"
// @Success 200 {object} response.Envelope
// @Router /students/bulk-import [post]
func (h *StudentHandler) BulkImport(c *gin.Context) {
	filename, payload, err := uploadedFile(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.students.BulkImport(c.Request.Context(), claimsFromContext(c), filename, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Template godoc
// @Summary Download the student import template
// @Tags Students
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /students/template [get]
func (h *StudentHandler) Template(c *gin.Context) {
	payload, err := h.students.ImportTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "student_import_template.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

// Statistics godoc
// @Summary Student roster statistics
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/statistics [get]
func (h *StudentHandler) Statistics(c *gin.Context) {
	stats, err := h.students.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

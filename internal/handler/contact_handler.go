package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
	"github.com/intellilearn/admin-api/pkg/response"
)

type contactService interface {
	Submit(ctx context.Context, req models.SubmitContactRequest) (*models.SchoolContact, error)
	List(ctx context.Context, filter models.ContactFilter) ([]models.SchoolContact, int, error)
	ListPending(ctx context.Context) ([]models.SchoolContact, int, error)
	ListApproved(ctx context.Context) ([]models.SchoolContact, int, error)
	Get(ctx context.Context, id string) (*models.SchoolContact, error)
	Approve(ctx context.Context, id string, req models.ApproveContactRequest) (*models.ApproveContactResult, error)
	NotifyApproval(ctx context.Context, id string) (bool, error)
	Reject(ctx context.Context, id string, req models.RejectContactRequest) (*models.SchoolContact, error)
	NotifyRejection(ctx context.Context, id string) (bool, error)
	Review(ctx context.Context, id string, req models.ReviewContactRequest) (*models.SchoolContact, error)
	Activate(ctx context.Context, id string, req models.ActivateContactRequest) (*models.SchoolContact, error)
	Deactivate(ctx context.Context, id string, req models.DeactivateContactRequest) (*models.SchoolContact, error)
	UpdateStatus(ctx context.Context, id string, req models.UpdateContactStatusRequest) (*models.SchoolContact, error)
	SendCredentials(ctx context.Context, id string) (*models.SendCredentialsResult, error)
}

// ContactHandler wires the partnership request workflow to HTTP routes.
type ContactHandler struct {
	contacts contactService
}

// NewContactHandler constructs a new ContactHandler.
func NewContactHandler(contacts contactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// Submit godoc
// @Summary Submit a partnership request
// @Tags Contacts
// @Accept json
// @Produce json
// @Param payload body models.SubmitContactRequest true "Contact payload"
// @Success 201 {object} response.Envelope
// @Router /school-contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req models.SubmitContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}
	contact, err := h.contacts.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"id":          contact.ID,
		"school_name": contact.SchoolName,
		"email":       contact.Email,
	})
}

// List godoc
// @Summary List partnership requests
// @Tags Contacts
// @Produce json
// @Param is_approved query bool false "Filter by approval flag"
// @Param is_active query bool false "Filter by active flag"
// @Param priority_level query string false "Filter by priority level"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	filter := models.ContactFilter{Priority: c.Query("priority_level")}
	filter.IsApproved = boolQuery(c, "is_approved")
	filter.IsActive = boolQuery(c, "is_active")

	contacts, total, err := h.contacts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil, map[string]interface{}{"count": total})
}

// ListPending godoc
// @Summary List requests awaiting a decision
// @Tags Contacts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/pending [get]
func (h *ContactHandler) ListPending(c *gin.Context) {
	contacts, total, err := h.contacts.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil, map[string]interface{}{"count": total})
}

// ListApproved godoc
// @Summary List approved requests
// @Tags Contacts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/approved [get]
func (h *ContactHandler) ListApproved(c *gin.Context) {
	contacts, total, err := h.contacts.ListApproved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil, map[string]interface{}{"count": total})
}

// Get godoc
// @Summary Get one partnership request
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Approve godoc
// @Summary Approve a request and issue credentials
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.ApproveContactRequest false "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/{id}/approve [post]
func (h *ContactHandler) Approve(c *gin.Context) {
	var req models.ApproveContactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	result, err := h.contacts.Approve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	emailSent, _ := h.contacts.NotifyApproval(c.Request.Context(), result.ContactID)
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"email_sent": emailSent})
}

// Reject godoc
// @Summary Reject a request
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.RejectContactRequest false "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/{id}/reject [post]
func (h *ContactHandler) Reject(c *gin.Context) {
	var req models.RejectContactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	contact, err := h.contacts.Reject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	emailSent, _ := h.contacts.NotifyRejection(c.Request.Context(), contact.ID)
	response.JSON(c, http.StatusOK, contact, nil, map[string]interface{}{"email_sent": emailSent})
}

// Review godoc
// @Summary Flag a request for follow-up
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.ReviewContactRequest false "Review payload"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/{id}/review [post]
func (h *ContactHandler) Review(c *gin.Context) {
	var req models.ReviewContactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	contact, err := h.contacts.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Activate godoc
// @Summary Activate an institution
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.ActivateContactRequest false "Activation payload"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/{id}/activate [post]
func (h *ContactHandler) Activate(c *gin.Context) {
	var req models.ActivateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activation payload"))
		return
	}

	contact, err := h.contacts.Activate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Deactivate godoc
// @Summary Deactivate an institution
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.DeactivateContactRequest false "Deactivation payload"
// @Success 200 {object} response.Envelope
// @Router /admin/school-contacts/{id}/deactivate [post]
func (h *ContactHandler) Deactivate(c *gin.Context) {
	var req models.DeactivateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deactivation payload"))
		return
	}

	contact, err := h.contacts.Deactivate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// UpdateStatus godoc
// @Summary Toggle the institution active flag
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.UpdateContactStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /admin/institutions/{id}/status [put]
func (h *ContactHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateContactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	contact, err := h.contacts.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// SendCredentials godoc
// @Summary Regenerate and send institution credentials
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /admin/institutions/{id}/send-credentials [post]
func (h *ContactHandler) SendCredentials(c *gin.Context) {
	result, err := h.contacts.SendCredentials(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func boolQuery(c *gin.Context, name string) *bool {
	switch strings.ToLower(c.Query(name)) {
	case "true":
		val := true
		return &val
	case "false":
		val := false
		return &val
	default:
		return nil
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumainiaid/reporting-api/internal/dto"
	"github.com/tumainiaid/reporting-api/internal/models"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/response"
)

type workflowService interface {
	SubmitUpdate(ctx context.Context, req dto.CreateSubmissionRequest, actorRole models.UserRole, actorID string) (*models.Submission, error)
	ChangeStatus(ctx context.Context, id string, next models.SubmissionStatus, actorRole models.UserRole, actorID string, notes *string) (*models.Submission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, query dto.SubmissionQuery, actorRole models.UserRole) ([]models.Submission, int, error)
}

// SubmissionHandler exposes REST endpoints for update submissions.
type SubmissionHandler struct {
	service workflowService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service workflowService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Create godoc
// @Summary Submit a new periodic update
// @Tags Updates
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /updates [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "invalid submission payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.service.SubmitUpdate(c.Request.Context(), req, claims.Role, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, submission, nil)
}

// ChangeStatus godoc
// @Summary Move a submission through the review workflow
// @Tags Updates
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ChangeStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /updates/{id}/status [patch]
func (h *SubmissionHandler) ChangeStatus(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "invalid status payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, claims.Role, claims.UserID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Get godoc
// @Summary Get one submission
// @Tags Updates
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /updates/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// List godoc
// @Summary List submissions
// @Tags Updates
// @Produce json
// @Param childId query string false "Child ID"
// @Param reportType query string false "Report type"
// @Param period query string false "Period"
// @Param status query []string false "Statuses"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /updates [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.SubmissionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "invalid query parameters"))
		return
	}
	submissions, total, err := h.service.List(c.Request.Context(), query, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	response.JSON(c, http.StatusOK, submissions, &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

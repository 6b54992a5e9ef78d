package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tumainiaid/reporting-api/internal/models"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/response"
)

type childStore interface {
	List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error)
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

// ChildHandler exposes read endpoints for sponsored children.
type ChildHandler struct {
	store childStore
}

// NewChildHandler constructs the handler.
func NewChildHandler(store childStore) *ChildHandler {
	return &ChildHandler{store: store}
}

// List godoc
// @Summary List sponsored children
// @Tags Children
// @Produce json
// @Param status query string false "Child status"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /children [get]
func (h *ChildHandler) List(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "child store not configured"))
		return
	}
	filter := models.ChildFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.ChildStatus(strings.ToUpper(raw))
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "unknown child status"))
			return
		}
		filter.Status = &status
	}
	if page, err := parsePositiveInt(c.Query("page")); err == nil {
		filter.Page = page
	}
	if pageSize, err := parsePositiveInt(c.Query("pageSize")); err == nil {
		filter.PageSize = pageSize
	}

	children, total, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	response.JSON(c, http.StatusOK, children, &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get one child
// @Tags Children
// @Produce json
// @Param id path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{id} [get]
func (h *ChildHandler) Get(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "child store not configured"))
		return
	}
	child, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "child not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumainiaid/reporting-api/internal/dto"
	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/internal/service"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/response"
)

type complianceService interface {
	DetectMissing(ctx context.Context, period string, reportType models.ReportType) (*models.ComplianceSummary, error)
	GenerateSummary(ctx context.Context, period string, reportType models.ReportType) ([]models.ComplianceSummary, error)
}

type exportService interface {
	ExportSummary(ctx context.Context, period string, reportType models.ReportType, format string) (*service.ExportResult, error)
}

// ComplianceHandler exposes compliance detection and reporting endpoints.
type ComplianceHandler struct {
	service complianceService
	exports exportService
}

// NewComplianceHandler constructs the handler.
func NewComplianceHandler(svc complianceService, exports exportService) *ComplianceHandler {
	return &ComplianceHandler{service: svc, exports: exports}
}

// Missing godoc
// @Summary List children missing a qualifying report
// @Tags Compliance
// @Produce json
// @Param period query string true "Reporting period"
// @Param reportType query string true "Report type"
// @Success 200 {object} response.Envelope
// @Router /compliance/missing [get]
func (h *ComplianceHandler) Missing(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "compliance service not configured"))
		return
	}
	var query dto.ComplianceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "period is required"))
		return
	}
	summary, err := h.service.DetectMissing(c.Request.Context(), query.Period, models.ReportType(query.ReportType))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MissingReportResponse{
		Period:          summary.Period,
		ReportType:      string(summary.ReportType),
		MissingChildIDs: summary.MissingChildIDs,
		PresentChildIDs: summary.PresentChildIDs,
		ComplianceRate:  summary.ComplianceRate,
	}, nil)
}

// Summary godoc
// @Summary Generate compliance summaries for a period
// @Tags Compliance
// @Produce json
// @Param period query string true "Reporting period"
// @Param reportType query string false "Report type, both when omitted"
// @Success 200 {object} response.Envelope
// @Router /compliance/summary [get]
func (h *ComplianceHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "compliance service not configured"))
		return
	}
	var query dto.ComplianceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "period is required"))
		return
	}
	summaries, err := h.service.GenerateSummary(c.Request.Context(), query.Period, models.ReportType(query.ReportType))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Export godoc
// @Summary Export compliance summaries as CSV or PDF
// @Tags Compliance
// @Produce octet-stream
// @Param period query string true "Reporting period"
// @Param reportType query string false "Report type"
// @Param format query string false "csv or pdf, defaults to csv"
// @Success 200 {file} binary
// @Router /compliance/summary/export [get]
func (h *ComplianceHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgs, "period is required"))
		return
	}
	result, err := h.exports.ExportSummary(c.Request.Context(), query.Period, models.ReportType(query.ReportType), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/internal/service"
)

type complianceServiceMock struct {
	detectResp  *models.ComplianceSummary
	detectErr   error
	summaryResp []models.ComplianceSummary
	summaryErr  error
}

func (m *complianceServiceMock) DetectMissing(ctx context.Context, period string, reportType models.ReportType) (*models.ComplianceSummary, error) {
	return m.detectResp, m.detectErr
}

func (m *complianceServiceMock) GenerateSummary(ctx context.Context, period string, reportType models.ReportType) ([]models.ComplianceSummary, error) {
	return m.summaryResp, m.summaryErr
}

type exportServiceMock struct {
	result *service.ExportResult
	err    error
}

func (m *exportServiceMock) ExportSummary(ctx context.Context, period string, reportType models.ReportType, format string) (*service.ExportResult, error) {
	return m.result, m.err
}

func sampleSummary() *models.ComplianceSummary {
	return &models.ComplianceSummary{
		Period:          "2026-08",
		ReportType:      models.ReportTypeField,
		ExpectedCount:   5,
		PresentCount:    3,
		MissingChildIDs: []string{"c2", "c4"},
		PresentChildIDs: []string{"c1", "c3", "c5"},
		ComplianceRate:  60,
		GeneratedAt:     time.Now().UTC(),
	}
}

func TestComplianceHandlerMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewComplianceHandler(&complianceServiceMock{detectResp: sampleSummary()}, nil)

	c, w := newGinContext(http.MethodGet, "/compliance/missing?period=2026-08&reportType=field", nil)

	h.Missing(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"compliance_rate":60`)
	require.Contains(t, w.Body.String(), "c2")
}

func TestComplianceHandlerMissingRequiresPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewComplianceHandler(&complianceServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/compliance/missing", nil)

	h.Missing(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComplianceHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewComplianceHandler(&complianceServiceMock{
		summaryResp: []models.ComplianceSummary{*sampleSummary()},
	}, nil)

	c, w := newGinContext(http.MethodGet, "/compliance/summary?period=2026-08", nil)

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"expected_count":5`)
}

func TestComplianceHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewComplianceHandler(&complianceServiceMock{}, &exportServiceMock{
		result: &service.ExportResult{
			Content:     []byte("period,rate\n2026-08,60\n"),
			ContentType: "text/csv",
			Filename:    "compliance-2026-08.csv",
		},
	})

	c, w := newGinContext(http.MethodGet, "/compliance/summary/export?period=2026-08&format=csv", nil)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "compliance-2026-08.csv")
}

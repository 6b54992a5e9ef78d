package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tumainiaid/reporting-api/internal/models"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/export"
)

type summaryProvider interface {
	GenerateSummary(ctx context.Context, period string, reportType models.ReportType) ([]models.ComplianceSummary, error)
}

// ExportResult carries rendered export bytes with delivery metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders compliance summaries as downloadable files.
type ExportService struct {
	summaries summaryProvider
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(summaries summaryProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		summaries: summaries,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// ExportSummary renders the period's compliance summaries in the
// requested format ("csv" or "pdf").
func (s *ExportService) ExportSummary(ctx context.Context, period string, reportType models.ReportType, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "format must be csv or pdf")
	}

	summaries, err := s.summaries.GenerateSummary(ctx, period, reportType)
	if err != nil {
		return nil, err
	}

	table := buildSummaryTable(period, summaries)

	var content []byte
	var contentType string
	switch format {
	case "pdf":
		content, err = s.pdf.Render(table)
		contentType = "application/pdf"
	default:
		content, err = s.csv.Render(table)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("compliance export rendered",
		zap.String("period", period),
		zap.String("format", format),
		zap.Int("bytes", len(content)))

	return &ExportResult{
		Content:     content,
		ContentType: contentType,
		Filename:    fmt.Sprintf("compliance-%s.%s", period, format),
	}, nil
}

func buildSummaryTable(period string, summaries []models.ComplianceSummary) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Compliance Summary %s", period),
		Columns: []string{"Period", "Report Type", "Expected", "Present", "Missing", "Rate (%)", "Missing Child IDs"},
	}
	for _, summary := range summaries {
		table.Rows = append(table.Rows, []string{
			summary.Period,
			string(summary.ReportType),
			strconv.Itoa(summary.ExpectedCount),
			strconv.Itoa(summary.PresentCount),
			strconv.Itoa(len(summary.MissingChildIDs)),
			strconv.Itoa(summary.ComplianceRate),
			strings.Join(summary.MissingChildIDs, " "),
		})
	}
	return table
}

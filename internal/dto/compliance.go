package dto

// ComplianceQuery selects the period and report type for detector and
// summary endpoints. ReportType may be empty on summary requests, in
// which case one summary per report type is returned.
type ComplianceQuery struct {
	Period     string `form:"period" binding:"required"`
	ReportType string `form:"reportType"`
}

// MissingReportResponse is the detector output for one query.
type MissingReportResponse struct {
	Period          string   `json:"period"`
	ReportType      string   `json:"report_type"`
	MissingChildIDs []string `json:"missing_child_ids"`
	PresentChildIDs []string `json:"present_child_ids"`
	ComplianceRate  int      `json:"compliance_rate"`
}

// ExportQuery adds the output format to a compliance query.
type ExportQuery struct {
	ComplianceQuery
	Format string `form:"format"`
}

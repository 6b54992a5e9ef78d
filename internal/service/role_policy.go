package service

import (
	"github.com/tumainiaid/reporting-api/internal/models"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

// submitterRoles maps each report type to the single role authorized to
// submit it.
var submitterRoles = map[models.ReportType]models.UserRole{
	models.ReportTypeField:    models.RoleFieldOfficer,
	models.ReportTypeAcademic: models.RoleSchoolLiaison,
}

// adminOnlyStatuses are the review outcomes only the reviewer role may
// set.
var adminOnlyStatuses = map[models.SubmissionStatus]struct{}{
	models.StatusPublished:       {},
	models.StatusRejected:        {},
	models.StatusNeedsCorrection: {},
}

// SubmitterRoleFor returns the role authorized to submit the report type.
func SubmitterRoleFor(reportType models.ReportType) (models.UserRole, bool) {
	role, ok := submitterRoles[reportType]
	return role, ok
}

// AuthorizeSubmit checks that the actor holds the submitter role for the
// report type.
func AuthorizeSubmit(reportType models.ReportType, actor models.UserRole) error {
	required, ok := submitterRoles[reportType]
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidArgs, "unknown report type")
	}
	if actor != required {
		return appErrors.ErrForbiddenActor
	}
	return nil
}

// AuthorizeStatusChange checks that review outcomes are only set by the
// reviewer role.
func AuthorizeStatusChange(next models.SubmissionStatus, actor models.UserRole) error {
	if _, reviewOnly := adminOnlyStatuses[next]; reviewOnly && actor != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}

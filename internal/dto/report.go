package dto

// ReportQuery selects the scope and format of the occupancy report.
type ReportQuery struct {
	OrganizationID *int64 `form:"organization_id" validate:"omitempty,gt=0"`
	Format         string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ReportRow is one line of the occupancy report. Term is rendered only for
// exclusive positions.
type ReportRow struct {
	Organization string `json:"organization"`
	Position     string `json:"position"`
	Person       string `json:"person"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Term         string `json:"term"`
}

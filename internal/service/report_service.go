package service

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/repository"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/export"
)

type reportStore interface {
	ListOccupancy(ctx context.Context, organizationID *int64) ([]repository.OccupancyRow, error)
}

var reportHeaders = []string{"Organization", "Position", "Person", "Start", "End", "Term"}

// ReportService renders the occupancy report as JSON rows, CSV or PDF. Term
// numbers only appear for exclusive positions; shared positions leave the
// column blank.
type ReportService struct {
	repo     reportStore
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(repo reportStore, csv *export.CSVExporter, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, csv: csv, pdf: pdf, validate: validate, logger: logger}
}

// Rows returns the report as structured rows.
func (s *ReportService) Rows(ctx context.Context, query dto.ReportQuery) ([]dto.ReportRow, error) {
	if err := validateStruct(s.validate, query); err != nil {
		return nil, err
	}
	occupancy, err := s.repo.ListOccupancy(ctx, query.OrganizationID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load report rows")
	}
	rows := make([]dto.ReportRow, 0, len(occupancy))
	for _, entry := range occupancy {
		row := dto.ReportRow{
			Organization: entry.Organization,
			Position:     entry.Position,
			Person:       entry.Person,
			StartDate:    formatDate(entry.StartDate),
		}
		if entry.EndDate != nil {
			row.EndDate = formatDate(*entry.EndDate)
		}
		if entry.Exclusive {
			row.Term = strconv.Itoa(entry.TermNumber)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Render produces the report in the requested export format.
func (s *ReportService) Render(ctx context.Context, query dto.ReportQuery) (body []byte, contentType, filename string, err error) {
	rows, err := s.Rows(ctx, query)
	if err != nil {
		return nil, "", "", err
	}
	table := export.Table{Title: "Occupancy Report", Headers: reportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Organization, row.Position, row.Person, row.StartDate, row.EndDate, row.Term,
		})
	}
	switch query.Format {
	case "pdf":
		body, err = s.pdf.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return body, "application/pdf", "occupancy-report.pdf", nil
	case "", "csv":
		body, err = s.csv.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return body, "text/csv", "occupancy-report.csv", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

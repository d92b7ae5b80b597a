package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
	"github.com/grayson-dev/gcis-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

const exportTimeLayout = "01/02/2006, 15:04:05"

var exportHeaders = []string{
	"Term", "Course", "Section", "Name", "Status", "Capacity",
	"Instructor", "Campus", "Location", "Days", "Start", "Stop", "Note",
	"source", "Inserted_by", "Inserted_date", "Updated_by", "Updated_date",
	"Deleted_by", "Deleted_date", "Action",
}

// ExportService flattens a change summary into a downloadable report.
// Sections land in a fixed order: deletions, additions, changes.
type ExportService struct {
	changes  *ChangeService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	location *time.Location
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. An unknown timezone
// name falls back to UTC.
func NewExportService(changes *ChangeService, timezone string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("unknown export timezone, using UTC", zap.String("timezone", timezone))
		location = time.UTC
	}
	return &ExportService{
		changes:  changes,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		location: location,
		logger:   logger,
	}
}

// ExportResult carries rendered report bytes plus HTTP delivery hints.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the term's change summary in the requested format.
func (s *ExportService) Export(ctx context.Context, termSlug string, userID int64, format string) (*ExportResult, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	summary, term, err := s.changes.Summary(ctx, termSlug, userID)
	if err != nil {
		return nil, err
	}
	dataset := s.dataset(summary)

	switch format {
	case FormatPDF:
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Schedule Changes %s", term.Label()))
		if err != nil {
			s.logger.Error("pdf render failed", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("changes_%s.pdf", term.Label()),
		}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			s.logger.Error("csv render failed", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("changes_%s.csv", term.Label()),
		}, nil
	}
}

func (s *ExportService) dataset(summary *models.ChangeSummary) export.Dataset {
	rows := make([]map[string]string, 0, summary.TotalChanges)
	for _, entry := range summary.Deleted {
		rows = append(rows, s.row(entry.Row, entry.Source, models.ActionDelete))
	}
	for _, entry := range summary.Added {
		rows = append(rows, s.row(entry.Row, entry.Source, models.ActionAdd))
	}
	for _, group := range summary.Changed {
		for _, row := range group.Local {
			rows = append(rows, s.row(row, models.SourceLocal, models.ActionChange))
		}
		for _, row := range group.External {
			rows = append(rows, s.row(row, models.SourceCams, models.ActionChange))
		}
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func (s *ExportService) row(r models.ScheduleRow, source models.ChangeSource, action models.ChangeAction) map[string]string {
	return map[string]string{
		"Term":          r.TermLabel,
		"Course":        r.Course,
		"Section":       r.Section,
		"Name":          r.CourseName,
		"Status":        string(r.Status),
		"Capacity":      strconv.Itoa(r.Capacity),
		"Instructor":    deref(r.Instructor),
		"Campus":        deref(r.Campus),
		"Location":      deref(r.Location),
		"Days":          deref(r.Days),
		"Start":         deref(r.StartTime),
		"Stop":          deref(r.StopTime),
		"Note":          deref(r.Notes),
		"source":        string(source),
		"Inserted_by":   deref(r.InsertBy),
		"Inserted_date": s.stamp(r.InsertAt),
		"Updated_by":    deref(r.UpdateBy),
		"Updated_date":  s.stamp(r.UpdateAt),
		"Deleted_by":    deref(r.DeletedBy),
		"Deleted_date":  s.stamp(r.DeletedAt),
		"Action":        string(action),
	}
}

func (s *ExportService) stamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.In(s.location).Format(exportTimeLayout)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

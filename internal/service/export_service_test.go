package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
)

func exportSummary() *models.ChangeSummary {
	insertBy := "grayson"
	insertAt := time.Date(2024, 8, 15, 19, 30, 0, 0, time.UTC)
	addedRow := row("A01", 30, models.StatusOpen)
	addedRow.InsertBy = &insertBy
	addedRow.InsertAt = &insertAt

	return &models.ChangeSummary{
		Added:   []models.ChangeEntry{{Row: addedRow, Source: models.SourceLocal}},
		Deleted: []models.ChangeEntry{{Row: row("D01", 25, models.StatusOpen), Source: models.SourceCams}},
		Changed: []models.ChangeGroup{{
			Key:          models.ComparisonKey{TermID: 1, CourseID: 10, Section: "C01"},
			Local:        []models.ScheduleRow{row("C01", 30, models.StatusOpen)},
			External:     []models.ScheduleRow{row("C01", 25, models.StatusOpen)},
			FieldChanges: map[string]bool{"capacity": true},
		}},
		TotalChanges: 4,
	}
}

func TestExportDatasetOrderAndHeaders(t *testing.T) {
	svc := NewExportService(nil, "America/Chicago", zap.NewNop())
	dataset := svc.dataset(exportSummary())

	require.Equal(t, exportHeaders, dataset.Headers)
	require.Len(t, dataset.Rows, 4)

	// deletions first, then additions, then both sides of each change
	require.Equal(t, "DELETE", dataset.Rows[0]["Action"])
	require.Equal(t, "CAMS", dataset.Rows[0]["source"])
	require.Equal(t, "ADD", dataset.Rows[1]["Action"])
	require.Equal(t, "GCIS", dataset.Rows[1]["source"])
	require.Equal(t, "CHANGE", dataset.Rows[2]["Action"])
	require.Equal(t, "GCIS", dataset.Rows[2]["source"])
	require.Equal(t, "CHANGE", dataset.Rows[3]["Action"])
	require.Equal(t, "CAMS", dataset.Rows[3]["source"])
}

func TestExportTimestampsUseConfiguredZone(t *testing.T) {
	svc := NewExportService(nil, "America/Chicago", zap.NewNop())
	dataset := svc.dataset(exportSummary())

	// 19:30 UTC on 2024-08-15 is 14:30 in Chicago (CDT)
	require.Equal(t, "08/15/2024, 14:30:00", dataset.Rows[1]["Inserted_date"])
	require.Equal(t, "grayson", dataset.Rows[1]["Inserted_by"])
	require.Empty(t, dataset.Rows[1]["Deleted_date"])
}

func TestExportUnknownTimezoneFallsBackToUTC(t *testing.T) {
	svc := NewExportService(nil, "Not/AZone", zap.NewNop())
	dataset := svc.dataset(exportSummary())
	require.Equal(t, "08/15/2024, 19:30:00", dataset.Rows[1]["Inserted_date"])
}

func TestExportCSVRendersExactHeaderRow(t *testing.T) {
	svc := NewExportService(nil, "UTC", zap.NewNop())
	content, err := svc.csv.Render(svc.dataset(exportSummary()))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Equal(t,
		"Term,Course,Section,Name,Status,Capacity,Instructor,Campus,Location,Days,Start,Stop,Note,source,Inserted_by,Inserted_date,Updated_by,Updated_date,Deleted_by,Deleted_date,Action",
		strings.TrimRight(lines[0], "\r"))
	require.Len(t, lines, 5)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type localStub struct {
	rows    []models.ScheduleRow
	retired []models.ScheduleRow
	calls   int
	err     error
}

func (s *localStub) ListRowsForScope(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error) {
	s.calls++
	return s.rows, s.err
}

func (s *localStub) ListDeletedOpenRows(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error) {
	s.calls++
	return s.retired, nil
}

type camsStub struct {
	rows  []models.ScheduleRow
	calls int
	err   error
}

func (s *camsStub) ListRowsForScope(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error) {
	s.calls++
	return s.rows, s.err
}

func row(section string, capacity int, status models.ScheduleStatus) models.ScheduleRow {
	return models.ScheduleRow{
		TermID:     1,
		CourseID:   10,
		Section:    section,
		Capacity:   capacity,
		Status:     status,
		TermLabel:  "FALL2024",
		Course:     "CS101",
		CourseName: "Intro to Computing",
	}
}

func newEngine(local *localStub, external *camsStub) *ReconcileService {
	return NewReconcileService(local, external, nil, zap.NewNop())
}

func scope() models.ScheduleScope {
	return models.ScheduleScope{TermID: 1, CourseIDs: []int64{10}}
}

func TestDiffEmptyScopeSkipsStorage(t *testing.T) {
	local := &localStub{}
	external := &camsStub{}
	svc := newEngine(local, external)

	summary, err := svc.Diff(context.Background(), models.ScheduleScope{TermID: 1})
	require.NoError(t, err)
	require.Zero(t, summary.TotalChanges)
	require.Empty(t, summary.Changed)
	require.Empty(t, summary.Added)
	require.Empty(t, summary.Deleted)
	require.Zero(t, local.calls)
	require.Zero(t, external.calls)
}

func TestDiffIdenticalSetsYieldNoChanges(t *testing.T) {
	a := row("A01", 30, models.StatusOpen)
	local := &localStub{rows: []models.ScheduleRow{a}}
	external := &camsStub{rows: []models.ScheduleRow{a}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Zero(t, summary.TotalChanges)
	require.Empty(t, summary.Changed)
}

func TestDiffLocalOnlyIsAdded(t *testing.T) {
	local := &localStub{rows: []models.ScheduleRow{row("A01", 30, models.StatusOpen)}}
	external := &camsStub{}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Added, 1)
	require.Equal(t, models.SourceLocal, summary.Added[0].Source)
	require.Equal(t, 1, summary.TotalChanges)
}

func TestDiffExternalOnlyIsDeleted(t *testing.T) {
	local := &localStub{}
	external := &camsStub{rows: []models.ScheduleRow{row("A01", 25, models.StatusOpen)}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Deleted, 1)
	require.Equal(t, models.SourceCams, summary.Deleted[0].Source)
	require.Equal(t, 1, summary.TotalChanges)
}

func TestDiffCapacityChangeAttributed(t *testing.T) {
	local := &localStub{rows: []models.ScheduleRow{row("A01", 30, models.StatusOpen)}}
	external := &camsStub{rows: []models.ScheduleRow{row("A01", 25, models.StatusOpen)}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Changed, 1)
	group := summary.Changed[0]
	require.Len(t, group.Local, 1)
	require.Len(t, group.External, 1)
	require.Equal(t, map[string]bool{"capacity": true}, group.FieldChanges)
	require.Equal(t, 2, summary.TotalChanges)
}

func TestDiffStatusDifferenceShortCircuitsFields(t *testing.T) {
	localRow := row("A01", 30, models.StatusOpen)
	externalRow := row("A01", 25, models.StatusClosed)
	local := &localStub{rows: []models.ScheduleRow{localRow}}
	external := &camsStub{rows: []models.ScheduleRow{externalRow}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Changed, 1)
	require.Equal(t, map[string]bool{"status": true}, summary.Changed[0].FieldChanges)
}

func TestDiffBothCanceledIsNoOp(t *testing.T) {
	localRow := row("A01", 30, models.StatusCanceled)
	externalRow := row("A01", 99, models.StatusCanceled)
	days := "F"
	externalRow.Days = &days
	local := &localStub{rows: []models.ScheduleRow{localRow}}
	external := &camsStub{rows: []models.ScheduleRow{externalRow}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Zero(t, summary.TotalChanges)
	require.Empty(t, summary.Changed)
}

func TestDiffMixedTerminalStatusesNotDemoted(t *testing.T) {
	local := &localStub{rows: []models.ScheduleRow{row("A01", 30, models.StatusCanceled)}}
	external := &camsStub{rows: []models.ScheduleRow{row("A01", 30, models.StatusClosed)}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Changed, 1)
	require.Equal(t, map[string]bool{"status": true}, summary.Changed[0].FieldChanges)
}

func TestDiffTolerantDays(t *testing.T) {
	localRow := row("A01", 30, models.StatusOpen)
	days := "MTWR"
	localRow.Days = &days
	externalRow := row("A01", 25, models.StatusOpen)
	local := &localStub{rows: []models.ScheduleRow{localRow}}
	external := &camsStub{rows: []models.ScheduleRow{externalRow}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Changed, 1)
	require.Equal(t, map[string]bool{"capacity": true}, summary.Changed[0].FieldChanges)
}

func TestDiffDaysOrderInsensitive(t *testing.T) {
	localRow := row("A01", 30, models.StatusOpen)
	localDays := "TR"
	localRow.Days = &localDays
	externalRow := row("A01", 30, models.StatusOpen)
	externalDays := "RT"
	externalRow.Days = &externalDays
	local := &localStub{rows: []models.ScheduleRow{localRow}}
	external := &camsStub{rows: []models.ScheduleRow{externalRow}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Zero(t, summary.TotalChanges)
}

func TestDiffDuplicateSectionsStayGrouped(t *testing.T) {
	local := &localStub{rows: []models.ScheduleRow{
		row("A01", 30, models.StatusOpen),
		row("A01", 31, models.StatusOpen),
	}}
	external := &camsStub{rows: []models.ScheduleRow{
		row("A01", 25, models.StatusOpen),
		row("A01", 26, models.StatusOpen),
	}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Changed, 1)
	group := summary.Changed[0]
	require.Len(t, group.Local, 2)
	require.Len(t, group.External, 2)
	require.Nil(t, group.FieldChanges)
	require.Equal(t, 4, summary.TotalChanges)
}

func TestDiffDuplicatePairsCancelPairwise(t *testing.T) {
	shared := row("A01", 30, models.StatusOpen)
	local := &localStub{rows: []models.ScheduleRow{shared, shared}}
	external := &camsStub{rows: []models.ScheduleRow{shared}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Empty(t, summary.Changed)
	require.Len(t, summary.Added, 1)
}

func TestDiffRetiredOpenLocalSurfacesAsDeleted(t *testing.T) {
	local := &localStub{retired: []models.ScheduleRow{row("Z01", 20, models.StatusOpen)}}
	external := &camsStub{}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Len(t, summary.Deleted, 1)
	require.Equal(t, models.SourceLocal, summary.Deleted[0].Source)
}

func TestDiffRetiredLocalWithExternalCounterpartSuppressed(t *testing.T) {
	local := &localStub{
		rows:    []models.ScheduleRow{row("A01", 30, models.StatusOpen)},
		retired: []models.ScheduleRow{row("A01", 20, models.StatusOpen)},
	}
	external := &camsStub{rows: []models.ScheduleRow{row("A01", 30, models.StatusOpen)}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)
	require.Empty(t, summary.Deleted)
}

func TestDiffSortsAddedByCourseThenSection(t *testing.T) {
	b := row("B01", 30, models.StatusOpen)
	a := row("A01", 30, models.StatusOpen)
	other := row("A01", 30, models.StatusOpen)
	other.CourseID = 5
	other.Course = "BIO110"
	other.CourseName = "Biology"
	local := &localStub{rows: []models.ScheduleRow{b, other, a}}
	external := &camsStub{}

	summary, err := newEngine(local, external).Diff(context.Background(), models.ScheduleScope{TermID: 1, CourseIDs: []int64{5, 10}})
	require.NoError(t, err)
	require.Len(t, summary.Added, 3)
	require.Equal(t, "BIO110", summary.Added[0].Row.Course)
	require.Equal(t, "A01", summary.Added[1].Row.Section)
	require.Equal(t, "B01", summary.Added[2].Row.Section)
}

func TestDiffPartitionCompleteness(t *testing.T) {
	matched := row("M01", 30, models.StatusOpen)
	changedLocal := row("C01", 30, models.StatusOpen)
	changedExternal := row("C01", 25, models.StatusOpen)
	added := row("A01", 30, models.StatusOpen)
	deleted := row("D01", 30, models.StatusOpen)

	local := &localStub{rows: []models.ScheduleRow{matched, changedLocal, added}}
	external := &camsStub{rows: []models.ScheduleRow{matched, changedExternal, deleted}}

	summary, err := newEngine(local, external).Diff(context.Background(), scope())
	require.NoError(t, err)

	surfaced := len(summary.Added) + len(summary.Deleted)
	for _, group := range summary.Changed {
		surfaced += len(group.Local) + len(group.External)
	}
	// six input rows, two matched and dropped
	require.Equal(t, 4, surfaced)
	require.Equal(t, 4, summary.TotalChanges)
}

func TestDiffStorageErrorIsGeneric(t *testing.T) {
	local := &localStub{err: errors.New("connection refused")}
	external := &camsStub{}

	_, err := newEngine(local, external).Diff(context.Background(), scope())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "could not compute schedule changes", appErr.Message)
	require.Equal(t, "CHANGES_FAILED", appErr.Code)
}

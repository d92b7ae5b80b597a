package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	"github.com/grayson-dev/gcis-api/internal/repository"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type scheduleRepoStub struct {
	existing  *models.Schedule
	dup       bool
	created   *models.Schedule
	updated   *models.Schedule
	updateErr error
	deleteErr error
}

func (s *scheduleRepoStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	return nil, 0, nil
}

func (s *scheduleRepoStub) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	if s.existing == nil {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

func (s *scheduleRepoStub) ExistsSection(ctx context.Context, courseID int64, section string, excludeID int64) (bool, error) {
	return s.dup, nil
}

func (s *scheduleRepoStub) Create(ctx context.Context, sched *models.Schedule) error {
	sched.ID = 42
	s.created = sched
	return nil
}

func (s *scheduleRepoStub) Update(ctx context.Context, sched *models.Schedule) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = sched
	return nil
}

func (s *scheduleRepoStub) SoftDelete(ctx context.Context, id int64, actorID int64) error {
	return s.deleteErr
}

type sentinelStub struct {
	campus   *models.Campus
	location *models.Location
}

func (s *sentinelStub) InternetCampus(ctx context.Context) (*models.Campus, error) {
	if s.campus == nil {
		return nil, sql.ErrNoRows
	}
	return s.campus, nil
}

func (s *sentinelStub) InternetLocation(ctx context.Context) (*models.Location, error) {
	if s.location == nil {
		return nil, sql.ErrNoRows
	}
	return s.location, nil
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) Invalidate(ctx context.Context) { s.calls++ }

func validInput() models.ScheduleInput {
	return models.ScheduleInput{
		TermID:   1,
		CourseID: 10,
		Section:  "A01",
		Capacity: 30,
		Status:   "open",
	}
}

func newScheduleService(repo *scheduleRepoStub, sentinels *sentinelStub, inv *invalidatorStub) *ScheduleService {
	return NewScheduleService(repo, sentinels, inv, zap.NewNop())
}

func TestCreateNormalizesStatusAndInvalidates(t *testing.T) {
	repo := &scheduleRepoStub{}
	inv := &invalidatorStub{}
	svc := newScheduleService(repo, &sentinelStub{}, inv)

	sched, err := svc.Create(context.Background(), validInput(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, sched.Status)
	require.NotNil(t, sched.InsertBy)
	assert.Equal(t, int64(7), *sched.InsertBy)
	assert.Equal(t, 1, inv.calls)
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := newScheduleService(&scheduleRepoStub{}, &sentinelStub{}, &invalidatorStub{})

	input := validInput()
	input.Status = "Waitlisted"
	_, err := svc.Create(context.Background(), input, 7)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateRejectsInvertedTimeWindow(t *testing.T) {
	svc := newScheduleService(&scheduleRepoStub{}, &sentinelStub{}, &invalidatorStub{})

	input := validInput()
	start, stop := "10:00 AM", "9:00 AM"
	input.StartTime = &start
	input.StopTime = &stop
	_, err := svc.Create(context.Background(), input, 7)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateRejectsUnparseableTime(t *testing.T) {
	svc := newScheduleService(&scheduleRepoStub{}, &sentinelStub{}, &invalidatorStub{})

	input := validInput()
	start := "noonish"
	input.StartTime = &start
	_, err := svc.Create(context.Background(), input, 7)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateTreatsBlankTimeAsAbsent(t *testing.T) {
	repo := &scheduleRepoStub{}
	svc := newScheduleService(repo, &sentinelStub{}, &invalidatorStub{})

	input := validInput()
	blank := "  "
	input.StartTime = &blank
	sched, err := svc.Create(context.Background(), input, 7)
	require.NoError(t, err)
	assert.Nil(t, sched.StartTime)
}

func TestCreateDuplicateSectionConflicts(t *testing.T) {
	inv := &invalidatorStub{}
	svc := newScheduleService(&scheduleRepoStub{dup: true}, &sentinelStub{}, inv)

	_, err := svc.Create(context.Background(), validInput(), 7)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Zero(t, inv.calls)
}

func TestCreateOnlineSectionForcedOntoSentinels(t *testing.T) {
	repo := &scheduleRepoStub{}
	sentinels := &sentinelStub{
		campus:   &models.Campus{ID: 9, Name: models.InternetCampusName},
		location: &models.Location{ID: 12, Building: models.InternetLocationBuilding, Room: models.InternetLocationRoom},
	}
	svc := newScheduleService(repo, sentinels, &invalidatorStub{})

	input := validInput()
	input.Section = "NT1"
	campusID := int64(3)
	input.CampusID = &campusID
	sched, err := svc.Create(context.Background(), input, 7)
	require.NoError(t, err)
	require.NotNil(t, sched.CampusID)
	assert.Equal(t, int64(9), *sched.CampusID)
	require.NotNil(t, sched.LocationID)
	assert.Equal(t, int64(12), *sched.LocationID)
}

func TestCreateCanonicalizesDays(t *testing.T) {
	repo := &scheduleRepoStub{}
	svc := newScheduleService(repo, &sentinelStub{}, &invalidatorStub{})

	input := validInput()
	days := "RT"
	input.Days = &days
	sched, err := svc.Create(context.Background(), input, 7)
	require.NoError(t, err)
	require.NotNil(t, sched.Days)
	assert.Equal(t, "TR", *sched.Days)
}

func TestUpdatePreservesInsertAudit(t *testing.T) {
	creator := int64(3)
	repo := &scheduleRepoStub{existing: &models.Schedule{ID: 5, InsertBy: &creator}}
	inv := &invalidatorStub{}
	svc := newScheduleService(repo, &sentinelStub{}, inv)

	sched, err := svc.Update(context.Background(), 5, validInput(), 7)
	require.NoError(t, err)
	require.NotNil(t, sched.InsertBy)
	assert.Equal(t, int64(3), *sched.InsertBy)
	require.NotNil(t, sched.UpdateBy)
	assert.Equal(t, int64(7), *sched.UpdateBy)
	assert.Equal(t, 1, inv.calls)
}

func TestUpdateMissingScheduleIsNotFound(t *testing.T) {
	repo := &scheduleRepoStub{existing: &models.Schedule{ID: 5}, updateErr: repository.ErrNoRowsAffected}
	svc := newScheduleService(repo, &sentinelStub{}, &invalidatorStub{})

	_, err := svc.Update(context.Background(), 5, validInput(), 7)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDeleteMissingScheduleIsNotFound(t *testing.T) {
	inv := &invalidatorStub{}
	svc := newScheduleService(&scheduleRepoStub{deleteErr: repository.ErrNoRowsAffected}, &sentinelStub{}, inv)

	err := svc.Delete(context.Background(), 5, 7)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Zero(t, inv.calls)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/cams"
	"github.com/grayson-dev/gcis-api/internal/models"
	"github.com/grayson-dev/gcis-api/internal/repository"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	ExistsSection(ctx context.Context, courseID int64, section string, excludeID int64) (bool, error)
	Create(ctx context.Context, sched *models.Schedule) error
	Update(ctx context.Context, sched *models.Schedule) error
	SoftDelete(ctx context.Context, id int64, actorID int64) error
}

type sentinelRepository interface {
	InternetCampus(ctx context.Context) (*models.Campus, error)
	InternetLocation(ctx context.Context) (*models.Location, error)
}

type changeInvalidator interface {
	Invalidate(ctx context.Context)
}

// ScheduleService implements audited CRUD over the locally edited
// schedule set. Every write carries an explicit actor id for audit
// stamping, and invalidates the cached change summaries.
type ScheduleService struct {
	schedules scheduleRepository
	sentinels sentinelRepository
	changes   changeInvalidator
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(schedules scheduleRepository, sentinels sentinelRepository, changes changeInvalidator, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules: schedules,
		sentinels: sentinels,
		changes:   changes,
		validate:  validator.New(),
		logger:    logger,
	}
}

// List returns non-deleted schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	items, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		s.logger.Error("list schedules failed", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get loads one schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id int64) (*models.Schedule, error) {
	sched, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		s.logger.Error("find schedule failed", zap.Int64("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return sched, nil
}

// Create validates and persists a new schedule edited by actorID.
func (s *ScheduleService) Create(ctx context.Context, input models.ScheduleInput, actorID int64) (*models.Schedule, error) {
	sched, err := s.fromInput(ctx, input)
	if err != nil {
		return nil, err
	}
	dup, err := s.schedules.ExistsSection(ctx, sched.CourseID, sched.Section, 0)
	if err != nil {
		s.logger.Error("section uniqueness check failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if dup {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section already exists for this course")
	}

	sched.InsertBy = &actorID
	sched.UpdateBy = &actorID
	if err := s.schedules.Create(ctx, sched); err != nil {
		s.logger.Error("create schedule failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	s.changes.Invalidate(ctx)
	return sched, nil
}

// Update validates and persists changes to an existing schedule.
func (s *ScheduleService) Update(ctx context.Context, id int64, input models.ScheduleInput, actorID int64) (*models.Schedule, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sched, err := s.fromInput(ctx, input)
	if err != nil {
		return nil, err
	}
	dup, err := s.schedules.ExistsSection(ctx, sched.CourseID, sched.Section, id)
	if err != nil {
		s.logger.Error("section uniqueness check failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if dup {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section already exists for this course")
	}

	sched.ID = id
	sched.InsertBy = current.InsertBy
	sched.InsertAt = current.InsertAt
	sched.UpdateBy = &actorID
	sched.UpdateAt = time.Now().UTC()
	if err := s.schedules.Update(ctx, sched); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.ErrNotFound
		}
		s.logger.Error("update schedule failed", zap.Int64("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	s.changes.Invalidate(ctx)
	return sched, nil
}

// Delete soft-deletes a schedule, stamping the deleting actor.
func (s *ScheduleService) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.schedules.SoftDelete(ctx, id, actorID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.ErrNotFound
		}
		s.logger.Error("delete schedule failed", zap.Int64("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	s.changes.Invalidate(ctx)
	return nil
}

// fromInput normalizes and validates a payload into a Schedule. Online
// sections are forced onto the Internet campus/location sentinels.
func (s *ScheduleService) fromInput(ctx context.Context, input models.ScheduleInput) (*models.Schedule, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}

	status := models.NormalizeStatus(input.Status)
	switch status {
	case models.StatusOpen, models.StatusClosed, models.StatusCanceled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be OPEN, CLOSED or CANCELED")
	}

	sched := &models.Schedule{
		TermID:       input.TermID,
		CourseID:     input.CourseID,
		Section:      strings.TrimSpace(input.Section),
		Capacity:     input.Capacity,
		InstructorID: input.InstructorID,
		Status:       status,
		CampusID:     input.CampusID,
		LocationID:   input.LocationID,
		Notes:        input.Notes,
	}

	if input.Days != nil {
		if canon := models.NormalizeDays(*input.Days); canon != "" {
			sched.Days = &canon
		}
	}
	sched.StartTime = cams.TimeOfDay(input.StartTime)
	sched.StopTime = cams.TimeOfDay(input.StopTime)
	if sched.StartTime == nil && input.StartTime != nil && strings.TrimSpace(*input.StartTime) != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time is not a valid time of day")
	}
	if sched.StopTime == nil && input.StopTime != nil && strings.TrimSpace(*input.StopTime) != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stop_time is not a valid time of day")
	}
	if sched.StartTime != nil && sched.StopTime != nil && *sched.StartTime >= *sched.StopTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before stop_time")
	}

	if models.OnlineSection(sched.Section) {
		if err := s.applyInternetSentinels(ctx, sched); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func (s *ScheduleService) applyInternetSentinels(ctx context.Context, sched *models.Schedule) error {
	campus, err := s.sentinels.InternetCampus(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("internet campus lookup failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if campus != nil {
		sched.CampusID = &campus.ID
	}
	location, err := s.sentinels.InternetLocation(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("internet location lookup failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if location != nil {
		sched.LocationID = &location.ID
	}
	return nil
}

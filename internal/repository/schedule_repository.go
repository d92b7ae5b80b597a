package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/grayson-dev/gcis-api/internal/models"
)

// scheduleColumns are the persisted columns of the local schedule set.
const scheduleColumns = `id, term_id, course_id, section, capacity, instructor_id, status, campus_id, location_id, days, to_char(start_time, 'HH24:MI:SS') AS start_time, to_char(stop_time, 'HH24:MI:SS') AS stop_time, notes, insert_by, insert_at, update_by, update_at, is_deleted, deleted_by, deleted_at`

// scheduleListColumns is scheduleColumns qualified for the list join.
const scheduleListColumns = `s.id, s.term_id, s.course_id, s.section, s.capacity, s.instructor_id, s.status, s.campus_id, s.location_id, s.days, to_char(s.start_time, 'HH24:MI:SS') AS start_time, to_char(s.stop_time, 'HH24:MI:SS') AS stop_time, s.notes, s.insert_by, s.insert_at, s.update_by, s.update_at, s.is_deleted, s.deleted_by, s.deleted_at`

// scopeRowSelect resolves display fields for reconciliation and reports.
const scopeRowSelect = `SELECT s.term_id, s.course_id, s.section, s.capacity, s.instructor_id, s.status, s.campus_id, s.location_id, s.days,
	to_char(s.start_time, 'HH24:MI:SS') AS start_time,
	to_char(s.stop_time, 'HH24:MI:SS') AS stop_time,
	t.semester || t.year::text AS term_label,
	c.subject || c.number AS course,
	c.name AS course_name,
	i.last_name || ', ' || i.first_name AS instructor,
	cp.name AS campus,
	l.building || l.room AS location,
	s.notes,
	ui.username AS insert_by, s.insert_at,
	uu.username AS update_by, s.update_at,
	ud.username AS deleted_by, s.deleted_at
	FROM schedules s
	JOIN terms t ON t.id = s.term_id
	JOIN courses c ON c.id = s.course_id
	LEFT JOIN instructors i ON i.id = s.instructor_id
	LEFT JOIN campuses cp ON cp.id = s.campus_id
	LEFT JOIN locations l ON l.id = s.location_id
	LEFT JOIN users ui ON ui.id = s.insert_by
	LEFT JOIN users uu ON uu.id = s.update_by
	LEFT JOIN users ud ON ud.id = s.deleted_by`

// ScheduleRepository provides persistence for locally edited schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns non-deleted schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules s JOIN courses c ON c.id = s.course_id WHERE s.is_deleted = FALSE"
	var conditions []string
	var args []interface{}

	if filter.TermID != 0 {
		conditions = append(conditions, fmt.Sprintf("s.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.CourseID != 0 {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("c.subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.SectionPrefix != "" {
		conditions = append(conditions, fmt.Sprintf("s.section LIKE $%d", len(args)+1))
		args = append(args, filter.SectionPrefix+"%")
	}
	if filter.InstructorID != nil {
		conditions = append(conditions, fmt.Sprintf("s.instructor_id = $%d", len(args)+1))
		args = append(args, *filter.InstructorID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 25
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.course_id, s.section LIMIT %d OFFSET %d", scheduleListColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id, soft-deleted rows included.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ExistsSection reports whether a non-deleted schedule already claims
// (course, section), excluding one id when updating.
func (r *ScheduleRepository) ExistsSection(ctx context.Context, courseID int64, section string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM schedules WHERE course_id = $1 AND section = $2 AND is_deleted = FALSE AND id <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, courseID, section, excludeID); err != nil {
		return false, fmt.Errorf("check section: %w", err)
	}
	return exists, nil
}

// Create inserts a new schedule stamped with the inserting actor.
func (r *ScheduleRepository) Create(ctx context.Context, sched *models.Schedule) error {
	const query = `INSERT INTO schedules
		(term_id, course_id, section, capacity, instructor_id, status, campus_id, location_id, days, start_time, stop_time, notes, insert_by, insert_at, update_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id`
	now := time.Now()
	sched.InsertAt = now
	sched.UpdateAt = now
	if err := r.db.QueryRowContext(ctx, query,
		sched.TermID, sched.CourseID, sched.Section, sched.Capacity,
		sched.InstructorID, sched.Status, sched.CampusID, sched.LocationID,
		sched.Days, sched.StartTime, sched.StopTime, sched.Notes,
		sched.InsertBy, now,
	).Scan(&sched.ID); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// Update saves mutable fields and stamps the updating actor.
func (r *ScheduleRepository) Update(ctx context.Context, sched *models.Schedule) error {
	const query = `UPDATE schedules SET
		term_id = $1, course_id = $2, section = $3, capacity = $4, instructor_id = $5,
		status = $6, campus_id = $7, location_id = $8, days = $9, start_time = $10,
		stop_time = $11, notes = $12, update_by = $13, update_at = $14
		WHERE id = $15 AND is_deleted = FALSE`
	now := time.Now()
	sched.UpdateAt = now
	res, err := r.db.ExecContext(ctx, query,
		sched.TermID, sched.CourseID, sched.Section, sched.Capacity,
		sched.InstructorID, sched.Status, sched.CampusID, sched.LocationID,
		sched.Days, sched.StartTime, sched.StopTime, sched.Notes,
		sched.UpdateBy, now, sched.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// SoftDelete marks a schedule deleted without removing the row.
func (r *ScheduleRepository) SoftDelete(ctx context.Context, id int64, actorID int64) error {
	const query = `UPDATE schedules SET is_deleted = TRUE, deleted_by = $1, deleted_at = $2 WHERE id = $3 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, actorID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("soft delete schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// ListRowsForScope fetches the local side of a reconciliation window,
// excluding soft-deleted rows.
func (r *ScheduleRepository) ListRowsForScope(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error) {
	query := scopeRowSelect + ` WHERE s.term_id = $1 AND s.course_id = ANY($2) AND s.is_deleted = FALSE`
	var rows []models.ScheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.TermID, pq.Array(scope.CourseIDs)); err != nil {
		return nil, fmt.Errorf("list local scope rows: %w", err)
	}
	return rows, nil
}

// ListDeletedOpenRows fetches soft-deleted rows that were still OPEN.
// They feed the deletion-visibility pass of the reconciliation.
func (r *ScheduleRepository) ListDeletedOpenRows(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error) {
	query := scopeRowSelect + ` WHERE s.term_id = $1 AND s.course_id = ANY($2) AND s.is_deleted = TRUE AND s.status = 'OPEN'`
	var rows []models.ScheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.TermID, pq.Array(scope.CourseIDs)); err != nil {
		return nil, fmt.Errorf("list deleted open rows: %w", err)
	}
	return rows, nil
}

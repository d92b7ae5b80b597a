package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/grayson-dev/gcis-api/internal/models"
)

// CamsRepository reads the mirrored CAMS schedule set. The mirror is
// written exclusively by the bulk loader; this repository is read-only.
type CamsRepository struct {
	db *sqlx.DB
}

// NewCamsRepository creates a new CAMS mirror repository.
func NewCamsRepository(db *sqlx.DB) *CamsRepository {
	return &CamsRepository{db: db}
}

// ListRowsForScope fetches the external side of a reconciliation window.
func (r *CamsRepository) ListRowsForScope(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error) {
	const query = `SELECT s.term_id, s.course_id, s.section, s.capacity, s.instructor_id, s.status, s.campus_id, s.location_id, s.days,
		to_char(s.start_time, 'HH24:MI:SS') AS start_time,
		to_char(s.stop_time, 'HH24:MI:SS') AS stop_time,
		t.semester || t.year::text AS term_label,
		c.subject || c.number AS course,
		c.name AS course_name,
		i.last_name || ', ' || i.first_name AS instructor,
		cp.name AS campus,
		l.building || l.room AS location
		FROM cams_schedules s
		JOIN terms t ON t.id = s.term_id
		JOIN courses c ON c.id = s.course_id
		LEFT JOIN instructors i ON i.id = s.instructor_id
		LEFT JOIN campuses cp ON cp.id = s.campus_id
		LEFT JOIN locations l ON l.id = s.location_id
		WHERE s.term_id = $1 AND s.course_id = ANY($2)`
	var rows []models.ScheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.TermID, pq.Array(scope.CourseIDs)); err != nil {
		return nil, fmt.Errorf("list cams scope rows: %w", err)
	}
	return rows, nil
}

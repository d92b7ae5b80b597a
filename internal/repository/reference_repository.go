package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grayson-dev/gcis-api/internal/models"
)

// ReferenceRepository serves the natural-key lookups the normalizer
// resolves foreign keys against, plus the online-section sentinels.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository creates a new reference repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// TermKey is the natural key of a term lookup entry.
type TermKey struct {
	Year     int
	Semester models.Semester
}

// TermIDs maps (year, semester) to surrogate ids.
func (r *ReferenceRepository) TermIDs(ctx context.Context) (map[TermKey]int64, error) {
	var rows []struct {
		ID       int64           `db:"id"`
		Year     int             `db:"year"`
		Semester models.Semester `db:"semester"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, year, semester FROM terms`); err != nil {
		return nil, fmt.Errorf("term lookup: %w", err)
	}
	out := make(map[TermKey]int64, len(rows))
	for _, row := range rows {
		out[TermKey{Year: row.Year, Semester: row.Semester}] = row.ID
	}
	return out, nil
}

// CourseKey is the natural key of a course lookup entry.
type CourseKey struct {
	Subject string
	Number  string
}

// CourseIDs maps (subject, number) to surrogate ids.
func (r *ReferenceRepository) CourseIDs(ctx context.Context) (map[CourseKey]int64, error) {
	var rows []struct {
		ID      int64  `db:"id"`
		Subject string `db:"subject"`
		Number  string `db:"number"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, subject, number FROM courses`); err != nil {
		return nil, fmt.Errorf("course lookup: %w", err)
	}
	out := make(map[CourseKey]int64, len(rows))
	for _, row := range rows {
		out[CourseKey{Subject: row.Subject, Number: row.Number}] = row.ID
	}
	return out, nil
}

// CampusIDs maps campus name to surrogate id.
func (r *ReferenceRepository) CampusIDs(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name FROM campuses`); err != nil {
		return nil, fmt.Errorf("campus lookup: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.ID
	}
	return out, nil
}

// LocationIDs maps the building+room composite to surrogate id.
func (r *ReferenceRepository) LocationIDs(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ID       int64  `db:"id"`
		Location string `db:"location"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, building || room AS location FROM locations`); err != nil {
		return nil, fmt.Errorf("location lookup: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Location] = row.ID
	}
	return out, nil
}

// InstructorIDs maps the upper-cased "LAST, FIRST" form to the minimum
// surrogate id among duplicate employee records.
func (r *ReferenceRepository) InstructorIDs(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	const query = `SELECT MIN(id) AS id, UPPER(last_name) || ', ' || UPPER(first_name) AS name
		FROM instructors GROUP BY UPPER(last_name), UPPER(first_name)`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("instructor lookup: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.ID
	}
	return out, nil
}

// InternetCampus returns the sentinel campus for online sections.
func (r *ReferenceRepository) InternetCampus(ctx context.Context) (*models.Campus, error) {
	var campus models.Campus
	if err := r.db.GetContext(ctx, &campus, `SELECT id, name FROM campuses WHERE name LIKE '%Internet%' ORDER BY id LIMIT 1`); err != nil {
		return nil, err
	}
	return &campus, nil
}

// InternetLocation returns the sentinel location for online sections.
func (r *ReferenceRepository) InternetLocation(ctx context.Context) (*models.Location, error) {
	var location models.Location
	if err := r.db.GetContext(ctx, &location, `SELECT id, building, room FROM locations WHERE building = $1 AND room = $2 LIMIT 1`,
		models.InternetLocationBuilding, models.InternetLocationRoom); err != nil {
		return nil, err
	}
	return &location, nil
}

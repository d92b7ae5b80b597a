package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/grayson-dev/gcis-api/internal/models"
)

// CourseRepository provides persistence for catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses scoped to a subject list; an empty filter lists
// everything.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := `SELECT id, subject, number, credit, name FROM courses`
	var args []interface{}
	if len(filter.Subjects) > 0 {
		query += ` WHERE subject = ANY($1)`
		args = append(args, pq.Array(filter.Subjects))
	}
	query += ` ORDER BY subject, number`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID loads single course.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, subject, number, credit, name FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// IDsBySubjects resolves the course-id scope for a subject preference
// list. An empty subject list resolves to an empty scope.
func (r *CourseRepository) IDsBySubjects(ctx context.Context, subjects []string) ([]int64, error) {
	if len(subjects) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM courses WHERE subject = ANY($1) ORDER BY id`, pq.Array(subjects)); err != nil {
		return nil, fmt.Errorf("resolve course scope: %w", err)
	}
	return ids, nil
}

package models

import "time"

// ChangeSource tags which record set a reconciled row came from.
type ChangeSource string

const (
	SourceLocal ChangeSource = "GCIS"
	SourceCams  ChangeSource = "CAMS"
)

// ChangeAction classifies a reconciliation discrepancy.
type ChangeAction string

const (
	ActionAdd    ChangeAction = "ADD"
	ActionDelete ChangeAction = "DELETE"
	ActionChange ChangeAction = "CHANGE"
)

// ComparisonKey identifies "the same section" across both record sets.
type ComparisonKey struct {
	TermID   int64  `json:"term_id"`
	CourseID int64  `json:"course_id"`
	Section  string `json:"section"`
}

// ScheduleScope bounds a reconciliation run to one term and a course
// subset.
type ScheduleScope struct {
	TermID    int64
	CourseIDs []int64
}

// ScheduleRow is a reconcilable snapshot of a schedule record with its
// display fields resolved. Audit fields are populated only for rows from
// the local set.
type ScheduleRow struct {
	TermID       int64          `db:"term_id" json:"term_id"`
	CourseID     int64          `db:"course_id" json:"course_id"`
	Section      string         `db:"section" json:"section"`
	Capacity     int            `db:"capacity" json:"capacity"`
	InstructorID *int64         `db:"instructor_id" json:"instructor_id,omitempty"`
	Status       ScheduleStatus `db:"status" json:"status"`
	CampusID     *int64         `db:"campus_id" json:"campus_id,omitempty"`
	LocationID   *int64         `db:"location_id" json:"location_id,omitempty"`
	Days         *string        `db:"days" json:"days,omitempty"`
	StartTime    *string        `db:"start_time" json:"start_time,omitempty"`
	StopTime     *string        `db:"stop_time" json:"stop_time,omitempty"`

	TermLabel  string  `db:"term_label" json:"term"`
	Course     string  `db:"course" json:"course"`
	CourseName string  `db:"course_name" json:"course_name"`
	Instructor *string `db:"instructor" json:"instructor,omitempty"`
	Campus     *string `db:"campus" json:"campus,omitempty"`
	Location   *string `db:"location" json:"location,omitempty"`

	Notes     *string    `db:"notes" json:"notes,omitempty"`
	InsertBy  *string    `db:"insert_by" json:"insert_by,omitempty"`
	InsertAt  *time.Time `db:"insert_at" json:"insert_at,omitempty"`
	UpdateBy  *string    `db:"update_by" json:"update_by,omitempty"`
	UpdateAt  *time.Time `db:"update_at" json:"update_at,omitempty"`
	DeletedBy *string    `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Key returns the row's comparison key.
func (r ScheduleRow) Key() ComparisonKey {
	return ComparisonKey{TermID: r.TermID, CourseID: r.CourseID, Section: r.Section}
}

// ChangeEntry is one surfaced row plus the set it came from.
type ChangeEntry struct {
	Row    ScheduleRow  `json:"row"`
	Source ChangeSource `json:"source"`
}

// ChangeGroup is a CHANGED classification for one comparison key. When
// duplicate sections leave more than one row on a side, rows stay
// grouped rather than being force-paired. FieldChanges is set only for
// 1:1 groups.
type ChangeGroup struct {
	Key          ComparisonKey   `json:"key"`
	Local        []ScheduleRow   `json:"local"`
	External     []ScheduleRow   `json:"external"`
	FieldChanges map[string]bool `json:"field_changes,omitempty"`
}

// ChangeSummary is the reconciliation engine's output. Matched rows are
// dropped, never returned.
type ChangeSummary struct {
	Changed      []ChangeGroup `json:"changed"`
	Added        []ChangeEntry `json:"added"`
	Deleted      []ChangeEntry `json:"deleted"`
	TotalChanges int           `json:"total_changes"`
}

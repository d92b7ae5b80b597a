package models

import (
	"strings"
	"time"
)

// ScheduleStatus enumerates section statuses.
type ScheduleStatus string

const (
	StatusOpen     ScheduleStatus = "OPEN"
	StatusClosed   ScheduleStatus = "CLOSED"
	StatusCanceled ScheduleStatus = "CANCELED"
)

// Terminal reports whether the status makes a section's remaining
// details irrelevant for comparison purposes.
func (s ScheduleStatus) Terminal() bool {
	return s == StatusClosed || s == StatusCanceled
}

// NormalizeStatus uppercases feed status text and maps the British
// spelling onto the canonical one.
func NormalizeStatus(raw string) ScheduleStatus {
	up := strings.ToUpper(strings.TrimSpace(raw))
	if up == "CANCELLED" {
		up = "CANCELED"
	}
	return ScheduleStatus(up)
}

// dayOrder is the canonical week ordering for the days field.
const dayOrder = "MTWRFSU"

// NormalizeDays reduces a days string to set membership in canonical
// MTWRFSU order, making comparison order-insensitive.
func NormalizeDays(days string) string {
	var b strings.Builder
	for _, d := range dayOrder {
		if strings.ContainsRune(days, d) {
			b.WriteRune(d)
		}
	}
	return b.String()
}

// Schedule is the locally edited schedule record, soft-delete aware.
type Schedule struct {
	ID           int64          `db:"id" json:"id"`
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
	Notes        *string        `db:"notes" json:"notes,omitempty"`

	InsertBy  *int64     `db:"insert_by" json:"insert_by,omitempty"`
	InsertAt  time.Time  `db:"insert_at" json:"insert_at"`
	UpdateBy  *int64     `db:"update_by" json:"update_by,omitempty"`
	UpdateAt  time.Time  `db:"update_at" json:"update_at"`
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	DeletedBy *int64     `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// OnlineSection reports whether a section code names an internet-only
// section, which must carry the Internet campus/location sentinels.
func OnlineSection(section string) bool {
	return strings.Contains(section, "NT")
}

// ScheduleInput is the create/update payload for a schedule record.
type ScheduleInput struct {
	TermID       int64   `json:"term_id" validate:"required,gt=0"`
	CourseID     int64   `json:"course_id" validate:"required,gt=0"`
	Section      string  `json:"section" validate:"required,max=16"`
	Capacity     int     `json:"capacity" validate:"gte=0"`
	InstructorID *int64  `json:"instructor_id"`
	Status       string  `json:"status" validate:"required"`
	CampusID     *int64  `json:"campus_id"`
	LocationID   *int64  `json:"location_id"`
	Days         *string `json:"days"`
	StartTime    *string `json:"start_time"`
	StopTime     *string `json:"stop_time"`
	Notes        *string `json:"notes"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	TermID        int64
	CourseID      int64
	Subject       string
	SectionPrefix string
	InstructorID  *int64
	Page          int
	PageSize      int
}

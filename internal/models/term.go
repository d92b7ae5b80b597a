package models

import (
	"fmt"
	"strings"
)

// Semester enumerates the semesters a term can fall in.
type Semester string

const (
	SemesterFall   Semester = "FALL"
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
)

// Term models an academic term. (year, semester) is the natural key.
type Term struct {
	ID       int64    `db:"id" json:"id"`
	Year     int      `db:"year" json:"year"`
	Semester Semester `db:"semester" json:"semester"`
	Active   bool     `db:"active" json:"active"`
}

// Label renders the display form used throughout reports, e.g. FALL2024.
func (t Term) Label() string {
	return fmt.Sprintf("%s%d", t.Semester, t.Year)
}

// ParseTermSlug splits a slug such as "fall2024" into its natural key.
func ParseTermSlug(slug string) (year int, semester Semester, err error) {
	if len(slug) < 5 {
		return 0, "", fmt.Errorf("invalid term %q", slug)
	}
	if _, err := fmt.Sscanf(slug[len(slug)-4:], "%d", &year); err != nil {
		return 0, "", fmt.Errorf("invalid term %q", slug)
	}
	semester = Semester(strings.ToUpper(slug[:len(slug)-4]))
	switch semester {
	case SemesterFall, SemesterSpring, SemesterSummer:
		return year, semester, nil
	}
	return 0, "", fmt.Errorf("invalid semester in term %q", slug)
}

// TermFilter defines filters supported by term list endpoints.
type TermFilter struct {
	Active *bool
}

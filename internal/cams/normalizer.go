package cams

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	"github.com/grayson-dev/gcis-api/internal/repository"
)

// RefTables are the already-loaded reference lookups the normalizer
// resolves natural keys against.
type RefTables struct {
	Terms       map[repository.TermKey]int64
	Courses     map[repository.CourseKey]int64
	Campuses    map[string]int64
	Locations   map[string]int64
	Instructors map[string]int64
}

// NormalizedSchedule is one fully resolved schedule row ready for bulk
// insert. Course is the only hard dependency; every other foreign key
// may stay nil.
type NormalizedSchedule struct {
	TermID       *int64
	CourseID     int64
	Section      string
	Capacity     int
	InstructorID *int64
	Status       models.ScheduleStatus
	CampusID     *int64
	LocationID   *int64
	Days         *string
	StartTime    *string
	StopTime     *string
}

// Normalize resolves a schedule extract against the reference lookups.
// Rows whose (subject, number) pair is not in the course catalog are
// dropped; that is accepted data loss, logged as informational only.
func Normalize(feed []models.FeedSchedule, refs RefTables, logger *zap.Logger) []NormalizedSchedule {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make([]NormalizedSchedule, 0, len(feed))
	dropped := 0
	for _, row := range feed {
		courseID, ok := refs.Courses[repository.CourseKey{Subject: row.Subject, Number: row.Number}]
		if !ok {
			dropped++
			logger.Info("dropping schedule row without course",
				zap.String("subject", row.Subject),
				zap.String("number", row.Number),
				zap.String("section", row.Section),
			)
			continue
		}

		norm := NormalizedSchedule{
			CourseID:  courseID,
			Section:   strings.TrimSpace(row.Section),
			Capacity:  row.Capacity,
			Status:    models.NormalizeStatus(row.Status),
			Days:      normalizeDays(row.Days),
			StartTime: TimeOfDay(row.StartTime),
			StopTime:  TimeOfDay(row.StopTime),
		}

		if id, ok := refs.Terms[repository.TermKey{Year: row.Year, Semester: models.Semester(strings.ToUpper(row.Semester))}]; ok {
			norm.TermID = &id
		}
		if row.Instructor != nil {
			if id, ok := refs.Instructors[strings.ToUpper(strings.TrimSpace(*row.Instructor))]; ok {
				norm.InstructorID = &id
			}
		}
		if row.Campus != nil {
			if id, ok := refs.Campuses[strings.TrimSpace(*row.Campus)]; ok {
				norm.CampusID = &id
			}
		}
		if row.Location != nil {
			if id, ok := refs.Locations[strings.TrimSpace(*row.Location)]; ok {
				norm.LocationID = &id
			}
		}

		out = append(out, norm)
	}

	if dropped > 0 {
		logger.Info("normalizer dropped unresolved rows", zap.Int("dropped", dropped), zap.Int("kept", len(out)))
	}
	return out
}

func normalizeDays(days *string) *string {
	if days == nil {
		return nil
	}
	canon := models.NormalizeDays(strings.TrimSpace(*days))
	if canon == "" {
		return nil
	}
	return &canon
}

// timeLayouts are the shapes upstream time columns have been observed
// in; anything else degrades to "no time".
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"15:04:05",
	"15:04",
	"3:04 PM",
}

// TimeOfDay normalizes an upstream time value to HH:MM:SS, discarding
// any date component. Unparseable input yields nil rather than an error.
func TimeOfDay(raw *string) *string {
	if raw == nil {
		return nil
	}
	text := strings.TrimSpace(*raw)
	if text == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			formatted := t.Format("15:04:05")
			return &formatted
		}
	}
	return nil
}

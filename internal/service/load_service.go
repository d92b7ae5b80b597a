package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/cams"
	"github.com/grayson-dev/gcis-api/internal/models"
	"github.com/grayson-dev/gcis-api/internal/repository"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type camsExtractor interface {
	Terms(ctx context.Context) ([]models.FeedTerm, error)
	Campuses(ctx context.Context) ([]models.FeedCampus, error)
	Locations(ctx context.Context) ([]models.FeedLocation, error)
	Instructors(ctx context.Context) ([]models.FeedInstructor, error)
	Courses(ctx context.Context) ([]models.FeedCourse, error)
	Schedules(ctx context.Context) ([]models.FeedSchedule, error)
}

type bulkWriter interface {
	Load(ctx context.Context, table string, columns []string, rows [][]interface{}, reset bool) (int, error)
}

type loadReferenceRepository interface {
	TermIDs(ctx context.Context) (map[repository.TermKey]int64, error)
	CourseIDs(ctx context.Context) (map[repository.CourseKey]int64, error)
	CampusIDs(ctx context.Context) (map[string]int64, error)
	LocationIDs(ctx context.Context) (map[string]int64, error)
	InstructorIDs(ctx context.Context) (map[string]int64, error)
}

// LoadOptions control one pipeline run. Reset empties the reference
// tables and restarts their id sequences before inserting; SeedLocal
// additionally writes the normalized schedules into the working table,
// which is only sensible on a fresh or reset database.
type LoadOptions struct {
	Reset     bool
	SeedLocal bool
}

// LoadReport summarizes a finished pipeline run.
type LoadReport struct {
	RunID      string         `json:"run_id"`
	Reset      bool           `json:"reset"`
	SeedLocal  bool           `json:"seed_local"`
	Tables     map[string]int `json:"tables"`
	Dropped    int            `json:"dropped"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

// LoadService runs the CAMS extract, normalize and bulk-insert
// pipeline. The mirror table is rebuilt from scratch on every run so
// reconciliation always compares against the latest extract.
type LoadService struct {
	extractor camsExtractor
	bulk      bulkWriter
	refs      loadReferenceRepository
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewLoadService constructs a LoadService.
func NewLoadService(extractor camsExtractor, bulk bulkWriter, refs loadReferenceRepository, metrics *MetricsService, logger *zap.Logger) *LoadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadService{extractor: extractor, bulk: bulk, refs: refs, metrics: metrics, logger: logger}
}

// Run executes the full pipeline: reference tables first, then lookup
// refresh, then the schedule extract normalized against those lookups.
func (s *LoadService) Run(ctx context.Context, opts LoadOptions) (*LoadReport, error) {
	started := time.Now()
	report := &LoadReport{
		RunID:     uuid.NewString(),
		Reset:     opts.Reset,
		SeedLocal: opts.SeedLocal,
		Tables:    map[string]int{},
		StartedAt: started.UTC(),
	}
	log := s.logger.With(zap.String("run_id", report.RunID), zap.Bool("reset", opts.Reset))
	log.Info("cams load started")

	if err := s.loadReferences(ctx, opts, report, log); err != nil {
		s.observeOutcome("error", started)
		return nil, s.wrap(err, log)
	}

	refs, err := s.lookups(ctx)
	if err != nil {
		s.observeOutcome("error", started)
		return nil, s.wrap(err, log)
	}

	feed, err := s.extractor.Schedules(ctx)
	if err != nil {
		s.observeOutcome("error", started)
		return nil, s.wrap(err, log)
	}
	normalized := cams.Normalize(feed, refs, log)
	report.Dropped = len(feed) - len(normalized)

	if err := s.loadSchedules(ctx, normalized, opts, report, log); err != nil {
		s.observeOutcome("error", started)
		return nil, s.wrap(err, log)
	}

	report.DurationMS = time.Since(started).Milliseconds()
	s.observeOutcome("ok", started)
	log.Info("cams load finished",
		zap.Int("schedules", report.Tables["cams_schedules"]),
		zap.Int("dropped", report.Dropped),
		zap.Int64("duration_ms", report.DurationMS),
	)
	return report, nil
}

func (s *LoadService) loadReferences(ctx context.Context, opts LoadOptions, report *LoadReport, log *zap.Logger) error {
	terms, err := s.extractor.Terms(ctx)
	if err != nil {
		return err
	}
	if err := s.loadTable(ctx, report, "terms", []string{"year", "semester", "active"}, termRows(terms), opts.Reset); err != nil {
		return err
	}

	campuses, err := s.extractor.Campuses(ctx)
	if err != nil {
		return err
	}
	if err := s.loadTable(ctx, report, "campuses", []string{"name"}, campusRows(campuses), opts.Reset); err != nil {
		return err
	}

	locations, err := s.extractor.Locations(ctx)
	if err != nil {
		return err
	}
	if err := s.loadTable(ctx, report, "locations", []string{"building", "room"}, locationRows(locations), opts.Reset); err != nil {
		return err
	}

	instructors, err := s.extractor.Instructors(ctx)
	if err != nil {
		return err
	}
	if err := s.loadTable(ctx, report, "instructors", []string{"last_name", "first_name", "employee_id", "hiring_status"}, instructorRows(instructors), opts.Reset); err != nil {
		return err
	}

	courses, err := s.extractor.Courses(ctx)
	if err != nil {
		return err
	}
	if err := s.loadTable(ctx, report, "courses", []string{"subject", "number", "credit", "name"}, courseRows(courses), opts.Reset); err != nil {
		return err
	}

	log.Info("reference tables loaded",
		zap.Int("terms", report.Tables["terms"]),
		zap.Int("campuses", report.Tables["campuses"]),
		zap.Int("locations", report.Tables["locations"]),
		zap.Int("instructors", report.Tables["instructors"]),
		zap.Int("courses", report.Tables["courses"]),
	)
	return nil
}

func (s *LoadService) lookups(ctx context.Context) (cams.RefTables, error) {
	var refs cams.RefTables
	var err error
	if refs.Terms, err = s.refs.TermIDs(ctx); err != nil {
		return refs, err
	}
	if refs.Courses, err = s.refs.CourseIDs(ctx); err != nil {
		return refs, err
	}
	if refs.Campuses, err = s.refs.CampusIDs(ctx); err != nil {
		return refs, err
	}
	if refs.Locations, err = s.refs.LocationIDs(ctx); err != nil {
		return refs, err
	}
	refs.Instructors, err = s.refs.InstructorIDs(ctx)
	return refs, err
}

var scheduleLoadColumns = []string{
	"term_id", "course_id", "section", "capacity", "instructor_id",
	"status", "campus_id", "location_id", "days", "start_time", "stop_time",
}

func (s *LoadService) loadSchedules(ctx context.Context, normalized []cams.NormalizedSchedule, opts LoadOptions, report *LoadReport, log *zap.Logger) error {
	rows := make([][]interface{}, 0, len(normalized))
	for _, n := range normalized {
		if n.TermID == nil {
			report.Dropped++
			log.Warn("dropping schedule row without term", zap.String("section", n.Section))
			continue
		}
		rows = append(rows, []interface{}{
			*n.TermID, n.CourseID, n.Section, n.Capacity, n.InstructorID,
			string(n.Status), n.CampusID, n.LocationID, n.Days, n.StartTime, n.StopTime,
		})
	}

	// The mirror is always rebuilt whole.
	if err := s.loadTable(ctx, report, "cams_schedules", scheduleLoadColumns, rows, true); err != nil {
		return err
	}

	if opts.SeedLocal {
		now := time.Now().UTC()
		seed := make([][]interface{}, len(rows))
		for i, row := range rows {
			seed[i] = append(append([]interface{}{}, row...), now, now)
		}
		columns := append(append([]string{}, scheduleLoadColumns...), "insert_at", "update_at")
		if err := s.loadTable(ctx, report, "schedules", columns, seed, opts.Reset); err != nil {
			return err
		}
	}
	return nil
}

func (s *LoadService) loadTable(ctx context.Context, report *LoadReport, table string, columns []string, rows [][]interface{}, reset bool) error {
	count, err := s.bulk.Load(ctx, table, columns, rows, reset)
	if err != nil {
		return err
	}
	report.Tables[table] = count
	if s.metrics != nil {
		s.metrics.ObserveLoadRows(table, count)
	}
	return nil
}

func (s *LoadService) observeOutcome(outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveLoadRun(outcome, time.Since(started))
	}
}

func (s *LoadService) wrap(err error, log *zap.Logger) error {
	log.Error("cams load failed", zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrLoad.Code, appErrors.ErrLoad.Status, appErrors.ErrLoad.Message)
}

func termRows(terms []models.FeedTerm) [][]interface{} {
	type key struct {
		year     int
		semester string
	}
	seen := make(map[key]struct{}, len(terms))
	rows := make([][]interface{}, 0, len(terms))
	for _, t := range terms {
		semester := strings.ToUpper(strings.TrimSpace(t.Semester))
		k := key{t.Year, semester}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, []interface{}{t.Year, semester, t.Active == "T"})
	}
	return rows
}

func campusRows(campuses []models.FeedCampus) [][]interface{} {
	seen := make(map[string]struct{}, len(campuses))
	rows := make([][]interface{}, 0, len(campuses))
	for _, c := range campuses {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		rows = append(rows, []interface{}{name})
	}
	return rows
}

func locationRows(locations []models.FeedLocation) [][]interface{} {
	seen := make(map[string]struct{}, len(locations))
	rows := make([][]interface{}, 0, len(locations))
	for _, l := range locations {
		building := strings.TrimSpace(l.Building)
		room := strings.TrimSpace(l.Room)
		k := building + "\x1f" + room
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, []interface{}{building, room})
	}
	return rows
}

// instructorRows collapses upstream duplicate employee records so the
// name lookup stays one-to-one.
func instructorRows(instructors []models.FeedInstructor) [][]interface{} {
	type key struct {
		last  string
		first string
	}
	seen := make(map[key]struct{}, len(instructors))
	rows := make([][]interface{}, 0, len(instructors))
	for _, i := range instructors {
		k := key{strings.ToUpper(strings.TrimSpace(i.LastName)), strings.ToUpper(strings.TrimSpace(i.FirstName))}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, []interface{}{strings.TrimSpace(i.LastName), strings.TrimSpace(i.FirstName), i.EmployeeID, i.HiringStatus})
	}
	return rows
}

func courseRows(courses []models.FeedCourse) [][]interface{} {
	type key struct {
		subject string
		number  string
	}
	seen := make(map[key]struct{}, len(courses))
	rows := make([][]interface{}, 0, len(courses))
	for _, c := range courses {
		k := key{strings.TrimSpace(c.Subject), strings.TrimSpace(c.Number)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, []interface{}{strings.TrimSpace(c.Subject), strings.TrimSpace(c.Number), c.Credit, c.Name})
	}
	return rows
}

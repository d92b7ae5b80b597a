package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type reconcileLocalRepository interface {
	ListRowsForScope(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error)
	ListDeletedOpenRows(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error)
}

type reconcileCamsRepository interface {
	ListRowsForScope(ctx context.Context, scope models.ScheduleScope) ([]models.ScheduleRow, error)
}

// ReconcileService computes the structural diff between the locally
// edited schedule set and the CAMS mirror for one (term, course-scope)
// window. Matched rows are dropped; the rest partition into CHANGED,
// ADDED and DELETED.
type ReconcileService struct {
	local   reconcileLocalRepository
	cams    reconcileCamsRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(local reconcileLocalRepository, cams reconcileCamsRepository, metrics *MetricsService, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{local: local, cams: cams, metrics: metrics, logger: logger}
}

// Diff runs a reconciliation over the scope. An empty course scope is a
// valid empty result and touches no storage.
func (s *ReconcileService) Diff(ctx context.Context, scope models.ScheduleScope) (*models.ChangeSummary, error) {
	summary := &models.ChangeSummary{
		Changed: []models.ChangeGroup{},
		Added:   []models.ChangeEntry{},
		Deleted: []models.ChangeEntry{},
	}
	if len(scope.CourseIDs) == 0 {
		return summary, nil
	}

	localRows, err := s.local.ListRowsForScope(ctx, scope)
	if err != nil {
		s.logger.Error("fetch local scope failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
	}
	camsRows, err := s.cams.ListRowsForScope(ctx, scope)
	if err != nil {
		s.logger.Error("fetch cams scope failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
	}

	if len(localRows) > 0 || len(camsRows) > 0 {
		s.partition(summary, localRows, camsRows)
	}

	if err := s.appendRetiredLocals(ctx, scope, camsRows, summary); err != nil {
		return nil, err
	}

	sortEntries(summary.Added)
	sortEntries(summary.Deleted)
	sortGroups(summary.Changed)

	summary.TotalChanges = len(summary.Added) + len(summary.Deleted)
	for _, group := range summary.Changed {
		summary.TotalChanges += len(group.Local) + len(group.External)
	}

	if s.metrics != nil {
		s.metrics.ObserveReconcile(summary.TotalChanges)
	}
	return summary, nil
}

// partition performs the equivalence-key outer join and the
// comparison-key classification over its leftovers.
func (s *ReconcileService) partition(summary *models.ChangeSummary, localRows, camsRows []models.ScheduleRow) {
	// Multiset join: identical rows cancel pairwise, duplicates included.
	localByEq := make(map[string][]models.ScheduleRow, len(localRows))
	for _, row := range localRows {
		key := equivalenceKey(row)
		localByEq[key] = append(localByEq[key], row)
	}

	type taggedRows struct {
		local    []models.ScheduleRow
		external []models.ScheduleRow
	}
	groups := make(map[models.ComparisonKey]*taggedRows)
	group := func(key models.ComparisonKey) *taggedRows {
		g, ok := groups[key]
		if !ok {
			g = &taggedRows{}
			groups[key] = g
		}
		return g
	}

	for _, row := range camsRows {
		key := equivalenceKey(row)
		if remaining := localByEq[key]; len(remaining) > 0 {
			localByEq[key] = remaining[:len(remaining)-1] // matched, dropped
			continue
		}
		g := group(row.Key())
		g.external = append(g.external, row)
	}
	for _, remaining := range localByEq {
		for _, row := range remaining {
			g := group(row.Key())
			g.local = append(g.local, row)
		}
	}

	for key, g := range groups {
		switch {
		case len(g.local) > 0 && len(g.external) > 0:
			if demoted(g.local, g.external) {
				continue
			}
			changed := models.ChangeGroup{Key: key, Local: g.local, External: g.external}
			if len(g.local) == 1 && len(g.external) == 1 {
				changed.FieldChanges = fieldChanges(g.local[0], g.external[0])
			}
			summary.Changed = append(summary.Changed, changed)
		case len(g.local) > 0:
			for _, row := range g.local {
				summary.Added = append(summary.Added, models.ChangeEntry{Row: row, Source: models.SourceLocal})
			}
		default:
			for _, row := range g.external {
				summary.Deleted = append(summary.Deleted, models.ChangeEntry{Row: row, Source: models.SourceCams})
			}
		}
	}
}

// appendRetiredLocals surfaces soft-deleted OPEN records upstream never
// had as deletions: visibility for edits a user intentionally retired.
func (s *ReconcileService) appendRetiredLocals(ctx context.Context, scope models.ScheduleScope, camsRows []models.ScheduleRow, summary *models.ChangeSummary) error {
	retired, err := s.local.ListDeletedOpenRows(ctx, scope)
	if err != nil {
		s.logger.Error("fetch retired locals failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
	}
	if len(retired) == 0 {
		return nil
	}
	camsKeys := make(map[models.ComparisonKey]struct{}, len(camsRows))
	for _, row := range camsRows {
		camsKeys[row.Key()] = struct{}{}
	}
	for _, row := range retired {
		if _, exists := camsKeys[row.Key()]; exists {
			continue
		}
		summary.Deleted = append(summary.Deleted, models.ChangeEntry{Row: row, Source: models.SourceLocal})
	}
	return nil
}

// demoted reports whether a changed group is a no-op: exactly one row
// per side, both carrying the same terminal status. A canceled or
// closed section's remaining details are irrelevant.
func demoted(local, external []models.ScheduleRow) bool {
	if len(local) != 1 || len(external) != 1 {
		return false
	}
	return local[0].Status == external[0].Status && local[0].Status.Terminal()
}

// comparable field names surfaced in FieldChanges.
const (
	fieldStatus     = "status"
	fieldCapacity   = "capacity"
	fieldInstructor = "instructor"
	fieldCampus     = "campus"
	fieldLocation   = "location"
	fieldDays       = "days"
	fieldStartTime  = "start_time"
	fieldStopTime   = "stop_time"
)

// fieldChanges attributes a 1:1 changed pair to individual fields. A
// status difference short-circuits everything else; an absent external
// days value never counts as a days change.
func fieldChanges(local, external models.ScheduleRow) map[string]bool {
	changes := make(map[string]bool)
	if local.Status != external.Status {
		changes[fieldStatus] = true
		return changes
	}
	if local.Capacity != external.Capacity {
		changes[fieldCapacity] = true
	}
	if !int64PtrEqual(local.InstructorID, external.InstructorID) {
		changes[fieldInstructor] = true
	}
	if !int64PtrEqual(local.CampusID, external.CampusID) {
		changes[fieldCampus] = true
	}
	if !int64PtrEqual(local.LocationID, external.LocationID) {
		changes[fieldLocation] = true
	}
	if daysValue(external.Days) != "" && daysValue(local.Days) != daysValue(external.Days) {
		changes[fieldDays] = true
	}
	if !stringPtrEqual(local.StartTime, external.StartTime) {
		changes[fieldStartTime] = true
	}
	if !stringPtrEqual(local.StopTime, external.StopTime) {
		changes[fieldStopTime] = true
	}
	return changes
}

// equivalenceKey folds every comparable field into one string; nil is a
// distinct value from any concrete one, and days compare as an
// order-insensitive membership set.
func equivalenceKey(r models.ScheduleRow) string {
	parts := []string{
		fmt.Sprintf("%d", r.TermID),
		fmt.Sprintf("%d", r.CourseID),
		r.Section,
		fmt.Sprintf("%d", r.Capacity),
		int64PtrKey(r.InstructorID),
		string(r.Status),
		int64PtrKey(r.CampusID),
		int64PtrKey(r.LocationID),
		daysKey(r.Days),
		stringPtrKey(r.StartTime),
		stringPtrKey(r.StopTime),
	}
	return strings.Join(parts, "\x1f")
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func daysValue(days *string) string {
	if days == nil {
		return ""
	}
	return models.NormalizeDays(*days)
}

func int64PtrKey(v *int64) string {
	if v == nil {
		return "\x00"
	}
	return fmt.Sprintf("%d", *v)
}

func stringPtrKey(v *string) string {
	if v == nil || *v == "" {
		return "\x00"
	}
	return *v
}

func daysKey(days *string) string {
	if v := daysValue(days); v != "" {
		return v
	}
	return "\x00"
}

func sortEntries(entries []models.ChangeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Row, entries[j].Row
		if a.Course != b.Course {
			return a.Course < b.Course
		}
		if a.CourseName != b.CourseName {
			return a.CourseName < b.CourseName
		}
		return a.Section < b.Section
	})
}

func sortGroups(groups []models.ChangeGroup) {
	lead := func(g models.ChangeGroup) models.ScheduleRow {
		if len(g.Local) > 0 {
			return g.Local[0]
		}
		return g.External[0]
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := lead(groups[i]), lead(groups[j])
		if a.Course != b.Course {
			return a.Course < b.Course
		}
		if a.CourseName != b.CourseName {
			return a.CourseName < b.CourseName
		}
		return a.Section < b.Section
	})
}

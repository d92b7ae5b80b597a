package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type termStub struct {
	term *models.Term
}

func (s *termStub) FindByNaturalKey(ctx context.Context, year int, semester models.Semester) (*models.Term, error) {
	if s.term == nil {
		return nil, sql.ErrNoRows
	}
	return s.term, nil
}

type courseStub struct {
	ids      []int64
	subjects []string
}

func (s *courseStub) IDsBySubjects(ctx context.Context, subjects []string) ([]int64, error) {
	s.subjects = subjects
	if len(subjects) == 0 {
		return nil, nil
	}
	return s.ids, nil
}

type profileStub struct {
	profile *models.Profile
}

func (s *profileStub) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	if s.profile == nil {
		return nil, sql.ErrNoRows
	}
	return s.profile, nil
}

type differStub struct {
	scope   models.ScheduleScope
	summary *models.ChangeSummary
	calls   int
}

func (s *differStub) Diff(ctx context.Context, scope models.ScheduleScope) (*models.ChangeSummary, error) {
	s.calls++
	s.scope = scope
	if s.summary != nil {
		return s.summary, nil
	}
	return &models.ChangeSummary{}, nil
}

func newChangeService(terms *termStub, courses *courseStub, profiles *profileStub, differ *differStub) *ChangeService {
	return NewChangeService(terms, courses, profiles, differ, nil, 0, nil, zap.NewNop())
}

func TestSummaryRejectsMalformedTermSlug(t *testing.T) {
	svc := newChangeService(&termStub{}, &courseStub{}, &profileStub{}, &differStub{})
	_, _, err := svc.Summary(context.Background(), "notaterm", 1)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSummaryUnknownTermIsNotFound(t *testing.T) {
	svc := newChangeService(&termStub{}, &courseStub{}, &profileStub{}, &differStub{})
	_, _, err := svc.Summary(context.Background(), "fall2031", 1)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSummaryScopesDiffToProfileSubjects(t *testing.T) {
	terms := &termStub{term: &models.Term{ID: 1, Year: 2024, Semester: models.SemesterFall}}
	courses := &courseStub{ids: []int64{10, 11}}
	profiles := &profileStub{profile: &models.Profile{UserID: 1, Subjects: "MATH,CS"}}
	differ := &differStub{summary: &models.ChangeSummary{TotalChanges: 2}}
	svc := newChangeService(terms, courses, profiles, differ)

	summary, term, err := svc.Summary(context.Background(), "fall2024", 1)
	require.NoError(t, err)
	assert.Equal(t, "FALL2024", term.Label())
	assert.Equal(t, 2, summary.TotalChanges)
	assert.Equal(t, []string{"CS", "MATH"}, courses.subjects, "subjects are sorted before scope resolution")
	assert.Equal(t, int64(1), differ.scope.TermID)
	assert.Equal(t, []int64{10, 11}, differ.scope.CourseIDs)
}

func TestSummaryWithoutProfileYieldsEmptyScope(t *testing.T) {
	terms := &termStub{term: &models.Term{ID: 1, Year: 2024, Semester: models.SemesterFall}}
	differ := &differStub{}
	svc := newChangeService(terms, &courseStub{}, &profileStub{}, differ)

	summary, _, err := svc.Summary(context.Background(), "fall2024", 1)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalChanges)
	assert.Equal(t, 1, differ.calls)
	assert.Empty(t, differ.scope.CourseIDs)
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type changeTermRepository interface {
	FindByNaturalKey(ctx context.Context, year int, semester models.Semester) (*models.Term, error)
}

type changeCourseRepository interface {
	IDsBySubjects(ctx context.Context, subjects []string) ([]int64, error)
}

type changeProfileRepository interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
}

type changeDiffer interface {
	Diff(ctx context.Context, scope models.ScheduleScope) (*models.ChangeSummary, error)
}

const changeCachePrefix = "changes:"

// ChangeService resolves a term slug and the requesting user's subject
// scope into a reconciliation run, with a short-lived Redis cache in
// front of the engine.
type ChangeService struct {
	terms    changeTermRepository
	courses  changeCourseRepository
	profiles changeProfileRepository
	engine   changeDiffer
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewChangeService constructs a ChangeService. cache may be nil to
// disable caching.
func NewChangeService(terms changeTermRepository, courses changeCourseRepository, profiles changeProfileRepository,
	engine changeDiffer, cache *redis.Client, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ChangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeService{
		terms:    terms,
		courses:  courses,
		profiles: profiles,
		engine:   engine,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// Summary computes (or serves from cache) the change summary for one
// term, scoped to the user's configured subjects.
func (s *ChangeService) Summary(ctx context.Context, termSlug string, userID int64) (*models.ChangeSummary, *models.Term, error) {
	year, semester, err := models.ParseTermSlug(termSlug)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unrecognized term")
	}
	term, err := s.terms.FindByNaturalKey(ctx, year, semester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		s.logger.Error("term lookup failed", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
	}

	subjects, err := s.subjectScope(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	key := s.cacheKey(term.ID, subjects)
	if summary := s.fromCache(ctx, key); summary != nil {
		return summary, term, nil
	}

	courseIDs, err := s.courses.IDsBySubjects(ctx, subjects)
	if err != nil {
		s.logger.Error("course scope resolution failed", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
	}

	summary, err := s.engine.Diff(ctx, models.ScheduleScope{TermID: term.ID, CourseIDs: courseIDs})
	if err != nil {
		return nil, nil, err
	}
	s.toCache(ctx, key, summary)
	return summary, term, nil
}

// Invalidate drops every cached summary. Called after schedule writes
// and CAMS loads.
func (s *ChangeService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, changeCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func (s *ChangeService) subjectScope(ctx context.Context, userID int64) ([]string, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // no profile yet, empty scope
		}
		s.logger.Error("profile lookup failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrChanges.Code, appErrors.ErrChanges.Status, appErrors.ErrChanges.Message)
	}
	subjects := profile.SubjectList()
	sort.Strings(subjects)
	return subjects, nil
}

func (s *ChangeService) cacheKey(termID int64, subjects []string) string {
	return fmt.Sprintf("%s%d:%s", changeCachePrefix, termID, strings.Join(subjects, ","))
}

func (s *ChangeService) fromCache(ctx context.Context, key string) *models.ChangeSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
		return nil
	}
	var summary models.ChangeSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn("cache payload corrupt", zap.String("key", key), zap.Error(err))
		s.metrics.RecordCacheOperation(false)
		return nil
	}
	s.metrics.RecordCacheOperation(true)
	return &summary
}

func (s *ChangeService) toCache(ctx context.Context, key string, summary *models.ChangeSummary) {
	if s.cache == nil || summary == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type profileRepository interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// ProfileService manages a user's subject preferences, the scope their
// change reports are limited to.
type ProfileService struct {
	repo    profileRepository
	changes changeInvalidator
	logger  *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo profileRepository, changes changeInvalidator, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, changes: changes, logger: logger}
}

// Get returns the user's profile; a missing profile reads as empty.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Profile{UserID: userID}, nil
		}
		s.logger.Error("get profile failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return profile, nil
}

// SetSubjects replaces the user's subject preference list. Codes are
// upper-cased, deduplicated and stored sorted.
func (s *ProfileService) SetSubjects(ctx context.Context, userID int64, subjects []string) (*models.Profile, error) {
	seen := make(map[string]struct{}, len(subjects))
	clean := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.ToUpper(strings.TrimSpace(subject))
		if subject == "" {
			continue
		}
		if _, dup := seen[subject]; dup {
			continue
		}
		seen[subject] = struct{}{}
		clean = append(clean, subject)
	}
	sort.Strings(clean)

	profile := &models.Profile{UserID: userID, Subjects: strings.Join(clean, ",")}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		s.logger.Error("save profile failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	s.changes.Invalidate(ctx)
	return profile, nil
}

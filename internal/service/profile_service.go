package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"
	"metabento/pkg/cloudinary"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProfileService struct {
	store *repository.Store
	cloud cloudinary.Client
	log   logrus.FieldLogger
}

func NewProfileService(store *repository.Store, cloud cloudinary.Client, log logrus.FieldLogger) *ProfileService {
	return &ProfileService{store: store, cloud: cloud, log: log}
}

// ProfileUpdate carries optional fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Username    *string
	Bio         *string
	IsPublic    *bool
}

type Profile struct {
	User         *models.User         `json:"user"`
	Level        LevelView            `json:"level"`
	Achievements []models.Achievement `json:"achievements"`
}

func (s *ProfileService) Me(ctx context.Context, userID uint) (*Profile, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return s.build(ctx, u)
}

func (s *ProfileService) build(ctx context.Context, u *models.User) (*Profile, error) {
	ls, err := s.store.Levels.Get(ctx, u.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	achievements, err := s.store.Achievements.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Level: newLevelView(u.ID, ls), Achievements: achievements}, nil
}

// Public returns a profile by username. Private profiles are visible only to their owner, and
// views by anyone else are counted.
func (s *ProfileService) Public(ctx context.Context, viewerID uint, username string) (*Profile, error) {
	u, err := s.store.Users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, classify(err)
	}
	own := viewerID != 0 && viewerID == u.ID
	if !u.IsPublic && !own {
		return nil, domain.ErrUserNotFound
	}
	if !own {
		if err := s.store.Levels.Increment(ctx, u.ID, "profile_views"); err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("profile view not counted")
		}
	}
	p, err := s.build(ctx, u)
	if err != nil {
		return nil, err
	}
	if !own {
		p.User.Email = nil
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if len(name) > 128 {
			return nil, domain.Validation("display name is too long")
		}
		fields["display_name"] = name
	}
	if in.Bio != nil {
		if len(*in.Bio) > 512 {
			return nil, domain.Validation("bio is too long")
		}
		fields["bio"] = *in.Bio
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if in.Username != nil {
		name := strings.ToLower(strings.TrimSpace(*in.Username))
		if !usernamePattern.MatchString(name) {
			return nil, domain.Validation("username must be 3-64 characters of letters, digits, '_', '.' or '-'")
		}
		existing, err := s.store.Users.GetByUsername(ctx, name)
		if err == nil && existing.ID != userID {
			return nil, domain.ErrUsernameExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		fields["username"] = name
	}
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return nil, classify(err)
	}
	if len(fields) > 0 {
		if err := s.store.Users.UpdateFields(ctx, userID, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, domain.ErrUsernameExists
			}
			return nil, err
		}
	}
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// UploadAvatar stores the image with Cloudinary and saves its URL on the profile.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint, file io.Reader) (string, error) {
	if s.cloud == nil {
		return "", cloudinary.ErrNotConfigured
	}
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return "", classify(err)
	}
	url, err := s.cloud.UploadAvatar(ctx, file, userID)
	if err != nil {
		return "", err
	}
	if err := s.store.Users.UpdateFields(ctx, userID, map[string]interface{}{"avatar_url": url}); err != nil {
		return "", err
	}
	return url, nil
}

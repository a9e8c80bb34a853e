package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"videotube/api/internal/apperr"
	"videotube/api/internal/models"
	"videotube/api/internal/repository"
)

// AccountService updates profile fields of an authenticated user. Replaced
// avatar and cover objects stay on the media host; nothing here deletes them.
type AccountService struct {
	users UserStore
	media MediaUploader
	cache UserInvalidator
	log   zerolog.Logger
}

func NewAccountService(users UserStore, media MediaUploader, cache UserInvalidator, log zerolog.Logger) *AccountService {
	return &AccountService{
		users: users,
		media: media,
		cache: cache,
		log:   log,
	}
}

type UpdateDetailsInput struct {
	FullName string
	Email    string
}

func (s *AccountService) UpdateDetails(ctx context.Context, userID string, input UpdateDetailsInput) (models.PublicUser, error) {
	fullName := cleanFullName(input.FullName)
	email := normalizeIdentifier(input.Email)
	if fullName == "" || email == "" {
		return models.PublicUser{}, apperr.Validation("All fields are required")
	}
	if !validEmail(email) {
		return models.PublicUser{}, apperr.Validation("invalid email format")
	}

	user, err := s.users.UpdateDetails(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return models.PublicUser{}, apperr.Conflict("email is already in use")
		}
		return models.PublicUser{}, s.storeError(err)
	}

	s.invalidate(ctx, userID)
	return user.Public(), nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, userID string, localPath string) (models.PublicUser, error) {
	if localPath == "" {
		return models.PublicUser{}, apperr.Validation("avatar file is missing")
	}

	url, err := s.upload(ctx, userID, localPath)
	if err != nil {
		return models.PublicUser{}, apperr.Upload("error while uploading avatar").WithCause(err)
	}

	user, err := s.users.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return models.PublicUser{}, s.storeError(err)
	}

	s.invalidate(ctx, userID)
	return user.Public(), nil
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, userID string, localPath string) (models.PublicUser, error) {
	if localPath == "" {
		return models.PublicUser{}, apperr.Validation("coverImage file is missing")
	}

	url, err := s.upload(ctx, userID, localPath)
	if err != nil {
		return models.PublicUser{}, apperr.Upload("error while uploading cover image").WithCause(err)
	}

	user, err := s.users.UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return models.PublicUser{}, s.storeError(err)
	}

	s.invalidate(ctx, userID)
	return user.Public(), nil
}

func (s *AccountService) upload(ctx context.Context, userID string, localPath string) (string, error) {
	media, err := s.media.Upload(ctx, localPath)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("media upload failed")
		return "", err
	}
	if media.URL == "" {
		return "", errors.New("media host returned no url")
	}
	return media.URL, nil
}

func (s *AccountService) storeError(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.NotFound("User does not exist")
	}
	return apperr.Internal("could not update account").WithCause(err)
}

func (s *AccountService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("user cache invalidation failed")
	}
}

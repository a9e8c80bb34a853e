package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"videotube/api/internal/apperr"
	"videotube/api/internal/models"
	"videotube/api/internal/repository"
	"videotube/api/internal/security"
)

type AuthService struct {
	users  UserStore
	tokens TokenService
	media  MediaUploader
	log    zerolog.Logger
}

func NewAuthService(users UserStore, tokens TokenService, media MediaUploader, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		media:  media,
		log:    log,
	}
}

// RegisterInput is a validated registration request. The file fields hold
// local paths written by the upload middleware; CoverImagePath is optional.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.PublicUser, error) {
	for _, field := range []string{input.FullName, input.Email, input.Username, input.Password} {
		if strings.TrimSpace(field) == "" {
			return models.PublicUser{}, apperr.Validation("All fields are required")
		}
	}

	fullName := cleanFullName(input.FullName)
	if fullName == "" {
		return models.PublicUser{}, apperr.Validation("fullName must contain text")
	}
	username := normalizeIdentifier(input.Username)
	email := normalizeIdentifier(input.Email)
	if !validEmail(email) {
		return models.PublicUser{}, apperr.Validation("invalid email format")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return models.PublicUser{}, apperr.Internal("something went wrong while registering the user").WithCause(err)
	}
	if exists {
		return models.PublicUser{}, apperr.Conflict("user with email or username already exists")
	}

	if input.AvatarPath == "" {
		return models.PublicUser{}, apperr.Validation("Avatar file is required")
	}

	avatar, err := s.media.Upload(ctx, input.AvatarPath)
	if err != nil || avatar.URL == "" {
		s.log.Warn().Err(err).Str("username", username).Msg("avatar upload failed")
		return models.PublicUser{}, apperr.Upload("Avatar file is required").WithCause(err)
	}

	var coverURL string
	if input.CoverImagePath != "" {
		cover, err := s.media.Upload(ctx, input.CoverImagePath)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("cover image upload failed, registering without one")
		} else {
			coverURL = cover.URL
		}
	}

	user, err := s.users.Create(ctx, repository.NewUser{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      input.Password,
		AvatarURL:     avatar.URL,
		CoverImageURL: coverURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return models.PublicUser{}, apperr.Conflict("user with email or username already exists")
		}
		return models.PublicUser{}, apperr.Internal("something went wrong while registering the user").WithCause(err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user.Public(), nil
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type LoginResult struct {
	User   models.PublicUser
	Tokens security.TokenPair
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	username := normalizeIdentifier(input.Username)
	email := normalizeIdentifier(input.Email)
	if username == "" && email == "" {
		return LoginResult{}, apperr.Validation("username or email is required")
	}

	user, err := s.users.FindByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, apperr.NotFound("User does not exist")
		}
		return LoginResult{}, apperr.Internal("could not look up user").WithCause(err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if err != nil || !ok {
		return LoginResult{}, apperr.Auth("Invalid user credentials")
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user.Public(), Tokens: tokens}, nil
}

// Logout clears the stored refresh token, returning the account to the
// no-active-session state.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Auth("unauthorized request")
		}
		return apperr.Internal("could not log out").WithCause(err)
	}
	return nil
}

// Refresh exchanges the account's current refresh token for a new pair. A
// token that verifies but no longer matches the stored value has been
// rotated out or logged out and is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (security.TokenPair, error) {
	if refreshToken == "" {
		return security.TokenPair{}, apperr.Auth("unauthorized request")
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return security.TokenPair{}, apperr.Auth("Invalid refresh token").WithCause(err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return security.TokenPair{}, apperr.Auth("Invalid refresh token")
		}
		return security.TokenPair{}, apperr.Internal("could not look up user").WithCause(err)
	}

	if !user.HasRefreshToken(refreshToken) {
		return security.TokenPair{}, apperr.Auth("refresh token is expired or used")
	}

	return s.issueSession(ctx, user)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, oldPassword string, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("new password is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("User does not exist")
		}
		return apperr.Internal("could not look up user").WithCause(err)
	}

	ok, err := security.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		return apperr.Auth("incorrect old password")
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newPassword); err != nil {
		return apperr.Internal("could not change password").WithCause(err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// issueSession signs a new pair for user and stores its refresh token,
// replacing whatever was stored before.
func (s *AuthService) issueSession(ctx context.Context, user models.User) (security.TokenPair, error) {
	tokens, err := s.tokens.IssuePair(identityOf(user))
	if err != nil {
		return security.TokenPair{}, apperr.Internal("something went wrong while generating access and refresh token").WithCause(err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, &tokens.RefreshToken); err != nil {
		return security.TokenPair{}, apperr.Internal("something went wrong while generating access and refresh token").WithCause(err)
	}

	return tokens, nil
}

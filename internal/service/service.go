package service

import (
	"context"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"videotube/api/internal/models"
	"videotube/api/internal/repository"
	"videotube/api/internal/security"
	"videotube/api/internal/storage"
)

// UserStore is the account store. *repository.UserRepository satisfies it.
type UserStore interface {
	Create(ctx context.Context, input repository.NewUser) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, username string, email string) (models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	UpdatePassword(ctx context.Context, id string, password string) error
	UpdateDetails(ctx context.Context, id string, fullName string, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id string, url string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id string, url string) (models.User, error)
}

type TokenService interface {
	IssuePair(identity security.Identity) (security.TokenPair, error)
	ParseRefreshToken(token string) (*security.RefreshClaims, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (storage.UploadedMedia, error)
}

// UserInvalidator drops cached copies of a user after it changes.
type UserInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

var (
	validate    = validator.New()
	stripMarkup = bluemonday.StrictPolicy()
)

func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// maxNameDecodes bounds how many layers of entity encoding cleanFullName
// peels off before giving up on a name.
const maxNameDecodes = 4

// cleanFullName drops any markup from a display name, including markup
// hidden behind entity encoding. Each round decodes entities, strips tags and
// decodes the policy's escaping again, so plain names like O'Brien survive.
// A name that has not settled after maxNameDecodes rounds yields "".
func cleanFullName(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < maxNameDecodes; i++ {
		next := strings.TrimSpace(html.UnescapeString(stripMarkup.Sanitize(html.UnescapeString(s))))
		if next == s {
			return s
		}
		s = next
	}
	return ""
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email,max=254") == nil
}

func identityOf(user models.User) security.Identity {
	return security.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}
}

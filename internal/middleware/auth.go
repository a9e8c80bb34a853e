package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"videotube/api/internal/apperr"
	"videotube/api/internal/cache"
	"videotube/api/internal/models"
	"videotube/api/internal/repository"
	"videotube/api/internal/security"
)

const (
	AccessTokenCookie = "accessToken"
	currentUserKey    = "current_user"
)

type AccessTokenParser interface {
	ParseAccessToken(token string) (*security.AccessClaims, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// UserCache is the read-through cache consulted before the store.
type UserCache interface {
	Get(ctx context.Context, id string) (models.PublicUser, error)
	Set(ctx context.Context, user models.PublicUser) error
}

// Auth verifies the access token from the accessToken cookie or a bearer
// header and attaches the sanitized user. users may be fronted by userCache;
// pass nil to always hit the store.
func Auth(tokens AccessTokenParser, users UserLoader, userCache UserCache, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := accessToken(c)
		if tokenStr == "" {
			_ = c.Error(apperr.Auth("unauthorized request"))
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccessToken(tokenStr)
		if err != nil {
			_ = c.Error(apperr.Auth("Invalid access token").WithCause(err))
			c.Abort()
			return
		}

		user, err := loadUser(c.Request.Context(), claims.UserID, users, userCache, log)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				_ = c.Error(apperr.Auth("Invalid access token"))
			} else {
				_ = c.Error(apperr.Internal("could not load user").WithCause(err))
			}
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) (models.PublicUser, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.PublicUser{}, false
	}
	user, ok := v.(models.PublicUser)
	return user, ok
}

func accessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func loadUser(ctx context.Context, id string, users UserLoader, userCache UserCache, log zerolog.Logger) (models.PublicUser, error) {
	if userCache != nil {
		user, err := userCache.Get(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("user_id", id).Msg("user cache read failed")
		}
	}

	stored, err := users.GetByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, err
	}
	user := stored.Public()

	if userCache != nil {
		if err := userCache.Set(ctx, user); err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("user cache write failed")
		}
	}
	return user, nil
}

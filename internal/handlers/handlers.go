package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"videotube/api/internal/cache"
	"videotube/api/internal/config"
	"videotube/api/internal/middleware"
	"videotube/api/internal/models"
	"videotube/api/internal/repository"
	"videotube/api/internal/security"
	"videotube/api/internal/service"
	"videotube/api/internal/uploads"
)

// Authenticator is the credential and session surface of the API.
type Authenticator interface {
	Register(ctx context.Context, input service.RegisterInput) (models.PublicUser, error)
	Login(ctx context.Context, input service.LoginInput) (service.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (security.TokenPair, error)
	ChangePassword(ctx context.Context, userID string, oldPassword string, newPassword string) error
}

type AccountEditor interface {
	UpdateDetails(ctx context.Context, userID string, input service.UpdateDetailsInput) (models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID string, localPath string) (models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID string, localPath string) (models.PublicUser, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService Authenticator
	account     AccountEditor
	tokens      *security.TokenIssuer
	users       middleware.UserLoader
	userCache   middleware.UserCache
	db          pinger
	cache       *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, media service.MediaUploader, cfg *config.AppConfig) HandlerSet {
	registerValidators()

	userRepo := repository.NewUserRepository(db, security.HashPassword)
	userCache := cache.NewUserCache(redisClient, cfg.Redis.UserCacheTTL)
	tokens := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.JWTAccessTTL,
		RefreshTTL:    cfg.Security.JWTRefreshTTL,
	})

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: service.NewAuthService(userRepo, tokens, media, log),
		account:     service.NewAccountService(userRepo, media, userCache, log),
		tokens:      tokens,
		users:       userRepo,
		userCache:   userCache,
		db:          db,
		cache:       redisClient,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	uploadCfg := uploads.Config{Dir: h.cfg.Uploads.TempDir, MaxBytes: h.cfg.Uploads.MaxBytes}
	authenticated := middleware.Auth(h.tokens, h.users, h.userCache, h.log)

	users := router.Group("/v1/users")
	{
		users.POST("/register", uploads.Fields(uploadCfg, avatarField, coverImageField), h.RegisterUser)
		users.POST("/login", h.Login)
		users.POST("/refresh-token", h.RefreshToken)

		protected := users.Group("")
		protected.Use(authenticated)
		protected.POST("/logout", h.Logout)
		protected.POST("/change-password", h.ChangePassword)
		protected.GET("/current-user", h.CurrentUser)
		protected.PATCH("/update-account", h.UpdateAccount)
		protected.PATCH("/avatar", uploads.Fields(uploadCfg, avatarField), h.UpdateAvatar)
		protected.PATCH("/cover-image", uploads.Fields(uploadCfg, coverImageField), h.UpdateCoverImage)
	}
}

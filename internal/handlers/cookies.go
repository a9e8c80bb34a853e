package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"videotube/api/internal/middleware"
	"videotube/api/internal/security"
)

const refreshTokenCookie = "refreshToken"

func (h HandlerSet) setTokenCookies(c *gin.Context, pair security.TokenPair) {
	h.setCookie(c, middleware.AccessTokenCookie, pair.AccessToken, h.cfg.Security.JWTAccessTTL)
	h.setCookie(c, refreshTokenCookie, pair.RefreshToken, h.cfg.Security.JWTRefreshTTL)
}

func (h HandlerSet) clearTokenCookies(c *gin.Context) {
	h.setCookie(c, middleware.AccessTokenCookie, "", -time.Second)
	h.setCookie(c, refreshTokenCookie, "", -time.Second)
}

func (h HandlerSet) setCookie(c *gin.Context, name string, value string, ttl time.Duration) {
	path := h.cfg.Cookies.Path
	if path == "" {
		path = "/"
	}
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(sameSite(h.cfg.Cookies.SameSite))
	c.SetCookie(name, value, maxAge, path, h.cfg.Cookies.Domain, h.cfg.Cookies.Secure, true)
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"videotube/api/internal/models"
	"videotube/api/internal/service"
	"videotube/api/internal/uploads"
)

const (
	avatarField     = "avatar"
	coverImageField = "coverImage"
)

type registerRequest struct {
	FullName string `form:"fullName" json:"fullName" binding:"notblank"`
	Email    string `form:"email" json:"email" binding:"notblank"`
	Username string `form:"username" json:"username" binding:"notblank"`
	Password string `form:"password" json:"password" binding:"notblank"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, bindError(err, "All fields are required"))
		return
	}

	files := uploads.FromContext(c)
	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		FullName:       req.FullName,
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		AvatarPath:     files.Path(avatarField),
		CoverImagePath: files.Path(coverImageField),
	})
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusCreated, user, "User registered successfully")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"notblank"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err, "password is required"))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookies(c, result.Tokens)
	respond(c, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken takes the refresh token from its cookie, falling back to the
// JSON body.
func (h HandlerSet) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshTokenCookie)
	if token == "" && c.Request.ContentLength != 0 {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, bindError(err, "unauthorized request"))
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookies(c, pair)
	respond(c, http.StatusOK, pair, "Access token refreshed")
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}

	h.clearTokenCookies(c)
	respond(c, http.StatusOK, nil, "User logged out")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" binding:"notblank"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err, "new password is required"))
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, nil, "password changed successfully")
}

func (h HandlerSet) CurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, user, "current user fetched successfully")
}

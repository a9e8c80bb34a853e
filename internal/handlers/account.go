package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"videotube/api/internal/models"
	"videotube/api/internal/service"
	"videotube/api/internal/uploads"
)

type updateAccountRequest struct {
	FullName string `json:"fullName" binding:"notblank"`
	Email    string `json:"email" binding:"notblank"`
}

func (h HandlerSet) UpdateAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err, "All fields are required"))
		return
	}

	updated, err := h.account.UpdateDetails(c.Request.Context(), user.ID, service.UpdateDetailsInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, updated, "Account details updated successfully")
}

func (h HandlerSet) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, avatarField, h.account.UpdateAvatar, "Avatar image updated")
}

func (h HandlerSet) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, coverImageField, h.account.UpdateCoverImage, "cover image updated")
}

type imageUpdater func(ctx context.Context, userID string, localPath string) (models.PublicUser, error)

// updateImage reads the file stored under field and hands its path to update.
func (h HandlerSet) updateImage(c *gin.Context, field string, update imageUpdater, message string) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := update(c.Request.Context(), user.ID, uploads.FromContext(c).Path(field))
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, updated, message)
}

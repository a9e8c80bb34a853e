package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"videotube/api/internal/apperr"
	"videotube/api/internal/middleware"
	"videotube/api/internal/models"
)

type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c *gin.Context, status int, data any, message string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// fail hands err to the error boundary and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func currentUser(c *gin.Context) (models.PublicUser, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Auth("unauthorized request"))
	}
	return user, ok
}

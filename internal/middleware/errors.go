package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"videotube/api/internal/apperr"
)

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Errors renders the last error a handler attached with c.Error. Errors
// outside the apperr taxonomy are reported as a bare 500 and logged with
// their cause.
func Errors(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := http.StatusInternalServerError
		message := "internal server error"
		if appErr, ok := apperr.As(err); ok {
			status = appErr.Status()
			message = appErr.Message
		}

		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Int("status", status).
			Str("path", c.Request.URL.Path).
			Str("request_id", RequestIDFrom(c)).
			Msg("request failed")

		if c.Writer.Written() {
			return
		}
		abortWithError(c, status, message)
	}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Status:  status,
		Message: message,
		Success: false,
	})
}

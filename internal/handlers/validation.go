package handlers

import (
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"videotube/api/internal/apperr"
)

var validatorsOnce sync.Once

// registerValidators adds the notblank tag to gin's binding engine.
func registerValidators() {
	validatorsOnce.Do(func() {
		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = engine.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
				return strings.TrimSpace(fl.Field().String()) != ""
			})
		}
	})
}

// bindError turns a binding failure into a client-facing validation error.
func bindError(err error, blankMessage string) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		switch first.Tag() {
		case "required", "notblank":
			return apperr.Validation(blankMessage)
		case "email":
			return apperr.Validation("invalid email format")
		case "required_without":
			return apperr.Validation("username or email is required")
		default:
			return apperr.Validation("invalid " + strings.ToLower(first.Field()))
		}
	}
	return apperr.Validation("invalid request payload").WithCause(err)
}

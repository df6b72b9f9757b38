// Package handler contains the gin handlers and router assembly for the
// user and content services. All responses share one envelope; all errors
// funnel through a single boundary formatter.
package handler

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/service"
)

// writeError maps the service error taxonomy onto HTTP status classes.
// Nothing here leaks internal detail to the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, model.Fail("Invalid email or password"))
	case errors.Is(err, service.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, model.Fail("Current password is incorrect"))
	case errors.Is(err, service.ErrAccountDeactivated):
		c.JSON(http.StatusForbidden, model.Fail("Account is deactivated"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, model.Fail("Forbidden: insufficient permissions"))
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, model.Fail("Email already in use"))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.Fail("Not found"))
	default:
		c.JSON(http.StatusInternalServerError, model.Fail("Internal server error"))
	}
}

// writeValidationError renders binding failures as per-field errors in the
// shared envelope.
func writeValidationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]model.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, model.FieldError{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
		c.JSON(http.StatusBadRequest, model.Response{
			Success: false,
			Message: "Validation error",
			Errors:  fields,
		})
		return
	}
	c.JSON(http.StatusBadRequest, model.Fail("Invalid request body"))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "is too short"
	case "max":
		return "is too long"
	case "oneof":
		return "has an unsupported value"
	default:
		return "is invalid"
	}
}

var (
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasDigit   = regexp.MustCompile(`\d`)
	hasSpecial = regexp.MustCompile(`[@$!%*?&#^()\-_+=.]`)
)

// strongPassword enforces the registration password policy: at least one
// lower, upper, digit and special character. Length is checked by binding.
func strongPassword(pass string) bool {
	return hasLower.MatchString(pass) &&
		hasUpper.MatchString(pass) &&
		hasDigit.MatchString(pass) &&
		hasSpecial.MatchString(pass)
}

func passwordPolicyError(c *gin.Context) {
	c.JSON(http.StatusBadRequest, model.Response{
		Success: false,
		Message: "Validation error",
		Errors: []model.FieldError{{
			Field:   "password",
			Message: "must contain at least one uppercase letter, one lowercase letter, one number, and one special character",
		}},
	})
}

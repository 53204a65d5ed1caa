package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// firstViolation reduces a validation error to its first violation message,
// which is what the API surfaces to the caller.
func firstViolation(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		e := validationErrors[0]
		return fmt.Sprintf("Field '%s' failed on the '%s' rule", e.Field(), e.Tag())
	}
	return "Invalid input"
}

package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct tag validation and flattens the field
// errors into a single client-facing message.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", strings.ToLower(fe.Field()), fe.Param()))
		case "min", "gte", "gt":
			messages = append(messages, fmt.Sprintf("%s is too small", strings.ToLower(fe.Field())))
		case "max", "lte", "lt":
			messages = append(messages, fmt.Sprintf("%s is too large", strings.ToLower(fe.Field())))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", strings.ToLower(fe.Field())))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}

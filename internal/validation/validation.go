package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"backend-motorota/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()

	// Report json tag names so messages match request payloads.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// Struct validates i against its `validate` tags. Failures come back as a
// validation apperr joining one message per field.
func Struct(i any) error {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperr.Validation(format(fieldErrs))
	}
	return apperr.Validation(err.Error())
}

func format(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, err.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, err.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation for %s", field, err.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

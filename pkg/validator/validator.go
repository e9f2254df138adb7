// Package validator wraps go-playground/validator with structured,
// caller-safe error reporting.
package validator

import (
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

// Validate checks i against its struct tags and returns a single error
// summarizing the failures.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// FieldErrors returns a field -> message map describing every violation, or
// nil when i is valid. Messages are template text only; raw input values are
// never echoed back.
func (v *Validator) FieldErrors(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "email":
					msg = "Invalid email address"
				case "min":
					msg = fmt.Sprintf("Must be at least %s characters", e.Param())
				case "max":
					msg = fmt.Sprintf("Must be at most %s characters", e.Param())
				case "uuid4", "uuid":
					msg = "Must be a valid UUID"
				case "oneof":
					msg = fmt.Sprintf("Must be one of: %s", e.Param())
				case "role":
					msg = "Unknown role"
				}
				errs[fieldName(e)] = msg
			}
		} else {
			errs["_global"] = "request could not be validated"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// fieldName prefers the json tag so error payloads match the wire format.
func fieldName(e validator.FieldError) string {
	return e.Field()
}

func (v *Validator) registerCustomValidations() {
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return ""
		}
		return name
	})

	_ = v.validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "USER", "AGENT", "ADMIN", "SUPER_ADMIN":
			return true
		}
		return false
	})
}

// Sanitize cleans string input to prevent XSS attacks
func Sanitize(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

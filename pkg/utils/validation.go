package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const MinPasswordLength = 8

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return IsStrongPassword(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// IsStrongPassword requires MinPasswordLength characters with at least one
// letter and one digit.
func IsStrongPassword(p string) bool {
	if len(p) < MinPasswordLength || len(p) > 72 {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// ValidateStruct checks validate tags and reports the first failure as a
// ValidationError.
func ValidateStruct(s interface{}) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewValidationError("invalid request")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return NewValidationError("%s is required", fe.Field())
	case "email":
		return NewValidationError("%s must be a valid email address", fe.Field())
	case "password":
		return NewValidationError("%s must be 8 to 72 characters and contain a letter and a digit", fe.Field())
	case "e164":
		return NewValidationError("%s must be an E.164 phone number", fe.Field())
	case "oneof":
		return NewValidationError("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return NewValidationError("%s is too short", fe.Field())
	case "max":
		return NewValidationError("%s is too long", fe.Field())
	case "numeric":
		return NewValidationError("%s must contain only digits", fe.Field())
	default:
		return NewValidationError("%s is invalid", fe.Field())
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

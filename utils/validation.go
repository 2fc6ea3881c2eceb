package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateEmail checks that s is a syntactically valid email address
func ValidateEmail(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return validatorInstance().Var(s, "required,email") == nil
}

// FieldMessage is one readable validation problem
type FieldMessage struct {
	Field   string
	Message string
}

// DescribeValidation turns binding errors from validator into readable per-field messages.
// The second result is false when err did not come from validator.
func DescribeValidation(err error) ([]FieldMessage, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	out := make([]FieldMessage, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		out = append(out, FieldMessage{Field: field, Message: messageFor(fe)})
	}
	return out, true
}

func messageFor(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", name)
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long.", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return "Passwords do not match."
	case "datetime":
		return fmt.Sprintf("%s must be a date in the format %s.", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", name)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a field name to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Add(field, message string) {
	if _, exists := v[field]; exists {
		return
	}
	v[field] = message
}

// AsValidationErrors unwraps err into ValidationErrors when possible.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

// MessageFunc renders the message for a failed validator tag on a field.
type MessageFunc func(label string, fe validator.FieldError) string

// DefaultMessage is used when no field-specific message is configured.
func DefaultMessage(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(strings.Fields(fe.Param()), ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", label, fe.Param())
	case "numeric", "number":
		return fmt.Sprintf("%s must be a number", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// ProcessValidatorErrors converts the first failed tag of a Var validation into a message.
func ProcessValidatorErrors(err error, label string, message MessageFunc) (string, bool) {
	if err == nil {
		return "", false
	}
	if message == nil {
		message = DefaultMessage
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", label), true
	}
	return message(label, verrs[0]), true
}

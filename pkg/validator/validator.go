package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

// MessageFunc renders a human-readable reason for a failed field.
type MessageFunc func(fe validator.FieldError) string

var (
	messagesMu sync.RWMutex
	messages   = map[string]MessageFunc{}
)

// newValidate builds a validator that reports fields by their JSON names, so
// messages read "app_id is required" rather than "AppID is required".
func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		default:
			return name
		}
	})
	return v
}

// RegisterRule adds a custom validation tag with its message renderer.
// It must be called during initialization, before Validate runs concurrently.
func RegisterRule(tag string, fn validator.Func, msg MessageFunc) error {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register rule %q: %w", tag, err)
	}
	if msg != nil {
		RegisterMessage(tag, msg)
	}
	return nil
}

// RegisterStructRule adds a struct-level validation for the given types.
func RegisterStructRule(fn validator.StructLevelFunc, types ...any) {
	validate.RegisterStructValidation(fn, types...)
}

// RegisterMessage overrides the message rendered for a tag.
func RegisterMessage(tag string, msg MessageFunc) {
	messagesMu.Lock()
	defer messagesMu.Unlock()
	messages[tag] = msg
}

// Validate validates a struct using go-playground/validator tags.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: validationErrors}
		}
		return err
	}
	return nil
}

// ValidationError wraps validator.ValidationErrors with user-friendly messages.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), ", ")
}

// Messages returns one message per failed field, in validation order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, render(fe))
	}
	return msgs
}

func render(fe validator.FieldError) string {
	messagesMu.RLock()
	fn, ok := messages[fe.Tag()]
	messagesMu.RUnlock()
	if ok {
		return fn(fe)
	}
	return fmt.Sprintf("%s %s", fe.Field(), msgForTag(fe))
}

func msgForTag(fe validator.FieldError) string {
	collection := false
	switch fe.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		collection = true
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if collection {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if collection {
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "alpha":
		return "must contain only letters"
	case "numeric":
		return "must be numeric"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

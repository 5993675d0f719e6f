// Package validate wraps go-playground/validator and turns the first failing
// field into a message suitable for an API client.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Error is the first field that failed validation.
type Error struct {
	Field   string
	Tag     string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Struct validates v and returns an *Error describing the first failure.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldError(verrs[0])
	}
	return err
}

// Var validates a single value against tag. field names it in the message.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := fieldError(verrs[0])
		e.Field = field
		e.Message = field + strings.TrimPrefix(e.Message, verrs[0].Field())
		return e
	}
	return err
}

func fieldError(fe validator.FieldError) *Error {
	name := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = name + " is required"
	case "min":
		if isText(fe.Kind()) {
			msg = fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		} else if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			msg = fmt.Sprintf("%s must contain at least %s item(s)", name, fe.Param())
		} else {
			msg = fmt.Sprintf("%s must be at least %s", name, fe.Param())
		}
	case "max":
		if isText(fe.Kind()) {
			msg = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		} else {
			msg = fmt.Sprintf("%s must be at most %s", name, fe.Param())
		}
	case "email":
		msg = name + " must be a valid email address"
	case "url", "http_url":
		msg = name + " must be a valid URL"
	case "uuid", "uuid4":
		msg = name + " must be a valid UUID"
	case "oneof":
		msg = fmt.Sprintf("%s must be one of [%s]", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eq":
		msg = fmt.Sprintf("%s must be %s", name, fe.Param())
	case "hostname_rfc1123", "hostname", "fqdn":
		msg = name + " must be a valid hostname"
	default:
		msg = fmt.Sprintf("%s failed %q validation", name, fe.Tag())
	}
	return &Error{Field: name, Tag: fe.Tag(), Message: msg}
}

func isText(k reflect.Kind) bool { return k == reflect.String }

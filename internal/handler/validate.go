package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/mailrelay/internal/domain"
)

// fieldMessages are the caller-facing messages per JSON field.
var fieldMessages = map[string]string{
	"subject":    "Subject cannot be empty",
	"body":       "Body cannot be empty",
	"recipients": "Recipients list cannot be empty",
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs v over s and converts failures into a
// domain.ValidationError, keeping struct field order.
func validateStruct(v *validator.Validate, op string, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Internal(err, op, err.Error())
	}

	var verr error
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Error()
		}
		if verr == nil {
			verr = domain.NewValidationError(op, fe.Field(), msg)
			continue
		}
		verr = domain.AddFieldError(verr, fe.Field(), msg)
	}
	return verr
}

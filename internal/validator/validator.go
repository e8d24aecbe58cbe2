// Package validator holds the shared go-playground validator instance used to
// check feedback payloads and ingest rows against their struct tags.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator. Failures are reported against json tag
// names so agents see the field names their client actually sent.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks s against its struct tags and flattens every failure into a
// single error, one clause per offending field.
func Validate(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	clauses := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		clauses = append(clauses, fmt.Sprintf("%s %s", fe.Field(), describe(fe)))
	}

	return fmt.Errorf("invalid payload: %s", strings.Join(clauses, "; "))
}

// describe renders the handful of tags the models actually carry.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

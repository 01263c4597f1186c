// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors are the
// json names clients send.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateRequest returns nil when v is valid, otherwise a VALIDATION_ERROR
// describing the failed fields.
func validateRequest(v interface{}) *APIError {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	if len(fieldErrs) == 1 {
		fe := fieldErrs[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: translateError(fe),
			Details: map[string]interface{}{
				"field": fe.Field(),
				"tag":   fe.Tag(),
				"value": fe.Value(),
			},
		}
	}

	fields := make([]map[string]interface{}, len(fieldErrs))
	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msg := translateError(fe)
		fields[i] = map[string]interface{}{
			"field":   fe.Field(),
			"tag":     fe.Tag(),
			"message": msg,
		}
		messages[i] = fmt.Sprintf("%s: %s", fe.Field(), msg)
	}
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

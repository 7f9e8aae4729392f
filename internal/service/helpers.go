package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// parseDate parses a YYYY-MM-DD payload field.
func parseDate(field, value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a YYYY-MM-DD date", field))
	}
	return parsed, nil
}

// parseOptionalDate parses a nullable YYYY-MM-DD payload field.
func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// validateStruct maps validator failures onto the common taxonomy.
func validateStruct(validate *validator.Validate, req interface{}) error {
	if validate == nil {
		return nil
	}
	if err := validate.Struct(req); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("field %s failed on %s", fields[0].Field(), fields[0].Tag()))
		}
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return nil
}

// mapStoreError classifies repository failures: missing rows become not
// found, broken connections surface as unavailable storage, anything else is
// an internal error.
func mapStoreError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrNotFound
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

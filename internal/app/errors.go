package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"portfolio/api/internal/ai"
	"portfolio/api/internal/auth"
	"portfolio/api/internal/authpw"
	"portfolio/api/internal/export"
	"portfolio/api/internal/history"
	"portfolio/api/internal/search"
	"portfolio/api/internal/store"
	"portfolio/api/internal/uploads"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func badRequest(message string, details any) *DomainError {
	return domainError(http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func unauthorized() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
}

func forbidden(message string) *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", message, nil)
}

func conflict(message string) *DomainError {
	return domainError(http.StatusConflict, "CONFLICT", message, nil)
}

func unavailable(code, message string) *DomainError {
	return domainError(http.StatusServiceUnavailable, code, message, nil)
}

func internal(err error) *DomainError {
	return domainError(http.StatusInternalServerError, "SERVER_ERROR", err.Error(), nil)
}

func validationFailed(err error) *DomainError {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return badRequest(err.Error(), nil)
	}
	details := make(map[string]string, len(fieldErrors))
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		msg := formatFieldError(fe)
		details[fe.Field()] = msg
		messages = append(messages, msg)
	}
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", strings.Join(messages, "; "), details)
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// mapError turns any service error into the HTTP status, code, message and
// details written to the client.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		v := validationFailed(err)
		return v.Status, v.Code, v.Message, v.Details
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, sql.ErrNoRows),
		errors.Is(err, history.ErrNoHistory), errors.Is(err, history.ErrUnknownRevision),
		errors.Is(err, uploads.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", "A record with the same unique value already exists", nil
	case errors.Is(err, store.ErrBadReference):
		return http.StatusBadRequest, "BAD_REQUEST", "Referenced record does not exist", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrWeakPassword), errors.Is(err, authpw.ErrInvalidEmail):
		return http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "CONFLICT", err.Error(), nil
	case errors.Is(err, uploads.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), nil
	case errors.Is(err, uploads.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", err.Error(), nil
	case errors.Is(err, uploads.ErrEmpty), errors.Is(err, uploads.ErrInvalidKey):
		return http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil
	case errors.Is(err, search.ErrIndexUnavailable):
		return http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search index is not available", nil
	case errors.Is(err, ai.ErrUnavailable):
		return http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI generation is not configured", nil
	case errors.Is(err, ai.ErrInvalidKind), errors.Is(err, ai.ErrEmptyInput):
		return http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", err.Error(), nil
}

// Package apperr classifies errors into the categories a screen can show:
// validation, constraint, not found and unknown.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"agencydesk-backend/notify"
	"agencydesk-backend/store"

	"github.com/go-playground/validator/v10"
)

// Error is an error with a stable code and a message safe to show users.
type Error struct {
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes
const (
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeConflict      = "CONFLICT"
	CodeHasDependents = "HAS_DEPENDENTS"
	CodeInternal      = "INTERNAL_ERROR"
)

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

func BadRequest(msg string) *Error {
	return &Error{Code: CodeBadRequest, Message: msg}
}

func Unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "Authentication required"}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Something went wrong. Please try again.", Err: err}
}

// Classify maps any error onto an *Error. Errors it does not recognise
// become internal errors.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return Validation("Please correct the highlighted fields", FieldErrors(verrs))
	}

	var depErr *store.DependentsError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &depErr):
		return &Error{
			Code:    CodeHasDependents,
			Message: fmt.Sprintf("This record still has %d related %s and cannot be deleted", depErr.Count, humanize(string(depErr.Dependent))),
			Err:     err,
		}
	case errors.Is(err, store.ErrHasDependents):
		return &Error{Code: CodeHasDependents, Message: "This record has related records and cannot be deleted", Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "Record not found", Err: err}
	case errors.Is(err, store.ErrDuplicate):
		return &Error{Code: CodeConflict, Message: "A record with these details already exists", Err: err}
	case errors.Is(err, store.ErrAlreadyConverted):
		return &Error{Code: CodeConflict, Message: "This lead has already been converted", Err: err}
	case errors.Is(err, store.ErrInvalidArgument),
		errors.Is(err, notify.ErrInvalidPayload),
		errors.Is(err, notify.ErrUnknownTemplate):
		return &Error{Code: CodeBadRequest, Message: err.Error(), Err: err}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &Error{Code: CodeBadRequest, Message: "Invalid request body", Err: err}
	}
	return Internal(err)
}

// UserMessage is the text a toast shows for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Message
}

// Status returns the HTTP status for a code.
func Status(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeHasDependents:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// FieldErrors turns validator errors into json field name -> message.
func FieldErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = "This field is required"
		case "email":
			fields[name] = "Must be a valid email address"
		case "phone":
			fields[name] = "Must be a valid phone number"
		case "oneof":
			fields[name] = "Must be one of: " + fe.Param()
		case "min", "gte":
			fields[name] = "Must be at least " + fe.Param()
		case "max", "lte":
			fields[name] = "Must be at most " + fe.Param()
		default:
			fields[name] = "Is invalid"
		}
	}
	return fields
}

func humanize(table string) string {
	return strings.ReplaceAll(table, "_", " ")
}

// toSnake converts a Go field name such as DealValue to deal_value.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

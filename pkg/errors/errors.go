package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client visible error kind.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	// CodeConflict is a transient collision on a shared row; replay the whole operation.
	CodeConflict Code = "CONFLICT"
	// CodeStateConflict means the entity's status forbids the operation; re-fetch before retrying.
	CodeStateConflict Code = "INVALID_STATE"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	hideDetails = false
	showDetails = true
	final       = false
	retry       = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, final, "validation failed", showDetails},
	CodeUnauthorized:  {http.StatusUnauthorized, final, "authentication required", hideDetails},
	CodeForbidden:     {http.StatusForbidden, final, "access denied", hideDetails},
	CodeNotFound:      {http.StatusNotFound, final, "resource not found", showDetails},
	CodeConflict:      {http.StatusConflict, retry, "concurrent update conflict", hideDetails},
	CodeStateConflict: {http.StatusUnprocessableEntity, final, "operation not allowed in current state", showDetails},
	CodeIdempotency:   {http.StatusConflict, final, "idempotency key reused", showDetails},
	CodeInternal:      {http.StatusInternalServerError, retry, "internal server error", hideDetails},
	CodeDependency:    {http.StatusServiceUnavailable, retry, "dependency unavailable", showDetails},
}

// MetadataFor treats unknown codes as internal errors.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

// Error is a coded error with an optional payload and wrapped cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is/As. A nil err degrades to New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	return As(err).codeIs(code)
}

func (e *Error) codeIs(code Code) bool {
	return e != nil && e.code == code
}

// Retryable reports whether the caller may replay the whole operation.
func Retryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.code).Retryable
}

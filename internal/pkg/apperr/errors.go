package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error and decides its HTTP status.
type Kind int

const (
	KindFatal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "fatal"
	}
}

// HTTPStatus maps the kind onto a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Business Error Codes
const (
	CodeSuccess         = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeInternalError   = 500
	CodeDatabaseError   = 1001
	CodeCacheError      = 1002
	CodeThreadNotFound  = 2001
	CodeForumNotFound   = 2002
	CodePostNotFound    = 2003
	CodeThreadLocked    = 2004
	CodeForumClosed     = 2005
	CodeContentLength   = 3001
	CodeTooManyLinks    = 3002
	CodeProhibited      = 3003
	CodeInvalidReplyTo  = 3004
	CodeUsernameTaken   = 4001
	CodeBadCredentials  = 4002
	CodeAccountDisabled = 4003
)

// Business Errors
var (
	ErrInvalidParams = errors.New("invalid parameters")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
)

// AppError Application Error with kind, code and message
type AppError struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status HTTP status for the error
func (e *AppError) Status() int {
	return e.Kind.HTTPStatus()
}

// NewAppError Create new application error
func NewAppError(kind Kind, code int, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Unauthenticated 401
func Unauthenticated(message string) *AppError {
	return NewAppError(KindUnauthenticated, CodeUnauthorized, message)
}

// Forbidden 403
func Forbidden(code int, message string) *AppError {
	return NewAppError(KindForbidden, code, message)
}

// NotFound 404
func NotFound(code int, message string) *AppError {
	return NewAppError(KindNotFound, code, message)
}

// Validation 400
func Validation(code int, message string) *AppError {
	return NewAppError(KindValidation, code, message)
}

// Fatal 500, wraps the cause
func Fatal(message string, err error) *AppError {
	return &AppError{Kind: KindFatal, Code: CodeInternalError, Message: message, Err: err}
}

// WrapError Wrap error with code; existing AppErrors pass through
func WrapError(err error, code int) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return &AppError{Kind: KindFatal, Code: code, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, KindFatal when err is not an AppError
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindFatal
}

// Is reports whether err is an AppError of the given kind
func Is(err error, kind Kind) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Kind == kind
}

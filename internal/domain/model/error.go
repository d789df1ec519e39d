package model

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind discriminates the taxonomy of failures a handler can
// produce. Mapped to HTTP status and gRPC status code in one place at
// the module boundary; domain code never writes status codes directly.
type ErrorKind int

const (
	KindValidationFailure ErrorKind = iota
	KindNotFound
	KindConflict
	KindExternalUnavailable
	KindExpired
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidationFailure:
		return "ValidationFailure"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindExternalUnavailable:
		return "ExternalUnavailable"
	case KindExpired:
		return "Expired"
	default:
		return "Internal"
	}
}

// Error is the sum-type error used at every handler boundary. HTTP and
// RPC surfaces map it to a status once, via HTTPStatus/GRPCStatus; they
// never inspect Kind directly.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps Kind to the HTTP response body's {message, details,
// type} is built by the caller; this returns only the status line.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidationFailure:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternalUnavailable:
		return http.StatusServiceUnavailable
	case KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus maps Kind to a gRPC status, implementing the interface
// grpc-go's status package looks for on returned errors.
func (e *Error) GRPCStatus() *status.Status {
	var c codes.Code
	switch e.Kind {
	case KindValidationFailure:
		c = codes.InvalidArgument
	case KindNotFound:
		c = codes.NotFound
	case KindConflict:
		c = codes.Aborted
	case KindExternalUnavailable:
		c = codes.Unavailable
	case KindExpired:
		c = codes.FailedPrecondition
	default:
		c = codes.Internal
	}
	return status.New(c, e.Message)
}

func ErrValidation(msg string) *Error {
	return &Error{Kind: KindValidationFailure, Message: msg}
}

func ErrNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ErrConflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func ErrExternalUnavailable(msg string, cause error) *Error {
	return &Error{Kind: KindExternalUnavailable, Message: msg, Err: cause}
}

func ErrExpired(msg string) *Error {
	return &Error{Kind: KindExpired, Message: msg}
}

func ErrInternal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// HTTPBody is the structured error body every HTTP response carries.
type HTTPBody struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Type    string `json:"type"`
}

// ToHTTPBody builds the response body for an Error, falling back to
// Internal for plain errors that were never classified.
func ToHTTPBody(err error) (int, HTTPBody) {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		e = ErrInternal("unexpected error", err)
	}
	details := ""
	if e.Err != nil {
		details = e.Err.Error()
	}
	return e.HTTPStatus(), HTTPBody{Message: e.Message, Details: details, Type: e.Kind.String()}
}

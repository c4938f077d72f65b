package wscore

import (
	"errors"
	"fmt"
	"net/http"
)

// Base error types callers can match with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAdmissionRejected = errors.New("admission rejected")
	ErrNotFound          = errors.New("not found")
	ErrRapidRequest      = errors.New("rapid request")
	ErrProtocol          = errors.New("protocol error")
	ErrAbsentDependency  = errors.New("absent dependency")
)

// ErrorType represents the category of a service error.
type ErrorType string

const (
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeAdmission    ErrorType = "admission"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeRapidRequest ErrorType = "rapid_request"
	ErrorTypeProtocol     ErrorType = "protocol"
	ErrorTypeInternal     ErrorType = "internal"
)

// ServiceError is a structured error raised by the service core.
type ServiceError struct {
	Type ErrorType
	Op   string // operation that failed, e.g. "upgrade", "auth", "subscribe"
	Err  error  // underlying error, may be nil when Type says it all
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Type)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is matching against the base error types.
func (e *ServiceError) Is(target error) bool {
	if target == nil {
		return false
	}
	switch target {
	case ErrUnauthorized:
		return e.Type == ErrorTypeUnauthorized
	case ErrAdmissionRejected:
		return e.Type == ErrorTypeAdmission
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrRapidRequest:
		return e.Type == ErrorTypeRapidRequest
	case ErrProtocol:
		return e.Type == ErrorTypeProtocol
	}
	return errors.Is(e.Err, target)
}

// Unauthorizedf builds an unauthorized error with a human-readable reason.
func Unauthorizedf(op, format string, args ...interface{}) *ServiceError {
	return &ServiceError{
		Type: ErrorTypeUnauthorized,
		Op:   op,
		Err:  fmt.Errorf(format, args...),
	}
}

// HTTPStatus maps a service error to the status code surfaced during the
// upgrade request.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAdmissionRejected):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Package apierr defines the closed set of machine error codes every
// layer of the gateway returns, so HTTP handlers never have to guess a
// code from a generic error value.
package apierr

import "fmt"

type Code string

const (
	TicketNotFound   Code = "TICKET_NOT_FOUND"
	CustomerNotFound Code = "CUSTOMER_NOT_FOUND"
	TenantNotFound   Code = "TENANT_NOT_FOUND"
	ValidationError  Code = "VALIDATION_ERROR"
	Unauthorized     Code = "UNAUTHORIZED"
	Forbidden        Code = "FORBIDDEN"
	RateLimited      Code = "RATE_LIMITED"
	UpstreamFailure  Code = "UPSTREAM_FAILURE"
	Conflict         Code = "CONFLICT"
	Internal         Code = "INTERNAL"
)

// Error carries a stable machine code alongside the human message so
// transport layers can render {error:{code,message,details}} without
// inspecting error strings.
type Error struct {
	HTTPCode int
	Code     Code
	Message  string
	Details  interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(httpCode int, code Code, message string) *Error {
	return &Error{HTTPCode: httpCode, Code: code, Message: message}
}

func WithDetails(httpCode int, code Code, message string, details interface{}) *Error {
	return &Error{HTTPCode: httpCode, Code: code, Message: message, Details: details}
}

func NotFound(code Code, message string) *Error   { return New(404, code, message) }
func Validation(message string) *Error            { return New(400, ValidationError, message) }
func Unauth(message string) *Error                { return New(401, Unauthorized, message) }
func Forbid(message string) *Error                { return New(403, Forbidden, message) }
func RateLimit(message string) *Error             { return New(429, RateLimited, message) }
func Upstream(message string) *Error              { return New(502, UpstreamFailure, message) }
func ConflictErr(message string) *Error           { return New(409, Conflict, message) }
func InternalErr(message string) *Error           { return New(500, Internal, message) }

// As extracts an *Error, falling back to Internal for an opaque error.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return InternalErr(err.Error())
}

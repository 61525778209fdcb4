package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These map to HTTP status codes at the boundary and to soft outcomes in the
// webhook pipeline.
const (
	ECONFLICT     = "conflict"         // 409 - duplicate refund, renewal already linked
	EINTERNAL     = "internal"         // 500 - persistence or unexpected failure
	EINVALID      = "invalid"          // 400 - guard or validation failure
	ENOTFOUND     = "not_found"        // 404 - subscription/order not found
	EUNAUTHORIZED = "unauthorized"     // 401 - webhook signature rejected
	EFORBIDDEN    = "forbidden"        // 403 - gateway mode mismatch
	ENOTIMPL      = "not_implemented"  // 501 - unsupported remote operation
	ERATELIMIT    = "rate_limit"       // 429 - gateway throttling
	EPAYMENT      = "payment_required" // 402 - remote charge/refund declined
	EGONE         = "gone"             // 410 - subscription in a terminal state
)

// Error represents an application error with a code and message.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Message is a human-readable error message safe to show to operators.
	Message string

	// Op is the operation where the error occurred (e.g., "subscription.cancel").
	Op string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel domain errors by code and message so that wrapped
// copies produced by WithOp still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithOp returns a copy of the error tagged with the given operation.
func (e *Error) WithOp(op string) *Error {
	cp := *e
	cp.Op = op
	return &cp
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for non-domain errors and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// Internal errors get a generic message so details stay in the logs.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}

	return "An internal error occurred. Please try again later."
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	return ""
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "subscription.pause", "status %s cannot be paused", s.Status)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with a domain error code and operation.
// Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("subscription.get", "subscription", "42")
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Invalid creates a validation error for a single issue.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Subscription state machine errors.
var (
	ErrSubscriptionNotFound = &Error{Code: ENOTFOUND, Message: "subscription not found"}
	ErrOrderNotFound        = &Error{Code: ENOTFOUND, Message: "order not found"}
	ErrRefundNotFound       = &Error{Code: ENOTFOUND, Message: "refund not found"}

	ErrCannotCancel   = &Error{Code: EINVALID, Message: "subscription cannot be canceled in its current status"}
	ErrCannotPause    = &Error{Code: EINVALID, Message: "subscription cannot be paused"}
	ErrCannotResume   = &Error{Code: EINVALID, Message: "subscription cannot be resumed"}
	ErrCannotSuspend  = &Error{Code: EINVALID, Message: "subscription cannot be suspended"}
	ErrNotSuspended   = &Error{Code: EINVALID, Message: "subscription is not suspended"}
	ErrUpdateBlocked  = &Error{Code: EINVALID, Message: "subscription no longer accepts updates"}
	ErrNotLinked      = &Error{Code: EINVALID, Message: "subscription is not linked to a remote object"}
	ErrTerminalStatus = &Error{Code: EGONE, Message: "subscription is in a terminal status"}
	ErrModeMismatch   = &Error{Code: EFORBIDDEN, Message: "gateway mode does not match the subscription"}

	ErrDuplicateRefund       = &Error{Code: ECONFLICT, Message: "refund already recorded"}
	ErrRenewalAlreadyExists  = &Error{Code: ECONFLICT, Message: "renewal order already exists for payment"}
	ErrInvalidRefundAmount   = &Error{Code: EINVALID, Message: "refund amount must be positive and not exceed the order total"}
	ErrOrderNotRefundable    = &Error{Code: EINVALID, Message: "order has no captured charge to refund"}
	ErrUnsupportedRemoteKind = &Error{Code: ENOTIMPL, Message: "operation not supported for subscription schedules"}
)

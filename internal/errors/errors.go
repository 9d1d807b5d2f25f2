package errors

import (
	"errors"
	"fmt"
)

// Kind is the stable, client-visible classification of an error.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountInactive    Kind = "account_inactive"
	KindTenantInactive     Kind = "tenant_inactive"
	KindPendingApproval    Kind = "pending_approval"
	KindNotFound           Kind = "not_found"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindForbidden          Kind = "forbidden"
	KindInvariantViolation Kind = "invariant_violation"
	KindInvalidRequest     Kind = "invalid_request"
	KindUnauthenticated    Kind = "unauthenticated"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// Error carries a Kind and a message that is safe to show to callers.
// Errors built by Invariant and Invalid point back at their kind's
// sentinel so errors.Is matches both.
type Error struct {
	Kind    Kind
	Message string
	base    *Error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	if e.base == nil {
		return nil
	}
	return e.base
}

// New creates a new classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	// Authentication errors
	ErrInvalidCredentials = New(KindInvalidCredentials, "invalid email or password")
	ErrAccountInactive    = New(KindAccountInactive, "account is not active")
	ErrTenantInactive     = New(KindTenantInactive, "organization is not active")
	ErrPendingApproval    = New(KindPendingApproval, "registration is awaiting approval")
	ErrUnauthenticated    = New(KindUnauthenticated, "authentication required")

	// Lookup / persistence errors
	ErrNotFound       = New(KindNotFound, "not found")
	ErrDuplicateEmail = New(KindDuplicateEmail, "email is already registered")

	// Authorization errors
	ErrForbidden = New(KindForbidden, "forbidden")

	// State errors
	ErrInvariantViolation = New(KindInvariantViolation, "operation violates a platform invariant")
	ErrInvalidRequest     = New(KindInvalidRequest, "invalid request")
	ErrRateLimited        = New(KindRateLimited, "too many requests")

	// General errors
	ErrInternal = New(KindInternal, "internal error")
)

// Invariant returns an invariant violation with a specific message. The
// message is shown to callers, so it must not carry record ids.
func Invariant(format string, args ...interface{}) error {
	return &Error{Kind: KindInvariantViolation, Message: fmt.Sprintf(format, args...), base: ErrInvariantViolation}
}

// Invalid returns an invalid request error with a specific message.
func Invalid(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...), base: ErrInvalidRequest}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// KindOf returns the Kind of the first classified error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Public returns the message that may be shown to a caller for err: the
// text of the outermost classified error, never the wrapping context.
func Public(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ErrInternal.Message
	}
	return e.Message
}

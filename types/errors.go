package types

import (
	"errors"
	"fmt"
)

// Auth errors surfaced to the initiating form. None are retried
// automatically; the caller decides.
var (
	// ErrInvalidCredentials is returned when email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrRoleRestricted is returned when someone tries to self-register
	// as hod. HOD accounts only exist through the administrative path.
	ErrRoleRestricted = errors.New("hod accounts cannot self-register")

	// ErrEmailNotVerified is returned when a flow requires a confirmed email.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrCodeMismatch is returned when a verification code is wrong or expired.
	ErrCodeMismatch = errors.New("verification code is invalid or expired")
)

// Approval errors.
var (
	// ErrApprovalScope is returned when the approver's role has no
	// authority over the target account's role.
	ErrApprovalScope = errors.New("approver role has no authority over this account")
)

// ValidationError reports a profile submission failure on a specific field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

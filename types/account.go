package types

import "time"

// Role is the account's position in the portal. It is fixed at
// registration and never changes afterwards.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleHOD     Role = "hod"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleHOD:
		return true
	}
	return false
}

// ApprovalStatus is the derived approval state of an account.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Account is the durable base identity row for one user.
// It doubles as the credential record: the auth columns (Email,
// PasswordHash, EmailVerified) and the profile columns (FullName,
// Department, AvatarURL) live on the same row but are written by
// different flows.
type Account struct {
	// ID is the unique identifier of the account (UUID).
	ID string `json:"id" db:"id"`

	// Email is the account's email address.
	Email string `json:"email" db:"email"`

	// Role indicates the account's position: student, faculty, or hod.
	Role Role `json:"role" db:"role"`

	// FullName is nil until profile setup has been completed.
	// A non-nil FullName is the base "profile complete" signal.
	FullName *string `json:"full_name" db:"full_name"`

	// Department the account belongs to. Empty until profile setup.
	Department string `json:"department" db:"department"`

	// AvatarURL points at the uploaded avatar object, if any.
	AvatarURL *string `json:"avatar_url,omitempty" db:"avatar_url"`

	// EmailVerified records whether the confirmation code was redeemed.
	EmailVerified bool `json:"email_verified" db:"email_verified"`

	// Status is the durable resolution of the approval workflow.
	// Approval truth for access checks is extension existence; Status
	// exists so a rejection survives a refresh.
	Status ApprovalStatus `json:"status" db:"status"`

	// PasswordHash stores the bcrypt hash of the account's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileComplete reports whether profile setup has run for this account.
func (a Account) ProfileComplete() bool {
	return a.FullName != nil && *a.FullName != ""
}

// Credential is the authenticated-session handle: the slice of the
// account row the auth layer cares about.
type Credential struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// Credential projects the auth columns of the account.
func (a Account) Credential() Credential {
	return Credential{
		ID:             a.ID,
		Email:          a.Email,
		EmailConfirmed: a.EmailVerified,
	}
}

// PendingApprovalEntry is an account waiting on an approver: profile
// complete, no role extension yet, not rejected.
type PendingApprovalEntry struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name"`
	Department   string    `json:"department"`
	RegisteredAt time.Time `json:"registered_at"`
}

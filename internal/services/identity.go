package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"regexp"

	"github.com/edupanel/apiserver/internal/notify"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	MarkEmailVerified(ctx context.Context, id string) error
	CompleteBaseProfile(ctx context.Context, id, fullName, department string) error
	SetAvatarURL(ctx context.Context, id, avatarURL string) error
	SetStatus(ctx context.Context, id string, status types.ApprovalStatus) error
	ListPending(ctx context.Context, role types.Role) ([]types.PendingApprovalEntry, error)
}

// ExtensionRepository defines persistence operations for role extensions.
type ExtensionRepository interface {
	Exists(ctx context.Context, accountID string, role types.Role) (bool, error)
	InsertStudent(ctx context.Context, profile types.StudentProfile) (bool, error)
	InsertFaculty(ctx context.Context, profile types.FacultyProfile) (bool, error)
}

// DraftRepository defines persistence operations for profile drafts.
type DraftRepository interface {
	Upsert(ctx context.Context, accountID string, role types.Role, payload []byte) error
	Get(ctx context.Context, accountID string) (types.Role, []byte, error)
	Delete(ctx context.Context, accountID string) error
}

// CodeStore issues and redeems email verification codes.
type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

// TokenRevoker invalidates bearer tokens on logout.
type TokenRevoker interface {
	Add(ctx context.Context, token string) error
}

// IdentityService drives the onboarding lifecycle of a single account:
// registration, login, email verification, profile setup, and the
// derived identity projection everything else routes on.
type IdentityService struct {
	accounts   AccountRepository
	extensions ExtensionRepository
	drafts     DraftRepository
	codes      CodeStore
	revoker    TokenRevoker
	notifier   notify.Notifier
}

func NewIdentityService(
	accounts AccountRepository,
	extensions ExtensionRepository,
	drafts DraftRepository,
	codes CodeStore,
	revoker TokenRevoker,
	notifier notify.Notifier,
) *IdentityService {
	return &IdentityService{
		accounts:   accounts,
		extensions: extensions,
		drafts:     drafts,
		codes:      codes,
		revoker:    revoker,
		notifier:   notifier,
	}
}

// Register creates the account stub for a new principal. Self-registration
// as hod is rejected locally before any store or broker call. The role
// extension is NOT created here; the account starts unapproved.
func (s *IdentityService) Register(ctx context.Context, email, password string, role types.Role) (types.Account, error) {
	if role == types.RoleHOD {
		return types.Account{}, types.ErrRoleRestricted
	}
	if !role.Valid() {
		return types.Account{}, &types.ValidationError{Field: "role", Reason: "role must be student or faculty"}
	}
	if !emailPattern.MatchString(email) {
		return types.Account{}, &types.ValidationError{Field: "email", Reason: "email address is malformed"}
	}
	if len(password) < minPasswordLength {
		return types.Account{}, &types.ValidationError{Field: "password", Reason: "password must be at least 8 characters"}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, err
	}

	account, err := s.accounts.Create(ctx, types.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         role,
		Status:       types.ApprovalPending,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.Account{}, err
	}

	s.sendConfirmationCode(ctx, account)
	return account, nil
}

// Login authenticates by email and password. Any mismatch, including an
// unknown email, surfaces as ErrInvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, email, password string) (types.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, types.ErrInvalidCredentials
		}
		return types.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return types.Account{}, types.ErrInvalidCredentials
	}
	return account, nil
}

// Logout revokes the bearer token. A revocation failure is logged and
// swallowed: the caller's local state is cleared regardless, and being
// stuck logged in is the one outcome this must never produce.
func (s *IdentityService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.revoker.Add(ctx, token); err != nil {
		log.Printf("logout: token revocation failed (ignored): %v", err)
	}
}

// VerifyEmail redeems a confirmation code and marks the account verified.
func (s *IdentityService) VerifyEmail(ctx context.Context, email, code string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return nil
	}
	if err := s.codes.Verify(ctx, email, code); err != nil {
		return err
	}
	return s.accounts.MarkEmailVerified(ctx, account.ID)
}

// ResendCode issues a fresh confirmation code for an unverified account.
func (s *IdentityService) ResendCode(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return nil
	}
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return err
	}
	if err := s.notifier.ConfirmEmail(ctx, email, account.Role, code); err != nil {
		log.Printf("resend code: notification publish failed (ignored): %v", err)
	}
	return nil
}

// CompleteProfile writes the base profile fields and stores the
// role-specific submission as a draft for the approval workflow to
// promote. Calling it when the profile is already complete is a no-op
// success; forms may resubmit.
func (s *IdentityService) CompleteProfile(ctx context.Context, accountID string, fields types.ProfileFields) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.ProfileComplete() {
		return nil
	}
	if err := fields.Validate(); err != nil {
		return err
	}

	var fullName, department string
	switch f := fields.(type) {
	case types.StudentFields:
		if account.Role != types.RoleStudent {
			return &types.ValidationError{Field: "role", Reason: "student fields submitted for a non-student account"}
		}
		fullName, department = f.FullName, f.Department
	case types.FacultyFields:
		if account.Role != types.RoleFaculty && account.Role != types.RoleHOD {
			return &types.ValidationError{Field: "role", Reason: "faculty fields submitted for a student account"}
		}
		fullName, department = f.FullName, f.Department
	default:
		return &types.ValidationError{Field: "role", Reason: "unknown profile variant"}
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := s.drafts.Upsert(ctx, account.ID, account.Role, payload); err != nil {
		return err
	}
	return s.accounts.CompleteBaseProfile(ctx, account.ID, fullName, department)
}

// SetAvatar records the avatar object URL on the account.
func (s *IdentityService) SetAvatar(ctx context.Context, accountID, avatarURL string) error {
	return s.accounts.SetAvatarURL(ctx, accountID, avatarURL)
}

// Identity re-derives the projection from current backing data. Called
// after login, on every /me, and whenever an action elsewhere could
// have changed approval state.
func (s *IdentityService) Identity(ctx context.Context, accountID string) (types.UserIdentity, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return types.UserIdentity{}, err
	}
	return s.project(ctx, account)
}

func (s *IdentityService) project(ctx context.Context, account types.Account) (types.UserIdentity, error) {
	approved, err := s.extensions.Exists(ctx, account.ID, account.Role)
	if err != nil {
		return types.UserIdentity{}, err
	}

	// Extension existence is authoritative for approval; the status
	// column only makes a rejection durable.
	status := types.ApprovalPending
	switch {
	case approved:
		status = types.ApprovalApproved
	case account.Status == types.ApprovalRejected:
		status = types.ApprovalRejected
	}

	var name string
	if account.FullName != nil {
		name = *account.FullName
	}

	return types.UserIdentity{
		ID:              account.ID,
		Name:            name,
		Email:           account.Email,
		Role:            account.Role,
		EmailVerified:   account.EmailVerified,
		ProfileComplete: account.ProfileComplete(),
		ApprovalStatus:  status,
	}, nil
}

func (s *IdentityService) sendConfirmationCode(ctx context.Context, account types.Account) {
	code, err := s.codes.Issue(ctx, account.Email)
	if err != nil {
		log.Printf("register: issuing verification code failed (ignored): %v", err)
		return
	}
	if err := s.notifier.ConfirmEmail(ctx, account.Email, account.Role, code); err != nil {
		log.Printf("register: notification publish failed (ignored): %v", err)
	}
}

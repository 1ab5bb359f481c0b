package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/edupanel/apiserver/internal/notify"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Placeholder extension values used when an approver confirms an
// account whose detailed fields were never submitted. Approval unblocks
// access immediately; enrichment happens later.
const (
	DefaultDesignation   = "Assistant Professor"
	DefaultQualification = "To be updated"
	DefaultBatch         = "To be updated"
)

// ApprovalService is the privileged operation set that resolves other
// users' pending accounts. Faculty resolve students; HOD resolve
// faculty. The extension row it creates is what flips the target's
// derived approval status.
type ApprovalService struct {
	accounts   AccountRepository
	extensions ExtensionRepository
	drafts     DraftRepository
	notifier   notify.Notifier
}

func NewApprovalService(
	accounts AccountRepository,
	extensions ExtensionRepository,
	drafts DraftRepository,
	notifier notify.Notifier,
) *ApprovalService {
	return &ApprovalService{
		accounts:   accounts,
		extensions: extensions,
		drafts:     drafts,
		notifier:   notifier,
	}
}

// scopeOf maps an approver role to the role it may resolve.
func scopeOf(approver types.Role) (types.Role, error) {
	switch approver {
	case types.RoleFaculty:
		return types.RoleStudent, nil
	case types.RoleHOD:
		return types.RoleFaculty, nil
	default:
		return "", types.ErrApprovalScope
	}
}

// ListPending returns every account the approver may resolve, newest
// registration first. The read is fresh: an account approved by a
// concurrent session is already gone from the result.
func (s *ApprovalService) ListPending(ctx context.Context, approver types.Role) ([]types.PendingApprovalEntry, error) {
	target, err := scopeOf(approver)
	if err != nil {
		return nil, err
	}
	return s.accounts.ListPending(ctx, target)
}

// Approve creates the target's role extension, preferring the supplied
// fields, then the target's own profile draft, then placeholders.
// Idempotent against double-click: when the extension already exists
// the call is a no-op success. A rejected account is left rejected;
// the workflow never resurrects one.
func (s *ApprovalService) Approve(ctx context.Context, approver types.Role, accountID string, fields types.ProfileFields) error {
	account, err := s.target(ctx, approver, accountID)
	if err != nil {
		return err
	}
	if account.Status == types.ApprovalRejected {
		return nil
	}

	inserted, err := s.insertExtension(ctx, account, fields)
	if err != nil {
		return err
	}
	if !inserted {
		// Another approver (or a double-click) got there first.
		return nil
	}

	if err := s.accounts.SetStatus(ctx, account.ID, types.ApprovalApproved); err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, account.ID); err != nil {
		log.Printf("approve: draft cleanup failed (ignored): %v", err)
	}
	s.notifyResult(ctx, account, true)
	return nil
}

// Reject durably marks the account rejected. The account row survives,
// so a later login shows a rejection notice rather than a pending one.
// Rejecting an already-approved account is a no-op: the extension row
// exists and approval stands.
func (s *ApprovalService) Reject(ctx context.Context, approver types.Role, accountID string) error {
	account, err := s.target(ctx, approver, accountID)
	if err != nil {
		return err
	}

	approved, err := s.extensions.Exists(ctx, account.ID, account.Role)
	if err != nil {
		return err
	}
	if approved {
		return nil
	}
	if account.Status == types.ApprovalRejected {
		return nil
	}

	if err := s.accounts.SetStatus(ctx, account.ID, types.ApprovalRejected); err != nil {
		return err
	}
	s.notifyResult(ctx, account, false)
	return nil
}

// ProvisionHOD is the administrative path that creates an hod account:
// pre-verified, pre-approved, extension row in place. Self-registration
// can never produce one.
func (s *ApprovalService) ProvisionHOD(ctx context.Context, email, password string, fields types.FacultyFields) (types.Account, error) {
	if err := fields.Validate(); err != nil {
		return types.Account{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, err
	}

	fullName := fields.FullName
	account, err := s.accounts.Create(ctx, types.Account{
		ID:            uuid.NewString(),
		Email:         email,
		Role:          types.RoleHOD,
		FullName:      &fullName,
		Department:    fields.Department,
		EmailVerified: true,
		Status:        types.ApprovalApproved,
		PasswordHash:  string(hashed),
	})
	if err != nil {
		return types.Account{}, err
	}

	if _, err := s.extensions.InsertFaculty(ctx, types.FacultyProfile{
		AccountID:       account.ID,
		EmployeeID:      fields.EmployeeID,
		Designation:     fields.Designation,
		Qualification:   fields.Qualification,
		ExperienceYears: fields.ExperienceYears,
		Specialization:  fields.Specialization,
	}); err != nil {
		return types.Account{}, err
	}
	return account, nil
}

// target loads the account and checks it falls inside the approver's scope.
func (s *ApprovalService) target(ctx context.Context, approver types.Role, accountID string) (types.Account, error) {
	scope, err := scopeOf(approver)
	if err != nil {
		return types.Account{}, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return types.Account{}, err
	}
	if account.Role != scope {
		return types.Account{}, types.ErrApprovalScope
	}
	return account, nil
}

func (s *ApprovalService) insertExtension(ctx context.Context, account types.Account, fields types.ProfileFields) (bool, error) {
	if fields == nil {
		fields = s.draftFields(ctx, account)
	}

	switch account.Role {
	case types.RoleStudent:
		profile := types.StudentProfile{
			AccountID: account.ID,
			StudentID: "S-" + account.ID[:8],
			Semester:  1,
			Batch:     DefaultBatch,
		}
		if f, ok := fields.(types.StudentFields); ok {
			profile.StudentID = f.StudentID
			profile.Semester = f.Semester
			profile.Batch = f.Batch
			profile.GuardianName = f.GuardianName
			profile.GuardianPhone = f.GuardianPhone
		}
		return s.extensions.InsertStudent(ctx, profile)
	default:
		profile := types.FacultyProfile{
			AccountID:     account.ID,
			EmployeeID:    "F-" + account.ID[:8],
			Designation:   DefaultDesignation,
			Qualification: DefaultQualification,
		}
		if f, ok := fields.(types.FacultyFields); ok {
			profile.EmployeeID = f.EmployeeID
			profile.Designation = f.Designation
			profile.Qualification = f.Qualification
			profile.ExperienceYears = f.ExperienceYears
			profile.Specialization = f.Specialization
		}
		return s.extensions.InsertFaculty(ctx, profile)
	}
}

// draftFields recovers the fields the target submitted at profile
// setup, if any.
func (s *ApprovalService) draftFields(ctx context.Context, account types.Account) types.ProfileFields {
	role, payload, err := s.drafts.Get(ctx, account.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("approve: reading profile draft failed (ignored): %v", err)
		}
		return nil
	}
	if role != account.Role {
		return nil
	}

	switch account.Role {
	case types.RoleStudent:
		var f types.StudentFields
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil
		}
		return f
	default:
		var f types.FacultyFields
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil
		}
		return f
	}
}

func (s *ApprovalService) notifyResult(ctx context.Context, account types.Account, approved bool) {
	var name string
	if account.FullName != nil {
		name = *account.FullName
	}
	if err := s.notifier.ApprovalResult(ctx, account.Email, name, approved); err != nil {
		log.Printf("approval: notification publish failed (ignored): %v", err)
	}
}

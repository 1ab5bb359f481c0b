package services

import (
	"context"
	"errors"
	"testing"

	"github.com/edupanel/apiserver/types"
)

type approvalFixture struct {
	*identityFixture
	approvals *ApprovalService
}

func newApprovalFixture() *approvalFixture {
	f := newIdentityFixture()
	return &approvalFixture{
		identityFixture: f,
		approvals: NewApprovalService(
			pendingLister{fakeAccountRepo: f.accounts, extensions: f.extensions},
			f.extensions,
			f.drafts,
			f.notifier,
		),
	}
}

// onboard walks an account through verification and profile setup so it
// shows up on an approver's pending list.
func (f *approvalFixture) onboard(t *testing.T, email string, role types.Role, fields types.ProfileFields) types.Account {
	t.Helper()
	ctx := context.Background()

	account := f.register(t, email, role)
	if err := f.service.VerifyEmail(ctx, email, "123456"); err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	if err := f.service.CompleteProfile(ctx, account.ID, fields); err != nil {
		t.Fatalf("complete profile %s: %v", email, err)
	}
	return account
}

func studentFields() types.StudentFields {
	return types.StudentFields{
		FullName:   "Alice Iyer",
		Department: "CSE",
		StudentID:  "CSE-042",
		Semester:   3,
		Batch:      "2024",
	}
}

func facultyFields() types.FacultyFields {
	return types.FacultyFields{
		FullName:      "Bob Rao",
		Department:    "CSE",
		EmployeeID:    "E-17",
		Designation:   "Professor",
		Qualification: "PhD",
	}
}

func TestApproveFromDraft(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())

	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// The extension carries the fields the student submitted at setup.
	profile, ok := f.extensions.students[student.ID]
	if !ok {
		t.Fatal("extension row was not created")
	}
	if profile.StudentID != "CSE-042" || profile.Semester != 3 {
		t.Fatalf("extension = %+v, want draft fields", profile)
	}

	identity, err := f.service.Identity(ctx, student.ID)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if identity.ApprovalStatus != types.ApprovalApproved {
		t.Fatalf("status = %q, want approved", identity.ApprovalStatus)
	}

	// The draft is consumed and the target is told.
	if _, _, err := f.drafts.Get(ctx, student.ID); err == nil {
		t.Fatal("draft should be deleted after promotion")
	}
	last := f.notifier.calls[len(f.notifier.calls)-1]
	if last.kind != "approval_result" || !last.approved {
		t.Fatalf("last notification = %+v, want approval_result approved", last)
	}
}

func TestApproveWithExplicitFields(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())

	override := studentFields()
	override.StudentID = "CSE-100"
	override.Semester = 5
	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, override); err != nil {
		t.Fatalf("approve: %v", err)
	}

	profile := f.extensions.students[student.ID]
	if profile.StudentID != "CSE-100" || profile.Semester != 5 {
		t.Fatalf("extension = %+v, want the approver's fields to win over the draft", profile)
	}
}

func TestApproveWithoutDraftUsesPlaceholders(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	// Base profile completed but the draft vanished (for example, cleaned
	// up out of band). Approval must still go through.
	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())
	if err := f.drafts.Delete(ctx, student.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}

	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	profile := f.extensions.students[student.ID]
	if profile.StudentID != "S-"+student.ID[:8] {
		t.Fatalf("student ID = %q, want generated placeholder", profile.StudentID)
	}
	if profile.Batch != DefaultBatch {
		t.Fatalf("batch = %q, want %q", profile.Batch, DefaultBatch)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())

	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	notifications := len(f.notifier.calls)

	// Double-click, or a second approver racing the first.
	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, nil); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	if len(f.notifier.calls) != notifications {
		t.Fatalf("repeat approve sent %d extra notifications", len(f.notifier.calls)-notifications)
	}
}

func TestRejectIsDurable(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())

	if err := f.approvals.Reject(ctx, types.RoleFaculty, student.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	identity, err := f.service.Identity(ctx, student.ID)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if identity.ApprovalStatus != types.ApprovalRejected {
		t.Fatalf("status = %q, want rejected", identity.ApprovalStatus)
	}
	last := f.notifier.calls[len(f.notifier.calls)-1]
	if last.kind != "approval_result" || last.approved {
		t.Fatalf("last notification = %+v, want approval_result rejected", last)
	}

	// A rejected account never comes back via approve.
	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, nil); err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
	if _, ok := f.extensions.students[student.ID]; ok {
		t.Fatal("approve after reject created an extension row")
	}
}

func TestRejectAfterApproveIsNoop(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())

	if err := f.approvals.Approve(ctx, types.RoleFaculty, student.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	notifications := len(f.notifier.calls)

	// A second approver working from a stale list clicks reject. The
	// existing resolution stands.
	if err := f.approvals.Reject(ctx, types.RoleFaculty, student.ID); err != nil {
		t.Fatalf("reject after approve: %v", err)
	}

	identity, err := f.service.Identity(ctx, student.ID)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if identity.ApprovalStatus != types.ApprovalApproved {
		t.Fatalf("status = %q, want approved to stand", identity.ApprovalStatus)
	}
	if len(f.notifier.calls) != notifications {
		t.Fatal("stale reject sent a notification")
	}
}

func TestRepeatRejectIsNoop(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())

	if err := f.approvals.Reject(ctx, types.RoleFaculty, student.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	notifications := len(f.notifier.calls)

	if err := f.approvals.Reject(ctx, types.RoleFaculty, student.ID); err != nil {
		t.Fatalf("repeat reject: %v", err)
	}
	if len(f.notifier.calls) != notifications {
		t.Fatal("repeat reject sent a notification")
	}
}

func TestApprovalScope(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	student := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())
	faculty := f.onboard(t, "bob@campus.edu", types.RoleFaculty, facultyFields())

	// Students approve nobody.
	if _, err := f.approvals.ListPending(ctx, types.RoleStudent); !errors.Is(err, types.ErrApprovalScope) {
		t.Fatalf("student list err = %v, want ErrApprovalScope", err)
	}
	if err := f.approvals.Approve(ctx, types.RoleStudent, student.ID, nil); !errors.Is(err, types.ErrApprovalScope) {
		t.Fatalf("student approve err = %v, want ErrApprovalScope", err)
	}

	// Faculty resolve students only; HOD resolve faculty only.
	if err := f.approvals.Approve(ctx, types.RoleFaculty, faculty.ID, nil); !errors.Is(err, types.ErrApprovalScope) {
		t.Fatalf("faculty approving faculty err = %v, want ErrApprovalScope", err)
	}
	if err := f.approvals.Reject(ctx, types.RoleHOD, student.ID); !errors.Is(err, types.ErrApprovalScope) {
		t.Fatalf("hod rejecting student err = %v, want ErrApprovalScope", err)
	}

	if err := f.approvals.Approve(ctx, types.RoleHOD, faculty.ID, nil); err != nil {
		t.Fatalf("hod approving faculty: %v", err)
	}
}

func TestListPendingIsFresh(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	first := f.onboard(t, "alice@campus.edu", types.RoleStudent, studentFields())
	second := f.onboard(t, "carol@campus.edu", types.RoleStudent, studentFields())

	// Registered but not through profile setup: not pending yet.
	f.register(t, "dave@campus.edu", types.RoleStudent)
	// Wrong role for a faculty approver.
	f.onboard(t, "bob@campus.edu", types.RoleFaculty, facultyFields())

	entries, err := f.approvals.ListPending(ctx, types.RoleFaculty)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("pending = %d entries, want 2", len(entries))
	}
	// Newest registration first.
	if entries[0].ID != second.ID || entries[1].ID != first.ID {
		t.Fatalf("pending order = [%s %s], want newest first", entries[0].Email, entries[1].Email)
	}

	// Resolving an account removes it from the next read.
	if err := f.approvals.Approve(ctx, types.RoleFaculty, second.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.approvals.Reject(ctx, types.RoleFaculty, first.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	entries, err = f.approvals.ListPending(ctx, types.RoleFaculty)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("pending after resolution = %d entries, want 0", len(entries))
	}
}

func TestProvisionHOD(t *testing.T) {
	f := newApprovalFixture()
	ctx := context.Background()

	fields := types.FacultyFields{
		FullName:      "Head Of Department",
		Department:    "CSE",
		EmployeeID:    "E-1",
		Designation:   "Professor & Head",
		Qualification: "PhD",
	}
	account, err := f.approvals.ProvisionHOD(ctx, "hod@campus.edu", "correct-horse", fields)
	if err != nil {
		t.Fatalf("provision hod: %v", err)
	}

	// The seeded account skips the whole onboarding funnel.
	identity, err := f.service.Identity(ctx, account.ID)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if !identity.EmailVerified || !identity.ProfileComplete {
		t.Fatalf("identity = %+v, want verified and complete", identity)
	}
	if identity.ApprovalStatus != types.ApprovalApproved {
		t.Fatalf("status = %q, want approved", identity.ApprovalStatus)
	}
	if identity.Role != types.RoleHOD {
		t.Fatalf("role = %q, want hod", identity.Role)
	}

	if _, err := f.service.Login(ctx, "hod@campus.edu", "correct-horse"); err != nil {
		t.Fatalf("hod login: %v", err)
	}
}

func TestProvisionHODValidatesFields(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.approvals.ProvisionHOD(context.Background(), "hod@campus.edu", "correct-horse", types.FacultyFields{})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if f.accounts.createN != 0 {
		t.Fatal("invalid provisioning reached the store")
	}
}

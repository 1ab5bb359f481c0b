package services

import (
	"context"
	"sort"
	"sync"

	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
)

// fakeAccountRepo is an in-memory AccountRepository that counts writes so
// tests can assert which calls a flow made (or, for restricted flows, that
// it made none).
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]types.Account
	createN  int
	seq      int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]types.Account)}
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (r *fakeAccountRepo) Create(_ context.Context, account types.Account) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createN++
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return types.Account{}, types.ErrDuplicateEmail
		}
	}
	r.seq++
	account.CreatedAt = account.CreatedAt.AddDate(0, 0, r.seq)
	r.accounts[account.ID] = account
	return account, nil
}

func (r *fakeAccountRepo) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(a *types.Account) { a.EmailVerified = true })
}

func (r *fakeAccountRepo) CompleteBaseProfile(_ context.Context, id, fullName, department string) error {
	return r.update(id, func(a *types.Account) {
		a.FullName = &fullName
		a.Department = department
	})
}

func (r *fakeAccountRepo) SetAvatarURL(_ context.Context, id, avatarURL string) error {
	return r.update(id, func(a *types.Account) { a.AvatarURL = &avatarURL })
}

func (r *fakeAccountRepo) SetStatus(_ context.Context, id string, status types.ApprovalStatus) error {
	return r.update(id, func(a *types.Account) { a.Status = status })
}

func (r *fakeAccountRepo) update(id string, fn func(*types.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&account)
	r.accounts[id] = account
	return nil
}

// fakeExtensionRepo mirrors the insert-if-absent contract of the real
// extension tables, including the (inserted, err) idempotency signal.
type fakeExtensionRepo struct {
	mu       sync.Mutex
	students map[string]types.StudentProfile
	faculty  map[string]types.FacultyProfile
	insertN  int
}

func newFakeExtensionRepo() *fakeExtensionRepo {
	return &fakeExtensionRepo{
		students: make(map[string]types.StudentProfile),
		faculty:  make(map[string]types.FacultyProfile),
	}
}

func (r *fakeExtensionRepo) Exists(_ context.Context, accountID string, role types.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == types.RoleStudent {
		_, ok := r.students[accountID]
		return ok, nil
	}
	_, ok := r.faculty[accountID]
	return ok, nil
}

func (r *fakeExtensionRepo) InsertStudent(_ context.Context, profile types.StudentProfile) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertN++
	if _, ok := r.students[profile.AccountID]; ok {
		return false, nil
	}
	r.students[profile.AccountID] = profile
	return true, nil
}

func (r *fakeExtensionRepo) InsertFaculty(_ context.Context, profile types.FacultyProfile) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertN++
	if _, ok := r.faculty[profile.AccountID]; ok {
		return false, nil
	}
	r.faculty[profile.AccountID] = profile
	return true, nil
}

type draftRow struct {
	role    types.Role
	payload []byte
}

type fakeDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]draftRow
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: make(map[string]draftRow)}
}

func (r *fakeDraftRepo) Upsert(_ context.Context, accountID string, role types.Role, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[accountID] = draftRow{role: role, payload: payload}
	return nil
}

func (r *fakeDraftRepo) Get(_ context.Context, accountID string) (types.Role, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.drafts[accountID]
	if !ok {
		return "", nil, store.ErrNotFound
	}
	return row.role, row.payload, nil
}

func (r *fakeDraftRepo) Delete(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, accountID)
	return nil
}

// fakeCodeStore issues predictable codes and redeems them once.
type fakeCodeStore struct {
	mu     sync.Mutex
	codes  map[string]string
	issueN int
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[string]string)}
}

func (s *fakeCodeStore) Issue(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueN++
	code := "123456"
	s.codes[email] = code
	return code, nil
}

func (s *fakeCodeStore) Verify(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.codes[email]
	if !ok || stored != code {
		return types.ErrCodeMismatch
	}
	delete(s.codes, email)
	return nil
}

type fakeRevoker struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (r *fakeRevoker) Add(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tokens = append(r.tokens, token)
	return nil
}

type notifierCall struct {
	kind     string
	email    string
	approved bool
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (n *fakeNotifier) ConfirmEmail(_ context.Context, email string, _ types.Role, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, notifierCall{kind: "confirm_email", email: email})
	return nil
}

func (n *fakeNotifier) ApprovalResult(_ context.Context, email, _ string, approved bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, notifierCall{kind: "approval_result", email: email, approved: approved})
	return nil
}

// pendingLister wires the account and extension fakes together so
// ListPending replays the real query: the target role, base profile
// complete, not rejected, no extension row, newest first.
type pendingLister struct {
	*fakeAccountRepo
	extensions *fakeExtensionRepo
}

func (l pendingLister) ListPending(ctx context.Context, role types.Role) ([]types.PendingApprovalEntry, error) {
	l.mu.Lock()
	accounts := make([]types.Account, 0, len(l.accounts))
	for _, account := range l.accounts {
		accounts = append(accounts, account)
	}
	l.mu.Unlock()

	var entries []types.PendingApprovalEntry
	for _, account := range accounts {
		if account.Role != role || !account.ProfileComplete() || account.Status == types.ApprovalRejected {
			continue
		}
		exists, err := l.extensions.Exists(ctx, account.ID, account.Role)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		entries = append(entries, types.PendingApprovalEntry{
			ID:           account.ID,
			Email:        account.Email,
			Role:         account.Role,
			FullName:     *account.FullName,
			Department:   account.Department,
			RegisteredAt: account.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RegisteredAt.After(entries[j].RegisteredAt)
	})
	return entries, nil
}

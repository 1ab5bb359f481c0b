package types

// UserIdentity is the derived projection pages actually consult. It is
// recomputed from the account and extension rows on every refresh and
// never stored.
type UserIdentity struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Role            Role           `json:"role"`
	EmailVerified   bool           `json:"email_verified"`
	ProfileComplete bool           `json:"profile_complete"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
}

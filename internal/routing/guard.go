// Package routing decides where a user goes next. Every entry point
// consults NextRoute instead of re-deriving the rules inline; the
// decision table here is the only copy.
package routing

import "github.com/edupanel/apiserver/types"

// Destination is the screen a page should send the user to.
type Destination string

const (
	DestLogin           Destination = "/login"
	DestVerifyEmail     Destination = "/verify-email"
	DestProfileSetup    Destination = "/profile/setup"
	DestPendingApproval Destination = "/approval/pending"
	DestRejected        Destination = "/approval/rejected"

	DestStudentDashboard Destination = "/dashboard/student"
	DestFacultyDashboard Destination = "/dashboard/faculty"
	DestHODDashboard     Destination = "/dashboard/hod"
)

// NextRoute maps an identity to its destination. First matching row
// wins; the order is load-bearing. An unverified email blocks before
// profile or approval are even considered, so a directly-seeded account
// with a complete profile but unverified email still lands on
// verification.
func NextRoute(identity *types.UserIdentity) Destination {
	switch {
	case identity == nil:
		return DestLogin
	case !identity.EmailVerified:
		return DestVerifyEmail
	case !identity.ProfileComplete:
		return DestProfileSetup
	case identity.ApprovalStatus == types.ApprovalPending:
		return DestPendingApproval
	case identity.ApprovalStatus == types.ApprovalRejected:
		return DestRejected
	default:
		return dashboard(identity.Role)
	}
}

func dashboard(role types.Role) Destination {
	switch role {
	case types.RoleFaculty:
		return DestFacultyDashboard
	case types.RoleHOD:
		return DestHODDashboard
	default:
		return DestStudentDashboard
	}
}

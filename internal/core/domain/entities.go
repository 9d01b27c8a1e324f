package domain

// Role represents user role in the system
type Role string

const (
	RoleLecturer    Role = "Lecturer"
	RoleHR          Role = "HR"
	RoleCoordinator Role = "Coordinator"
	RoleManager     Role = "Manager"
)

// Roles lists every role a user can hold
var Roles = []Role{RoleLecturer, RoleHR, RoleCoordinator, RoleManager}

// ParseRole returns the role matching s
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsValid reports whether r is one of the fixed roles
func (r Role) IsValid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// EarnsHourlyRate reports whether the hourly rate is meaningful for the role.
// Every other role is stored with a rate of 0.
func (r Role) EarnsHourlyRate() bool {
	return r == RoleLecturer
}

// ClaimStatus is the position of a claim in its two-stage approval workflow
type ClaimStatus string

const (
	StatusPending               ClaimStatus = "Pending"
	StatusApprovedByCoordinator ClaimStatus = "ApprovedByCoordinator"
	StatusApprovedByManager     ClaimStatus = "ApprovedByManager"
	StatusRejectedByCoordinator ClaimStatus = "RejectedByCoordinator"
	StatusRejectedByManager     ClaimStatus = "RejectedByManager"
)

// Label returns the human readable form used in reports
func (s ClaimStatus) Label() string {
	switch s {
	case StatusApprovedByCoordinator:
		return "Approved by Coordinator"
	case StatusApprovedByManager:
		return "Approved by Manager"
	case StatusRejectedByCoordinator:
		return "Rejected by Coordinator"
	case StatusRejectedByManager:
		return "Rejected by Manager"
	default:
		return string(s)
	}
}

// IsTerminal reports whether no transition may leave s
func (s ClaimStatus) IsTerminal() bool {
	switch s {
	case StatusApprovedByManager, StatusRejectedByCoordinator, StatusRejectedByManager:
		return true
	}
	return false
}

// Action is an operation an actor performs on a claim
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

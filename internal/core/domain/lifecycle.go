package domain

import "fmt"

// Transition is the outcome of an allowed action on a claim
type Transition struct {
	From   ClaimStatus
	To     ClaimStatus // empty when the claim is removed
	Action Action
	Stage  Role // review stage recorded as action-by; empty for delete
}

type transitionKey struct {
	from   ClaimStatus
	action Action
}

type rule struct {
	to    ClaimStatus
	stage Role
	// roles allowed to act on any claim in the state
	roles []Role
	// roles allowed to act only on claims they own
	ownerRoles []Role
}

// policy is the complete role x action table. Any (status, action) pair
// missing from it is illegal.
var policy = map[transitionKey]rule{
	{StatusPending, ActionApprove}: {
		to:    StatusApprovedByCoordinator,
		stage: RoleCoordinator,
		roles: []Role{RoleCoordinator, RoleHR},
	},
	{StatusPending, ActionReject}: {
		to:    StatusRejectedByCoordinator,
		stage: RoleCoordinator,
		roles: []Role{RoleCoordinator, RoleHR},
	},
	{StatusApprovedByCoordinator, ActionApprove}: {
		to:    StatusApprovedByManager,
		stage: RoleManager,
		roles: []Role{RoleManager, RoleHR},
	},
	{StatusApprovedByCoordinator, ActionReject}: {
		to:    StatusRejectedByManager,
		stage: RoleManager,
		roles: []Role{RoleManager, RoleHR},
	},
	{StatusPending, ActionDelete}: {
		roles:      []Role{RoleHR},
		ownerRoles: []Role{RoleLecturer},
	},
}

// Next resolves the transition role performs on a claim currently in from.
// isOwner reports whether the actor submitted the claim.
func Next(from ClaimStatus, action Action, role Role, isOwner bool) (Transition, error) {
	r, ok := policy[transitionKey{from, action}]
	if !ok {
		return Transition{}, &PolicyViolation{
			Action: action,
			Status: from,
			Role:   role,
			Reason: illegalReason(from, action),
		}
	}

	if !hasRole(r.roles, role) && !(isOwner && hasRole(r.ownerRoles, role)) {
		reason := fmt.Sprintf("role %s cannot %s a claim that is %s", role, action, from.Label())
		if hasRole(r.ownerRoles, role) {
			reason = fmt.Sprintf("%s may only %s their own claims", role, action)
		}
		return Transition{}, &PolicyViolation{Action: action, Status: from, Role: role, Reason: reason}
	}

	return Transition{From: from, To: r.to, Action: action, Stage: r.stage}, nil
}

// ReviewQueue returns the status a reviewer role works from, if any
func ReviewQueue(role Role) (ClaimStatus, bool) {
	switch role {
	case RoleCoordinator:
		return StatusPending, true
	case RoleManager:
		return StatusApprovedByCoordinator, true
	}
	return "", false
}

func illegalReason(from ClaimStatus, action Action) string {
	switch {
	case action == ActionDelete:
		return fmt.Sprintf("only pending claims can be deleted (claim is %s)", from.Label())
	case from.IsTerminal():
		return fmt.Sprintf("claim is already %s and cannot change", from.Label())
	default:
		return fmt.Sprintf("cannot %s a claim that is %s", action, from.Label())
	}
}

func hasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

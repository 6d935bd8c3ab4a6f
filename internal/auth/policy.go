package auth

import (
	"github.com/taskforge/task-manager/internal/domain"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionTaskRead   Action = "task:read"
	ActionTaskCreate Action = "task:create"
	ActionTaskUpdate Action = "task:update"
	ActionTaskDelete Action = "task:delete"

	ActionUserRead   Action = "user:read"
	ActionUserCreate Action = "user:create"
	ActionUserUpdate Action = "user:update"
	ActionUserDelete Action = "user:delete"

	ActionStatusRead   Action = "status:read"
	ActionStatusManage Action = "status:manage"
	ActionLabelRead    Action = "label:read"
	ActionLabelManage  Action = "label:manage"

	ActionSystemMetrics Action = "system:metrics"
)

// Mutating reports whether the action changes a resource, which makes
// ownership relevant.
func (a Action) Mutating() bool {
	switch a {
	case ActionTaskUpdate, ActionTaskDelete, ActionUserUpdate, ActionUserDelete:
		return true
	}
	return false
}

// userActions is everything a regular user may attempt. Mutations in this
// set are further limited to resources the user owns.
var userActions = map[Action]struct{}{
	ActionTaskRead:   {},
	ActionTaskCreate: {},
	ActionTaskUpdate: {},
	ActionTaskDelete: {},
	ActionUserRead:   {},
	ActionUserUpdate: {},
	ActionUserDelete: {},
	ActionStatusRead: {},
	ActionLabelRead:  {},
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// DenyReason describes why a check was denied.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	ReasonUnknownRole
	ReasonRoleNotPermitted
	ReasonNotOwner
)

// String returns a human-readable reason.
func (r DenyReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUnknownRole:
		return "unknown role"
	case ReasonRoleNotPermitted:
		return "role may not perform this action"
	case ReasonNotOwner:
		return "only the owner or an administrator may modify this resource"
	default:
		return "unknown"
	}
}

// Result carries the decision and, for denials, the reason.
type Result struct {
	Decision Decision
	Reason   DenyReason
}

// Allowed reports whether the decision is Allow.
func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// Resource describes a loaded target for resource-level checks. OwnerID is
// the task creator for tasks and the user itself for user accounts.
type Resource struct {
	OwnerID int64
}

// CanPerform decides whether principal may perform action. With a nil
// resource only the role-level check runs; with a resource, mutating
// actions also require ownership unless the principal is an administrator.
func CanPerform(principal Principal, action Action, resource *Resource) Result {
	switch principal.Role {
	case domain.RoleAdmin:
		return Result{Decision: Allow}
	case domain.RoleUser:
		if _, ok := userActions[action]; !ok {
			return Result{Decision: Deny, Reason: ReasonRoleNotPermitted}
		}
		if resource != nil && action.Mutating() && resource.OwnerID != principal.SubjectID {
			return Result{Decision: Deny, Reason: ReasonNotOwner}
		}
		return Result{Decision: Allow}
	default:
		return Result{Decision: Deny, Reason: ReasonUnknownRole}
	}
}

// Authorize is CanPerform expressed as an error: nil when allowed, a
// Forbidden DomainError otherwise.
func Authorize(principal Principal, action Action, resource *Resource) error {
	result := CanPerform(principal, action, resource)
	if result.Allowed() {
		return nil
	}
	return apperrors.NewForbidden(result.Reason.String())
}

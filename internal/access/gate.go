package access

import (
	"fmt"
	"strings"

	"pmdashboard/internal/model"
)

// Decision is the typed outcome of a capability check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a denied decision into a *DeniedError, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

func IsAdmin(p Principal) bool {
	return p.Role == model.RoleAdmin
}

func IsProjectManager(p Principal) bool {
	return p.Role == model.RoleProjectManager
}

func IsMember(p Principal) bool {
	return p.Role == model.RoleMember
}

// HasManagementRights is true for admins and project managers
func HasManagementRights(p Principal) bool {
	return IsAdmin(p) || IsProjectManager(p)
}

func RequireAuthenticated(p Principal) Decision {
	if !p.Authenticated() {
		return Deny("authentication required")
	}
	return Allow()
}

// RequireRole allows the principal when its role is one of roles
func RequireRole(p Principal, roles ...model.Role) Decision {
	if d := RequireAuthenticated(p); !d.Allowed {
		return d
	}
	for _, r := range roles {
		if p.Role == r {
			return Allow()
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return Deny(fmt.Sprintf("requires role %s", strings.Join(names, " or ")))
}

func RequireAdmin(p Principal) Decision {
	return RequireRole(p, model.RoleAdmin)
}

func RequireManagement(p Principal) Decision {
	return RequireRole(p, model.RoleAdmin, model.RoleProjectManager)
}

func CanManageUsers(p Principal) Decision {
	return RequireAdmin(p)
}

func CanCreateProjects(p Principal) Decision {
	return RequireManagement(p)
}

func CanManageProject(p Principal) Decision {
	return RequireManagement(p)
}

// CanUpdateTask allows management roles and the task's assignee
func CanUpdateTask(p Principal, task *model.Task) Decision {
	if d := RequireAuthenticated(p); !d.Allowed {
		return d
	}
	if HasManagementRights(p) {
		return Allow()
	}
	if task != nil && task.AssignedTo != nil && *task.AssignedTo == p.UserID {
		return Allow()
	}
	return Deny("only the assignee or a manager can update this task")
}

// CanViewProject allows management roles, the creator and participants
// (team members or assignees of one of the project's tasks)
func CanViewProject(p Principal, project *model.Project, participates bool) Decision {
	if d := RequireAuthenticated(p); !d.Allowed {
		return d
	}
	if HasManagementRights(p) || participates {
		return Allow()
	}
	if project != nil && project.CreatedBy != nil && *project.CreatedBy == p.UserID {
		return Allow()
	}
	return Deny("not a member of this project")
}

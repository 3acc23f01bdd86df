package service

import "github.com/ralnuaimi/petty-cash-server/internal/models"

// Action names an operation subject to role-based access control.
type Action string

const (
	ActionManageUsers     Action = "manage_users"
	ActionManageFunds     Action = "manage_funds"
	ActionViewFunds       Action = "view_funds"
	ActionSubmitExpense   Action = "submit_expense"
	ActionProcessExpense  Action = "process_expense"
	ActionViewStats       Action = "view_stats"
	ActionViewAuditLogs   Action = "view_audit_logs"
	ActionChangePassword  Action = "change_password"
	ActionViewAllExpenses Action = "view_all_expenses"
)

// policy is the single declarative table of action -> allowed roles.
// Ownership checks (expense edit/delete) are predicates on the entity and
// live next to the operations that need them.
var policy = map[Action][]string{
	ActionManageUsers:     {models.RoleAdmin},
	ActionManageFunds:     {models.RoleAdmin},
	ActionViewFunds:       {models.RoleAdmin, models.RoleAccountant, models.RoleEmployee},
	ActionSubmitExpense:   {models.RoleAdmin, models.RoleAccountant, models.RoleEmployee},
	ActionProcessExpense:  {models.RoleAdmin, models.RoleAccountant},
	ActionViewStats:       {models.RoleAdmin, models.RoleAccountant, models.RoleEmployee},
	ActionViewAuditLogs:   {models.RoleAdmin},
	ActionChangePassword:  {models.RoleAdmin, models.RoleAccountant, models.RoleEmployee},
	ActionViewAllExpenses: {models.RoleAdmin, models.RoleAccountant},
}

// authorize returns ErrForbidden unless the actor's role is allowed to
// perform the action.
func authorize(actor models.Identity, action Action) error {
	for _, role := range policy[action] {
		if actor.Role == role {
			return nil
		}
	}
	return models.ErrForbidden
}

// allowed reports whether the actor's role may perform the action, for
// callers that branch on it rather than fail.
func allowed(actor models.Identity, action Action) bool {
	return authorize(actor, action) == nil
}

// Package policy decides whether an actor may perform an action on a task or
// a user record. Decisions are pure and never touch storage.
package policy

import "github.com/agalitsyn/taskboard/internal/model"

type Action string

const (
	ActionView     Action = "view"
	ActionList     Action = "list"
	ActionListAll  Action = "list_all"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionReceive  Action = "receive"
	ActionComplete Action = "complete"
)

type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// ForTaskAction maps a lifecycle action to the policy action guarding it.
func ForTaskAction(a model.TaskAction) Action {
	switch a {
	case model.TaskActionReceive:
		return ActionReceive
	case model.TaskActionComplete:
		return ActionComplete
	default:
		return Action(a)
	}
}

// Decide applies the task rules. task may be nil for actions that do not
// target an existing task (create, list_all).
func Decide(actor model.Actor, action Action, task *model.Task) Decision {
	switch actor.Role {
	case model.RoleAdmin:
		switch action {
		case ActionReceive, ActionComplete:
			// Work on a task belongs to its assignee, even for admins.
			return isAssignee(actor, task)
		case ActionView, ActionList, ActionListAll, ActionCreate, ActionUpdate, ActionDelete:
			return Allow
		}
	case model.RoleUser:
		switch action {
		case ActionList:
			return Allow
		case ActionView, ActionReceive, ActionComplete:
			return isAssignee(actor, task)
		}
	}
	return Deny
}

// DecideUser applies the user directory rules: admins manage everybody,
// regular users may only view and edit their own record.
func DecideUser(actor model.Actor, action Action, targetID string) Decision {
	switch actor.Role {
	case model.RoleAdmin:
		switch action {
		case ActionView, ActionListAll, ActionCreate, ActionUpdate, ActionDelete:
			return Allow
		}
	case model.RoleUser:
		switch action {
		case ActionView, ActionUpdate:
			return Decision(actor.ID != "" && actor.ID == targetID)
		}
	}
	return Deny
}

func isAssignee(actor model.Actor, task *model.Task) Decision {
	return Decision(task != nil && actor.ID != "" && task.AssignedTo == actor.ID)
}

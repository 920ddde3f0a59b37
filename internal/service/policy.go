package service

import (
	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/rbac"
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   int
	Role string
}

// Decision is the outcome of a policy check. When denied, Err carries the
// precise failure kind so handlers return a stable error to the client.
type Decision struct {
	Allowed bool
	Err     *apperror.Error
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(err *apperror.Error) Decision {
	return Decision{Err: err}
}

// CanSubmitBid: caller is a freelancer, the task is open, and the task is
// not their own.
func CanSubmitBid(actor Actor, task *model.Task) Decision {
	if actor.Role != rbac.RoleFreelancer {
		return deny(apperror.Forbidden("only freelancers can submit bids"))
	}
	if task.Status != model.TaskStatusOpen {
		return deny(apperror.InvalidState("task is %s, bids can only be submitted while it is open", task.Status))
	}
	if task.ClientID == actor.ID {
		return deny(apperror.InvalidState("you cannot bid on your own task"))
	}
	return allow()
}

// CanAcceptBid: caller is the client who owns the task, and the task is
// still open. The acceptance transaction re-checks the status under lock.
func CanAcceptBid(actor Actor, task *model.Task) Decision {
	if actor.Role != rbac.RoleClient && actor.Role != rbac.RoleAdmin {
		return deny(apperror.Forbidden("only clients can accept bids"))
	}
	if task.ClientID != actor.ID {
		return deny(apperror.Forbidden("only the task owner can accept bids"))
	}
	if task.Status != model.TaskStatusOpen {
		return deny(apperror.InvalidState("task is %s, bids can only be accepted while it is open", task.Status))
	}
	return allow()
}

// CanCreateMilestone: caller owns the task and the task has not finished.
// Milestones may be created while the task is still open; the freelancer
// notification is simply skipped until a bid is accepted.
func CanCreateMilestone(actor Actor, task *model.Task) Decision {
	if actor.Role != rbac.RoleClient && actor.Role != rbac.RoleAdmin {
		return deny(apperror.Forbidden("only clients can create milestones"))
	}
	if task.ClientID != actor.ID {
		return deny(apperror.Forbidden("only the task owner can create milestones"))
	}
	switch task.Status {
	case model.TaskStatusOpen, model.TaskStatusAssigned, model.TaskStatusInProgress:
		return allow()
	default:
		return deny(apperror.InvalidState("task is %s, milestones can no longer be added", task.Status))
	}
}

// CanRequestCompletion: caller is the freelancer holding the task's
// accepted bid.
func CanRequestCompletion(actor Actor, acceptedFreelancerID int) Decision {
	if actor.ID != acceptedFreelancerID {
		return deny(apperror.Forbidden("only the assigned freelancer can request completion"))
	}
	return allow()
}

// CanReleasePayment: caller is the client who owns the milestone's task.
// The milestone status is re-checked inside the payment transaction.
func CanReleasePayment(actor Actor, task *model.Task) Decision {
	if actor.Role != rbac.RoleClient && actor.Role != rbac.RoleAdmin {
		return deny(apperror.Forbidden("only clients can release payments"))
	}
	if task.ClientID != actor.ID {
		return deny(apperror.Forbidden("only the task owner can release payments"))
	}
	return allow()
}

// CanCancelTask: caller owns the task; the open-status check happens in
// the cancel transaction.
func CanCancelTask(actor Actor, task *model.Task) Decision {
	if actor.Role != rbac.RoleClient && actor.Role != rbac.RoleAdmin {
		return deny(apperror.Forbidden("only clients can cancel tasks"))
	}
	if task.ClientID != actor.ID {
		return deny(apperror.Forbidden("only the task owner can cancel this task"))
	}
	return allow()
}

package service

import (
	"context"

	"freelancehub/internal/model"
	"freelancehub/pkg/outbox"
)

// Store interfaces cover exactly what the services need from the
// repository layer, so tests can substitute in-memory fakes.

type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) (int, error)
	FindByID(ctx context.Context, id int) (*model.Task, error)
	ListOpen(ctx context.Context) ([]model.Task, error)
	Cancel(ctx context.Context, taskID int) ([]int, error)
}

type BidStore interface {
	Insert(ctx context.Context, b *model.Bid) (int, error)
	FindByID(ctx context.Context, id int) (*model.Bid, error)
	FindByTaskAndFreelancer(ctx context.Context, taskID, freelancerID int) (*model.Bid, error)
	FindAcceptedByTask(ctx context.Context, taskID int) (*model.Bid, error)
	ListByTask(ctx context.Context, taskID int) ([]model.Bid, error)
	Accept(ctx context.Context, taskID, bidID int, events []outbox.Pending) error
}

type MilestoneStore interface {
	Insert(ctx context.Context, m *model.Milestone) (int, error)
	FindByID(ctx context.Context, id int) (*model.Milestone, error)
	FindByTaskID(ctx context.Context, taskID int) ([]model.Milestone, error)
	MarkCompleted(ctx context.Context, id int) (*model.Milestone, error)
	MarkPaid(ctx context.Context, id int) (*model.Milestone, string, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID int) error
}

type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

// EventPublisher publishes a domain event to the message broker.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// RealtimePublisher pushes an event to a user's private live channel.
// Engines receive it as an injected capability; push failures are
// best-effort and never unwind committed state.
type RealtimePublisher interface {
	PushToUser(userID int, event string, payload any) error
}

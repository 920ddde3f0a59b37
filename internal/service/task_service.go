package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
)

type TaskService struct {
	tasks     TaskStore
	bids      BidStore
	publisher EventPublisher
	logger    *zap.Logger
}

func NewTaskService(tasks TaskStore, bids BidStore, publisher EventPublisher, logger *zap.Logger) *TaskService {
	return &TaskService{tasks: tasks, bids: bids, publisher: publisher, logger: logger}
}

func (s *TaskService) CreateTask(ctx context.Context, actor Actor, title, description, category string, budget float64, budgetType string, deadline time.Time) (*model.Task, error) {
	if !model.ValidBudgetType(budgetType) {
		return nil, apperror.ValidationFailed(map[string]string{"budget_type": "must be fixed or hourly"})
	}

	task := &model.Task{
		ClientID:    actor.ID,
		Title:       title,
		Description: description,
		Category:    category,
		Budget:      budget,
		BudgetType:  budgetType,
		Deadline:    deadline,
		Status:      model.TaskStatusOpen,
	}
	id, err := s.tasks.Insert(ctx, task)
	if err != nil {
		return nil, err
	}
	task.ID = id
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID int) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("task %d not found", taskID)
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListOpenTasks(ctx context.Context) ([]model.Task, error) {
	return s.tasks.ListOpen(ctx)
}

// CancelTask cancels an open task and rejects its pending bids in one
// transaction. Bidders find out through the task.cancelled event.
func (s *TaskService) CancelTask(ctx context.Context, actor Actor, taskID int) error {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("task %d not found", taskID)
		}
		return err
	}

	if d := CanCancelTask(actor, task); !d.Allowed {
		return d.Err
	}

	bidderIDs, err := s.tasks.Cancel(ctx, taskID)
	if err != nil {
		return err
	}

	payload := mqcontracts.TaskCancelledPayload{
		TaskID:    task.ID,
		TaskTitle: task.Title,
		ClientID:  task.ClientID,
		BidderIDs: bidderIDs,
	}
	if err := s.publisher.Publish(mqcontracts.RoutingKeyTaskCancelled, payload); err != nil {
		s.logger.Error("Failed to publish task.cancelled",
			zap.Int("task_id", task.ID),
			zap.Error(err),
		)
	}

	return nil
}

// IsAuthorizedForTask reports whether the user may join the task's chat
// room. Authorization is re-derived from current state on every call, so
// a freelancer whose bid was later rejected loses access immediately.
func (s *TaskService) IsAuthorizedForTask(ctx context.Context, userID, taskID int) (bool, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if task.ClientID == userID {
		return true, nil
	}

	accepted, err := s.bids.FindAcceptedByTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return accepted.FreelancerID == userID, nil
}

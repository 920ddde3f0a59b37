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
	"freelancehub/pkg/logger"
	"freelancehub/pkg/metrics"
)

type MilestoneService struct {
	tasks      TaskStore
	bids       BidStore
	milestones MilestoneStore
	publisher  EventPublisher
	logger     *zap.Logger
}

func NewMilestoneService(
	tasks TaskStore,
	bids BidStore,
	milestones MilestoneStore,
	publisher EventPublisher,
	logger *zap.Logger,
) *MilestoneService {
	return &MilestoneService{
		tasks:      tasks,
		bids:       bids,
		milestones: milestones,
		publisher:  publisher,
		logger:     logger,
	}
}

// CreateMilestone inserts a pending milestone. The task status is not
// touched. When the task already has an accepted bid, the assigned
// freelancer is notified through the milestone.created event.
func (s *MilestoneService) CreateMilestone(ctx context.Context, actor Actor, taskID int, title, description string, amount float64, dueDate time.Time) (*model.Milestone, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("task %d not found", taskID)
		}
		return nil, err
	}

	if d := CanCreateMilestone(actor, task); !d.Allowed {
		return nil, d.Err
	}

	m := &model.Milestone{
		TaskID:      taskID,
		Title:       title,
		Description: description,
		Amount:      amount,
		DueDate:     dueDate,
		Status:      model.MilestoneStatusPending,
	}
	id, err := s.milestones.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id

	accepted, err := s.bids.FindAcceptedByTask(ctx, taskID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("Failed to look up accepted bid", zap.Int("task_id", taskID), zap.Error(err))
		}
		// 还没有中标的自由职业者，不用通知
		return m, nil
	}

	payload := mqcontracts.MilestoneCreatedPayload{
		MilestoneID:  m.ID,
		TaskID:       task.ID,
		TaskTitle:    task.Title,
		Title:        m.Title,
		Amount:       m.Amount,
		FreelancerID: accepted.FreelancerID,
	}
	if err := s.publisher.Publish(mqcontracts.RoutingKeyMilestoneCreated, payload); err != nil {
		s.logger.Error("Failed to publish milestone.created",
			zap.Int("milestone_id", m.ID),
			zap.Error(err),
		)
	}

	return m, nil
}

// RequestCompletion moves a pending milestone to completed on behalf of
// the assigned freelancer, then asks the client to review and pay.
func (s *MilestoneService) RequestCompletion(ctx context.Context, actor Actor, milestoneID int) (*model.Milestone, error) {
	m, err := s.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("milestone %d not found", milestoneID)
		}
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, m.TaskID)
	if err != nil {
		return nil, err
	}

	accepted, err := s.bids.FindAcceptedByTask(ctx, m.TaskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.Forbidden("only the assigned freelancer can request completion")
		}
		return nil, err
	}
	if d := CanRequestCompletion(actor, accepted.FreelancerID); !d.Allowed {
		return nil, d.Err
	}

	updated, err := s.milestones.MarkCompleted(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	payload := mqcontracts.MilestoneCompletedPayload{
		MilestoneID: updated.ID,
		TaskID:      task.ID,
		TaskTitle:   task.Title,
		Title:       updated.Title,
		ClientID:    task.ClientID,
	}
	if err := s.publisher.Publish(mqcontracts.RoutingKeyMilestoneCompleted, payload); err != nil {
		s.logger.Error("Failed to publish milestone.completed",
			zap.Int("milestone_id", updated.ID),
			zap.Error(err),
		)
	}

	return updated, nil
}

// ReleasePayment marks a completed milestone as paid inside the rollup
// transaction: the task becomes completed when its last unpaid milestone
// is paid, and a first payment moves an assigned task to in_progress.
func (s *MilestoneService) ReleasePayment(ctx context.Context, actor Actor, milestoneID int) (*model.Milestone, error) {
	m, err := s.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("milestone %d not found", milestoneID)
		}
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, m.TaskID)
	if err != nil {
		return nil, err
	}

	if d := CanReleasePayment(actor, task); !d.Allowed {
		return nil, d.Err
	}

	updated, taskStatus, err := s.milestones.MarkPaid(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	metrics.PaymentReleasedCount.Inc()
	logger.WithTrace(ctx, s.logger).Info("Payment released",
		zap.Int("milestone_id", updated.ID),
		zap.Int("task_id", task.ID),
		zap.String("task_status", taskStatus),
	)

	accepted, err := s.bids.FindAcceptedByTask(ctx, m.TaskID)
	if err != nil {
		// 没有中标记录时无法定位收款人，只能记录日志
		s.logger.Error("Failed to look up accepted bid after payment",
			zap.Int("task_id", m.TaskID),
			zap.Error(err),
		)
		return updated, nil
	}

	payload := mqcontracts.MilestonePaidPayload{
		MilestoneID:   updated.ID,
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		Title:         updated.Title,
		Amount:        updated.Amount,
		FreelancerID:  accepted.FreelancerID,
		TaskCompleted: taskStatus == model.TaskStatusCompleted,
		PaidAt:        time.Now(),
	}
	if err := s.publisher.Publish(mqcontracts.RoutingKeyMilestonePaid, payload); err != nil {
		s.logger.Error("Failed to publish milestone.paid",
			zap.Int("milestone_id", updated.ID),
			zap.Error(err),
		)
	}

	return updated, nil
}

func (s *MilestoneService) ListByTask(ctx context.Context, taskID int) ([]model.Milestone, error) {
	return s.milestones.FindByTaskID(ctx, taskID)
}

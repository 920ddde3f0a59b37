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
	"freelancehub/pkg/outbox"
)

type BidService struct {
	tasks     TaskStore
	bids      BidStore
	publisher EventPublisher
	logger    *zap.Logger
}

func NewBidService(tasks TaskStore, bids BidStore, publisher EventPublisher, logger *zap.Logger) *BidService {
	return &BidService{
		tasks:     tasks,
		bids:      bids,
		publisher: publisher,
		logger:    logger,
	}
}

// SubmitBid inserts a pending bid on an open task. The task itself is not
// mutated; bids accumulate while the task stays open.
func (s *BidService) SubmitBid(ctx context.Context, actor Actor, taskID int, amount float64, proposal, timeline string) (*model.Bid, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("task %d not found", taskID)
		}
		return nil, err
	}

	if d := CanSubmitBid(actor, task); !d.Allowed {
		return nil, d.Err
	}

	_, err = s.bids.FindByTaskAndFreelancer(ctx, taskID, actor.ID)
	if err == nil {
		return nil, apperror.Conflict("you have already bid on this task")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	bid := &model.Bid{
		TaskID:       taskID,
		FreelancerID: actor.ID,
		Amount:       amount,
		Proposal:     proposal,
		Timeline:     timeline,
		Status:       model.BidStatusPending,
	}
	id, err := s.bids.Insert(ctx, bid)
	if err != nil {
		return nil, err
	}
	bid.ID = id
	metrics.IncrementBid("submitted")

	// 投标成功后发事件通知任务发布者，失败不影响已提交的投标
	payload := mqcontracts.BidSubmittedPayload{
		BidID:        bid.ID,
		TaskID:       task.ID,
		TaskTitle:    task.Title,
		ClientID:     task.ClientID,
		FreelancerID: actor.ID,
		Amount:       amount,
		SubmittedAt:  time.Now(),
	}
	if err := s.publisher.Publish(mqcontracts.RoutingKeyBidSubmitted, payload); err != nil {
		s.logger.Error("Failed to publish bid.submitted",
			zap.Int("bid_id", bid.ID),
			zap.Error(err),
		)
	}

	return bid, nil
}

// AcceptBid runs the single atomic acceptance: the target bid becomes
// accepted, all sibling bids are rejected, and the task moves to assigned.
// The bid.accepted event goes through the outbox so notifications and chat
// activation happen only after the transaction commits.
func (s *BidService) AcceptBid(ctx context.Context, actor Actor, bidID int) error {
	bid, err := s.bids.FindByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("bid %d not found", bidID)
		}
		return err
	}

	task, err := s.tasks.FindByID(ctx, bid.TaskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("task %d not found", bid.TaskID)
		}
		return err
	}

	if d := CanAcceptBid(actor, task); !d.Allowed {
		return d.Err
	}

	bidID64 := int64(bid.ID)
	events := []outbox.Pending{{
		AggregateType: "bid",
		AggregateID:   &bidID64,
		RoutingKey:    mqcontracts.RoutingKeyBidAccepted,
		Payload: mqcontracts.BidAcceptedPayload{
			BidID:        bid.ID,
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			ClientID:     task.ClientID,
			FreelancerID: bid.FreelancerID,
			Amount:       bid.Amount,
			AcceptedAt:   time.Now(),
		},
	}}

	if err := s.bids.Accept(ctx, task.ID, bid.ID, events); err != nil {
		return err
	}
	metrics.IncrementBid("accepted")

	logger.WithTrace(ctx, s.logger).Info("Bid accepted",
		zap.Int("bid_id", bid.ID),
		zap.Int("task_id", task.ID),
		zap.Int("freelancer_id", bid.FreelancerID),
	)
	return nil
}

func (s *BidService) ListByTask(ctx context.Context, taskID int) ([]model.Bid, error) {
	return s.bids.ListByTask(ctx, taskID)
}

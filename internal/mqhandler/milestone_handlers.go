package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/service"
)

// notifyOnce delivers a single notification under the shared retry
// policy and clears the retry counter on success.
func notifyOnce(ctx context.Context, notifications *service.NotificationService, policy *RetryPolicy, handler, routingKey string, entityID, userID int, notifType, content string, raw json.RawMessage) error {
	if err := notifications.Notify(ctx, userID, notifType, content); err != nil {
		return policy.Fail(ctx, handler, routingKey, entityID, raw, err)
	}
	policy.ClearRetries(ctx, handler, entityID)
	return nil
}

type MilestoneCreatedHandler struct {
	notifications *service.NotificationService
	policy        *RetryPolicy
	logger        *zap.Logger
}

func NewMilestoneCreatedHandler(notifications *service.NotificationService, policy *RetryPolicy, logger *zap.Logger) *MilestoneCreatedHandler {
	return &MilestoneCreatedHandler{notifications: notifications, policy: policy, logger: logger}
}

func (h *MilestoneCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.MilestoneCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal MilestoneCreatedPayload", zap.Error(err))
		return nil
	}
	if !h.policy.AcquireOnce(ctx, "milestone_created", p.MilestoneID) {
		return nil
	}

	content := fmt.Sprintf("New milestone \"%s\" ($%.2f) added to \"%s\"", p.Title, p.Amount, p.TaskTitle)
	return notifyOnce(ctx, h.notifications, h.policy,
		"milestone_created", "milestone.created", p.MilestoneID, p.FreelancerID, "milestone_created", content, raw)
}

type MilestoneCompletedHandler struct {
	notifications *service.NotificationService
	policy        *RetryPolicy
	logger        *zap.Logger
}

func NewMilestoneCompletedHandler(notifications *service.NotificationService, policy *RetryPolicy, logger *zap.Logger) *MilestoneCompletedHandler {
	return &MilestoneCompletedHandler{notifications: notifications, policy: policy, logger: logger}
}

func (h *MilestoneCompletedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.MilestoneCompletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal MilestoneCompletedPayload", zap.Error(err))
		return nil
	}
	if !h.policy.AcquireOnce(ctx, "milestone_completed", p.MilestoneID) {
		return nil
	}

	content := fmt.Sprintf("Milestone \"%s\" on \"%s\" is ready for review", p.Title, p.TaskTitle)
	return notifyOnce(ctx, h.notifications, h.policy,
		"milestone_completed", "milestone.completed", p.MilestoneID, p.ClientID, "milestone_completed", content, raw)
}

type MilestonePaidHandler struct {
	notifications *service.NotificationService
	policy        *RetryPolicy
	logger        *zap.Logger
}

func NewMilestonePaidHandler(notifications *service.NotificationService, policy *RetryPolicy, logger *zap.Logger) *MilestonePaidHandler {
	return &MilestonePaidHandler{notifications: notifications, policy: policy, logger: logger}
}

func (h *MilestonePaidHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.MilestonePaidPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal MilestonePaidPayload", zap.Error(err))
		return nil
	}
	if !h.policy.AcquireOnce(ctx, "milestone_paid", p.MilestoneID) {
		return nil
	}

	content := fmt.Sprintf("Payment of $%.2f released for \"%s\" on \"%s\"", p.Amount, p.Title, p.TaskTitle)
	if err := notifyOnce(ctx, h.notifications, h.policy,
		"milestone_paid", "milestone.paid", p.MilestoneID, p.FreelancerID, "payment_released", content, raw); err != nil {
		return err
	}

	if p.TaskCompleted {
		done := fmt.Sprintf("All milestones paid, task \"%s\" is complete", p.TaskTitle)
		if err := h.notifications.Notify(ctx, p.FreelancerID, "task_completed", done); err != nil {
			h.logger.Error("Failed to send task_completed notification",
				zap.Int("milestone_id", p.MilestoneID),
				zap.Error(err),
			)
		}
	}
	return nil
}

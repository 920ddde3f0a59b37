package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/service"
)

type TaskCancelledHandler struct {
	notifications *service.NotificationService
	policy        *RetryPolicy
	logger        *zap.Logger
}

func NewTaskCancelledHandler(notifications *service.NotificationService, policy *RetryPolicy, logger *zap.Logger) *TaskCancelledHandler {
	return &TaskCancelledHandler{notifications: notifications, policy: policy, logger: logger}
}

func (h *TaskCancelledHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.TaskCancelledPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal TaskCancelledPayload", zap.Error(err))
		return nil
	}
	if !h.policy.AcquireOnce(ctx, "task_cancelled", p.TaskID) {
		return nil
	}

	h.logger.Info("Handling task.cancelled event",
		zap.Int("task_id", p.TaskID),
		zap.Int("bidder_count", len(p.BidderIDs)),
	)

	content := fmt.Sprintf("Task \"%s\" was cancelled, your bid is no longer active", p.TaskTitle)
	for _, bidderID := range p.BidderIDs {
		if err := h.notifications.Notify(ctx, bidderID, "task_cancelled", content); err != nil {
			// 整条消息重投时已通知过的投标人会收到重复通知，这里接受这种重复
			if ferr := h.policy.Fail(ctx, "task_cancelled", "task.cancelled", p.TaskID, raw, err); ferr != nil {
				return ferr
			}
		}
	}
	h.policy.ClearRetries(ctx, "task_cancelled", p.TaskID)
	return nil
}

package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/service"
)

type BidSubmittedHandler struct {
	notifications *service.NotificationService
	policy        *RetryPolicy
	logger        *zap.Logger
}

func NewBidSubmittedHandler(notifications *service.NotificationService, policy *RetryPolicy, logger *zap.Logger) *BidSubmittedHandler {
	return &BidSubmittedHandler{
		notifications: notifications,
		policy:        policy,
		logger:        logger,
	}
}

func (h *BidSubmittedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.BidSubmittedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal BidSubmittedPayload", zap.Error(err))
		// 格式错误的消息重试也没用
		return nil
	}

	if !h.policy.AcquireOnce(ctx, "bid_submitted", p.BidID) {
		return nil
	}

	h.logger.Info("Handling bid.submitted event",
		zap.Int("bid_id", p.BidID),
		zap.Int("task_id", p.TaskID),
	)

	content := fmt.Sprintf("New bid of $%.2f on your task \"%s\"", p.Amount, p.TaskTitle)
	if err := h.notifications.Notify(ctx, p.ClientID, "new_bid", content); err != nil {
		return h.policy.Fail(ctx, "bid_submitted", "bid.submitted", p.BidID, raw, err)
	}
	h.policy.ClearRetries(ctx, "bid_submitted", p.BidID)
	return nil
}

package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/service"
)

// BidAcceptedHandler fans one acceptance out into both parties'
// notifications and activates the task chat room. It consumes the outbox
// event, so it may see the same acceptance more than once.
type BidAcceptedHandler struct {
	notifications *service.NotificationService
	realtime      service.RealtimePublisher
	policy        *RetryPolicy
	logger        *zap.Logger
}

func NewBidAcceptedHandler(
	notifications *service.NotificationService,
	realtime service.RealtimePublisher,
	policy *RetryPolicy,
	logger *zap.Logger,
) *BidAcceptedHandler {
	return &BidAcceptedHandler{
		notifications: notifications,
		realtime:      realtime,
		policy:        policy,
		logger:        logger,
	}
}

func (h *BidAcceptedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.BidAcceptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal BidAcceptedPayload", zap.Error(err))
		return nil
	}

	if !h.policy.AcquireOnce(ctx, "bid_accepted", p.BidID) {
		return nil
	}

	h.logger.Info("Handling bid.accepted event",
		zap.Int("bid_id", p.BidID),
		zap.Int("task_id", p.TaskID),
		zap.Int("freelancer_id", p.FreelancerID),
	)

	// 先通知自由职业者，再通知客户
	freelancerMsg := fmt.Sprintf("You were hired for \"%s\"", p.TaskTitle)
	if err := h.notifications.Notify(ctx, p.FreelancerID, "hired", freelancerMsg); err != nil {
		return h.policy.Fail(ctx, "bid_accepted", "bid.accepted", p.BidID, raw, err)
	}

	clientMsg := fmt.Sprintf("You accepted a bid of $%.2f on \"%s\"", p.Amount, p.TaskTitle)
	if err := h.notifications.Notify(ctx, p.ClientID, "bid_accepted", clientMsg); err != nil {
		return h.policy.Fail(ctx, "bid_accepted", "bid.accepted", p.BidID, raw, err)
	}

	// 聊天室激活推送，离线方上线后通过任务状态看到
	payload := map[string]any{"task_id": p.TaskID, "task_title": p.TaskTitle}
	for _, userID := range []int{p.FreelancerID, p.ClientID} {
		if err := h.realtime.PushToUser(userID, "chat_activated", payload); err != nil {
			h.logger.Debug("chat_activated not delivered",
				zap.Int("user_id", userID),
				zap.Int("task_id", p.TaskID),
				zap.Error(err),
			)
		}
	}
	h.policy.ClearRetries(ctx, "bid_accepted", p.BidID)
	return nil
}

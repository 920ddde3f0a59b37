package service

import (
	"context"

	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/pkg/metrics"
)

// PresenceChecker reports whether a user currently has a live session.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID int) (bool, error)
}

type NotificationService struct {
	store    NotificationStore
	presence PresenceChecker
	realtime RealtimePublisher
	logger   *zap.Logger
}

func NewNotificationService(store NotificationStore, presence PresenceChecker, realtime RealtimePublisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{store: store, presence: presence, realtime: realtime, logger: logger}
}

// Notify persists the notification and then attempts a realtime push.
// Persistence is the source of truth: an offline recipient or a failed
// push never rolls the row back, it just waits in the inbox.
func (s *NotificationService) Notify(ctx context.Context, userID int, notifType, content string) error {
	n := &model.Notification{
		UserID:  userID,
		Type:    notifType,
		Content: content,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return err
	}

	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		s.logger.Warn("Presence lookup failed, skipping push",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		metrics.IncrementNotificationPush("failed")
		return nil
	}
	if !online {
		metrics.IncrementNotificationPush("offline")
		return nil
	}

	if err := s.realtime.PushToUser(userID, "new_notification", n); err != nil {
		s.logger.Warn("Realtime push failed",
			zap.Int("user_id", userID),
			zap.String("type", notifType),
			zap.Error(err),
		)
		metrics.IncrementNotificationPush("failed")
		return nil
	}
	metrics.IncrementNotificationPush("delivered")
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID int) ([]model.Notification, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int) error {
	return s.store.MarkRead(ctx, notificationID, userID)
}

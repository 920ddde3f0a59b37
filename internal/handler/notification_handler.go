package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/apperror"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// ListNotifications handles GET /api/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	list, err := h.notifications.List(c.Request.Context(), actor.ID)
	if err != nil {
		h.logger.Error("ListNotifications: failed to fetch",
			zap.Int("user_id", actor.ID),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"notifications": list})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, apperror.ValidationFailed(map[string]string{"id": "must be an integer"}))
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), actor.ID, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"status": "read"})
}

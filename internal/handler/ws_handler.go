package handler

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/realtime"
	"freelancehub/internal/service"
	"freelancehub/pkg/util"
)

type WSHandler struct {
	hub       *realtime.Hub
	presence  *realtime.Presence
	users     service.UserStore
	jwtSecret string
	logger    *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, presence *realtime.Presence, users service.UserStore, jwtSecret string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		presence:  presence,
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Serve handles GET /ws. The token is verified BEFORE the websocket
// upgrade, so an invalid token gets a plain 401 instead of a socket that
// closes immediately.
func (h *WSHandler) Serve(c *gin.Context) {
	token := util.ExtractToken(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{
			"kind":    "unauthenticated",
			"message": "missing token",
		}})
		return
	}

	userID, _, err := util.ParseJWT(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{
			"kind":    "unauthenticated",
			"message": "invalid token",
		}})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{
			"kind":    "unauthenticated",
			"message": "unknown user",
		}})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket accept failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return
	}

	if err := h.presence.Online(c.Request.Context(), userID); err != nil {
		h.logger.Warn("Failed to record presence",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
	defer func() {
		if err := h.presence.Offline(context.Background(), userID); err != nil {
			h.logger.Warn("Failed to clear presence",
				zap.Int("user_id", userID),
				zap.Error(err),
			)
		}
	}()

	session := realtime.NewSession(userID, user.Name, realtime.NewWSConn(conn), h.hub, h.logger)
	session.Run(c.Request.Context())
}

package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"freelancehub/pkg/apperror"
)

const writeTimeout = 5 * time.Second

// conn is the transport seam under a session. Production uses WSConn on
// top of coder/websocket; tests substitute an in-memory pipe.
type conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type WSConn struct {
	c *websocket.Conn
}

func NewWSConn(c *websocket.Conn) *WSConn {
	return &WSConn{c: c}
}

func (w *WSConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *WSConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *WSConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}

// Session is a single authenticated websocket connection.
type Session struct {
	userID   int
	userName string
	conn     conn
	hub      *Hub
	logger   *zap.Logger

	// serializes writes so pushes from other goroutines never interleave
	writeMu sync.Mutex
}

func NewSession(userID int, userName string, c conn, hub *Hub, logger *zap.Logger) *Session {
	return &Session{
		userID:   userID,
		userName: userName,
		conn:     c,
		hub:      hub,
		logger:   logger,
	}
}

func (s *Session) UserID() int { return s.userID }

// Run registers the session and consumes inbound frames until the
// connection drops. It always unregisters before returning.
func (s *Session) Run(ctx context.Context) {
	s.hub.Register(s)
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendError(apperror.ValidationFailed(map[string]string{"frame": "malformed JSON"}))
			continue
		}
		s.dispatch(ctx, frame)
	}
}

func (s *Session) dispatch(ctx context.Context, frame inboundFrame) {
	var err error
	switch frame.Type {
	case frameJoinTask:
		err = s.hub.JoinTask(ctx, s, frame.TaskID)
	case frameLeaveTask:
		s.hub.LeaveTask(s, frame.TaskID)
	case frameSendMessage:
		err = s.hub.SendMessage(ctx, s, frame.TaskID, frame.Content)
	case frameTyping:
		err = s.hub.Typing(ctx, s, frame.TaskID, frame.IsTyping)
	default:
		err = apperror.ValidationFailed(map[string]string{"type": "unknown frame type"})
	}

	if err != nil {
		if appErr := apperror.AsError(err); appErr != nil {
			s.sendError(appErr)
			return
		}
		s.logger.Error("Websocket frame handling failed",
			zap.Int("user_id", s.userID),
			zap.String("frame_type", frame.Type),
			zap.Error(err),
		)
		s.sendError(apperror.New(apperror.KindInternal, "internal error"))
	}
}

// send marshals an envelope and writes it with a bounded deadline. One
// slow client must not hold up a room broadcast for long.
func (s *Session) send(event string, payload any) {
	data, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		s.logger.Error("Failed to marshal websocket event",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, data); err != nil {
		s.logger.Warn("Websocket write failed",
			zap.Int("user_id", s.userID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (s *Session) sendError(appErr *apperror.Error) {
	// 鉴权失败用独立的事件类型，前端据此清理房间状态
	if appErr.Kind == apperror.KindForbidden {
		s.send(EventUnauthorized, map[string]any{"message": appErr.Message})
		return
	}
	s.send(EventError, map[string]any{
		"kind":    string(appErr.Kind),
		"message": appErr.Message,
	})
}

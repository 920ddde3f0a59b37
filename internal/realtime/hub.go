package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/metrics"
)

// Authorizer decides whether a user may take part in a task's chat room.
// The decision is re-derived from current state on every operation.
type Authorizer interface {
	IsAuthorizedForTask(ctx context.Context, userID, taskID int) (bool, error)
}

// MessageStore persists chat messages and serves room history.
type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	RecentByTask(ctx context.Context, taskID, limit int) ([]model.Message, error)
}

// Hub owns all live sessions and task rooms on this server instance.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[int]map[*Session]struct{} // task ID → members
	users    map[int]map[*Session]struct{} // user ID → sessions
	auth     Authorizer
	messages MessageStore
	history  int
	logger   *zap.Logger
}

func NewHub(auth Authorizer, messages MessageStore, historyLimit int, logger *zap.Logger) *Hub {
	return &Hub{
		rooms:    make(map[int]map[*Session]struct{}),
		users:    make(map[int]map[*Session]struct{}),
		auth:     auth,
		messages: messages,
		history:  historyLimit,
		logger:   logger,
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	if h.users[s.userID] == nil {
		h.users[s.userID] = make(map[*Session]struct{})
	}
	h.users[s.userID][s] = struct{}{}
	h.mu.Unlock()

	metrics.WebsocketConnections.Inc()
	h.logger.Info("Websocket session opened", zap.Int("user_id", s.userID))
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	for taskID, members := range h.rooms {
		if _, ok := members[s]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, taskID)
			}
		}
	}
	if sessions, ok := h.users[s.userID]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.users, s.userID)
		}
	}
	h.mu.Unlock()

	metrics.WebsocketConnections.Dec()
	h.logger.Info("Websocket session closed", zap.Int("user_id", s.userID))
}

// JoinTask admits the session into a task room after an authorization
// check, then replays the most recent history to the joining session only.
func (h *Hub) JoinTask(ctx context.Context, s *Session, taskID int) error {
	ok, err := h.auth.IsAuthorizedForTask(ctx, s.userID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you are not a participant of task %d", taskID)
	}

	h.mu.Lock()
	if h.rooms[taskID] == nil {
		h.rooms[taskID] = make(map[*Session]struct{})
	}
	h.rooms[taskID][s] = struct{}{}
	h.mu.Unlock()

	history, err := h.messages.RecentByTask(ctx, taskID, h.history)
	if err != nil {
		h.logger.Error("Failed to load chat history",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		history = nil
	}
	if history == nil {
		history = []model.Message{}
	}

	s.send(EventJoinedTask, map[string]any{"task_id": taskID})
	s.send(EventLoadMessages, history)
	return nil
}

func (h *Hub) LeaveTask(s *Session, taskID int) {
	h.mu.Lock()
	if members, ok := h.rooms[taskID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, taskID)
		}
	}
	h.mu.Unlock()

	s.send(EventLeftTask, map[string]any{"task_id": taskID})
}

// SendMessage re-checks authorization, persists the message, and only
// then broadcasts it. A message that fails to persist is never shown to
// anyone.
func (h *Hub) SendMessage(ctx context.Context, s *Session, taskID int, content string) error {
	if content == "" {
		return apperror.ValidationFailed(map[string]string{"content": "must not be empty"})
	}

	ok, err := h.auth.IsAuthorizedForTask(ctx, s.userID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you are not a participant of task %d", taskID)
	}

	msg := &model.Message{
		TaskID:    taskID,
		SenderID:  s.userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := h.messages.Insert(ctx, msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	metrics.ChatMessageCount.Inc()

	h.broadcast(taskID, nil, EventNewMessage, map[string]any{
		"message": msg,
		"sender":  model.PublicUser{ID: s.userID, Name: s.userName},
	})
	return nil
}

// Typing fans a transient typing indicator to the other room members.
// Nothing is persisted.
func (h *Hub) Typing(ctx context.Context, s *Session, taskID int, isTyping bool) error {
	ok, err := h.auth.IsAuthorizedForTask(ctx, s.userID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you are not a participant of task %d", taskID)
	}

	h.broadcast(taskID, s, EventUserTyping, map[string]any{
		"task_id":   taskID,
		"user":      model.PublicUser{ID: s.userID, Name: s.userName},
		"is_typing": isTyping,
	})
	return nil
}

// PushToUser delivers an event to every live session of the user. It
// reports an error only when the user has no session on this instance.
func (h *Hub) PushToUser(userID int, event string, payload any) error {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.users[userID]))
	for s := range h.users[userID] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	if len(sessions) == 0 {
		return fmt.Errorf("user %d has no live session", userID)
	}
	for _, s := range sessions {
		s.send(event, payload)
	}
	return nil
}

// broadcast sends an event to every member of a task room, skipping
// exclude when it is non-nil.
func (h *Hub) broadcast(taskID int, exclude *Session, event string, payload any) {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[taskID]))
	for s := range h.rooms[taskID] {
		if s != exclude {
			members = append(members, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range members {
		s.send(event, payload)
	}
}

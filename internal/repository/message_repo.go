package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freelancehub/internal/model"
)

type MessageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMessageRepository(db *pgxpool.Pool, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{db: db, logger: logger}
}

func (r *MessageRepository) Insert(ctx context.Context, m *model.Message) error {
	query := `
        INSERT INTO messages (task_id, sender_id, content)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, m.TaskID, m.SenderID, m.Content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert message",
			zap.Error(err),
			zap.Int("task_id", m.TaskID),
			zap.Int("sender_id", m.SenderID),
		)
		return err
	}
	return nil
}

// RecentByTask returns the most recent limit messages, oldest first, so a
// joining client can render them in order.
func (r *MessageRepository) RecentByTask(ctx context.Context, taskID, limit int) ([]model.Message, error) {
	query := `
        SELECT id, task_id, sender_id, content, created_at
        FROM (
            SELECT id, task_id, sender_id, content, created_at
            FROM messages
            WHERE task_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, taskID, limit)
	if err != nil {
		r.logger.Error("Failed to query messages",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.TaskID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) (int, error) {
	r.logger.Debug("Inserting task",
		zap.Int("client_id", t.ClientID),
		zap.String("title", t.Title),
	)
	query := `
        INSERT INTO tasks (client_id, title, description, category, budget, budget_type, deadline, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.ClientID,
		t.Title,
		t.Description,
		t.Category,
		t.Budget,
		t.BudgetType,
		t.Deadline,
		t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("client_id", t.ClientID),
		)
		return 0, err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("client_id", t.ClientID),
	)
	return t.ID, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int) (*model.Task, error) {
	query := `
        SELECT id, client_id, title, description, category, budget, budget_type, deadline, status, created_at, updated_at
        FROM tasks
        WHERE id = $1
    `
	var t model.Task
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.ClientID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.Budget,
		&t.BudgetType,
		&t.Deadline,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) ListOpen(ctx context.Context) ([]model.Task, error) {
	query := `
        SELECT id, client_id, title, description, category, budget, budget_type, deadline, status, created_at, updated_at
        FROM tasks
        WHERE status = 'open'
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query open tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.ClientID,
			&t.Title,
			&t.Description,
			&t.Category,
			&t.Budget,
			&t.BudgetType,
			&t.Deadline,
			&t.Status,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Cancel sets an open task to cancelled and rejects its pending bids in one
// transaction. It returns the freelancer IDs whose bids were rejected.
func (r *TaskRepository) Cancel(ctx context.Context, taskID int) ([]int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE`, taskID).Scan(&status)
	if err != nil {
		return nil, err
	}
	if status != model.TaskStatusOpen {
		return nil, apperror.InvalidState("task is %s, only open tasks can be cancelled", status)
	}

	rows, err := tx.Query(ctx, `
        UPDATE bids SET status = 'rejected', updated_at = NOW()
        WHERE task_id = $1 AND status = 'pending'
        RETURNING freelancer_id
    `, taskID)
	if err != nil {
		return nil, err
	}
	bidderIDs := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		bidderIDs = append(bidderIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE tasks SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, taskID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.logger.Info("Task cancelled",
		zap.Int("task_id", taskID),
		zap.Int("rejected_bids", len(bidderIDs)),
	)
	return bidderIDs, nil
}

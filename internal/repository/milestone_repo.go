package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) (int, error) {
	r.logger.Debug("Inserting milestone",
		zap.Int("task_id", m.TaskID),
		zap.String("title", m.Title),
	)
	query := `
        INSERT INTO milestones (task_id, title, description, amount, due_date, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		m.TaskID,
		m.Title,
		m.Description,
		m.Amount,
		m.DueDate,
		m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Milestone inserted successfully",
		zap.Int("id", m.ID),
		zap.Int("task_id", m.TaskID),
	)
	return m.ID, nil
}

func (r *MilestoneRepository) FindByID(ctx context.Context, id int) (*model.Milestone, error) {
	query := `
        SELECT id, task_id, title, description, amount, due_date, status, created_at, updated_at
        FROM milestones
        WHERE id = $1
    `
	var m model.Milestone
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.TaskID,
		&m.Title,
		&m.Description,
		&m.Amount,
		&m.DueDate,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) FindByTaskID(ctx context.Context, taskID int) ([]model.Milestone, error) {
	query := `
        SELECT id, task_id, title, description, amount, due_date, status, created_at, updated_at
        FROM milestones
        WHERE task_id = $1
        ORDER BY due_date ASC
    `
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to find milestones", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	milestones := []model.Milestone{}
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(
			&m.ID,
			&m.TaskID,
			&m.Title,
			&m.Description,
			&m.Amount,
			&m.DueDate,
			&m.Status,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan milestone", zap.Error(err))
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// MarkCompleted moves a pending milestone to completed. The guard is a
// single conditional UPDATE, so a concurrent call cannot complete the same
// milestone twice.
func (r *MilestoneRepository) MarkCompleted(ctx context.Context, id int) (*model.Milestone, error) {
	query := `
        UPDATE milestones SET status = 'completed', updated_at = NOW()
        WHERE id = $1 AND status = 'pending'
        RETURNING id, task_id, title, description, amount, due_date, status, created_at, updated_at
    `
	var m model.Milestone
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.TaskID,
		&m.Title,
		&m.Description,
		&m.Amount,
		&m.DueDate,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == nil {
		r.logger.Info("Milestone marked completed", zap.Int("milestone_id", id))
		return &m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// 没有命中：要么不存在，要么状态不是 pending
	var status string
	err = r.db.QueryRow(ctx, `SELECT status FROM milestones WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("milestone %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return nil, apperror.InvalidState("milestone is %s, completion can only be requested while it is pending", status)
}

// MarkPaid runs the payment-release transaction: the milestone and its task
// rows are locked, the milestone becomes paid, and the task-completion
// rollup is recomputed — the task is completed iff no unpaid milestone
// remains, otherwise the first payment moves an assigned task to
// in_progress. Returns the paid milestone and the task status after commit.
func (r *MilestoneRepository) MarkPaid(ctx context.Context, id int) (*model.Milestone, string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	var m model.Milestone
	err = tx.QueryRow(ctx, `
        SELECT id, task_id, title, description, amount, due_date, status, created_at, updated_at
        FROM milestones
        WHERE id = $1
        FOR UPDATE
    `, id).Scan(
		&m.ID,
		&m.TaskID,
		&m.Title,
		&m.Description,
		&m.Amount,
		&m.DueDate,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperror.NotFound("milestone %d not found", id)
		}
		return nil, "", err
	}
	if m.Status != model.MilestoneStatusCompleted {
		return nil, "", apperror.InvalidState("milestone is %s, payment can only be released once it is completed", m.Status)
	}

	var taskStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE`, m.TaskID).Scan(&taskStatus)
	if err != nil {
		return nil, "", err
	}

	_, err = tx.Exec(ctx, `UPDATE milestones SET status = 'paid', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return nil, "", err
	}
	m.Status = model.MilestoneStatusPaid

	// 任务完成判定：所有里程碑都 paid 时任务才算 completed
	var unpaid int
	err = tx.QueryRow(ctx, `
        SELECT COUNT(*) FROM milestones WHERE task_id = $1 AND status <> 'paid'
    `, m.TaskID).Scan(&unpaid)
	if err != nil {
		return nil, "", err
	}

	switch {
	case unpaid == 0:
		taskStatus = model.TaskStatusCompleted
		_, err = tx.Exec(ctx, `UPDATE tasks SET status = 'completed', updated_at = NOW() WHERE id = $1`, m.TaskID)
	case taskStatus == model.TaskStatusAssigned:
		// 第一笔付款：任务进入进行中
		taskStatus = model.TaskStatusInProgress
		_, err = tx.Exec(ctx, `UPDATE tasks SET status = 'in_progress', updated_at = NOW() WHERE id = $1`, m.TaskID)
	}
	if err != nil {
		return nil, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}

	r.logger.Info("Milestone paid",
		zap.Int("milestone_id", id),
		zap.Int("task_id", m.TaskID),
		zap.String("task_status", taskStatus),
		zap.Int("unpaid_remaining", unpaid),
	)
	return &m, taskStatus, nil
}

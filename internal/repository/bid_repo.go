package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/outbox"
)

type BidRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewBidRepository(db *pgxpool.Pool, logger *zap.Logger) *BidRepository {
	return &BidRepository{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

func (r *BidRepository) Insert(ctx context.Context, b *model.Bid) (int, error) {
	r.logger.Debug("Inserting bid",
		zap.Int("task_id", b.TaskID),
		zap.Int("freelancer_id", b.FreelancerID),
	)
	query := `
        INSERT INTO bids (task_id, freelancer_id, amount, proposal, timeline, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		b.TaskID,
		b.FreelancerID,
		b.Amount,
		b.Proposal,
		b.Timeline,
		b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		// bids 有 (task_id, freelancer_id) 唯一索引
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, apperror.Conflict("you have already bid on this task")
		}
		r.logger.Error("Failed to insert bid",
			zap.Error(err),
			zap.Int("task_id", b.TaskID),
			zap.Int("freelancer_id", b.FreelancerID),
		)
		return 0, err
	}
	r.logger.Info("Bid inserted successfully",
		zap.Int("bid_id", b.ID),
		zap.Int("task_id", b.TaskID),
	)
	return b.ID, nil
}

func (r *BidRepository) FindByID(ctx context.Context, id int) (*model.Bid, error) {
	query := `
        SELECT id, task_id, freelancer_id, amount, proposal, timeline, status, created_at, updated_at
        FROM bids
        WHERE id = $1
    `
	var b model.Bid
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.TaskID,
		&b.FreelancerID,
		&b.Amount,
		&b.Proposal,
		&b.Timeline,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BidRepository) FindByTaskAndFreelancer(ctx context.Context, taskID, freelancerID int) (*model.Bid, error) {
	query := `
        SELECT id, task_id, freelancer_id, amount, proposal, timeline, status, created_at, updated_at
        FROM bids
        WHERE task_id = $1 AND freelancer_id = $2
    `
	var b model.Bid
	err := r.db.QueryRow(ctx, query, taskID, freelancerID).Scan(
		&b.ID,
		&b.TaskID,
		&b.FreelancerID,
		&b.Amount,
		&b.Proposal,
		&b.Timeline,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindAcceptedByTask returns the unique accepted bid for a task,
// or pgx.ErrNoRows when no bid has been accepted yet.
func (r *BidRepository) FindAcceptedByTask(ctx context.Context, taskID int) (*model.Bid, error) {
	query := `
        SELECT id, task_id, freelancer_id, amount, proposal, timeline, status, created_at, updated_at
        FROM bids
        WHERE task_id = $1 AND status = 'accepted'
    `
	var b model.Bid
	err := r.db.QueryRow(ctx, query, taskID).Scan(
		&b.ID,
		&b.TaskID,
		&b.FreelancerID,
		&b.Amount,
		&b.Proposal,
		&b.Timeline,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BidRepository) ListByTask(ctx context.Context, taskID int) ([]model.Bid, error) {
	query := `
        SELECT id, task_id, freelancer_id, amount, proposal, timeline, status, created_at, updated_at
        FROM bids
        WHERE task_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := []model.Bid{}
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(
			&b.ID,
			&b.TaskID,
			&b.FreelancerID,
			&b.Amount,
			&b.Proposal,
			&b.Timeline,
			&b.Status,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// Accept runs the bid-acceptance transaction: the task row is locked, the
// target bid becomes accepted, every sibling bid is rejected and the task
// moves to assigned. The given outbox events are written in the same
// transaction so they become visible only if the acceptance commits.
//
// Two concurrent calls on the same task serialize on the row lock; the
// loser observes a non-open task and fails with InvalidState.
func (r *BidRepository) Accept(ctx context.Context, taskID, bidID int, events []outbox.Pending) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE`, taskID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("task %d not found", taskID)
		}
		return err
	}
	if status != model.TaskStatusOpen {
		return apperror.InvalidState("task is %s, bids can only be accepted while it is open", status)
	}

	tag, err := tx.Exec(ctx, `
        UPDATE bids SET status = 'accepted', updated_at = NOW()
        WHERE id = $1 AND task_id = $2 AND status = 'pending'
    `, bidID, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.InvalidState("bid %d is no longer pending", bidID)
	}

	_, err = tx.Exec(ctx, `
        UPDATE bids SET status = 'rejected', updated_at = NOW()
        WHERE task_id = $1 AND id <> $2 AND status = 'pending'
    `, taskID, bidID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `UPDATE tasks SET status = 'assigned', updated_at = NOW() WHERE id = $1`, taskID)
	if err != nil {
		return err
	}

	if err := outbox.InsertPendingInTx(ctx, tx, r.outboxRepo, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.Info("Bid accepted",
		zap.Int("bid_id", bidID),
		zap.Int("task_id", taskID),
	)
	return nil
}

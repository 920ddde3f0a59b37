package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// Pending 描述一个尚未写入 outbox 的事件，由业务层在事务提交前组装
type Pending struct {
	AggregateType string
	AggregateID   *int64
	RoutingKey    string
	Payload       any
}

// InsertEventInTx 在事务中插入事件到 outbox（辅助函数）
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID *int64,
	routingKey string,
	payload interface{},
) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        "pending",
	}

	return repo.InsertEvent(ctx, tx, event)
}

// InsertPendingInTx 批量插入 Pending 事件
func InsertPendingInTx(ctx context.Context, tx pgx.Tx, repo *Repository, pending []Pending) error {
	for _, p := range pending {
		if err := InsertEventInTx(ctx, tx, repo, p.AggregateType, p.AggregateID, p.RoutingKey, p.Payload); err != nil {
			return err
		}
	}
	return nil
}

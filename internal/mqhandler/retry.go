package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"freelancehub/pkg/util"
)

// RetryCounter tracks how many times a message has been requeued, keyed
// per handler and entity. Backed by redis so the count survives redelivery.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DLQPublisher parks messages whose retry budget is exhausted.
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// 同一条消息最多重投这么多次，之后进死信队列
const maxRequeues = 5

// RetryPolicy is the shared message lifecycle for all consumers:
// dedupe on entry, bounded requeue on retryable failure, dead-letter
// when the budget runs out, drop everything else with a log.
type RetryPolicy struct {
	deduper Deduper
	retries RetryCounter
	dlq     DLQPublisher
	logger  *zap.Logger
}

func NewRetryPolicy(deduper Deduper, retries RetryCounter, dlq DLQPublisher, logger *zap.Logger) *RetryPolicy {
	return &RetryPolicy{deduper: deduper, retries: retries, dlq: dlq, logger: logger}
}

// AcquireOnce reports whether this is the first processing attempt for
// the given entity.
func (p *RetryPolicy) AcquireOnce(ctx context.Context, handler string, entityID int) bool {
	return p.deduper.AcquireOnce(ctx, handler, entityID)
}

// Fail decides the fate of a message after a handler error. A non-nil
// return tells the consumer to nack and requeue.
func (p *RetryPolicy) Fail(ctx context.Context, handler, routingKey string, entityID int, raw json.RawMessage, err error) error {
	retryable, errType := util.IsRetryableError(err)
	if !retryable {
		p.logger.Error("Dropping message after non-retryable failure",
			zap.String("handler", handler),
			zap.Int("entity_id", entityID),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		return nil
	}

	key := util.FormatRetryKey(handler, entityID)
	count, cerr := p.retries.IncrementAndGet(ctx, key)
	if cerr != nil {
		// Redis 不可用时按第一次重试处理
		p.logger.Warn("Retry counter unavailable, assuming first attempt",
			zap.String("handler", handler),
			zap.Error(cerr),
		)
		count = 1
	}

	if count >= maxRequeues {
		p.logger.Error("Retry budget exhausted, dead-lettering message",
			zap.String("handler", handler),
			zap.String("routing_key", routingKey),
			zap.Int("entity_id", entityID),
			zap.Int64("attempts", count),
			zap.Error(err),
		)
		if derr := p.dlq.PublishToDLQ(routingKey, raw, err.Error()); derr != nil {
			// 死信队列也写不进去就继续重投，不能丢消息
			p.logger.Error("Failed to publish to DLQ, requeueing instead",
				zap.String("handler", handler),
				zap.Error(derr),
			)
			p.deduper.Release(ctx, handler, entityID)
			return err
		}
		_ = p.retries.Reset(ctx, key)
		return nil
	}

	p.logger.Warn("Retryable failure, releasing dedup lock for requeue",
		zap.String("handler", handler),
		zap.Int("entity_id", entityID),
		zap.Int64("attempt", count),
		zap.String("error_type", errType),
		zap.Error(err),
	)
	p.deduper.Release(ctx, handler, entityID)
	return err
}

// ClearRetries resets the counter once a message succeeds.
func (p *RetryPolicy) ClearRetries(ctx context.Context, handler string, entityID int) {
	if err := p.retries.Reset(ctx, util.FormatRetryKey(handler, entityID)); err != nil {
		p.logger.Warn("Failed to reset retry counter",
			zap.String("handler", handler),
			zap.Int("entity_id", entityID),
			zap.Error(err),
		)
	}
}

package events

import (
	"go.uber.org/zap"

	"freelancehub/pkg/circuitbreaker"
	"freelancehub/pkg/mq"
)

// BreakerPublisher wraps the MQ publisher with a circuit breaker so a
// broker outage fails fast instead of blocking every request that only
// publishes best-effort events.
type BreakerPublisher struct {
	publisher *mq.Publisher
	breaker   *circuitbreaker.CircuitBreaker
	logger    *zap.Logger
}

func NewBreakerPublisher(publisher *mq.Publisher, logger *zap.Logger) *BreakerPublisher {
	return &BreakerPublisher{
		publisher: publisher,
		breaker:   circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:    logger,
	}
}

func (p *BreakerPublisher) Publish(routingKey string, payload any) error {
	err := p.breaker.Execute(func() error {
		return p.publisher.Publish(routingKey, payload)
	})
	if err == circuitbreaker.ErrOpen {
		p.logger.Warn("MQ circuit breaker open, dropping event",
			zap.String("routing_key", routingKey),
		)
	}
	return err
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 慢查询计数
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of queries exceeding the slow query threshold",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)

	// 当前 WebSocket 连接数
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of live websocket connections",
		},
	)

	// 通知推送计数
	NotificationPushCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_push_count",
			Help: "Total number of realtime notification pushes",
		},
		[]string{"result"}, // result: delivered, offline, failed
	)

	// 投标计数
	BidCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bid_count",
			Help: "Total number of bid operations",
		},
		[]string{"operation"}, // operation: submitted, accepted
	)

	// 里程碑付款计数
	PaymentReleasedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_released_count",
			Help: "Total number of released milestone payments",
		},
	)

	// 聊天消息计数
	ChatMessageCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_message_count",
			Help: "Total number of persisted chat messages",
		},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordSlowQuery(duration time.Duration) {
	SlowQueryDuration.Observe(duration.Seconds())
}

func IncrementNotificationPush(result string) {
	NotificationPushCount.WithLabelValues(result).Inc()
}

func IncrementBid(operation string) {
	BidCount.WithLabelValues(operation).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// HTTP Метрики
// =============================================================================

// HttpRequestsTotal - счётчик всех HTTP запросов
// Labels: service, method, path, status
var HttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"service", "method", "path", "status"},
)

// HttpRequestDuration - гистограмма времени ответа
// Пример: histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))
var HttpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds",
		// Бакеты от 1ms до 10s
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"service", "method", "path"},
)

// HttpRequestsInFlight - текущее количество обрабатываемых запросов
var HttpRequestsInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being processed",
	},
	[]string{"service"},
)

// =============================================================================
// Database Метрики
// =============================================================================

// DbQueryDuration - время выполнения SQL запросов
var DbQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"service", "operation", "table"},
)

// DbErrors - счётчик ошибок базы данных
var DbErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_errors_total",
		Help: "Total number of database errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Redis Метрики
// =============================================================================

// RedisOperationDuration - время операций Redis
var RedisOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Duration of Redis operations in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	},
	[]string{"service", "operation"},
)

// RedisErrors - ошибки Redis
var RedisErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Kafka Метрики
// =============================================================================

// KafkaMessagesProduced - отправленные сообщения
var KafkaMessagesProduced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_produced_total",
		Help: "Total number of Kafka messages produced",
	},
	[]string{"service", "topic"},
)

// KafkaProduceDuration - время отправки сообщения
var KafkaProduceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kafka_produce_duration_seconds",
		Help:    "Duration of Kafka produce operations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	},
	[]string{"service", "topic"},
)

// KafkaErrors - ошибки Kafka
var KafkaErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_errors_total",
		Help: "Total number of Kafka errors",
	},
	[]string{"service", "topic", "operation"}, // operation: produce, consume
)

// =============================================================================
// Business Метрики (специфичные для Campusrate)
// =============================================================================

// ReviewsSubmitted - принятые отзывы по итоговому статусу после ingestion
var ReviewsSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Total number of review submissions accepted",
	},
	[]string{"target_kind", "status"}, // status: published, flagged
)

// ReviewsRejected - отклонённые отправки
var ReviewsRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reviews_rejected_total",
		Help: "Total number of review submissions rejected",
	},
	[]string{"reason"}, // validation, rate_limited, ingestion_failed, target_not_found
)

// IngestionRollbacks - компенсирующие откаты саги (review без mapping)
var IngestionRollbacks = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "ingestion_rollbacks_total",
		Help: "Total number of compensating review deletes after a failed mapping write",
	},
)

// RiskScoreDistribution - распределение composite score
var RiskScoreDistribution = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "risk_composite_score",
		Help:    "Distribution of composite risk scores",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	},
)

// ScorerTimeouts - срабатывания fail-closed при таймауте скоринга
var ScorerTimeouts = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "risk_scorer_timeouts_total",
		Help: "Total number of risk scorer timeouts treated as maximum risk",
	},
)

// FlagsAccepted - принятые жалобы
var FlagsAccepted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flags_accepted_total",
		Help: "Total number of accepted flags",
	},
	[]string{"source", "reason"}, // source: user, auto
)

// FlagsDuplicate - идемпотентные повторы жалоб
var FlagsDuplicate = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "flags_duplicate_total",
		Help: "Total number of duplicate flags resolved as no-ops",
	},
)

// ModerationTransitions - переходы состояний модерации
var ModerationTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moderation_transitions_total",
		Help: "Total number of moderation state transitions",
	},
	[]string{"action", "actor_kind"}, // actor_kind: system, moderator, author
)

// ModerationRejected - отклонённые переходы (InvalidTransition)
var ModerationRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moderation_invalid_transitions_total",
		Help: "Total number of rejected moderation transitions",
	},
	[]string{"action"},
)

// RateLimitDenials - отказы rate limiter'а
var RateLimitDenials = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_denials_total",
		Help: "Total number of rate limited actions",
	},
	[]string{"action_kind"},
)

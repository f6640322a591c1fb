package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts detail and catalog cache reads by keyspace and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_cache_lookups_total",
		Help: "Redis cache lookups by keyspace and hit or miss",
	}, []string{"keyspace", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "showcase_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ModerationTransitions counts applied project state transitions.
	ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_moderation_transitions_total",
		Help: "Project moderation transitions by action and resulting status",
	}, []string{"action", "to"})

	// SweepProcessed counts projects auto-rejected by the deadline sweep.
	SweepProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showcase_deadline_sweep_processed_total",
		Help: "Projects auto-rejected by the deadline sweep",
	})

	// SweepFailures counts per-project failures inside deadline sweeps.
	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showcase_deadline_sweep_failures_total",
		Help: "Projects the deadline sweep failed to transition",
	})

	// SweepDuration records the wall time of each deadline sweep run.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "showcase_deadline_sweep_duration_seconds",
		Help:    "Deadline sweep run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ReviewsSubmitted counts new reviews by initial status and spam flag.
	ReviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_reviews_submitted_total",
		Help: "Reviews submitted by initial status and spam flag",
	}, []string{"status", "spam"})

	// WebSocketConnectionsTotal is the gauge of open notification sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "showcase_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showcase_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

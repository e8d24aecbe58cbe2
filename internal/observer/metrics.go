package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsEnabled = true

var (
	boardLabels      = []string{"agent_id"}
	transitionLabels = []string{"agent_id", "status"}

	boardListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farming_tool_board_listings_total",
			Help: "Total number of board listings served.",
		},
		boardLabels,
	)
	workItemsActivatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farming_tool_work_items_activated_total",
			Help: "Total number of work items inserted by the activation protocol.",
		},
		boardLabels,
	)
	transitionsCommittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farming_tool_transitions_committed_total",
			Help: "Total number of committed status transitions, labeled by resulting status.",
		},
		transitionLabels,
	)
	transitionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farming_tool_transitions_rejected_total",
			Help: "Total number of transition commits rejected by the feedback gate.",
		},
		boardLabels,
	)
)

var (
	dbOperationLabels = []string{"operation", "entity", "status"}

	databaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farming_tool_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

var (
	ingestLabels = []string{"kind", "result"}

	ingestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farming_tool_ingest_rows_total",
			Help: "Total number of bulk-upload rows processed, labeled by kind and result.",
		},
		ingestLabels,
	)
	ingestQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farming_tool_ingest_queue_length",
		Help: "Approximate number of rows waiting in the ingest worker pool queue.",
	})
)

// InitMetrics toggles metric collection. Call during startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

func sanitizeAgent(agentID string) string {
	if agentID == "" {
		return "unknown"
	}
	return agentID
}

// IncBoardListings increments the board listings counter.
func IncBoardListings(agentID string) {
	if !metricsEnabled {
		return
	}
	boardListingsTotal.WithLabelValues(sanitizeAgent(agentID)).Inc()
}

// AddWorkItemsActivated adds to the activation counter.
func AddWorkItemsActivated(agentID string, n int64) {
	if !metricsEnabled {
		return
	}
	workItemsActivatedTotal.WithLabelValues(sanitizeAgent(agentID)).Add(float64(n))
}

// IncTransitionsCommitted increments the committed transitions counter.
func IncTransitionsCommitted(agentID, status string) {
	if !metricsEnabled {
		return
	}
	transitionsCommittedTotal.WithLabelValues(sanitizeAgent(agentID), status).Inc()
}

// IncTransitionsRejected increments the feedback-gate rejection counter.
func IncTransitionsRejected(agentID string) {
	if !metricsEnabled {
		return
	}
	transitionsRejectedTotal.WithLabelValues(sanitizeAgent(agentID)).Inc()
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	databaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncIngestRows increments the ingest row counter.
func IncIngestRows(kind, result string) {
	if !metricsEnabled {
		return
	}
	ingestRowsTotal.WithLabelValues(kind, result).Inc()
}

// SetIngestQueueLength sets the current ingest queue length.
func SetIngestQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	ingestQueueLength.Set(float64(length))
}

package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"giveaway/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giveaway"

var (
	// Registry holds the application collectors
	Registry = prometheus.NewRegistry()

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Committed ledger entries by reason and balance type.",
		},
		[]string{"reason", "type"},
	)

	contributions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "contributions_total",
			Help:      "Committed donations and ticket purchases.",
		},
		[]string{"kind"},
	)

	ticketsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tickets_issued_total",
			Help:      "Raffle tickets issued.",
		},
	)

	conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "conflict_retries_total",
			Help:      "Transactions retried after a serialization failure or lost compare-and-swap.",
		},
		[]string{"operation"},
	)

	winnerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "winner",
			Name:      "transitions_total",
			Help:      "Giveaway status transitions.",
		},
		[]string{"to"},
	)

	auditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "writes_total",
			Help:      "Audit write attempts by outcome (ok, retry, abandoned, dropped).",
		},
		[]string{"outcome"},
	)

	auditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "queue_depth",
			Help:      "Audit entries waiting to be written.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ledgerEntries,
		contributions,
		ticketsIssued,
		conflictRetries,
		winnerTransitions,
		auditWrites,
		auditQueueDepth,
		httpRequests,
		httpDuration,
	)
}

// Handler exposes the registry over HTTP
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Attach counts committed domain events from the bus
func Attach(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		switch e := event.(type) {
		case events.BalanceChangedEvent:
			ledgerEntries.WithLabelValues(string(e.Reason), string(e.LedgerType)).Inc()
		case events.ContributionRecordedEvent:
			contributions.WithLabelValues(string(e.Kind)).Inc()
			if e.IssuedTickets > 0 {
				ticketsIssued.Add(float64(e.IssuedTickets))
			}
		case events.GiveawayStatusChangedEvent:
			winnerTransitions.WithLabelValues(string(e.NewStatus)).Inc()
		}
	})
}

// RecordConflictRetry counts a retried transaction
func RecordConflictRetry(operation string) {
	conflictRetries.WithLabelValues(operation).Inc()
}

// RecordAuditWrite counts an audit write outcome
func RecordAuditWrite(outcome string) {
	auditWrites.WithLabelValues(outcome).Inc()
}

// SetAuditQueueDepth reports the pending audit backlog
func SetAuditQueueDepth(depth int) {
	auditQueueDepth.Set(float64(depth))
}

// ObserveHTTPRequest records one HTTP request
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pantrack",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pantrack",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	scansRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pantrack",
			Subsystem: "ledger",
			Name:      "scans_total",
			Help:      "Custody scans processed by the ledger.",
		},
		[]string{"office", "outcome"},
	)
	scanSlips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pantrack",
			Subsystem: "ledger",
			Name:      "scan_slips_total",
			Help:      "Slips touched by accepted custody scans.",
		},
		[]string{"office"},
	)
	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pantrack",
			Subsystem: "ledger",
			Name:      "sessions_started_total",
			Help:      "Scan sessions minted by the ledger.",
		},
		[]string{"office"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, scansRecorded, scanSlips, sessionsStarted)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordScan(office, outcome string, slips int) {
	RegisterMetrics()
	scansRecorded.WithLabelValues(office, outcome).Inc()
	if slips > 0 {
		scanSlips.WithLabelValues(office).Add(float64(slips))
	}
}

func RecordSessionStarted(office string) {
	RegisterMetrics()
	sessionsStarted.WithLabelValues(office).Inc()
}
